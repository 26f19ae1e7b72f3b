package adtypes

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLookup(t *testing.T) {
	tests := []struct {
		description string
		format      AdFormat
		adType      AdType
		fullAdType  FullAdType
		wantAdapter AdapterID
		wantOK      bool
	}{
		{
			description: "html banner",
			format:      FormatBanner,
			adType:      AdTypeHTML,
			wantAdapter: AdapterHTMLBanner,
			wantOK:      true,
		},
		{
			description: "vast interstitial is keyed by full ad type",
			format:      FormatInterstitial,
			adType:      AdTypeInterstitial,
			fullAdType:  FullAdTypeVAST,
			wantAdapter: AdapterVASTInterstitial,
			wantOK:      true,
		},
		{
			description: "full ad type falls back to the wildcard",
			format:      FormatBanner,
			adType:      AdTypeMRAID,
			fullAdType:  FullAdTypeMRAID,
			wantAdapter: AdapterMRAIDBanner,
			wantOK:      true,
		},
		{
			description: "video native under the native format",
			format:      FormatNative,
			adType:      AdTypeVideoNative,
			wantAdapter: AdapterVideoNative,
			wantOK:      true,
		},
		{
			description: "rewarded playable",
			format:      FormatRewardedVideo,
			adType:      AdTypeRewardedPlayable,
			wantAdapter: AdapterRewardedPlayable,
			wantOK:      true,
		},
		{
			description: "native ad type in a banner slot has no adapter",
			format:      FormatBanner,
			adType:      AdTypeStaticNative,
			wantOK:      false,
		},
		{
			description: "interstitial without full ad type has no adapter",
			format:      FormatInterstitial,
			adType:      AdTypeInterstitial,
			wantOK:      false,
		},
	}

	table := DefaultAdapterTable()
	for _, test := range tests {
		adapter, ok := table.Lookup(test.format, test.adType, test.fullAdType)
		assert.Equal(t, test.wantOK, ok, test.description)
		assert.Equal(t, test.wantAdapter, adapter, test.description)
	}
}

func TestParseAdapterTable(t *testing.T) {
	table, err := ParseAdapterTable([]byte(`
adapters:
  - format: banner
    ad_type: html
    adapter: fast_html_banner
  - format: interstitial
    ad_type: interstitial
    full_ad_type: json
    adapter: json_interstitial
`))
	require.NoError(t, err)

	adapter, ok := table.Lookup(FormatBanner, AdTypeHTML, FullAdTypeNone)
	assert.True(t, ok)
	assert.Equal(t, AdapterID("fast_html_banner"), adapter, "overrides replace defaults")

	adapter, ok = table.Lookup(FormatInterstitial, AdTypeInterstitial, FullAdTypeJSON)
	assert.True(t, ok)
	assert.Equal(t, AdapterID("json_interstitial"), adapter, "overrides add mappings")

	assert.Equal(t, DefaultAdapterTable().Len()+1, table.Len())
}

func TestParseAdapterTableErrors(t *testing.T) {
	_, err := ParseAdapterTable([]byte("adapters:\n  - format: billboard\n    ad_type: html\n    adapter: x\n"))
	assert.Error(t, err)

	_, err = ParseAdapterTable([]byte("adapters:\n  - format: banner\n    ad_type: html\n"))
	assert.Error(t, err)

	_, err = ParseAdapterTable([]byte("adapters: [::"))
	assert.Error(t, err)
}

func TestLoadAdapterTable(t *testing.T) {
	table, err := LoadAdapterTable("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAdapterTable().Len(), table.Len())

	dir, err := ioutil.TempDir("", "adtypes")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "adapters.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte("adapters:\n  - format: native\n    ad_type: json\n    adapter: native_v2\n"), 0644))

	table, err = LoadAdapterTable(path)
	require.NoError(t, err)
	adapter, _ := table.Lookup(FormatNative, AdTypeStaticNative, FullAdTypeNone)
	assert.Equal(t, AdapterID("native_v2"), adapter)

	_, err = LoadAdapterTable(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParseAdFormat(t *testing.T) {
	f, ok := ParseAdFormat("rewarded-video")
	assert.True(t, ok)
	assert.Equal(t, FormatRewardedVideo, f)

	_, ok = ParseAdFormat("billboard")
	assert.False(t, ok)
}

func TestBrowserAgent(t *testing.T) {
	assert.Equal(t, BrowserAgentNative, ParseBrowserAgent(1))
	assert.Equal(t, BrowserAgentInApp, ParseBrowserAgent(0))
	assert.Equal(t, BrowserAgentInApp, ParseBrowserAgent(7))
	assert.Equal(t, "native", BrowserAgentNative.String())
}
