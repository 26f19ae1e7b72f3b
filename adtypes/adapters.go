package adtypes

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

// AdapterID names the adapter which renders a candidate.
type AdapterID string

const (
	AdapterHTMLBanner        AdapterID = "html_banner"
	AdapterMRAIDBanner       AdapterID = "mraid_banner"
	AdapterHTMLInterstitial  AdapterID = "html_interstitial"
	AdapterMRAIDInterstitial AdapterID = "mraid_interstitial"
	AdapterVASTInterstitial  AdapterID = "vast_interstitial"
	AdapterStaticNative      AdapterID = "static_native"
	AdapterVideoNative       AdapterID = "video_native"
	AdapterRewardedVideo     AdapterID = "rewarded_video"
	AdapterRewardedPlayable  AdapterID = "rewarded_playable"
	AdapterFullscreen        AdapterID = "fullscreen"
)

// AdapterKey is the lookup key of an AdapterTable. An empty FullAdType matches any full ad type.
type AdapterKey struct {
	Format     AdFormat
	AdType     AdType
	FullAdType FullAdType
}

// AdapterTable resolves (format, ad type, full ad type) to an adapter. It is read only once built.
type AdapterTable struct {
	entries map[AdapterKey]AdapterID
}

var defaultAdapters = map[AdapterKey]AdapterID{
	{FormatBanner, AdTypeHTML, FullAdTypeNone}:  AdapterHTMLBanner,
	{FormatBanner, AdTypeMRAID, FullAdTypeNone}: AdapterMRAIDBanner,

	{FormatInterstitial, AdTypeHTML, FullAdTypeNone}:          AdapterHTMLInterstitial,
	{FormatInterstitial, AdTypeMRAID, FullAdTypeNone}:         AdapterMRAIDInterstitial,
	{FormatInterstitial, AdTypeInterstitial, FullAdTypeHTML}:  AdapterHTMLInterstitial,
	{FormatInterstitial, AdTypeInterstitial, FullAdTypeMRAID}: AdapterMRAIDInterstitial,
	{FormatInterstitial, AdTypeInterstitial, FullAdTypeVAST}:  AdapterVASTInterstitial,

	{FormatNative, AdTypeStaticNative, FullAdTypeNone}:      AdapterStaticNative,
	{FormatNative, AdTypeVideoNative, FullAdTypeNone}:       AdapterVideoNative,
	{FormatNativeVideo, AdTypeStaticNative, FullAdTypeNone}: AdapterStaticNative,
	{FormatNativeVideo, AdTypeVideoNative, FullAdTypeNone}:  AdapterVideoNative,

	{FormatRewardedVideo, AdTypeRewardedVideo, FullAdTypeNone}:    AdapterRewardedVideo,
	{FormatRewardedVideo, AdTypeRewardedPlayable, FullAdTypeNone}: AdapterRewardedPlayable,
	{FormatRewardedVideo, AdTypeHTML, FullAdTypeNone}:             AdapterFullscreen,
	{FormatRewardedVideo, AdTypeMRAID, FullAdTypeNone}:            AdapterFullscreen,
}

// NewAdapterTable builds a table holding the default mappings plus the given overrides.
func NewAdapterTable(overrides map[AdapterKey]AdapterID) *AdapterTable {
	entries := make(map[AdapterKey]AdapterID, len(defaultAdapters)+len(overrides))
	for k, v := range defaultAdapters {
		entries[k] = v
	}
	for k, v := range overrides {
		entries[k] = v
	}
	return &AdapterTable{entries: entries}
}

// DefaultAdapterTable returns a table holding only the built-in mappings.
func DefaultAdapterTable() *AdapterTable {
	return NewAdapterTable(nil)
}

// Lookup tries the exact key first and then the full ad type wildcard.
func (t *AdapterTable) Lookup(format AdFormat, adType AdType, fullAdType FullAdType) (AdapterID, bool) {
	if id, ok := t.entries[AdapterKey{format, adType, fullAdType}]; ok {
		return id, true
	}
	if fullAdType != FullAdTypeNone {
		if id, ok := t.entries[AdapterKey{format, adType, FullAdTypeNone}]; ok {
			return id, true
		}
	}
	return "", false
}

// Len returns the number of mappings in the table.
func (t *AdapterTable) Len() int {
	return len(t.entries)
}

type adapterOverride struct {
	Format     string `yaml:"format"`
	AdType     string `yaml:"ad_type"`
	FullAdType string `yaml:"full_ad_type"`
	Adapter    string `yaml:"adapter"`
}

type adapterFile struct {
	Adapters []adapterOverride `yaml:"adapters"`
}

// LoadAdapterTable reads overrides from a YAML file and merges them over the defaults. An empty
// path yields the default table.
func LoadAdapterTable(path string) (*AdapterTable, error) {
	if path == "" {
		return DefaultAdapterTable(), nil
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading adapters file %s: %v", path, err)
	}
	return ParseAdapterTable(data)
}

// ParseAdapterTable parses the YAML override document and merges it over the defaults.
func ParseAdapterTable(data []byte) (*AdapterTable, error) {
	var file adapterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing adapters file: %v", err)
	}

	overrides := make(map[AdapterKey]AdapterID, len(file.Adapters))
	for i, o := range file.Adapters {
		format, ok := ParseAdFormat(o.Format)
		if !ok {
			return nil, fmt.Errorf("adapters[%d]: unknown ad format %q", i, o.Format)
		}
		if o.AdType == "" || o.Adapter == "" {
			return nil, fmt.Errorf("adapters[%d]: ad_type and adapter are required", i)
		}
		overrides[AdapterKey{format, AdType(o.AdType), FullAdType(o.FullAdType)}] = AdapterID(o.Adapter)
	}
	return NewAdapterTable(overrides), nil
}
