package waterfall

import (
	"strconv"
	"testing"

	"github.com/prebid/prebid-waterfall/adtypes"
	"github.com/prebid/prebid-waterfall/consent"
	"github.com/prebid/prebid-waterfall/errortypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func htmlRecord(i int) string {
	n := strconv.Itoa(i)
	return `{"content":"<html>` + n + `</html>","metadata":{"ad-type":"html","click-tracking-url":"https://click/` + n + `","impression-url":"https://imp/` + n + `"}}`
}

func parseBanner(t *testing.T, body string, deps ParseDeps) (*Response, error) {
	t.Helper()
	return ParseResponse([]byte(body), adtypes.FormatBanner, "unit-1", deps)
}

func TestSingleCandidateCursor(t *testing.T) {
	resp, err := parseBanner(t, `{"fail_url":"","ad_responses":[`+htmlRecord(1)+`]}`, ParseDeps{})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Len())
	assert.True(t, resp.HasNext())
	assert.False(t, resp.IsWaterfallFinished())

	c := resp.Next()
	require.NotNil(t, c)
	assert.Equal(t, "<html>1</html>", c.Content)
	assert.Equal(t, adtypes.AdapterHTMLBanner, c.AdapterID)

	assert.False(t, resp.HasNext())
	assert.True(t, resp.IsWaterfallFinished())
	assert.Nil(t, resp.Next())
}

func TestTwoCandidatesWithFailURL(t *testing.T) {
	resp, err := parseBanner(t, `{"fail_url":"https://ads/fail","ad_responses":[`+htmlRecord(1)+`,`+htmlRecord(2)+`]}`, ParseDeps{})
	require.NoError(t, err)

	assert.Equal(t, "https://ads/fail", resp.FailURL())
	assert.Equal(t, []string{"https://imp/1"}, resp.Next().ImpressionTrackingURLs)
	assert.True(t, resp.HasNext())
	assert.Equal(t, []string{"https://imp/2"}, resp.Next().ImpressionTrackingURLs)
	assert.False(t, resp.HasNext())
	assert.False(t, resp.IsWaterfallFinished(), "the fail-over url keeps the waterfall going")
}

func TestMissingFailURL(t *testing.T) {
	resp, err := parseBanner(t, `{"ad_responses":[`+htmlRecord(1)+`]}`, ParseDeps{})
	require.NoError(t, err)

	assert.Equal(t, "", resp.FailURL())
	resp.Next()
	assert.True(t, resp.IsWaterfallFinished())
}

func TestStructuralErrors(t *testing.T) {
	tests := []struct {
		description string
		body        string
		wantCode    int
		wantRefresh int
		hasRefresh  bool
	}{
		{
			description: "empty body",
			body:        ``,
			wantCode:    errortypes.BadBodyErrorCode,
		},
		{
			description: "body is not json",
			body:        `<html>`,
			wantCode:    errortypes.BadBodyErrorCode,
		},
		{
			description: "body is an array",
			body:        `[]`,
			wantCode:    errortypes.BadBodyErrorCode,
		},
		{
			description: "missing ad_responses",
			body:        `{"fail_url":"https://ads/fail"}`,
			wantCode:    errortypes.BadHeaderDataErrorCode,
			wantRefresh: 30000,
			hasRefresh:  true,
		},
		{
			description: "ad_responses is an object",
			body:        `{"ad_responses":{}}`,
			wantCode:    errortypes.BadHeaderDataErrorCode,
			wantRefresh: 30000,
			hasRefresh:  true,
		},
		{
			description: "empty ad_responses",
			body:        `{"ad_responses":[]}`,
			wantCode:    errortypes.BadHeaderDataErrorCode,
			wantRefresh: 30000,
			hasRefresh:  true,
		},
		{
			description: "empty ad_responses with envelope refresh time",
			body:        `{"refreshtime":12,"ad_responses":[]}`,
			wantCode:    errortypes.BadHeaderDataErrorCode,
			wantRefresh: 12000,
			hasRefresh:  true,
		},
	}

	for _, test := range tests {
		resp, err := parseBanner(t, test.body, ParseDeps{})
		assert.Nil(t, resp, test.description)
		require.Error(t, err, test.description)
		assert.Equal(t, test.wantCode, errortypes.ReadCode(err), test.description)

		refresh, ok := errortypes.ReadRefreshTime(err)
		assert.Equal(t, test.hasRefresh, ok, test.description)
		assert.Equal(t, test.wantRefresh, refresh, test.description)
	}
}

func TestClearFirstCandidate(t *testing.T) {
	resp, err := parseBanner(t, `{"ad_responses":[{"content":"","metadata":{"ad-type":"clear","refreshtime":15}}]}`, ParseDeps{})

	assert.Nil(t, resp)
	assert.Equal(t, errortypes.NoFillErrorCode, errortypes.ReadCode(err))
	refresh, ok := errortypes.ReadRefreshTime(err)
	assert.True(t, ok)
	assert.Equal(t, 15000, refresh)
}

func TestWarmupAnyCandidate(t *testing.T) {
	body := `{"ad_responses":[` + htmlRecord(1) + `,{"content":"x","metadata":{"ad-type":"html","click-tracking-url":"https://c","warmup":"1","refreshtime":5}}]}`
	resp, err := parseBanner(t, body, ParseDeps{})

	assert.Nil(t, resp)
	assert.Equal(t, errortypes.WarmingUpErrorCode, errortypes.ReadCode(err))
	refresh, _ := errortypes.ReadRefreshTime(err)
	assert.Equal(t, 5000, refresh)
}

func TestClearLaterCandidateTruncates(t *testing.T) {
	body := `{"fail_url":"https://ads/fail","ad_responses":[` + htmlRecord(1) + `,{"metadata":{"ad-type":"clear"}},` + htmlRecord(3) + `]}`
	resp, err := parseBanner(t, body, ParseDeps{})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Len())
	assert.Equal(t, "", resp.FailURL())
	resp.Next()
	assert.True(t, resp.IsWaterfallFinished())
}

func TestMalformedCandidatesAreSkipped(t *testing.T) {
	body := `{"ad_responses":[{"content":"x","metadata":{"ad-type":"html"}},"oops",` + htmlRecord(3) + `]}`
	resp, err := parseBanner(t, body, ParseDeps{})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Len())
	assert.Equal(t, "<html>3</html>", resp.Next().Content)
	require.Len(t, resp.Warnings(), 2)
	for _, w := range resp.Warnings() {
		assert.Equal(t, errortypes.MalformedCandidateWarningCode, errortypes.ReadCode(w))
	}
}

func TestAllCandidatesMalformed(t *testing.T) {
	body := `{"ad_responses":[{"content":"x","metadata":{"ad-type":"html"}},{"metadata":{"ad-type":"html","click-tracking-url":"https://c"}}]}`
	resp, err := parseBanner(t, body, ParseDeps{})

	assert.Nil(t, resp)
	assert.Equal(t, errortypes.BadHeaderDataErrorCode, errortypes.ReadCode(err), "the first candidate's error is returned")
}

func TestFailedCandidateRefreshHint(t *testing.T) {
	tests := []struct {
		description string
		body        string
		wantCode    int
		wantRefresh int
		wantHint    bool
	}{
		{
			description: "candidate hint on a missing click url",
			body:        `{"fail_url":"","ad_responses":[{"content":"x","metadata":{"ad-type":"html","refreshtime":20}}]}`,
			wantCode:    errortypes.BadHeaderDataErrorCode,
			wantRefresh: 20000,
			wantHint:    true,
		},
		{
			description: "envelope hint on a missing click url",
			body:        `{"fail_url":"","refreshtime":20,"ad_responses":[{"content":"x","metadata":{"ad-type":"html"}}]}`,
			wantCode:    errortypes.BadHeaderDataErrorCode,
			wantRefresh: 20000,
			wantHint:    true,
		},
		{
			description: "candidate hint wins over the envelope",
			body:        `{"refreshtime":20,"ad_responses":[{"content":"x","metadata":{"ad-type":"html","refreshtime":5}}]}`,
			wantCode:    errortypes.BadHeaderDataErrorCode,
			wantRefresh: 5000,
			wantHint:    true,
		},
		{
			description: "candidate hint on bad native content",
			body:        `{"ad_responses":[{"content":"x","metadata":{"ad-type":"json","click-tracking-url":"https://c","refreshtime":7}}]}`,
			wantCode:    errortypes.BadBodyErrorCode,
			wantRefresh: 7000,
			wantHint:    true,
		},
		{
			description: "no hint anywhere",
			body:        `{"ad_responses":[{"content":"x","metadata":{"ad-type":"html"}}]}`,
			wantCode:    errortypes.BadHeaderDataErrorCode,
		},
	}

	for _, test := range tests {
		resp, err := parseBanner(t, test.body, ParseDeps{})
		assert.Nil(t, resp, test.description)
		assert.Equal(t, test.wantCode, errortypes.ReadCode(err), test.description)

		refresh, ok := errortypes.ReadRefreshTime(err)
		assert.Equal(t, test.wantHint, ok, test.description)
		if test.wantHint {
			assert.Equal(t, test.wantRefresh, refresh, test.description)
		}
	}
}

type orderListener struct {
	events *[]string
}

func (l orderListener) OnForceGDPRApplies()      { *l.events = append(*l.events, "force_gdpr_applies") }
func (l orderListener) OnForceExplicitNo(string) { *l.events = append(*l.events, "force_explicit_no") }
func (l orderListener) OnInvalidateConsent(string) {
	*l.events = append(*l.events, "invalidate_consent")
}
func (l orderListener) OnReacquireConsent(r string) {
	*l.events = append(*l.events, "reacquire_consent:"+r)
}

func TestControlSignals(t *testing.T) {
	tests := []struct {
		description string
		body        string
		wantEvents  []string
		wantErr     bool
	}{
		{
			description: "force gdpr applies is delivered once",
			body:        `{"force_gdpr_applies":"1","ad_responses":[` + htmlRecord(1) + `]}`,
			wantEvents:  []string{"force_gdpr_applies"},
		},
		{
			description: "signals are delivered even when the candidates fail",
			body:        `{"force_gdpr_applies":1,"reacquire_consent":"1","consent_change_reason":"tcf","ad_responses":[{"metadata":{"ad-type":"clear"}}]}`,
			wantEvents:  []string{"force_gdpr_applies", "reacquire_consent:tcf"},
			wantErr:     true,
		},
		{
			description: "zero values are ignored",
			body:        `{"force_gdpr_applies":"0","force_explicit_no":0,"ad_responses":[` + htmlRecord(1) + `]}`,
		},
		{
			description: "signals are not delivered for an unusable envelope",
			body:        `{"force_gdpr_applies":"1","ad_responses":[]}`,
			wantErr:     true,
		},
	}

	for _, test := range tests {
		var events []string
		registry := consent.NewRegistry()
		registry.SetListener(orderListener{events: &events})

		_, err := parseBanner(t, test.body, ParseDeps{Registry: registry})
		assert.Equal(t, test.wantErr, err != nil, test.description)
		assert.Equal(t, test.wantEvents, events, test.description)
	}
}

func TestCustomAdapterTable(t *testing.T) {
	table := adtypes.NewAdapterTable(map[adtypes.AdapterKey]adtypes.AdapterID{
		{Format: adtypes.FormatBanner, AdType: adtypes.AdTypeHTML}: "com.example.Banner",
	})
	resp, err := parseBanner(t, `{"ad_responses":[`+htmlRecord(1)+`]}`, ParseDeps{Adapters: table})
	require.NoError(t, err)

	assert.Equal(t, adtypes.AdapterID("com.example.Banner"), resp.Next().AdapterID)
}
