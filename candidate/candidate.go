// Package candidate turns one record of a waterfall response into a normalized AdCandidate.
package candidate

import "github.com/prebid/prebid-waterfall/adtypes"

// Server extras keys which the parser fills in itself. Everything else in ServerExtras comes from
// the custom-event-class-data header verbatim.
const (
	ExtraHTMLResponseBody = "html-response-body"

	ExtraPlayVisiblePercent          = "play-visible-percent"
	ExtraPauseVisiblePercent         = "pause-visible-percent"
	ExtraImpressionMinVisiblePercent = "impression-min-visible-percent"
	ExtraImpressionVisibleMS         = "impression-visible-ms"
	ExtraMaxBufferMS                 = "max-buffer-ms"
	ExtraVideoProgressPercents       = "video-progress-percents"

	ExtraRewardedCurrencies          = "rewarded-currencies"
	ExtraRewardedVideoCurrencyName   = "rewarded-video-currency-name"
	ExtraRewardedVideoCurrencyAmount = "rewarded-video-currency-amount"
	ExtraRewardedVideoCompletionURL  = "rewarded-video-completion-url"
	ExtraRewardedDuration            = "rewarded-duration"
	ExtraShouldRewardOnClick         = "should-reward-on-click"

	ExtraBannerImpressionMinVisibleDips = "banner-impression-min-visible-dips"
	ExtraBannerImpressionMinVisibleMS   = "banner-impression-min-visible-ms"

	ExtraAdvancedBiddingMarkup = "adm"
)

// AdCandidate is one creative of a waterfall, normalized for the adapter which will render it.
type AdCandidate struct {
	AdType     adtypes.AdType
	FullAdType adtypes.FullAdType
	AdFormat   adtypes.AdFormat
	AdUnitID   string

	ClickTrackingURL       string
	ImpressionTrackingURLs []string
	BeforeLoadURL          string
	AfterLoadURL           string

	// Optional values are nil when the server did not send them (or sent garbage).
	RefreshTimeMillis *int
	Width             *int
	Height            *int
	AdTimeoutMillis   *int

	CreativeID   string
	BrowserAgent adtypes.BrowserAgent

	// Content is the creative body: markup for HTML types, the JSON payload for natives.
	Content string

	AdapterID adtypes.AdapterID

	// BiddingMarkup is the advanced bidding creative. When present the adapter must render it
	// instead of requesting its own ad.
	BiddingMarkup string

	ServerExtras map[string]string
}

// HasBiddingMarkup reports whether the candidate carries an advanced bidding payload.
func (c *AdCandidate) HasBiddingMarkup() bool {
	return c.BiddingMarkup != ""
}
