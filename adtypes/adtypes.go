// Package adtypes defines the ad formats a caller can request, the ad type tags the ad server
// answers with, and the table which resolves them to the adapter that renders a candidate.
package adtypes

// AdFormat is the kind of placement the caller asked inventory for.
type AdFormat string

const (
	FormatBanner        AdFormat = "banner"
	FormatInterstitial  AdFormat = "interstitial"
	FormatNative        AdFormat = "native"
	FormatNativeVideo   AdFormat = "native-video"
	FormatRewardedVideo AdFormat = "rewarded-video"
)

// AdFormats returns every supported ad format.
func AdFormats() []AdFormat {
	return []AdFormat{
		FormatBanner,
		FormatInterstitial,
		FormatNative,
		FormatNativeVideo,
		FormatRewardedVideo,
	}
}

// ParseAdFormat returns the AdFormat named by s.
func ParseAdFormat(s string) (AdFormat, bool) {
	for _, f := range AdFormats() {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// AdType is the creative type tag carried by each candidate's metadata.
type AdType string

const (
	AdTypeHTML             AdType = "html"
	AdTypeMRAID            AdType = "mraid"
	AdTypeInterstitial     AdType = "interstitial"
	AdTypeStaticNative     AdType = "json"
	AdTypeVideoNative      AdType = "json_video"
	AdTypeRewardedVideo    AdType = "rewarded_video"
	AdTypeRewardedPlayable AdType = "rewarded_playable"
	AdTypeCustom           AdType = "custom"

	// AdTypeClear is not a creative: it tells the caller that the ad unit has nothing to serve.
	AdTypeClear AdType = "clear"
)

// IsNative returns true for ad types whose content must be a structured JSON object.
func (t AdType) IsNative() bool {
	return t == AdTypeStaticNative || t == AdTypeVideoNative
}

// IsHTML returns true for ad types whose content is markup rendered in a web view.
func (t AdType) IsHTML() bool {
	return t == AdTypeHTML || t == AdTypeMRAID
}

// FullAdType refines AdTypeInterstitial (and friends) with the actual creative technology.
type FullAdType string

const (
	FullAdTypeNone  FullAdType = ""
	FullAdTypeHTML  FullAdType = "html"
	FullAdTypeMRAID FullAdType = "mraid"
	FullAdTypeVAST  FullAdType = "vast"
	FullAdTypeJSON  FullAdType = "json"
)

// BrowserAgent tells the adapter where clicks should be opened.
type BrowserAgent int

const (
	BrowserAgentInApp BrowserAgent = iota
	BrowserAgentNative
)

// ParseBrowserAgent maps the wire value onto a BrowserAgent. Unknown values fall back to in-app.
func ParseBrowserAgent(i int) BrowserAgent {
	if i == int(BrowserAgentNative) {
		return BrowserAgentNative
	}
	return BrowserAgentInApp
}

func (b BrowserAgent) String() string {
	if b == BrowserAgentNative {
		return "native"
	}
	return "in-app"
}
