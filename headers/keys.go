package headers

// Envelope level keys.
const (
	FailURL             = "fail_url"
	AdResponses         = "ad_responses"
	EnvelopeRefreshTime = "refreshtime"

	ForceGDPRApplies    = "force_gdpr_applies"
	ForceExplicitNo     = "force_explicit_no"
	InvalidateConsent   = "invalidate_consent"
	ReacquireConsent    = "reacquire_consent"
	ConsentChangeReason = "consent_change_reason"
)

// Candidate record keys.
const (
	Content  = "content"
	Metadata = "metadata"
)

// Metadata keys.
const (
	AdType               = "ad-type"
	FullAdType           = "full-ad-type"
	CustomEventClassName = "custom-event-class-name"
	CustomEventClassData = "custom-event-class-data"

	ClickTrackingURL = "click-tracking-url"
	ImpressionURL    = "impression-url"
	ImpressionURLs   = "impression-urls"
	BeforeLoadURL    = "before-load-url"
	AfterLoadURL     = "after-load-url"

	Width        = "width"
	Height       = "height"
	RefreshTime  = "refreshtime"
	Warmup       = "warmup"
	AdTimeout    = "ad-timeout-ms"
	CreativeID   = "creative-id"
	BrowserAgent = "browser-agent"

	PlayVisiblePercent          = "play-visible-percent"
	PauseVisiblePercent         = "pause-visible-percent"
	ImpressionMinVisiblePercent = "impression-min-visible-percent"
	ImpressionMinVisibleMS      = "impression-min-visible-ms"
	MaxBufferMS                 = "max-buffer-ms"
	VideoProgressPercents       = "video-progress-percents"

	RewardedCurrencies          = "rewarded-currencies"
	RewardedVideoCurrencyName   = "rewarded-video-currency-name"
	RewardedVideoCurrencyAmount = "rewarded-video-currency-amount"
	RewardedVideoCompletionURL  = "rewarded-video-completion-url"
	RewardedDuration            = "rewarded-duration"
	ShouldRewardOnClick         = "should-reward-on-click"

	BannerImpressionMinVisibleDips = "banner-impression-min-visible-dips"
	BannerImpressionMinVisibleMS   = "banner-impression-min-visible-ms"

	AdvancedBiddingMarkup = "adm"
)
