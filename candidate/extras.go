package candidate

import (
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/golang/glog"
	"github.com/prebid/prebid-waterfall/adtypes"
	"github.com/prebid/prebid-waterfall/headers"
)

func buildExtras(h headers.Map, c *AdCandidate) map[string]string {
	extras := customEventData(h)

	if c.AdType.IsHTML() {
		extras[ExtraHTMLResponseBody] = c.Content
	}
	if c.AdType == adtypes.AdTypeVideoNative {
		addVideoExtras(h, extras)
	}
	if c.AdFormat == adtypes.FormatRewardedVideo {
		addRewardedExtras(h, extras)
	}
	if c.AdFormat == adtypes.FormatBanner {
		addBannerImpressionExtras(h, extras)
	}
	if c.HasBiddingMarkup() {
		extras[ExtraAdvancedBiddingMarkup] = c.BiddingMarkup
	}
	return extras
}

// customEventData seeds the extras with the custom-event-class-data object. A malformed object is
// dropped rather than failing the candidate.
func customEventData(h headers.Map) map[string]string {
	extras := make(map[string]string)
	raw := headers.ExtractString(h, headers.CustomEventClassData)
	if raw == "" {
		return extras
	}

	data, err := headers.FlattenJSONObject([]byte(raw))
	if err != nil {
		glog.Warningf("Ignoring malformed %s: %v", headers.CustomEventClassData, err)
		return extras
	}
	for k, v := range data {
		extras[k] = v
	}
	return extras
}

func addVideoExtras(h headers.Map, extras map[string]string) {
	putPercentage(h, extras, headers.PlayVisiblePercent, ExtraPlayVisiblePercent)
	putPercentage(h, extras, headers.PauseVisiblePercent, ExtraPauseVisiblePercent)
	putPercentage(h, extras, headers.ImpressionMinVisiblePercent, ExtraImpressionMinVisiblePercent)
	putInt(h, extras, headers.ImpressionMinVisibleMS, ExtraImpressionVisibleMS)
	putInt(h, extras, headers.MaxBufferMS, ExtraMaxBufferMS)

	if percents, ok := headers.ExtractIntList(h, headers.VideoProgressPercents); ok {
		fields := make([]string, 0, len(percents))
		for _, p := range percents {
			if p < 0 || p > 100 {
				return
			}
			fields = append(fields, strconv.Itoa(p))
		}
		extras[ExtraVideoProgressPercents] = strings.Join(fields, ",")
	}
}

func addRewardedExtras(h headers.Map, extras map[string]string) {
	if currencies := headers.ExtractString(h, headers.RewardedCurrencies); currencies != "" {
		if _, dataType, _, err := jsonparser.Get([]byte(currencies)); err == nil && dataType == jsonparser.Object {
			extras[ExtraRewardedCurrencies] = currencies
		}
	}
	putString(h, extras, headers.RewardedVideoCurrencyName, ExtraRewardedVideoCurrencyName)
	putInt(h, extras, headers.RewardedVideoCurrencyAmount, ExtraRewardedVideoCurrencyAmount)
	putString(h, extras, headers.RewardedVideoCompletionURL, ExtraRewardedVideoCompletionURL)
	putInt(h, extras, headers.RewardedDuration, ExtraRewardedDuration)
	extras[ExtraShouldRewardOnClick] = strconv.FormatBool(headers.ExtractBoolean(h, headers.ShouldRewardOnClick, false))
}

// addBannerImpressionExtras copies the banner viewability thresholds exactly as sent. Nothing is
// written when the server did not send them.
func addBannerImpressionExtras(h headers.Map, extras map[string]string) {
	putString(h, extras, headers.BannerImpressionMinVisibleDips, ExtraBannerImpressionMinVisibleDips)
	putString(h, extras, headers.BannerImpressionMinVisibleMS, ExtraBannerImpressionMinVisibleMS)
}

func putString(h headers.Map, extras map[string]string, key, extra string) {
	if v := headers.ExtractString(h, key); v != "" {
		extras[extra] = v
	}
}

func putInt(h headers.Map, extras map[string]string, key, extra string) {
	if i, ok := headers.ExtractInt(h, key); ok {
		extras[extra] = itoa(i)
	}
}

func putPercentage(h headers.Map, extras map[string]string, key, extra string) {
	if p, ok := headers.ExtractPercentage(h, key); ok {
		extras[extra] = itoa(p)
	}
}
