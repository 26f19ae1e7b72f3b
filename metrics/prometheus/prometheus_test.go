package prometheusmetrics

import (
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/prebid/prebid-waterfall/adtypes"
	"github.com/prebid/prebid-waterfall/config"
	"github.com/prebid/prebid-waterfall/errortypes"
	"github.com/prebid/prebid-waterfall/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

var counterValueRegexp = regexp.MustCompile("counter:<value:([0-9]+) >")
var histogramValueRegexp = regexp.MustCompile("histogram:<sample_count:([0-9]+)")

func TestWaterfallMetrics(t *testing.T) {
	proMetrics := newTestMetricsEngine()

	banner := dto.Metric{}
	native := dto.Metric{}
	proMetrics.RecordWaterfallRequest(adtypes.FormatBanner)
	proMetrics.RecordWaterfallRequest(adtypes.FormatBanner)
	proMetrics.RecordWaterfallRequest(adtypes.FormatNative)

	proMetrics.waterfallRequests.With(prometheus.Labels{formatLabel: "banner"}).Write(&banner)
	proMetrics.waterfallRequests.With(prometheus.Labels{formatLabel: "native"}).Write(&native)

	assertCounterValue(t, "waterfallRequests[banner]", &banner, 2)
	assertCounterValue(t, "waterfallRequests[native]", &native, 1)
}

func TestCandidateAndErrorMetrics(t *testing.T) {
	proMetrics := newTestMetricsEngine()

	delivered := dto.Metric{}
	noFill := dto.Metric{}
	proMetrics.RecordCandidateDelivered(adtypes.FormatInterstitial, adtypes.AdTypeMRAID)
	proMetrics.RecordWaterfallError(adtypes.FormatInterstitial, errortypes.NoFillErrorCode)
	proMetrics.RecordWaterfallError(adtypes.FormatInterstitial, errortypes.NoFillErrorCode)

	proMetrics.candidatesDelivered.With(prometheus.Labels{formatLabel: "interstitial", adTypeLabel: "mraid"}).Write(&delivered)
	proMetrics.waterfallErrors.With(prometheus.Labels{formatLabel: "interstitial", codeLabel: "NO_FILL"}).Write(&noFill)

	assertCounterValue(t, "candidatesDelivered", &delivered, 1)
	assertCounterValue(t, "waterfallErrors[NO_FILL]", &noFill, 2)
}

func TestNetworkMetrics(t *testing.T) {
	proMetrics := newTestMetricsEngine()

	ok := dto.Metric{}
	failed := dto.Metric{}
	retries := dto.Metric{}
	proMetrics.RecordNetworkRequest(true, 20*time.Millisecond)
	proMetrics.RecordNetworkRequest(true, 300*time.Millisecond)
	proMetrics.RecordNetworkRequest(false, time.Second)
	proMetrics.RecordNetworkRetry()

	proMetrics.networkTimer.With(successLabels(true)).(prometheus.Histogram).Write(&ok)
	proMetrics.networkTimer.With(successLabels(false)).(prometheus.Histogram).Write(&failed)
	proMetrics.networkRetries.Write(&retries)

	assertHistogramValue(t, "networkTimer[true]", &ok, 2)
	assertHistogramValue(t, "networkTimer[false]", &failed, 1)
	assertCounterValue(t, "networkRetries", &retries, 1)
}

func TestTrackerAndConsentMetrics(t *testing.T) {
	proMetrics := newTestMetricsEngine()

	failed := dto.Metric{}
	reacquire := dto.Metric{}
	proMetrics.RecordTrackerFired(false)
	proMetrics.RecordTrackerFired(true)
	proMetrics.RecordTrackerFired(false)
	proMetrics.RecordConsentOverride(metrics.ConsentReacquireConsent)

	proMetrics.trackerPings.With(successLabels(false)).Write(&failed)
	proMetrics.consentOverrides.With(prometheus.Labels{signalLabel: "reacquire_consent"}).Write(&reacquire)

	assertCounterValue(t, "trackerPings[false]", &failed, 2)
	assertCounterValue(t, "consentOverrides[reacquire_consent]", &reacquire, 1)
}

func newTestMetricsEngine() *Metrics {
	return NewMetrics(config.PrometheusMetrics{
		Port:      8080,
		Namespace: "waterfall",
		Subsystem: "",
	})
}

func assertCounterValue(t *testing.T, name string, m *dto.Metric, expected int) {
	v, err := strconv.Atoi(counterValueRegexp.FindStringSubmatch(m.String())[1])
	if err != nil {
		t.Errorf("Could not extract the value for metric %s. (output was %s, error was %v)", name, m.String(), err)
	}
	if v != expected {
		t.Errorf("Bad value for metric %s: expected=\"%d\", found=\"%d\"", name, expected, v)
	}
}

func assertHistogramValue(t *testing.T, name string, m *dto.Metric, expected int) {
	v, err := strconv.Atoi(histogramValueRegexp.FindStringSubmatch(m.String())[1])
	if err != nil {
		t.Errorf("Could not extract the value for metric %s. (output was %s, error was %v)", name, m.String(), err)
	}
	if v != expected {
		t.Errorf("Bad value for metric %s: expected=\"%d\", found=\"%d\"", name, expected, v)
	}
}
