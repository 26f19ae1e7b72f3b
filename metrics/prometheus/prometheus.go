package prometheusmetrics

import (
	"time"

	"github.com/prebid/prebid-waterfall/adtypes"
	"github.com/prebid/prebid-waterfall/config"
	"github.com/prebid/prebid-waterfall/errortypes"
	"github.com/prebid/prebid-waterfall/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Defines the actual Prometheus metrics we will be using. Satisfies interface MetricsEngine
type Metrics struct {
	Registry *prometheus.Registry

	waterfallRequests   *prometheus.CounterVec
	candidatesDelivered *prometheus.CounterVec
	waterfallErrors     *prometheus.CounterVec
	networkTimer        *prometheus.HistogramVec
	networkRetries      prometheus.Counter
	trackerPings        *prometheus.CounterVec
	consentOverrides    *prometheus.CounterVec
}

const (
	formatLabel  = "format"
	adTypeLabel  = "ad_type"
	codeLabel    = "code"
	successLabel = "success"
	signalLabel  = "signal"
)

// NewMetrics constructs the appropriate options for the Prometheus metrics. Needs to be fed the promethus config
// Its own function to keep the metric creation function cleaner.
func NewMetrics(cfg config.PrometheusMetrics) *Metrics {
	// define the buckets for timers
	timerBuckets := prometheus.LinearBuckets(0.05, 0.05, 20)
	timerBuckets = append(timerBuckets, []float64{1.5, 2.0, 3.0, 5.0, 10.0}...)

	metrics := Metrics{Registry: prometheus.NewRegistry()}
	metrics.waterfallRequests = newCounter(cfg, "waterfall_requests_total",
		"Number of waterfall requests sent to the ad server.",
		[]string{formatLabel},
	)
	metrics.Registry.MustRegister(metrics.waterfallRequests)
	metrics.candidatesDelivered = newCounter(cfg, "candidates_delivered_total",
		"Number of candidates handed to the caller.",
		[]string{formatLabel, adTypeLabel},
	)
	metrics.Registry.MustRegister(metrics.candidatesDelivered)
	metrics.waterfallErrors = newCounter(cfg, "waterfall_errors_total",
		"Number of waterfalls which ended in an error, by error code.",
		[]string{formatLabel, codeLabel},
	)
	metrics.Registry.MustRegister(metrics.waterfallErrors)
	metrics.networkTimer = newHistogram(cfg, "network_request_time_seconds",
		"Seconds to complete each network request.",
		[]string{successLabel}, timerBuckets,
	)
	metrics.Registry.MustRegister(metrics.networkTimer)
	metrics.networkRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "network_retries_total",
		Help:      "Number of network requests retried after a transport error.",
	})
	metrics.Registry.MustRegister(metrics.networkRetries)
	metrics.trackerPings = newCounter(cfg, "tracker_pings_total",
		"Number of tracking pings fired.",
		[]string{successLabel},
	)
	metrics.Registry.MustRegister(metrics.trackerPings)
	metrics.consentOverrides = newCounter(cfg, "consent_overrides_total",
		"Number of consent overrides received from the ad server.",
		[]string{signalLabel},
	)
	metrics.Registry.MustRegister(metrics.consentOverrides)

	return &metrics
}

func newCounter(cfg config.PrometheusMetrics, name string, help string, labels []string) *prometheus.CounterVec {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	return prometheus.NewCounterVec(opts, labels)
}

func newHistogram(cfg config.PrometheusMetrics, name string, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	opts := prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	return prometheus.NewHistogramVec(opts, labels)
}

func (me *Metrics) RecordWaterfallRequest(format adtypes.AdFormat) {
	me.waterfallRequests.With(prometheus.Labels{formatLabel: string(format)}).Inc()
}

func (me *Metrics) RecordCandidateDelivered(format adtypes.AdFormat, adType adtypes.AdType) {
	me.candidatesDelivered.With(prometheus.Labels{
		formatLabel: string(format),
		adTypeLabel: string(adType),
	}).Inc()
}

func (me *Metrics) RecordWaterfallError(format adtypes.AdFormat, code int) {
	me.waterfallErrors.With(prometheus.Labels{
		formatLabel: string(format),
		codeLabel:   errortypes.CodeName(code),
	}).Inc()
}

func (me *Metrics) RecordNetworkRequest(success bool, length time.Duration) {
	time := float64(length) / float64(time.Second)
	me.networkTimer.With(successLabels(success)).Observe(time)
}

func (me *Metrics) RecordNetworkRetry() {
	me.networkRetries.Inc()
}

func (me *Metrics) RecordTrackerFired(success bool) {
	me.trackerPings.With(successLabels(success)).Inc()
}

func (me *Metrics) RecordConsentOverride(signal metrics.ConsentSignal) {
	me.consentOverrides.With(prometheus.Labels{signalLabel: string(signal)}).Inc()
}

func successLabels(success bool) prometheus.Labels {
	if success {
		return prometheus.Labels{successLabel: "true"}
	}
	return prometheus.Labels{successLabel: "false"}
}
