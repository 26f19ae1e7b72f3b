package config

import (
	"time"

	"github.com/prebid/prebid-waterfall/adtypes"
	mainConfig "github.com/prebid/prebid-waterfall/config"
	"github.com/prebid/prebid-waterfall/metrics"
	prometheusmetrics "github.com/prebid/prebid-waterfall/metrics/prometheus"
	gometrics "github.com/rcrowley/go-metrics"
	influxdb "github.com/vrischmann/go-metrics-influxdb"
)

// NewMetricsEngine reads the configuration and returns the appropriate metrics engine
// for this instance.
func NewMetricsEngine(cfg *mainConfig.Configuration) *DetailedMetricsEngine {
	// Create a list of metrics engines to use.
	// Capacity of 2, as unlikely to have more than 2 metrics backends, and in the case
	// of 1 we won't use the list so it will be garbage collected.
	engineList := make(MultiMetricsEngine, 0, 2)
	returnEngine := DetailedMetricsEngine{}

	if cfg.Metrics.Influxdb.Host != "" {
		// Currently use go-metrics as the metrics piece for influx
		returnEngine.GoMetrics = metrics.NewMetrics(gometrics.NewPrefixedRegistry("waterfall."))
		engineList = append(engineList, returnEngine.GoMetrics)
		// Set up the Influx logger
		go influxdb.InfluxDB(
			returnEngine.GoMetrics.MetricsRegistry,                             // metrics registry
			time.Second*time.Duration(cfg.Metrics.Influxdb.MetricSendInterval), // Configurable interval
			cfg.Metrics.Influxdb.Host,                                          // the InfluxDB url
			cfg.Metrics.Influxdb.Database,                                      // your InfluxDB database
			cfg.Metrics.Influxdb.Username,                                      // your InfluxDB user
			cfg.Metrics.Influxdb.Password,                                      // your InfluxDB password
		)
		// Influx is not added to the engine list as goMetrics takes care of it already.
	}
	if cfg.Metrics.Prometheus.Enabled() {
		returnEngine.PrometheusMetrics = prometheusmetrics.NewMetrics(cfg.Metrics.Prometheus)
		engineList = append(engineList, returnEngine.PrometheusMetrics)
	}

	// Now return the proper metrics engine
	if len(engineList) > 1 {
		returnEngine.MetricsEngine = &engineList
	} else if len(engineList) == 1 {
		returnEngine.MetricsEngine = engineList[0]
	} else {
		returnEngine.MetricsEngine = &DummyMetricsEngine{}
	}

	return &returnEngine
}

// DetailedMetricsEngine is a MultiMetricsEngine that preserves links to underlying metrics engines.
type DetailedMetricsEngine struct {
	metrics.MetricsEngine
	GoMetrics         *metrics.Metrics
	PrometheusMetrics *prometheusmetrics.Metrics
}

// MultiMetricsEngine logs metrics to multiple metrics databases The can be useful in transitioning
// an instance from one engine to another, you can run both in parallel to verify stats match up.
type MultiMetricsEngine []metrics.MetricsEngine

// RecordWaterfallRequest across all engines
func (me *MultiMetricsEngine) RecordWaterfallRequest(format adtypes.AdFormat) {
	for _, thisME := range *me {
		thisME.RecordWaterfallRequest(format)
	}
}

// RecordCandidateDelivered across all engines
func (me *MultiMetricsEngine) RecordCandidateDelivered(format adtypes.AdFormat, adType adtypes.AdType) {
	for _, thisME := range *me {
		thisME.RecordCandidateDelivered(format, adType)
	}
}

// RecordWaterfallError across all engines
func (me *MultiMetricsEngine) RecordWaterfallError(format adtypes.AdFormat, code int) {
	for _, thisME := range *me {
		thisME.RecordWaterfallError(format, code)
	}
}

// RecordNetworkRequest across all engines
func (me *MultiMetricsEngine) RecordNetworkRequest(success bool, length time.Duration) {
	for _, thisME := range *me {
		thisME.RecordNetworkRequest(success, length)
	}
}

// RecordNetworkRetry across all engines
func (me *MultiMetricsEngine) RecordNetworkRetry() {
	for _, thisME := range *me {
		thisME.RecordNetworkRetry()
	}
}

// RecordTrackerFired across all engines
func (me *MultiMetricsEngine) RecordTrackerFired(success bool) {
	for _, thisME := range *me {
		thisME.RecordTrackerFired(success)
	}
}

// RecordConsentOverride across all engines
func (me *MultiMetricsEngine) RecordConsentOverride(signal metrics.ConsentSignal) {
	for _, thisME := range *me {
		thisME.RecordConsentOverride(signal)
	}
}

// DummyMetricsEngine is a Noop metrics engine in case no metrics are configured. (may also be useful for tests)
type DummyMetricsEngine struct{}

// RecordWaterfallRequest as a noop
func (me *DummyMetricsEngine) RecordWaterfallRequest(format adtypes.AdFormat) {
}

// RecordCandidateDelivered as a noop
func (me *DummyMetricsEngine) RecordCandidateDelivered(format adtypes.AdFormat, adType adtypes.AdType) {
}

// RecordWaterfallError as a noop
func (me *DummyMetricsEngine) RecordWaterfallError(format adtypes.AdFormat, code int) {
}

// RecordNetworkRequest as a noop
func (me *DummyMetricsEngine) RecordNetworkRequest(success bool, length time.Duration) {
}

// RecordNetworkRetry as a noop
func (me *DummyMetricsEngine) RecordNetworkRetry() {
}

// RecordTrackerFired as a noop
func (me *DummyMetricsEngine) RecordTrackerFired(success bool) {
}

// RecordConsentOverride as a noop
func (me *DummyMetricsEngine) RecordConsentOverride(signal metrics.ConsentSignal) {
}
