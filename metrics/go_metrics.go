package metrics

import (
	"fmt"
	"time"

	"github.com/prebid/prebid-waterfall/adtypes"
	"github.com/prebid/prebid-waterfall/errortypes"
	"github.com/rcrowley/go-metrics"
)

// Metrics is the go-metrics implementation of MetricsEngine.
type Metrics struct {
	MetricsRegistry metrics.Registry

	NetworkRequestTimerSuccess metrics.Timer
	NetworkRequestTimerError   metrics.Timer
	NetworkRetryMeter          metrics.Meter
	TrackerSuccessMeter        metrics.Meter
	TrackerErrorMeter          metrics.Meter

	FormatMetrics   map[adtypes.AdFormat]*FormatMetrics
	ConsentOverride map[ConsentSignal]metrics.Meter
}

// FormatMetrics houses the metrics for a particular ad format.
type FormatMetrics struct {
	RequestMeter metrics.Meter
}

// Unknown formats are recorded under this name.
const unknownFormat adtypes.AdFormat = "unknown"

// NewBlankMetrics creates a new Metrics object with all blank metrics object. This may also be useful for
// testing routines to ensure that no metrics are written anywhere.
func NewBlankMetrics(registry metrics.Registry) *Metrics {
	blankMeter := &metrics.NilMeter{}
	newMetrics := &Metrics{
		MetricsRegistry:            registry,
		NetworkRequestTimerSuccess: &metrics.NilTimer{},
		NetworkRequestTimerError:   &metrics.NilTimer{},
		NetworkRetryMeter:          blankMeter,
		TrackerSuccessMeter:        blankMeter,
		TrackerErrorMeter:          blankMeter,
		FormatMetrics:              make(map[adtypes.AdFormat]*FormatMetrics),
		ConsentOverride:            make(map[ConsentSignal]metrics.Meter),
	}
	for _, f := range append(adtypes.AdFormats(), unknownFormat) {
		newMetrics.FormatMetrics[f] = &FormatMetrics{RequestMeter: blankMeter}
	}
	for _, s := range ConsentSignals() {
		newMetrics.ConsentOverride[s] = blankMeter
	}
	return newMetrics
}

// NewMetrics creates a new Metrics object with needed metrics defined. Metrics labelled by ad type or
// error code are registered the first time they are recorded.
func NewMetrics(registry metrics.Registry) *Metrics {
	newMetrics := NewBlankMetrics(registry)
	newMetrics.NetworkRequestTimerSuccess = metrics.GetOrRegisterTimer("network_request_time.ok", registry)
	newMetrics.NetworkRequestTimerError = metrics.GetOrRegisterTimer("network_request_time.err", registry)
	newMetrics.NetworkRetryMeter = metrics.GetOrRegisterMeter("network_retries", registry)
	newMetrics.TrackerSuccessMeter = metrics.GetOrRegisterMeter("tracker_pings.ok", registry)
	newMetrics.TrackerErrorMeter = metrics.GetOrRegisterMeter("tracker_pings.err", registry)
	for f := range newMetrics.FormatMetrics {
		newMetrics.FormatMetrics[f].RequestMeter = metrics.GetOrRegisterMeter(fmt.Sprintf("waterfall_requests.%s", f), registry)
	}
	for _, s := range ConsentSignals() {
		newMetrics.ConsentOverride[s] = metrics.GetOrRegisterMeter(fmt.Sprintf("consent_overrides.%s", s), registry)
	}
	return newMetrics
}

func (me *Metrics) formatMetrics(format adtypes.AdFormat) *FormatMetrics {
	if fm, ok := me.FormatMetrics[format]; ok {
		return fm
	}
	return me.FormatMetrics[unknownFormat]
}

func knownFormat(format adtypes.AdFormat) adtypes.AdFormat {
	if _, ok := adtypes.ParseAdFormat(string(format)); ok {
		return format
	}
	return unknownFormat
}

// RecordWaterfallRequest implements a part of the MetricsEngine interface
func (me *Metrics) RecordWaterfallRequest(format adtypes.AdFormat) {
	me.formatMetrics(format).RequestMeter.Mark(1)
}

// RecordCandidateDelivered implements a part of the MetricsEngine interface
func (me *Metrics) RecordCandidateDelivered(format adtypes.AdFormat, adType adtypes.AdType) {
	name := fmt.Sprintf("candidates_delivered.%s.%s", knownFormat(format), adType)
	metrics.GetOrRegisterMeter(name, me.MetricsRegistry).Mark(1)
}

// RecordWaterfallError implements a part of the MetricsEngine interface
func (me *Metrics) RecordWaterfallError(format adtypes.AdFormat, code int) {
	name := fmt.Sprintf("waterfall_errors.%s.%s", knownFormat(format), errortypes.CodeName(code))
	metrics.GetOrRegisterMeter(name, me.MetricsRegistry).Mark(1)
}

// RecordNetworkRequest implements a part of the MetricsEngine interface
func (me *Metrics) RecordNetworkRequest(success bool, length time.Duration) {
	if success {
		me.NetworkRequestTimerSuccess.Update(length)
	} else {
		me.NetworkRequestTimerError.Update(length)
	}
}

// RecordNetworkRetry implements a part of the MetricsEngine interface
func (me *Metrics) RecordNetworkRetry() {
	me.NetworkRetryMeter.Mark(1)
}

// RecordTrackerFired implements a part of the MetricsEngine interface
func (me *Metrics) RecordTrackerFired(success bool) {
	if success {
		me.TrackerSuccessMeter.Mark(1)
	} else {
		me.TrackerErrorMeter.Mark(1)
	}
}

// RecordConsentOverride implements a part of the MetricsEngine interface
func (me *Metrics) RecordConsentOverride(signal ConsentSignal) {
	if m, ok := me.ConsentOverride[signal]; ok {
		m.Mark(1)
	}
}
