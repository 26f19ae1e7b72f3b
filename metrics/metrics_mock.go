package metrics

import (
	"time"

	"github.com/prebid/prebid-waterfall/adtypes"
	"github.com/stretchr/testify/mock"
)

// MetricsEngineMock is mock for the MetricsEngine interface
type MetricsEngineMock struct {
	mock.Mock
}

// RecordWaterfallRequest mock
func (me *MetricsEngineMock) RecordWaterfallRequest(format adtypes.AdFormat) {
	me.Called(format)
}

// RecordCandidateDelivered mock
func (me *MetricsEngineMock) RecordCandidateDelivered(format adtypes.AdFormat, adType adtypes.AdType) {
	me.Called(format, adType)
}

// RecordWaterfallError mock
func (me *MetricsEngineMock) RecordWaterfallError(format adtypes.AdFormat, code int) {
	me.Called(format, code)
}

// RecordNetworkRequest mock
func (me *MetricsEngineMock) RecordNetworkRequest(success bool, length time.Duration) {
	me.Called(success, length)
}

// RecordNetworkRetry mock
func (me *MetricsEngineMock) RecordNetworkRetry() {
	me.Called()
}

// RecordTrackerFired mock
func (me *MetricsEngineMock) RecordTrackerFired(success bool) {
	me.Called(success)
}

// RecordConsentOverride mock
func (me *MetricsEngineMock) RecordConsentOverride(signal ConsentSignal) {
	me.Called(signal)
}
