package metrics

import (
	"time"

	"github.com/prebid/prebid-waterfall/adtypes"
)

// ConsentSignal names a consent override the ad server sent.
type ConsentSignal string

const (
	ConsentForceGDPRApplies  ConsentSignal = "force_gdpr_applies"
	ConsentForceExplicitNo   ConsentSignal = "force_explicit_no"
	ConsentInvalidateConsent ConsentSignal = "invalidate_consent"
	ConsentReacquireConsent  ConsentSignal = "reacquire_consent"
)

func ConsentSignals() []ConsentSignal {
	return []ConsentSignal{
		ConsentForceGDPRApplies,
		ConsentForceExplicitNo,
		ConsentInvalidateConsent,
		ConsentReacquireConsent,
	}
}

// MetricsEngine is a generic interface to record waterfall metrics into the desired backend.
// The waterfall metrics are recorded by the loader, the network and tracker metrics by the queue.
//
// Implementations of this interface must be safe for concurrent use.
type MetricsEngine interface {
	RecordWaterfallRequest(format adtypes.AdFormat)
	RecordCandidateDelivered(format adtypes.AdFormat, adType adtypes.AdType)
	// RecordWaterfallError records a terminal error, or a skipped response entry, by its errortypes code.
	RecordWaterfallError(format adtypes.AdFormat, code int)
	RecordNetworkRequest(success bool, length time.Duration)
	RecordNetworkRetry()
	RecordTrackerFired(success bool)
	RecordConsentOverride(signal ConsentSignal)
}
