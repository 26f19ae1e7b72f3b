package consent

import "github.com/prebid/prebid-waterfall/metrics"

type meteredListener struct {
	next          OverrideListener
	metricsEngine metrics.MetricsEngine
}

// NewMeteredListener counts every override before passing it on to next.
func NewMeteredListener(next OverrideListener, me metrics.MetricsEngine) OverrideListener {
	return &meteredListener{next: next, metricsEngine: me}
}

func (l *meteredListener) OnForceGDPRApplies() {
	l.metricsEngine.RecordConsentOverride(metrics.ConsentForceGDPRApplies)
	l.next.OnForceGDPRApplies()
}

func (l *meteredListener) OnForceExplicitNo(reason string) {
	l.metricsEngine.RecordConsentOverride(metrics.ConsentForceExplicitNo)
	l.next.OnForceExplicitNo(reason)
}

func (l *meteredListener) OnInvalidateConsent(reason string) {
	l.metricsEngine.RecordConsentOverride(metrics.ConsentInvalidateConsent)
	l.next.OnInvalidateConsent(reason)
}

func (l *meteredListener) OnReacquireConsent(reason string) {
	l.metricsEngine.RecordConsentOverride(metrics.ConsentReacquireConsent)
	l.next.OnReacquireConsent(reason)
}
