// Package consent carries the privacy control signals the ad server embeds in waterfall responses
// to whoever owns the device's consent state.
package consent

import "sync"

// Signals are the consent overrides found on one response envelope.
type Signals struct {
	ForceGDPRApplies  bool
	ForceExplicitNo   bool
	InvalidateConsent bool
	ReacquireConsent  bool

	// ChangeReason is the server supplied explanation, possibly empty.
	ChangeReason string
}

// Any reports whether at least one override is set.
func (s Signals) Any() bool {
	return s.ForceGDPRApplies || s.ForceExplicitNo || s.InvalidateConsent || s.ReacquireConsent
}

// OverrideListener receives consent overrides. Calls happen synchronously while a response is
// being parsed, so implementations must not block.
type OverrideListener interface {
	OnForceGDPRApplies()
	OnForceExplicitNo(reason string)
	OnInvalidateConsent(reason string)
	OnReacquireConsent(reason string)
}

// Registry is the process-wide notification channel for consent overrides. It holds at most one
// listener; the last registration wins.
//
// Create one per process and hand the same pointer to every parser.
type Registry struct {
	mu       sync.Mutex
	listener OverrideListener
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// SetListener replaces the registered listener. A nil listener unregisters.
func (r *Registry) SetListener(l OverrideListener) {
	r.mu.Lock()
	r.listener = l
	r.mu.Unlock()
}

// Notify forwards every set override to the listener in a fixed order. The mutex is held for the
// whole delivery so concurrent parsers never interleave their overrides. Notify returns the number
// of callbacks made.
func (r *Registry) Notify(s Signals) int {
	if r == nil || !s.Any() {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listener == nil {
		return 0
	}

	calls := 0
	if s.ForceGDPRApplies {
		r.listener.OnForceGDPRApplies()
		calls++
	}
	if s.ForceExplicitNo {
		r.listener.OnForceExplicitNo(s.ChangeReason)
		calls++
	}
	if s.InvalidateConsent {
		r.listener.OnInvalidateConsent(s.ChangeReason)
		calls++
	}
	if s.ReacquireConsent {
		r.listener.OnReacquireConsent(s.ChangeReason)
		calls++
	}
	return calls
}
