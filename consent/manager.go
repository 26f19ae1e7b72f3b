package consent

import (
	"strconv"
	"sync"

	"github.com/golang/glog"
	"github.com/prebid/go-gdpr/vendorconsent"
	"github.com/prebid/prebid-waterfall/errortypes"
)

// Status is the user's consent as far as this device knows.
type Status string

const (
	StatusUnknown     Status = "unknown"
	StatusExplicitYes Status = "explicit_yes"
	StatusExplicitNo  Status = "explicit_no"
)

// Request body keys written by Manager.RequestParams.
const (
	ParamGDPRApplies                = "gdpr_applies"
	ParamForceGDPRApplies           = "force_gdpr_applies"
	ParamCurrentConsentStatus       = "current_consent_status"
	ParamConsentString              = "consent_string"
	ParamConsentedVendorListVersion = "consented_vendor_list_version"
)

// Manager keeps the device's consent state and applies the overrides the ad server sends. It is
// safe for concurrent use.
type Manager struct {
	mu sync.RWMutex

	gdprApplies      Signal
	forceGDPRApplies bool
	defaultValue     string

	status            Status
	consentString     string
	vendorListVersion uint16
	lastChangeReason  string
	shouldReacquire   bool
}

// NewManager returns a Manager with unknown consent. gdprDefaultValue ("0" or "1") decides
// whether GDPR applies while the signal is ambiguous.
func NewManager(gdprDefaultValue string) *Manager {
	return &Manager{
		gdprApplies:  SignalAmbiguous,
		defaultValue: gdprDefaultValue,
		status:       StatusUnknown,
	}
}

// SetGDPRApplies records the raw gdpr signal learned from the device, e.g. "1".
func (m *Manager) SetGDPRApplies(raw string) error {
	signal, err := ParseGDPRApplies(raw)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.gdprApplies = signal
	m.mu.Unlock()
	return nil
}

// GDPRApplies returns the normalized signal. A forced signal always wins.
func (m *Manager) GDPRApplies() Signal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.forceGDPRApplies {
		return SignalYes
	}
	return m.gdprApplies.Resolve(m.defaultValue)
}

// GrantConsent stores a TCF consent string the user agreed to. The string is validated before it
// is accepted.
func (m *Manager) GrantConsent(consentString string) error {
	parsed, err := vendorconsent.ParseString(consentString)
	if err != nil {
		return &errortypes.Warning{
			Message:     "malformed consent string " + consentString + ": " + err.Error(),
			WarningCode: errortypes.InvalidConsentStringWarningCode,
		}
	}

	m.mu.Lock()
	m.status = StatusExplicitYes
	m.consentString = consentString
	m.vendorListVersion = parsed.VendorListVersion()
	m.shouldReacquire = false
	m.mu.Unlock()
	return nil
}

// Status returns the current consent status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// ShouldReacquire reports whether the ad server asked for the consent dialog to be shown again.
func (m *Manager) ShouldReacquire() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shouldReacquire
}

// LastChangeReason returns the reason attached to the last override.
func (m *Manager) LastChangeReason() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastChangeReason
}

// ConsentString returns the accepted consent string, empty when consent is not given.
func (m *Manager) ConsentString() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.consentString
}

func (m *Manager) OnForceGDPRApplies() {
	m.mu.Lock()
	m.forceGDPRApplies = true
	m.mu.Unlock()
	glog.V(1).Info("Ad server forced GDPR to apply")
}

func (m *Manager) OnForceExplicitNo(reason string) {
	m.mu.Lock()
	m.revoke(StatusExplicitNo, reason)
	m.mu.Unlock()
	glog.V(1).Infof("Ad server forced explicit no consent: %s", reason)
}

func (m *Manager) OnInvalidateConsent(reason string) {
	m.mu.Lock()
	m.revoke(StatusUnknown, reason)
	m.mu.Unlock()
	glog.V(1).Infof("Ad server invalidated consent: %s", reason)
}

func (m *Manager) OnReacquireConsent(reason string) {
	m.mu.Lock()
	m.shouldReacquire = true
	m.lastChangeReason = reason
	m.mu.Unlock()
	glog.V(1).Infof("Ad server asked to reacquire consent: %s", reason)
}

// revoke must be called with the write lock held.
func (m *Manager) revoke(status Status, reason string) {
	m.status = status
	m.consentString = ""
	m.vendorListVersion = 0
	m.lastChangeReason = reason
}

// RequestParams returns the consent fields folded into ad requests sent to the ad server.
func (m *Manager) RequestParams() map[string]string {
	gdprApplies := m.GDPRApplies()

	m.mu.RLock()
	defer m.mu.RUnlock()

	params := map[string]string{
		ParamGDPRApplies:          gdprApplies.String(),
		ParamCurrentConsentStatus: string(m.status),
	}
	if m.forceGDPRApplies {
		params[ParamForceGDPRApplies] = "1"
	}
	if m.consentString != "" {
		params[ParamConsentString] = m.consentString
		params[ParamConsentedVendorListVersion] = strconv.Itoa(int(m.vendorListVersion))
	}
	return params
}
