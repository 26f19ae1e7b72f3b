package consent

import (
	"strings"

	"github.com/prebid/prebid-waterfall/errortypes"
)

// Signal says whether GDPR applies to the device. SignalAmbiguous means the device has not told us
// yet.
type Signal int

const (
	SignalAmbiguous Signal = -1
	SignalNo        Signal = 0
	SignalYes       Signal = 1
)

// ParseGDPRApplies reads the gdpr_applies value the device sends: "1", "0", or "" while unknown.
func ParseGDPRApplies(raw string) (Signal, error) {
	switch strings.TrimSpace(raw) {
	case "":
		return SignalAmbiguous, nil
	case "0":
		return SignalNo, nil
	case "1":
		return SignalYes, nil
	}
	return SignalAmbiguous, &errortypes.BadInput{Message: "gdpr_applies must be \"0\" or \"1\", got " + raw}
}

// Resolve turns an ambiguous signal into a definite one. Anything other than a "0" default means
// GDPR applies.
func (s Signal) Resolve(gdprDefault string) Signal {
	if s != SignalAmbiguous {
		return s
	}
	if gdprDefault == "0" {
		return SignalNo
	}
	return SignalYes
}

// String is the form sent to the ad server: "1", "0", or "" while ambiguous.
func (s Signal) String() string {
	switch s {
	case SignalNo:
		return "0"
	case SignalYes:
		return "1"
	}
	return ""
}
