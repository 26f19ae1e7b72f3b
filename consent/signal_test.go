package consent

import (
	"testing"

	"github.com/prebid/prebid-waterfall/errortypes"
	"github.com/stretchr/testify/assert"
)

func TestParseGDPRApplies(t *testing.T) {
	tests := []struct {
		description string
		raw         string
		wantSignal  Signal
		wantError   bool
	}{
		{description: "device says no", raw: "0", wantSignal: SignalNo},
		{description: "device says yes", raw: "1", wantSignal: SignalYes},
		{description: "device has not said", raw: "", wantSignal: SignalAmbiguous},
		{description: "surrounding space", raw: " 1 ", wantSignal: SignalYes},
		{description: "negative", raw: "-1", wantSignal: SignalAmbiguous, wantError: true},
		{description: "not a number", raw: "yes", wantSignal: SignalAmbiguous, wantError: true},
	}

	for _, test := range tests {
		signal, err := ParseGDPRApplies(test.raw)

		assert.Equal(t, test.wantSignal, signal, test.description)
		if test.wantError {
			assert.Equal(t, errortypes.BadInputErrorCode, errortypes.ReadCode(err), test.description)
		} else {
			assert.NoError(t, err, test.description)
		}
	}
}

func TestSignalResolve(t *testing.T) {
	tests := []struct {
		description string
		gdprDefault string
		signal      Signal
		want        Signal
	}{
		{description: "definite no ignores the default", gdprDefault: "1", signal: SignalNo, want: SignalNo},
		{description: "definite yes ignores the default", gdprDefault: "0", signal: SignalYes, want: SignalYes},
		{description: "ambiguous with default 0", gdprDefault: "0", signal: SignalAmbiguous, want: SignalNo},
		{description: "ambiguous with default 1", gdprDefault: "1", signal: SignalAmbiguous, want: SignalYes},
		{description: "ambiguous with no default", gdprDefault: "", signal: SignalAmbiguous, want: SignalYes},
	}

	for _, test := range tests {
		assert.Equal(t, test.want, test.signal.Resolve(test.gdprDefault), test.description)
	}
}

func TestSignalString(t *testing.T) {
	assert.Equal(t, "1", SignalYes.String())
	assert.Equal(t, "0", SignalNo.String())
	assert.Equal(t, "", SignalAmbiguous.String())
}
