package endpoints

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/buger/jsonparser"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/prebid/prebid-waterfall/consent"
)

type consentState struct {
	Status           string            `json:"status"`
	GDPRApplies      string            `json:"gdpr_applies"`
	ShouldReacquire  bool              `json:"should_reacquire"`
	LastChangeReason string            `json:"last_change_reason,omitempty"`
	RequestParams    map[string]string `json:"request_params"`
}

// NewGetConsentEndpoint reports the consent state and the params it adds to ad server requests.
func NewGetConsentEndpoint(manager *consent.Manager) httprouter.Handle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeConsentState(w, manager)
	}
}

// NewSetConsentEndpoint updates the consent state from a body like
// {"gdpr_applies":"1","consent_string":"BOu5On0Ou5On0ADACHENAO7pqzAAppY"}. Both fields are optional.
func NewSetConsentEndpoint(manager *consent.Manager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		body, err := ioutil.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unable to read body: %v", err))
			return
		}

		if gdprApplies, err := jsonparser.GetString(body, consent.ParamGDPRApplies); err == nil {
			if err := manager.SetGDPRApplies(gdprApplies); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		} else if err != jsonparser.KeyPathNotFoundError {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a string: %v", consent.ParamGDPRApplies, err))
			return
		}

		if consentString, err := jsonparser.GetString(body, consent.ParamConsentString); err == nil {
			if err := manager.GrantConsent(consentString); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		} else if err != jsonparser.KeyPathNotFoundError {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a string: %v", consent.ParamConsentString, err))
			return
		}

		writeConsentState(w, manager)
	}
}

func writeConsentState(w http.ResponseWriter, manager *consent.Manager) {
	state := consentState{
		Status:           string(manager.Status()),
		GDPRApplies:      manager.GDPRApplies().String(),
		ShouldReacquire:  manager.ShouldReacquire(),
		LastChangeReason: manager.LastChangeReason(),
		RequestParams:    manager.RequestParams(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		glog.Errorf("Failed to write consent state: %v", err)
	}
}
