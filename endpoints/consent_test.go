package endpoints

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/prebid/prebid-waterfall/consent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tcfConsent = "BOu5On0Ou5On0ADACHENAO7pqzAAppY"

func consentRouter(manager *consent.Manager) *httprouter.Router {
	router := httprouter.New()
	router.GET("/consent", NewGetConsentEndpoint(manager))
	router.POST("/consent", NewSetConsentEndpoint(manager))
	return router
}

func readConsentState(t *testing.T, w *httptest.ResponseRecorder) consentState {
	t.Helper()
	var state consentState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	return state
}

func TestGetConsent(t *testing.T) {
	manager := consent.NewManager("1")
	w := httptest.NewRecorder()
	consentRouter(manager).ServeHTTP(w, httptest.NewRequest("GET", "/consent", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	state := readConsentState(t, w)
	assert.Equal(t, "unknown", state.Status)
	assert.Equal(t, "1", state.GDPRApplies)
	assert.Equal(t, "1", state.RequestParams[consent.ParamGDPRApplies])
}

func TestSetConsent(t *testing.T) {
	tests := []struct {
		description     string
		body            string
		wantCode        int
		wantStatus      string
		wantGDPRApplies string
	}{
		{
			description:     "grant consent",
			body:            `{"gdpr_applies":"1","consent_string":"` + tcfConsent + `"}`,
			wantCode:        http.StatusOK,
			wantStatus:      "explicit_yes",
			wantGDPRApplies: "1",
		},
		{
			description:     "gdpr only",
			body:            `{"gdpr_applies":"0"}`,
			wantCode:        http.StatusOK,
			wantStatus:      "unknown",
			wantGDPRApplies: "0",
		},
		{
			description: "malformed consent string",
			body:        `{"consent_string":"not-a-consent-string"}`,
			wantCode:    http.StatusBadRequest,
		},
		{
			description: "bad gdpr signal",
			body:        `{"gdpr_applies":"maybe"}`,
			wantCode:    http.StatusBadRequest,
		},
		{
			description: "gdpr signal is not a string",
			body:        `{"gdpr_applies":[1]}`,
			wantCode:    http.StatusBadRequest,
		},
	}

	for _, test := range tests {
		manager := consent.NewManager("1")
		w := httptest.NewRecorder()
		consentRouter(manager).ServeHTTP(w, httptest.NewRequest("POST", "/consent", strings.NewReader(test.body)))

		assert.Equal(t, test.wantCode, w.Code, test.description)
		if test.wantCode != http.StatusOK {
			continue
		}
		state := readConsentState(t, w)
		assert.Equal(t, test.wantStatus, state.Status, test.description)
		assert.Equal(t, test.wantGDPRApplies, state.GDPRApplies, test.description)
	}
}
