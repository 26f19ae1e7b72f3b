// Package waterfall requests the ordered list of ad candidates for an ad unit and walks it.
package waterfall

import (
	"fmt"

	"github.com/buger/jsonparser"
	"github.com/golang/glog"
	"github.com/prebid/prebid-waterfall/adtypes"
	"github.com/prebid/prebid-waterfall/candidate"
	"github.com/prebid/prebid-waterfall/consent"
	"github.com/prebid/prebid-waterfall/errortypes"
	"github.com/prebid/prebid-waterfall/headers"
)

// ParseDeps are the collaborators a response needs while it is parsed.
type ParseDeps struct {
	// Registry receives the consent overrides carried by the envelope. May be nil.
	Registry *consent.Registry
	// Adapters resolves candidates without an explicit adapter. nil means the defaults.
	Adapters *adtypes.AdapterTable
}

// Response is a parsed waterfall envelope together with a cursor over its candidates.
//
// A Response is not safe for concurrent use.
type Response struct {
	failURL    string
	candidates []*candidate.AdCandidate
	index      int
	warnings   []error

	envelopeRefresh *int
}

// ParseResponse parses the body of an ad server response.
//
// Consent overrides are delivered to deps.Registry before any candidate is built. Malformed
// candidates are skipped and reported through Warnings. If nothing usable is left the error of the
// first candidate is returned.
func ParseResponse(body []byte, format adtypes.AdFormat, adUnitID string, deps ParseDeps) (*Response, error) {
	if len(body) == 0 {
		return nil, &errortypes.BadBody{Message: "Ad server response body is empty"}
	}
	envelope, err := headers.FlattenJSONObject(body)
	if err != nil {
		return nil, &errortypes.BadBody{Message: fmt.Sprintf("Ad server response is not a JSON object: %v", err)}
	}

	records, err := adResponses(body, envelope)
	if err != nil {
		return nil, err
	}

	deps.Registry.Notify(controlSignals(envelope))

	resp := &Response{
		failURL:         headers.ExtractString(envelope, headers.FailURL),
		envelopeRefresh: envelopeRefreshTime(envelope),
	}
	var firstErr error
	for i, raw := range records {
		c, err := candidate.Parse(raw, format, adUnitID, deps.Adapters)
		if err == nil {
			resp.candidates = append(resp.candidates, c)
			continue
		}

		switch err.(type) {
		case *errortypes.WarmingUp:
			return nil, err
		case *errortypes.NoFill:
			if i == 0 {
				return nil, err
			}
			// A clear record ends the waterfall, fail-over included.
			resp.failURL = ""
			return resp.orFirstError(firstErr)
		}

		if firstErr == nil {
			firstErr = err
		}
		glog.Warningf("Skipping ad response %d for ad unit %s: %v", i, adUnitID, err)
		resp.warnings = append(resp.warnings, &errortypes.Warning{
			Message:     fmt.Sprintf("ad response %d: %s", i, err.Error()),
			WarningCode: errortypes.MalformedCandidateWarningCode,
		})
	}
	return resp.orFirstError(firstErr)
}

// orFirstError falls back to the envelope's refresh hint when the first candidate error has none.
func (r *Response) orFirstError(firstErr error) (*Response, error) {
	if len(r.candidates) == 0 && firstErr != nil {
		return nil, errortypes.WithRefreshTime(firstErr, r.envelopeRefresh)
	}
	return r, nil
}

func envelopeRefreshTime(envelope headers.Map) *int {
	seconds, ok := headers.ExtractInt(envelope, headers.EnvelopeRefreshTime)
	if !ok {
		return nil
	}
	millis := seconds * 1000
	return &millis
}

// adResponses returns the raw entries of the candidate array. A missing, malformed or empty array
// is a BadHeaderData error hinting at the envelope's refresh time.
func adResponses(body []byte, envelope headers.Map) ([][]byte, error) {
	refresh := errortypes.DefaultRefreshTimeMillis
	if r := envelopeRefreshTime(envelope); r != nil {
		refresh = *r
	}
	badHeaders := func(msg string) error {
		return &errortypes.BadHeaderData{Message: msg, Refresh: &refresh}
	}

	value, dataType, _, err := jsonparser.Get(body, headers.AdResponses)
	if err != nil || dataType != jsonparser.Array {
		return nil, badHeaders("Ad server response has no " + headers.AdResponses + " array")
	}

	var records [][]byte
	var itemErr error
	_, err = jsonparser.ArrayEach(value, func(item []byte, dataType jsonparser.ValueType, _ int, err error) {
		if err != nil {
			itemErr = err
			return
		}
		if dataType != jsonparser.Object {
			// ArrayEach strips the quotes of string items. nil keeps them from being read as JSON.
			item = nil
		}
		records = append(records, item)
	})
	if err != nil || itemErr != nil {
		return nil, badHeaders("Ad server response has a malformed " + headers.AdResponses + " array")
	}
	if len(records) == 0 {
		return nil, badHeaders("Ad server response has an empty " + headers.AdResponses + " array")
	}
	return records, nil
}

func controlSignals(envelope headers.Map) consent.Signals {
	return consent.Signals{
		ForceGDPRApplies:  headers.ExtractBoolean(envelope, headers.ForceGDPRApplies, false),
		ForceExplicitNo:   headers.ExtractBoolean(envelope, headers.ForceExplicitNo, false),
		InvalidateConsent: headers.ExtractBoolean(envelope, headers.InvalidateConsent, false),
		ReacquireConsent:  headers.ExtractBoolean(envelope, headers.ReacquireConsent, false),
		ChangeReason:      headers.ExtractString(envelope, headers.ConsentChangeReason),
	}
}

// HasNext returns true while the cursor has candidates left.
func (r *Response) HasNext() bool {
	return r.index < len(r.candidates)
}

// Next returns the candidate under the cursor and advances it, or nil once the list is exhausted.
func (r *Response) Next() *candidate.AdCandidate {
	if !r.HasNext() {
		return nil
	}
	c := r.candidates[r.index]
	r.index++
	return c
}

// FailURL is the URL for the next waterfall request. Empty means there is none.
func (r *Response) FailURL() string {
	return r.failURL
}

// IsWaterfallFinished returns true when every candidate was handed out and there is no fail-over.
func (r *Response) IsWaterfallFinished() bool {
	return !r.HasNext() && r.failURL == ""
}

// Len returns the number of usable candidates.
func (r *Response) Len() int {
	return len(r.candidates)
}

// Warnings describes the candidates which were skipped.
func (r *Response) Warnings() []error {
	return r.warnings
}
