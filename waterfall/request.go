package waterfall

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/gofrs/uuid"
	"github.com/prebid/prebid-waterfall/adtypes"
	"github.com/prebid/prebid-waterfall/errortypes"
	"golang.org/x/text/language"
)

// RequestData packages together the fields needed to make an http.Request.
type RequestData struct {
	Method  string
	Uri     string
	Body    []byte
	Headers http.Header
}

// ResponseData packages together information from the server's http.Response.
type ResponseData struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Listener receives the outcome of a Request. Exactly one of its methods is called, and never after
// the request was cancelled.
type Listener interface {
	OnSuccess(resp *Response)
	OnError(err error)
}

// RequestOptions describe how requests to the ad server are built.
type RequestOptions struct {
	// AdServerHost is the host which receives POST requests. The port is ignored.
	AdServerHost string
	// Locale is the device locale, e.g. "en_US".
	Locale string
	// BodyParams adds fields, such as consent state, to every POST body. May be nil.
	BodyParams func() map[string]string
}

// Request is a single waterfall request. It is handed to a network queue which calls Deliver once
// the exchange completes.
type Request struct {
	data      *RequestData
	format    adtypes.AdFormat
	adUnitID  string
	deps      ParseDeps
	listener  Listener
	cancelled int32
}

// NewRequest builds the request for rawURL.
//
// Requests to the ad server are POSTed with the query parameters moved into a JSON body. Any other
// destination, such as a third party fail-over URL, is fetched with a plain GET.
func NewRequest(rawURL string, format adtypes.AdFormat, adUnitID string, opts RequestOptions, deps ParseDeps, listener Listener) (*Request, error) {
	if listener == nil {
		return nil, &errortypes.BadInput{Message: "waterfall request needs a listener"}
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, &errortypes.BadInput{Message: fmt.Sprintf("invalid waterfall url %q", rawURL)}
	}

	data := &RequestData{
		Method:  http.MethodGet,
		Uri:     rawURL,
		Headers: http.Header{},
	}
	if isAdServer(u, opts.AdServerHost) {
		body, err := jsonBody(u.Query(), opts.BodyParams)
		if err != nil {
			return nil, err
		}
		u.RawQuery = ""
		data.Method = http.MethodPost
		data.Uri = u.String()
		data.Body = body
		data.Headers.Set("Content-Type", "application/json; charset=UTF-8")
	}
	if lang := acceptLanguage(opts.Locale); lang != "" {
		data.Headers.Set("Accept-Language", lang)
	}
	if id, err := uuid.NewV4(); err == nil {
		data.Headers.Set("X-Request-Id", id.String())
	}

	return &Request{
		data:     data,
		format:   format,
		adUnitID: adUnitID,
		deps:     deps,
		listener: listener,
	}, nil
}

func isAdServer(u *url.URL, adServerHost string) bool {
	if adServerHost == "" {
		return false
	}
	host := adServerHost
	if h, _, err := net.SplitHostPort(adServerHost); err == nil {
		host = h
	}
	return strings.EqualFold(u.Hostname(), host)
}

// jsonBody keeps the first value of every query parameter. Extra params are merged over the query.
func jsonBody(query url.Values, extra func() map[string]string) ([]byte, error) {
	fields := make(map[string]string, len(query))
	for key, values := range query {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, &errortypes.BadInput{Message: fmt.Sprintf("unable to encode waterfall request body: %v", err)}
	}
	if extra == nil {
		return body, nil
	}
	extraFields := extra()
	if len(extraFields) == 0 {
		return body, nil
	}
	patch, err := json.Marshal(extraFields)
	if err != nil {
		return nil, &errortypes.BadInput{Message: fmt.Sprintf("unable to encode waterfall request params: %v", err)}
	}
	if body, err = jsonpatch.MergePatch(body, patch); err != nil {
		return nil, &errortypes.BadInput{Message: fmt.Sprintf("unable to merge waterfall request params: %v", err)}
	}
	return body, nil
}

// acceptLanguage reduces a locale to its base language, e.g. "en_US" to "en". An undetermined
// language yields "".
func acceptLanguage(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return ""
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return locale
	}
	// Only an explicit language counts. Und gets a guessed base with a lower confidence.
	base, confidence := tag.Base()
	if confidence != language.Exact {
		return ""
	}
	return base.String()
}

// Data returns the request to execute.
func (r *Request) Data() *RequestData {
	return r.data
}

// AdUnitID returns the ad unit this request is for.
func (r *Request) AdUnitID() string {
	return r.adUnitID
}

// Format returns the ad format this request is for.
func (r *Request) Format() adtypes.AdFormat {
	return r.format
}

// Deliver completes the request. Nothing is reported once the request was cancelled.
func (r *Request) Deliver(resp *ResponseData, err error) {
	if r.IsCancelled() {
		return
	}
	if err != nil {
		r.listener.OnError(err)
		return
	}
	if resp == nil {
		r.listener.OnError(&errortypes.BadBody{Message: "Ad server returned no response"})
		return
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		r.listener.OnError(&errortypes.BadServerResponse{StatusCode: resp.StatusCode})
		return
	}

	parsed, err := ParseResponse(resp.Body, r.format, r.adUnitID, r.deps)
	if r.IsCancelled() {
		return
	}
	if err != nil {
		r.listener.OnError(err)
		return
	}
	r.listener.OnSuccess(parsed)
}

// Cancel stops the request from reporting to its listener.
func (r *Request) Cancel() {
	atomic.StoreInt32(&r.cancelled, 1)
}

// IsCancelled returns true once Cancel was called.
func (r *Request) IsCancelled() bool {
	return atomic.LoadInt32(&r.cancelled) == 1
}

// AdRequestURL builds the first waterfall URL for an ad unit.
func AdRequestURL(scheme, host, path, adUnitID, sdkVersion string) string {
	query := url.Values{}
	query.Set("id", adUnitID)
	if sdkVersion != "" {
		query.Set("nv", sdkVersion)
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     path,
		RawQuery: query.Encode(),
	}
	return u.String()
}
