package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/prebid/prebid-waterfall/adtypes"
	"github.com/prebid/prebid-waterfall/candidate"
	"github.com/prebid/prebid-waterfall/config"
	"github.com/prebid/prebid-waterfall/errortypes"
	"github.com/prebid/prebid-waterfall/loader"
	"github.com/prebid/prebid-waterfall/netqueue"
	"github.com/prebid/prebid-waterfall/waterfall"
)

// Dispatcher executes network work and runs callbacks one at a time. *netqueue.HTTPQueue is the
// production implementation.
type Dispatcher interface {
	netqueue.Queue
	Post(fn func()) bool
}

// WaterfallDeps configures the waterfall inspection endpoint.
type WaterfallDeps struct {
	AdServer   config.AdServer
	SDKVersion string
	// MaxSteps bounds the candidates a single walk collects. The max_steps query parameter may only lower it.
	MaxSteps   int
	Timeout    time.Duration
	Dispatcher Dispatcher
	Loader     loader.Deps
}

// NewWaterfallEndpoint serves GET /waterfall/:format/:adunit.
//
// It walks the ad unit's waterfall the way a device would if none of the candidates filled, and
// returns every candidate it saw together with the error which ended the walk.
func NewWaterfallEndpoint(deps WaterfallDeps) httprouter.Handle {
	return (&waterfallEndpoint{deps: deps}).Handle
}

type waterfallEndpoint struct {
	deps WaterfallDeps
}

type walkResponse struct {
	Candidates []walkedCandidate `json:"candidates"`
	Error      *walkError        `json:"error,omitempty"`
}

type walkedCandidate struct {
	AdType                 string   `json:"ad_type"`
	FullAdType             string   `json:"full_ad_type,omitempty"`
	AdapterID              string   `json:"adapter_id"`
	CreativeID             string   `json:"creative_id,omitempty"`
	Width                  *int     `json:"width,omitempty"`
	Height                 *int     `json:"height,omitempty"`
	RefreshTimeMillis      *int     `json:"refresh_time_ms,omitempty"`
	ClickTrackingURL       string   `json:"click_tracking_url,omitempty"`
	ImpressionTrackingURLs []string `json:"impression_tracking_urls,omitempty"`
}

type walkError struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	RefreshTimeMillis *int   `json:"refresh_time_ms,omitempty"`
}

func (e *waterfallEndpoint) Handle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	format, ok := adtypes.ParseAdFormat(ps.ByName("format"))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown ad format %q", ps.ByName("format")))
		return
	}
	adUnitID := ps.ByName("adunit")

	maxSteps, err := e.maxSteps(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	walk := &walker{maxSteps: maxSteps, done: make(chan struct{})}
	l, err := loader.NewLoader(loader.AdUnitRequest{
		Format:   format,
		AdUnitID: adUnitID,
		URL:      waterfall.AdRequestURL(e.deps.AdServer.Scheme, e.deps.AdServer.Host, e.deps.AdServer.Path, adUnitID, e.deps.SDKVersion),
		Listener: walk,
	}, e.deps.Dispatcher, e.deps.Loader)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	walk.loader = l

	if !e.deps.Dispatcher.Post(func() { l.LoadNextAd("") }) {
		writeError(w, http.StatusServiceUnavailable, "network queue is stopped")
		return
	}

	ctx := r.Context()
	if e.deps.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.deps.Timeout)
		defer cancel()
	}

	select {
	case <-walk.done:
	case <-ctx.Done():
		e.deps.Dispatcher.Post(l.Cancel)
		glog.Warningf("Waterfall walk for %s/%s abandoned: %v", format, adUnitID, ctx.Err())
		writeError(w, http.StatusGatewayTimeout, "waterfall walk did not finish in time")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(walk.response); err != nil {
		glog.Errorf("Failed to write waterfall walk response: %v", err)
	}
}

func (e *waterfallEndpoint) maxSteps(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("max_steps")
	if raw == "" {
		return e.deps.MaxSteps, nil
	}
	steps, err := strconv.Atoi(raw)
	if err != nil || steps <= 0 {
		return 0, fmt.Errorf("max_steps must be a positive integer. Got %q", raw)
	}
	if steps > e.deps.MaxSteps {
		steps = e.deps.MaxSteps
	}
	return steps, nil
}

// walker drives a Loader to the end of its waterfall. Its callbacks run on the dispatcher.
type walker struct {
	loader   *loader.Loader
	maxSteps int
	response walkResponse
	done     chan struct{}
	finished bool
}

func (w *walker) OnCandidate(c *candidate.AdCandidate) {
	if w.finished {
		return
	}
	w.response.Candidates = append(w.response.Candidates, walkedCandidate{
		AdType:                 string(c.AdType),
		FullAdType:             string(c.FullAdType),
		AdapterID:              string(c.AdapterID),
		CreativeID:             c.CreativeID,
		Width:                  c.Width,
		Height:                 c.Height,
		RefreshTimeMillis:      c.RefreshTimeMillis,
		ClickTrackingURL:       c.ClickTrackingURL,
		ImpressionTrackingURLs: c.ImpressionTrackingURLs,
	})
	if len(w.response.Candidates) >= w.maxSteps {
		w.loader.Cancel()
		w.finish()
		return
	}
	w.loader.LoadNextAd(errortypes.CodeName(errortypes.NoFillErrorCode))
}

func (w *walker) OnFailure(err error) {
	if w.finished {
		return
	}
	walkErr := &walkError{
		Code:    errortypes.CodeName(errortypes.ReadCode(err)),
		Message: err.Error(),
	}
	if refresh, ok := errortypes.ReadRefreshTime(err); ok {
		walkErr.RefreshTimeMillis = &refresh
	}
	w.response.Error = walkErr
	w.finish()
}

func (w *walker) finish() {
	w.finished = true
	if w.response.Candidates == nil {
		w.response.Candidates = []walkedCandidate{}
	}
	close(w.done)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	fmt.Fprintf(w, "Invalid request: %s\n", message)
}
