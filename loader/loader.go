// Package loader walks the ad waterfall of one placement on behalf of a caller.
package loader

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/prebid/prebid-waterfall/adtypes"
	"github.com/prebid/prebid-waterfall/candidate"
	"github.com/prebid/prebid-waterfall/errortypes"
	"github.com/prebid/prebid-waterfall/metrics"
	metricsConf "github.com/prebid/prebid-waterfall/metrics/config"
	"github.com/prebid/prebid-waterfall/netqueue"
	"github.com/prebid/prebid-waterfall/tracking"
	"github.com/prebid/prebid-waterfall/waterfall"
)

// ErrorCodeParam carries the caller's last error code on fail-over requests.
const ErrorCodeParam = "err_code"

// State is the position of a Loader in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateFailed
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	case StateExhausted:
		return "exhausted"
	}
	return "unknown"
}

// Listener receives what the waterfall produces. Calls happen on the goroutine which drives the
// Loader, i.e. the queue's dispatch goroutine for network results.
type Listener interface {
	OnCandidate(c *candidate.AdCandidate)
	OnFailure(err error)
}

// AdUnitRequest is the caller's ask for inventory.
type AdUnitRequest struct {
	Format   adtypes.AdFormat
	AdUnitID string
	// URL is the first waterfall request, see waterfall.AdRequestURL.
	URL      string
	Listener Listener
}

// Deps are the Loader's collaborators. Only the queue is mandatory.
type Deps struct {
	RequestOptions waterfall.RequestOptions
	ParseDeps      waterfall.ParseDeps
	Tracker        *tracking.Tracker
	MetricsEngine  metrics.MetricsEngine
	Clock          clock.Clock
}

// Loader is the waterfall state machine of a single placement.
//
// A Loader is not safe for concurrent use. Drive it from a single goroutine; with an
// netqueue.HTTPQueue that is the dispatch goroutine, reached through HTTPQueue.Post.
type Loader struct {
	unit  AdUnitRequest
	queue netqueue.Queue
	deps  Deps

	state    State
	response *waterfall.Response
	inFlight *waterfall.Request
	err      error

	current        *candidate.AdCandidate
	deliveredAt    time.Time
	afterLoadFired bool
}

// NewLoader validates the unit and returns an idle Loader.
func NewLoader(unit AdUnitRequest, queue netqueue.Queue, deps Deps) (*Loader, error) {
	var errs []error
	if unit.AdUnitID == "" {
		errs = append(errs, &errortypes.BadInput{Message: "ad unit id is required"})
	}
	if unit.URL == "" {
		errs = append(errs, &errortypes.BadInput{Message: "waterfall url is required"})
	}
	if unit.Listener == nil {
		errs = append(errs, &errortypes.BadInput{Message: "listener is required"})
	}
	if queue == nil {
		errs = append(errs, &errortypes.BadInput{Message: "network queue is required"})
	}
	if len(errs) == 1 {
		return nil, errs[0]
	} else if len(errs) > 1 {
		return nil, &errortypes.BadInput{Message: errortypes.NewAggregateErrors("invalid ad unit request", errs).Error()}
	}

	if deps.MetricsEngine == nil {
		deps.MetricsEngine = &metricsConf.DummyMetricsEngine{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	return &Loader{
		unit:  unit,
		queue: queue,
		deps:  deps,
		state: StateIdle,
	}, nil
}

// LoadNextAd moves the waterfall one step forward. previousErrorCode is the reason the last
// candidate did not fill, e.g. errortypes.CodeName(errortypes.NoFillErrorCode); it is sent along
// with fail-over requests.
//
// The request issued by this call, or the one still in flight, is returned. nil means the step was
// served without the network.
func (l *Loader) LoadNextAd(previousErrorCode string) *waterfall.Request {
	switch {
	case l.state == StateFailed:
		l.unit.Listener.OnFailure(l.err)
		return nil
	case l.inFlight != nil:
		return l.inFlight
	case l.response != nil && l.response.HasNext():
		l.deliver(l.response.Next())
		return nil
	case l.response == nil:
		return l.issue(l.unit.URL)
	case l.response.FailURL() != "":
		return l.issue(appendErrorCode(l.response.FailURL(), previousErrorCode))
	}

	l.state = StateExhausted
	l.report(&errortypes.NoFill{Message: "Waterfall exhausted for ad unit " + l.unit.AdUnitID})
	return nil
}

// HasMoreAds returns true while LoadNextAd may still produce a candidate.
func (l *Loader) HasMoreAds() bool {
	if l.state == StateFailed {
		return false
	}
	if l.response == nil {
		return true
	}
	return l.response.HasNext() || !l.response.IsWaterfallFinished()
}

// Cancel drops the request in flight. Its outcome is never reported.
func (l *Loader) Cancel() {
	if l.inFlight != nil {
		l.inFlight.Cancel()
		l.inFlight = nil
	}
}

func (l *Loader) State() State {
	return l.state
}

func (l *Loader) IsRunning() bool {
	return l.state == StateRunning
}

func (l *Loader) IsFailed() bool {
	return l.state == StateFailed
}

// Err returns the error which failed the loader, if any.
func (l *Loader) Err() error {
	return l.err
}

// CreativeDownloadSuccess reports that the last delivered candidate loaded.
func (l *Loader) CreativeDownloadSuccess() {
	l.fireAfterLoad(tracking.LoadResultAdLoaded)
}

// CreativeDownloadFailed reports that the last delivered candidate did not load.
func (l *Loader) CreativeDownloadFailed(timeout bool) {
	if timeout {
		l.fireAfterLoad(tracking.LoadResultTimeout)
	} else {
		l.fireAfterLoad(tracking.LoadResultError)
	}
}

// TrackImpression fires the impression URLs of the last delivered candidate.
func (l *Loader) TrackImpression() {
	if l.current != nil && l.deps.Tracker != nil {
		l.deps.Tracker.Fire(l.current.ImpressionTrackingURLs...)
	}
}

// TrackClick fires the click URL of the last delivered candidate.
func (l *Loader) TrackClick() {
	if l.current != nil && l.deps.Tracker != nil {
		l.deps.Tracker.Fire(l.current.ClickTrackingURL)
	}
}

func (l *Loader) fireAfterLoad(result tracking.LoadResult) {
	if l.current == nil || l.afterLoadFired {
		return
	}
	l.afterLoadFired = true
	if l.deps.Tracker == nil || l.current.AfterLoadURL == "" {
		return
	}
	duration := l.deps.Clock.Since(l.deliveredAt)
	l.deps.Tracker.Fire(tracking.ReplaceMacros(l.current.AfterLoadURL, duration, result))
}

func (l *Loader) issue(rawURL string) *waterfall.Request {
	listener := &requestListener{loader: l}
	req, err := waterfall.NewRequest(rawURL, l.unit.Format, l.unit.AdUnitID, l.deps.RequestOptions, l.deps.ParseDeps, listener)
	if err != nil {
		l.fail(err)
		return nil
	}
	listener.request = req

	l.state = StateRunning
	l.inFlight = req
	l.deps.MetricsEngine.RecordWaterfallRequest(l.unit.Format)
	l.queue.Add(req)
	return req
}

func (l *Loader) deliver(c *candidate.AdCandidate) {
	l.current = c
	l.deliveredAt = l.deps.Clock.Now()
	l.afterLoadFired = false

	if l.deps.Tracker != nil && c.BeforeLoadURL != "" {
		l.deps.Tracker.Fire(c.BeforeLoadURL)
	}
	l.deps.MetricsEngine.RecordCandidateDelivered(l.unit.Format, c.AdType)
	glog.V(2).Infof("Delivering %s candidate from adapter %s for ad unit %s", c.AdType, c.AdapterID, l.unit.AdUnitID)
	l.unit.Listener.OnCandidate(c)
}

func (l *Loader) fail(err error) {
	l.state = StateFailed
	l.report(err)
}

func (l *Loader) report(err error) {
	l.err = err
	if errortypes.IsNetworkError(err) {
		glog.Warningf("Waterfall request for ad unit %s failed: %v", l.unit.AdUnitID, err)
	} else {
		glog.V(1).Infof("Ad unit %s: %v", l.unit.AdUnitID, err)
	}
	l.deps.MetricsEngine.RecordWaterfallError(l.unit.Format, errortypes.ReadCode(err))
	l.unit.Listener.OnFailure(err)
}

func (l *Loader) onResponse(req *waterfall.Request, resp *waterfall.Response) {
	if req != l.inFlight {
		return
	}
	l.inFlight = nil
	l.response = resp
	for _, w := range resp.Warnings() {
		if errortypes.IsWarning(w) {
			l.deps.MetricsEngine.RecordWaterfallError(l.unit.Format, errortypes.ReadCode(w))
		}
		glog.Warningf("Ad unit %s: %v", l.unit.AdUnitID, w)
	}
	if !resp.HasNext() {
		// Only reachable through a truncated envelope; treat it like any other end of list.
		l.LoadNextAd("")
		return
	}
	l.state = StateRunning
	l.deliver(resp.Next())
}

func (l *Loader) onError(req *waterfall.Request, err error) {
	if req != l.inFlight {
		return
	}
	l.inFlight = nil
	l.fail(err)
}

// requestListener binds a waterfall.Request to the Loader which issued it.
type requestListener struct {
	loader  *Loader
	request *waterfall.Request
}

func (rl *requestListener) OnSuccess(resp *waterfall.Response) {
	rl.loader.onResponse(rl.request, resp)
}

func (rl *requestListener) OnError(err error) {
	rl.loader.onError(rl.request, err)
}

// appendErrorCode adds the caller's error code to a fail-over URL, keeping the URL as is otherwise.
func appendErrorCode(rawURL, code string) string {
	if code == "" {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
		if strings.HasSuffix(rawURL, "?") || strings.HasSuffix(rawURL, "&") {
			sep = ""
		}
	}
	return fmt.Sprintf("%s%s%s=%s", rawURL, sep, ErrorCodeParam, url.QueryEscape(code))
}
