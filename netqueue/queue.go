// Package netqueue executes waterfall requests and tracking pings over HTTP.
//
// Requests run concurrently on a bounded set of workers, but their completions are handed back one at
// a time on a single dispatch goroutine. Code which only ever runs on that goroutine, such as a
// loader, needs no locking of its own.
package netqueue

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/prebid/prebid-waterfall/config"
	"github.com/prebid/prebid-waterfall/errortypes"
	"github.com/prebid/prebid-waterfall/metrics"
	"github.com/prebid/prebid-waterfall/waterfall"
	"golang.org/x/net/context/ctxhttp"
)

// Executable is a unit of work for a Queue. waterfall.Request satisfies it.
type Executable interface {
	Data() *waterfall.RequestData
	// Deliver is called exactly once, on the dispatch goroutine, unless the work was cancelled.
	Deliver(resp *waterfall.ResponseData, err error)
	IsCancelled() bool
}

// Queue accepts work to execute asynchronously.
type Queue interface {
	Add(e Executable)
}

// HTTPQueue is the net/http Queue.
type HTTPQueue struct {
	client        *http.Client
	timeout       time.Duration
	retry         RetryPolicy
	metricsEngine metrics.MetricsEngine

	workers  chan struct{}
	dispatch chan func()

	ctx       context.Context
	cancel    context.CancelFunc
	inFlight  sync.WaitGroup
	loopDone  chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewHTTPQueue builds a queue. Nothing is delivered until Start is called.
func NewHTTPQueue(client *http.Client, cfg config.NetworkQueue, me metrics.MetricsEngine) *HTTPQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &HTTPQueue{
		client:        client,
		timeout:       cfg.Timeout(),
		retry:         NewRetryPolicy(cfg),
		metricsEngine: me,
		workers:       make(chan struct{}, cfg.MaxWorkers),
		dispatch:      make(chan func(), cfg.DispatchQueueSize),
		ctx:           ctx,
		cancel:        cancel,
		loopDone:      make(chan struct{}),
	}
}

// NewHTTPClient returns the client the queue should use, with its connection pool sized by cfg.
func NewHTTPClient(cfg config.NetworkQueue) *http.Client {
	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		IdleConnTimeout: cfg.IdleConnTimeout(),
	}
	if cfg.MaxIdleConns > 0 {
		transport.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}
	return &http.Client{Transport: transport}
}

// Start runs the dispatch goroutine.
func (q *HTTPQueue) Start() {
	q.startOnce.Do(func() {
		go q.dispatchLoop()
	})
}

// Stop cancels everything in flight and waits for the workers to exit. Pending completions are
// dropped.
func (q *HTTPQueue) Stop() {
	q.stopOnce.Do(func() {
		q.cancel()
		q.inFlight.Wait()
		q.Start()
		<-q.loopDone
	})
}

func (q *HTTPQueue) dispatchLoop() {
	defer close(q.loopDone)
	for {
		select {
		case fn := <-q.dispatch:
			fn()
		case <-q.ctx.Done():
			return
		}
	}
}

// Post runs fn on the dispatch goroutine. It returns false if the queue was stopped. Post blocks
// while the dispatch buffer is full, so it must not be called from the dispatch goroutine itself.
func (q *HTTPQueue) Post(fn func()) bool {
	if q.ctx.Err() != nil {
		return false
	}
	select {
	case q.dispatch <- fn:
		return true
	case <-q.ctx.Done():
		return false
	}
}

// Add executes e in the background and delivers the outcome on the dispatch goroutine.
func (q *HTTPQueue) Add(e Executable) {
	if e.IsCancelled() {
		return
	}
	q.inFlight.Add(1)
	go func() {
		defer q.inFlight.Done()

		select {
		case q.workers <- struct{}{}:
		case <-q.ctx.Done():
			return
		}
		if e.IsCancelled() {
			<-q.workers
			return
		}
		resp, err := q.execute(e)
		<-q.workers

		q.Post(func() {
			if !e.IsCancelled() {
				e.Deliver(resp, err)
			}
		})
	}()
}

func (q *HTTPQueue) execute(e Executable) (*waterfall.ResponseData, error) {
	data := e.Data()
	for attempt := 0; ; attempt++ {
		start := time.Now()
		resp, err := q.doRequest(data)
		q.metricsEngine.RecordNetworkRequest(err == nil, time.Since(start))

		if err == nil || !Retryable(err) || attempt >= q.retry.MaxRetries || e.IsCancelled() {
			return resp, err
		}

		q.metricsEngine.RecordNetworkRetry()
		delay := q.retry.Backoff(attempt)
		glog.Warningf("Retrying %s %s in %v: %v", data.Method, data.Uri, delay, err)
		select {
		case <-time.After(delay):
		case <-q.ctx.Done():
			return nil, &errortypes.ConnectionFailure{Message: "network queue stopped"}
		}
	}
}

func (q *HTTPQueue) doRequest(data *waterfall.RequestData) (*waterfall.ResponseData, error) {
	httpReq, err := http.NewRequest(data.Method, data.Uri, bytes.NewReader(data.Body))
	if err != nil {
		return nil, &errortypes.BadInput{Message: err.Error()}
	}
	httpReq.Header = data.Headers

	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()

	httpResp, err := ctxhttp.Do(ctx, q.client, httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &errortypes.Timeout{Message: err.Error()}
		}
		return nil, &errortypes.ConnectionFailure{Message: err.Error()}
	}
	defer httpResp.Body.Close()

	respBody, err := ioutil.ReadAll(httpResp.Body)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &errortypes.Timeout{Message: err.Error()}
		}
		return nil, &errortypes.ConnectionFailure{Message: fmt.Sprintf("error reading response: %v", err)}
	}

	resp := &waterfall.ResponseData{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Headers:    httpResp.Header,
	}
	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		return resp, &errortypes.BadServerResponse{StatusCode: httpResp.StatusCode}
	}
	return resp, nil
}
