// Package tracking fires the impression, click and load tracking pings attached to ad candidates.
package tracking

import (
	"net/http"

	"github.com/golang/glog"
	"github.com/prebid/prebid-waterfall/metrics"
	"github.com/prebid/prebid-waterfall/netqueue"
	"github.com/prebid/prebid-waterfall/waterfall"
)

// Tracker sends fire-and-forget GET requests. Failures are logged and counted, never returned.
type Tracker struct {
	queue         netqueue.Queue
	metricsEngine metrics.MetricsEngine
}

func NewTracker(queue netqueue.Queue, me metrics.MetricsEngine) *Tracker {
	return &Tracker{queue: queue, metricsEngine: me}
}

// Fire pings every non-empty URL.
func (t *Tracker) Fire(urls ...string) {
	for _, u := range urls {
		if u == "" {
			continue
		}
		t.queue.Add(&ping{
			data: &waterfall.RequestData{
				Method:  http.MethodGet,
				Uri:     u,
				Headers: http.Header{},
			},
			metricsEngine: t.metricsEngine,
		})
	}
}

type ping struct {
	data          *waterfall.RequestData
	metricsEngine metrics.MetricsEngine
}

func (p *ping) Data() *waterfall.RequestData {
	return p.data
}

func (p *ping) IsCancelled() bool {
	return false
}

func (p *ping) Deliver(_ *waterfall.ResponseData, err error) {
	if err != nil {
		glog.Warningf("Tracking ping to %s failed: %v", p.data.Uri, err)
	}
	p.metricsEngine.RecordTrackerFired(err == nil)
}
