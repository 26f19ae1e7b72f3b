package server

import (
	"net/http"
	"strconv"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prebid/prebid-waterfall/config"
	metricsconfig "github.com/prebid/prebid-waterfall/metrics/config"
)

func newPrometheusServer(cfg *config.Configuration, metrics *metricsconfig.DetailedMetricsEngine) *http.Server {
	proMetrics := metrics.PrometheusMetrics

	if proMetrics == nil {
		glog.Fatal("Prometheus metrics configured, but a Prometheus metrics engine was not found. Cannot set up a Prometheus listener.")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(proMetrics.Registry, promhttp.HandlerOpts{
		ErrorLog:            loggerForPrometheus{},
		MaxRequestsInFlight: 5,
	}))
	return &http.Server{
		Addr:    cfg.Admin.Host + ":" + strconv.Itoa(cfg.Metrics.Prometheus.Port),
		Handler: mux,
	}
}

type loggerForPrometheus struct{}

func (loggerForPrometheus) Println(v ...interface{}) {
	glog.Warningln(v...)
}
