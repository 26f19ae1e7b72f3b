package router

import (
	"net/http"
	"time"

	"github.com/didip/tollbooth"
	"github.com/didip/tollbooth/limiter"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/prebid/prebid-waterfall/adtypes"
	"github.com/prebid/prebid-waterfall/config"
	"github.com/prebid/prebid-waterfall/consent"
	"github.com/prebid/prebid-waterfall/endpoints"
	"github.com/prebid/prebid-waterfall/loader"
	metricsConf "github.com/prebid/prebid-waterfall/metrics/config"
	"github.com/prebid/prebid-waterfall/netqueue"
	"github.com/prebid/prebid-waterfall/waterfall"
	"github.com/rs/cors"
)

type NoCache struct {
	Handler http.Handler
}

func (m NoCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Add("Pragma", "no-cache")
	w.Header().Add("Expires", "0")
	m.Handler.ServeHTTP(w, r)
}

type Router struct {
	*httprouter.Router
	MetricsEngine *metricsConf.DetailedMetricsEngine
	Consent       *consent.Manager
	Queue         *netqueue.HTTPQueue
	Shutdown      func()
}

// New builds the waterfall inspection routes and starts the network queue behind them. Call
// Shutdown once the server stopped.
func New(cfg *config.Configuration, version, revision string) (r *Router, err error) {
	r = &Router{
		Router: httprouter.New(),
	}

	adapters := adtypes.DefaultAdapterTable()
	if cfg.AdaptersFile != "" {
		if adapters, err = adtypes.LoadAdapterTable(cfg.AdaptersFile); err != nil {
			return nil, err
		}
		glog.Infof("Loaded %d adapter mappings from %s", adapters.Len(), cfg.AdaptersFile)
	}

	r.MetricsEngine = metricsConf.NewMetricsEngine(cfg)

	r.Consent = consent.NewManager(cfg.Consent.GDPRDefaultValue)
	registry := consent.NewRegistry()
	registry.SetListener(consent.NewMeteredListener(r.Consent, r.MetricsEngine))

	r.Queue = netqueue.NewHTTPQueue(netqueue.NewHTTPClient(cfg.NetworkQueue), cfg.NetworkQueue, r.MetricsEngine)
	r.Queue.Start()
	r.Shutdown = r.Queue.Stop

	walkEndpoint := endpoints.NewWaterfallEndpoint(endpoints.WaterfallDeps{
		AdServer:   cfg.AdServer,
		SDKVersion: cfg.SDKVersion,
		MaxSteps:   cfg.Admin.MaxSteps,
		Timeout:    cfg.Admin.WalkTimeout(),
		Dispatcher: r.Queue,
		// No tracker: inspecting a waterfall must not fire the creatives' tracking pings.
		Loader: loader.Deps{
			RequestOptions: waterfall.RequestOptions{
				AdServerHost: cfg.AdServer.Host,
				Locale:       cfg.Locale,
				BodyParams:   r.Consent.RequestParams,
			},
			ParseDeps: waterfall.ParseDeps{
				Registry: registry,
				Adapters: adapters,
			},
			MetricsEngine: r.MetricsEngine,
		},
	})

	r.GET("/status", endpoints.NewStatusEndpoint(cfg.StatusResponse))
	r.GET("/version", wrap(endpoints.NewVersionEndpoint(version, revision)))
	r.GET("/waterfall/:format/:adunit", walkEndpoint)
	r.GET("/consent", endpoints.NewGetConsentEndpoint(r.Consent))
	r.POST("/consent", endpoints.NewSetConsentEndpoint(r.Consent))

	return r, nil
}

func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		handler(w, r)
	}
}

// SupportCORS lets the configured origins call the inspection routes from a browser. With no
// origins configured every origin is allowed.
func SupportCORS(handler http.Handler, allowedOrigins []string) http.Handler {
	options := cors.Options{
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"},
	}
	if len(allowedOrigins) > 0 {
		options.AllowedOrigins = allowedOrigins
	} else {
		options.AllowOriginFunc = func(string) bool {
			return true
		}
	}
	return cors.New(options).Handler(handler)
}

// RateLimit caps requests per second for each client IP. A non-positive limit disables it.
func RateLimit(handler http.Handler, maxRequestsPerSecond float64) http.Handler {
	if maxRequestsPerSecond <= 0 {
		return handler
	}
	lmt := tollbooth.NewLimiter(maxRequestsPerSecond, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
	return tollbooth.LimitHandler(lmt, handler)
}
