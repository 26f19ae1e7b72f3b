package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/blang/semver"
	"github.com/golang/glog"
	"github.com/prebid/prebid-waterfall/errortypes"
	"github.com/spf13/viper"
)

// Configuration
type Configuration struct {
	AdServer AdServer `mapstructure:"ad_server"`
	// SDKVersion is reported to the ad server with every first-hop request.
	SDKVersion string `mapstructure:"sdk_version"`
	Locale     string `mapstructure:"locale"`
	// AdaptersFile optionally overrides the built-in adapter table.
	AdaptersFile string       `mapstructure:"adapters_file"`
	NetworkQueue NetworkQueue `mapstructure:"network_queue"`
	Consent      Consent      `mapstructure:"consent"`
	Metrics      Metrics      `mapstructure:"metrics"`
	Admin        Admin        `mapstructure:"admin"`
	// StatusResponse is the body of GET /status. Empty answers 204.
	StatusResponse string `mapstructure:"status_response"`
}

type AdServer struct {
	Scheme string `mapstructure:"scheme"`
	Host   string `mapstructure:"host"`
	Path   string `mapstructure:"path"`
}

func (cfg *AdServer) validate(errs []error) []error {
	scheme := strings.ToLower(cfg.Scheme)
	if scheme != "http" && scheme != "https" {
		errs = append(errs, fmt.Errorf("ad_server.scheme must be http or https. Got %q", cfg.Scheme))
	}
	host := cfg.Host
	if h, port, err := net.SplitHostPort(host); err == nil && govalidator.IsPort(port) {
		host = h
	}
	if !govalidator.IsDNSName(host) && !govalidator.IsIP(host) {
		errs = append(errs, fmt.Errorf("ad_server.host must be a DNS name or an IP address. Got %q", cfg.Host))
	}
	if cfg.Path != "" && !strings.HasPrefix(cfg.Path, "/") {
		errs = append(errs, fmt.Errorf("ad_server.path must start with a slash. Got %q", cfg.Path))
	}
	return errs
}

// NetworkQueue configures the HTTP queue which executes waterfall requests and tracking pings.
type NetworkQueue struct {
	MaxWorkers             int     `mapstructure:"max_workers"`
	TimeoutMillis          int     `mapstructure:"timeout_ms"`
	MaxRetries             int     `mapstructure:"max_retries"`
	InitialBackoffMillis   int     `mapstructure:"initial_backoff_ms"`
	MaxBackoffMillis       int     `mapstructure:"max_backoff_ms"`
	BackoffMultiplier      float64 `mapstructure:"backoff_multiplier"`
	MaxIdleConns           int     `mapstructure:"max_idle_connections"`
	MaxIdleConnsPerHost    int     `mapstructure:"max_idle_connections_per_host"`
	IdleConnTimeoutSeconds int     `mapstructure:"idle_connection_timeout_seconds"`
	DispatchQueueSize      int     `mapstructure:"dispatch_queue_size"`
}

func (cfg *NetworkQueue) validate(errs []error) []error {
	if cfg.MaxWorkers <= 0 {
		errs = append(errs, fmt.Errorf("network_queue.max_workers must be positive. Got %d", cfg.MaxWorkers))
	}
	if cfg.TimeoutMillis <= 0 {
		errs = append(errs, fmt.Errorf("network_queue.timeout_ms must be positive. Got %d", cfg.TimeoutMillis))
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("network_queue.max_retries must not be negative. Got %d", cfg.MaxRetries))
	}
	if cfg.BackoffMultiplier < 1 {
		errs = append(errs, fmt.Errorf("network_queue.backoff_multiplier must be at least 1. Got %f", cfg.BackoffMultiplier))
	}
	if cfg.InitialBackoffMillis < 0 || cfg.MaxBackoffMillis < cfg.InitialBackoffMillis {
		errs = append(errs, fmt.Errorf("network_queue.max_backoff_ms (%d) must not be smaller than initial_backoff_ms (%d)", cfg.MaxBackoffMillis, cfg.InitialBackoffMillis))
	}
	if cfg.DispatchQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("network_queue.dispatch_queue_size must be positive. Got %d", cfg.DispatchQueueSize))
	}
	return errs
}

// Timeout is the limit for a single attempt.
func (cfg *NetworkQueue) Timeout() time.Duration {
	return time.Duration(cfg.TimeoutMillis) * time.Millisecond
}

func (cfg *NetworkQueue) InitialBackoff() time.Duration {
	return time.Duration(cfg.InitialBackoffMillis) * time.Millisecond
}

func (cfg *NetworkQueue) MaxBackoff() time.Duration {
	return time.Duration(cfg.MaxBackoffMillis) * time.Millisecond
}

func (cfg *NetworkQueue) IdleConnTimeout() time.Duration {
	return time.Duration(cfg.IdleConnTimeoutSeconds) * time.Second
}

type Consent struct {
	// GDPRDefaultValue decides whether GDPR applies while the device signal is unknown. "0" or "1".
	GDPRDefaultValue string `mapstructure:"gdpr_default_value"`
}

func (cfg *Consent) validate(errs []error) []error {
	if cfg.GDPRDefaultValue != "0" && cfg.GDPRDefaultValue != "1" {
		errs = append(errs, fmt.Errorf("consent.gdpr_default_value must be 0 or 1. Got %q", cfg.GDPRDefaultValue))
	}
	return errs
}

type Metrics struct {
	Influxdb   InfluxMetrics     `mapstructure:"influxdb"`
	Prometheus PrometheusMetrics `mapstructure:"prometheus"`
}

type InfluxMetrics struct {
	Host     string `mapstructure:"host"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// MetricSendInterval is the number of seconds between two exports.
	MetricSendInterval int `mapstructure:"metric_send_interval"`
}

func (cfg *InfluxMetrics) validate(errs []error) []error {
	if cfg.Host == "" {
		return errs
	}
	if cfg.Database == "" {
		errs = append(errs, errors.New("metrics.influxdb.database is required when metrics.influxdb.host is set"))
	}
	if cfg.MetricSendInterval <= 0 {
		errs = append(errs, fmt.Errorf("metrics.influxdb.metric_send_interval must be positive. Got %d", cfg.MetricSendInterval))
	}
	return errs
}

type PrometheusMetrics struct {
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
}

// Enabled returns true if the prometheus endpoint should be served.
func (cfg *PrometheusMetrics) Enabled() bool {
	return cfg.Port > 0
}

// Admin configures the waterfall inspection server.
type Admin struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	EnableGzip bool   `mapstructure:"enable_gzip"`
	// MaxRequestsPerSecond limits each client. Zero disables rate limiting.
	MaxRequestsPerSecond float64  `mapstructure:"max_requests_per_second"`
	AllowedOrigins       []string `mapstructure:"allowed_origins"`
	// MaxSteps bounds the number of candidates one inspection walks.
	MaxSteps          int `mapstructure:"max_steps"`
	WalkTimeoutMillis int `mapstructure:"walk_timeout_ms"`
}

// WalkTimeout bounds a single waterfall inspection.
func (cfg *Admin) WalkTimeout() time.Duration {
	return time.Duration(cfg.WalkTimeoutMillis) * time.Millisecond
}

func (cfg *Admin) validate(errs []error) []error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("admin.port must be a valid port. Got %d", cfg.Port))
	}
	if cfg.MaxRequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("admin.max_requests_per_second must not be negative. Got %f", cfg.MaxRequestsPerSecond))
	}
	if cfg.MaxSteps <= 0 {
		errs = append(errs, fmt.Errorf("admin.max_steps must be positive. Got %d", cfg.MaxSteps))
	}
	if cfg.WalkTimeoutMillis <= 0 {
		errs = append(errs, fmt.Errorf("admin.walk_timeout_ms must be positive. Got %d", cfg.WalkTimeoutMillis))
	}
	return errs
}

func (cfg *Configuration) validate() []error {
	var errs []error
	errs = cfg.AdServer.validate(errs)
	if _, err := semver.Parse(cfg.SDKVersion); err != nil {
		errs = append(errs, fmt.Errorf("sdk_version must be a semantic version. Got %q: %v", cfg.SDKVersion, err))
	}
	errs = cfg.NetworkQueue.validate(errs)
	errs = cfg.Consent.validate(errs)
	errs = cfg.Metrics.Influxdb.validate(errs)
	errs = cfg.Admin.validate(errs)
	return errs
}

// New uses viper to get our server configurations.
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("viper failed to unmarshal app config: %v", err)
	}
	glog.Infof("Resolved ad server %s://%s%s, sdk version %s", c.AdServer.Scheme, c.AdServer.Host, c.AdServer.Path, c.SDKVersion)

	if errs := c.validate(); len(errs) > 0 {
		return &c, errortypes.NewAggregateErrors("validation errors", errs)
	}
	return &c, nil
}

// SetupViper sets the defaults and reads filename, if given, from the working directory or
// /etc/config. Every key can be overridden with a WF_ prefixed environment variable, e.g.
// WF_AD_SERVER_HOST.
func SetupViper(v *viper.Viper, filename string) {
	if filename != "" {
		v.SetConfigName(filename)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/config")
	}

	v.SetDefault("ad_server.scheme", "https")
	v.SetDefault("ad_server.host", "ads.example.com")
	v.SetDefault("ad_server.path", "/m/ad")
	v.SetDefault("sdk_version", "5.0.0")
	v.SetDefault("locale", "")
	v.SetDefault("adapters_file", "")
	v.SetDefault("network_queue.max_workers", 4)
	v.SetDefault("network_queue.timeout_ms", 10000)
	v.SetDefault("network_queue.max_retries", 2)
	v.SetDefault("network_queue.initial_backoff_ms", 100)
	v.SetDefault("network_queue.max_backoff_ms", 1000)
	v.SetDefault("network_queue.backoff_multiplier", 2.0)
	v.SetDefault("network_queue.max_idle_connections", 50)
	v.SetDefault("network_queue.max_idle_connections_per_host", 10)
	v.SetDefault("network_queue.idle_connection_timeout_seconds", 60)
	v.SetDefault("network_queue.dispatch_queue_size", 64)
	v.SetDefault("consent.gdpr_default_value", "1")
	v.SetDefault("metrics.influxdb.host", "")
	v.SetDefault("metrics.influxdb.database", "")
	v.SetDefault("metrics.influxdb.username", "")
	v.SetDefault("metrics.influxdb.password", "")
	v.SetDefault("metrics.influxdb.metric_send_interval", 20)
	v.SetDefault("metrics.prometheus.port", 0)
	v.SetDefault("metrics.prometheus.namespace", "")
	v.SetDefault("metrics.prometheus.subsystem", "")
	v.SetDefault("admin.host", "")
	v.SetDefault("admin.port", 6060)
	v.SetDefault("admin.enable_gzip", false)
	v.SetDefault("admin.max_requests_per_second", 0)
	v.SetDefault("admin.allowed_origins", []string{})
	v.SetDefault("admin.max_steps", 25)
	v.SetDefault("admin.walk_timeout_ms", 30000)
	v.SetDefault("status_response", "ok")

	v.SetEnvPrefix("WF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.ReadInConfig()
}
