package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/prebid/prebid-waterfall/errortypes"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fullConfig = []byte(`
ad_server:
  scheme: http
  host: ads.example.org:8080
  path: /waterfall
sdk_version: 5.10.1-beta.2
locale: fr_CA
adapters_file: /etc/config/adapters.yaml
network_queue:
  max_workers: 8
  timeout_ms: 2500
  max_retries: 3
  initial_backoff_ms: 50
  max_backoff_ms: 400
  backoff_multiplier: 1.5
  dispatch_queue_size: 16
consent:
  gdpr_default_value: "0"
metrics:
  influxdb:
    host: upstream:8232
    database: metricsdb
    username: admin
    password: admin1324
    metric_send_interval: 30
  prometheus:
    port: 9090
    namespace: waterfall
admin:
  port: 7070
  enable_gzip: true
  max_requests_per_second: 2.5
  allowed_origins: ["https://console.example.org"]
  max_steps: 10
`)

func cmpStrings(t *testing.T, key string, a string, b string) {
	t.Helper()
	assert.Equal(t, a, b, "%s: %s != %s", key, a, b)
}

func cmpInts(t *testing.T, key string, a int, b int) {
	t.Helper()
	assert.Equal(t, a, b, "%s: %d != %d", key, a, b)
}

func cmpBools(t *testing.T, key string, a bool, b bool) {
	t.Helper()
	assert.Equal(t, a, b, "%s: %t != %t", key, a, b)
}

func newDefaultConfig(t *testing.T) (*Configuration, *viper.Viper) {
	v := viper.New()
	SetupViper(v, "")
	v.SetConfigType("yaml")
	cfg, err := New(v)
	assert.NoError(t, err, "Setting up config should work but it doesn't")
	return cfg, v
}

func TestDefaults(t *testing.T) {
	cfg, _ := newDefaultConfig(t)

	cmpStrings(t, "ad_server.scheme", cfg.AdServer.Scheme, "https")
	cmpStrings(t, "ad_server.path", cfg.AdServer.Path, "/m/ad")
	cmpInts(t, "network_queue.max_workers", cfg.NetworkQueue.MaxWorkers, 4)
	cmpInts(t, "network_queue.max_retries", cfg.NetworkQueue.MaxRetries, 2)
	assert.Equal(t, 10*time.Second, cfg.NetworkQueue.Timeout())
	assert.Equal(t, 100*time.Millisecond, cfg.NetworkQueue.InitialBackoff())
	assert.Equal(t, time.Second, cfg.NetworkQueue.MaxBackoff())
	assert.Equal(t, 2.0, cfg.NetworkQueue.BackoffMultiplier)
	cmpStrings(t, "consent.gdpr_default_value", cfg.Consent.GDPRDefaultValue, "1")
	assert.False(t, cfg.Metrics.Prometheus.Enabled())
	cmpInts(t, "admin.port", cfg.Admin.Port, 6060)
	cmpInts(t, "admin.max_steps", cfg.Admin.MaxSteps, 25)
	assert.Equal(t, 30*time.Second, cfg.Admin.WalkTimeout())
	cmpStrings(t, "status_response", cfg.StatusResponse, "ok")
}

func TestFullConfig(t *testing.T) {
	v := viper.New()
	SetupViper(v, "")
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(fullConfig)))
	cfg, err := New(v)
	assert.NoError(t, err, "Setting up config should work but it doesn't")

	cmpStrings(t, "ad_server.scheme", cfg.AdServer.Scheme, "http")
	cmpStrings(t, "ad_server.host", cfg.AdServer.Host, "ads.example.org:8080")
	cmpStrings(t, "ad_server.path", cfg.AdServer.Path, "/waterfall")
	cmpStrings(t, "sdk_version", cfg.SDKVersion, "5.10.1-beta.2")
	cmpStrings(t, "locale", cfg.Locale, "fr_CA")
	cmpStrings(t, "adapters_file", cfg.AdaptersFile, "/etc/config/adapters.yaml")
	cmpInts(t, "network_queue.max_workers", cfg.NetworkQueue.MaxWorkers, 8)
	cmpInts(t, "network_queue.timeout_ms", cfg.NetworkQueue.TimeoutMillis, 2500)
	cmpInts(t, "network_queue.max_retries", cfg.NetworkQueue.MaxRetries, 3)
	cmpInts(t, "network_queue.dispatch_queue_size", cfg.NetworkQueue.DispatchQueueSize, 16)
	assert.Equal(t, 1.5, cfg.NetworkQueue.BackoffMultiplier)
	cmpInts(t, "network_queue.max_idle_connections", cfg.NetworkQueue.MaxIdleConns, 50)
	cmpStrings(t, "consent.gdpr_default_value", cfg.Consent.GDPRDefaultValue, "0")
	cmpStrings(t, "metrics.influxdb.host", cfg.Metrics.Influxdb.Host, "upstream:8232")
	cmpStrings(t, "metrics.influxdb.database", cfg.Metrics.Influxdb.Database, "metricsdb")
	cmpStrings(t, "metrics.influxdb.username", cfg.Metrics.Influxdb.Username, "admin")
	cmpStrings(t, "metrics.influxdb.password", cfg.Metrics.Influxdb.Password, "admin1324")
	cmpInts(t, "metrics.influxdb.metric_send_interval", cfg.Metrics.Influxdb.MetricSendInterval, 30)
	cmpInts(t, "metrics.prometheus.port", cfg.Metrics.Prometheus.Port, 9090)
	cmpStrings(t, "metrics.prometheus.namespace", cfg.Metrics.Prometheus.Namespace, "waterfall")
	assert.True(t, cfg.Metrics.Prometheus.Enabled())
	cmpInts(t, "admin.port", cfg.Admin.Port, 7070)
	cmpBools(t, "admin.enable_gzip", cfg.Admin.EnableGzip, true)
	assert.Equal(t, 2.5, cfg.Admin.MaxRequestsPerSecond)
	assert.Equal(t, []string{"https://console.example.org"}, cfg.Admin.AllowedOrigins)
	cmpInts(t, "admin.max_steps", cfg.Admin.MaxSteps, 10)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		description string
		overrides   map[string]interface{}
		wantErrors  int
	}{
		{
			description: "defaults are valid",
			wantErrors:  0,
		},
		{
			description: "ad server host with a port",
			overrides:   map[string]interface{}{"ad_server.host": "localhost:8000"},
			wantErrors:  0,
		},
		{
			description: "ad server host with a scheme",
			overrides:   map[string]interface{}{"ad_server.host": "https://ads.example.com"},
			wantErrors:  1,
		},
		{
			description: "unsupported scheme",
			overrides:   map[string]interface{}{"ad_server.scheme": "ftp"},
			wantErrors:  1,
		},
		{
			description: "relative path",
			overrides:   map[string]interface{}{"ad_server.path": "m/ad"},
			wantErrors:  1,
		},
		{
			description: "sdk version is not semver",
			overrides:   map[string]interface{}{"sdk_version": "five"},
			wantErrors:  1,
		},
		{
			description: "no workers and a shrinking backoff",
			overrides: map[string]interface{}{
				"network_queue.max_workers":        0,
				"network_queue.backoff_multiplier": 0.5,
			},
			wantErrors: 2,
		},
		{
			description: "max backoff below the initial backoff",
			overrides:   map[string]interface{}{"network_queue.max_backoff_ms": 10},
			wantErrors:  1,
		},
		{
			description: "gdpr default is not a signal",
			overrides:   map[string]interface{}{"consent.gdpr_default_value": "yes"},
			wantErrors:  1,
		},
		{
			description: "influx host without a database",
			overrides:   map[string]interface{}{"metrics.influxdb.host": "localhost"},
			wantErrors:  1,
		},
		{
			description: "admin limits",
			overrides: map[string]interface{}{
				"admin.port":                    0,
				"admin.max_requests_per_second": -1,
				"admin.max_steps":               0,
				"admin.walk_timeout_ms":         0,
			},
			wantErrors: 4,
		},
	}

	for _, test := range tests {
		v := viper.New()
		SetupViper(v, "")
		for key, value := range test.overrides {
			v.Set(key, value)
		}
		cfg, err := New(v)
		require.NotNil(t, cfg, test.description)

		if test.wantErrors == 0 {
			assert.NoError(t, err, test.description)
			continue
		}
		aggregate, ok := err.(errortypes.AggregateErrors)
		if assert.True(t, ok, "%s: expected AggregateErrors, got %v", test.description, err) {
			assert.Len(t, aggregate.Errors, test.wantErrors, test.description)
		}
	}
}
