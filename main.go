package main

import (
	"flag"
	"math/rand"
	"time"

	"github.com/prebid/prebid-waterfall/config"
	"github.com/prebid/prebid-waterfall/router"
	"github.com/prebid/prebid-waterfall/server"

	"github.com/golang/glog"
	"github.com/spf13/viper"
)

// Rev holds binary revision string
// Set manually at build time using:
//
//	go build -ldflags "-X main.Rev=`git rev-parse --short HEAD` -X main.Version=`git describe --tags`"
var Rev string

// Version holds the release tag of the binary.
var Version string

func init() {
	rand.Seed(time.Now().UnixNano())
}

func main() {
	flag.Parse() // required for glog flags and testing package flags

	cfg, err := loadConfig()
	if err != nil {
		glog.Exitf("Configuration could not be loaded or did not pass validation: %v", err)
	}

	err = serve(Version, Rev, cfg)
	if err != nil {
		glog.Exitf("prebid-waterfall failed: %v", err)
	}
}

const configFileName = "waterfall"

func loadConfig() (*config.Configuration, error) {
	v := viper.New()
	config.SetupViper(v, configFileName)
	return config.New(v)
}

func serve(version, revision string, cfg *config.Configuration) error {
	r, err := router.New(cfg, version, revision)
	if err != nil {
		return err
	}

	handler := router.SupportCORS(r, cfg.Admin.AllowedOrigins)
	handler = router.RateLimit(handler, cfg.Admin.MaxRequestsPerSecond)

	server.Listen(cfg, router.NoCache{Handler: handler}, r.MetricsEngine)

	r.Shutdown()
	return nil
}
