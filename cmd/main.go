package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"syscall"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/donmai-me/cnquadtree/featureflag"
	cnhttp "github.com/donmai-me/cnquadtree/http"
	"github.com/donmai-me/cnquadtree/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

var (
	// The server version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "cnquadtree_info",
		Help:        "Cardinal neighbor quadtree server information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

type config struct {
	Addr         string   `cli:""        env:"CNQT_ADDR"          help:"Listening address for API connections."`
	AdminAddr    string   `cli:""        env:"CNQT_ADMIN_ADDR"    help:"Admin listening address."`
	LogLevel     string   `cli:""        env:"CNQT_LOG_LEVEL"     help:"Log level (debug|info|warning|error)."`
	LogIndent    bool     `cli:""        env:"CNQT_LOG_INDENT"    help:"Indent logs."`
	FeatureFlags []string `cli:",hidden" env:"CNQT_FEATURE_FLAGS" help:"Comma separated feature flags."`
	Version      bool     `cli:""        env:"-"                  help:"Show version."`
	Help         bool     `cli:""        env:"-"                  help:"Show help."`
}

func main() {
	conf := config{
		Addr:      ":4000",
		AdminAddr: ":18190",
		LogLevel:  logs.InfoLevel.String(),
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts a cardinal neighbor quadtree server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	flags := featureflag.New(conf.FeatureFlags)

	var store models.TreeStore
	api := cnhttp.API{Trees: &store}

	var service http.ServeMux
	api.Register(&service, flags)
	service.Handle("/health", cnhttp.HandleWithCORS(http.HandlerFunc(cnhttp.HandleHealthCheck)))
	service.Handle("/ready", cnhttp.HandleWithCORS(cnhttp.HandleReadyCheck(func() bool { return true })))
	service.Handle("/version", cnhttp.HandleWithCORS(cnhttp.HandleVersion(version)))

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", cnhttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("feature_flags", conf.FeatureFlags).
		Info("starting cnquadtree server")

	cnhttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			cnhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}
