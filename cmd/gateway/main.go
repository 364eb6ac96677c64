// Command gateway runs the HTTP-fronted blob gateway (spec.md §1): one
// or more JSON configuration documents named on argv are loaded and
// merged, the configured addresses are bound, and PUT/GET/DELETE are
// served until SIGINT/SIGTERM.
package main

import (
	"context"
	"net/http"
	"os"
	"syscall"

	"os/signal"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oio-sds/kinetic-gateway/backend"
	"github.com/oio-sds/kinetic-gateway/blob"
	"github.com/oio-sds/kinetic-gateway/httpgw"
	"github.com/oio-sds/kinetic-gateway/internal/config"
	"github.com/oio-sds/kinetic-gateway/internal/nlog"
)

func main() {
	if len(os.Args) < 2 {
		nlog.Errorf("usage: %s config.json [config2.json ...]", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		nlog.Errorf("loading configuration: %v", err)
		os.Exit(1)
	}
	if len(cfg.Bind) == 0 {
		nlog.Errorf("configuration names no bind addresses")
		os.Exit(1)
	}

	// spec.md §6: SIGPIPE/SIGHUP/SIGUSR1/SIGUSR2 are ignored outright;
	// SIGINT/SIGTERM drain the accept loops via ctx cancellation below.
	signal.Ignore(syscall.SIGPIPE, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", &httpgw.Handler{
		Factory:   backend.NewFactory(),
		BlockSize: blob.DefaultBlockSize,
	})

	srv := &httpgw.Server{Handler: mux, Backlog: cfg.Backlog}
	nlog.Infof("binding %v", cfg.Bind)
	if err := srv.ListenAndServeAll(ctx, cfg.Bind); err != nil {
		nlog.Errorf("server exited: %v", err)
		os.Exit(1)
	}
	nlog.Infoln("drained, exiting")
}
