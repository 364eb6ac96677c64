// Package httpgw implements the request state machine and connection/
// accept loop (spec.md §4.7/§4.8, C7/C8) on top of net/http.Server: see
// SPEC_FULL.md §6 for why a hand-rolled parser isn't reimplemented here.
package httpgw

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/oio-sds/kinetic-gateway/internal/nlog"
)

// shutdownGrace bounds how long an in-flight request gets to finish once
// draining begins (spec.md §4.8: "a running flag ... drains both loops").
const shutdownGrace = 5 * time.Second

// Server binds Handler on every configured address and runs until ctx is
// canceled, at which point every listener drains gracefully. Each bound
// address gets its own *http.Server, each running its own accept loop —
// the Go rendering of spec.md §4.8's "one accept loop per bound listening
// socket", with net/http itself spawning the per-connection task.
type Server struct {
	Handler http.Handler

	// Backlog is accepted for configuration-surface parity with
	// config.Config.Backlog but is not applied: net/http's Listen does
	// not expose a listen-backlog knob, and the OS default (already the
	// platform maximum on modern kernels) is used instead.
	Backlog int
}

// ListenAndServeAll binds every address in binds and serves Handler on
// each until ctx is canceled. It returns once every listener has
// finished draining, or the first non-shutdown error encountered.
func (s *Server) ListenAndServeAll(ctx context.Context, binds []string) error {
	if len(binds) == 0 {
		return errors.New("no bind addresses configured")
	}

	servers := make([]*http.Server, len(binds))
	listeners := make([]net.Listener, len(binds))
	for i, addr := range binds {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return errors.Wrapf(err, "listening on %q", addr)
		}
		listeners[i] = ln
		servers[i] = &http.Server{Handler: s.Handler}
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(servers))
	for i, srv := range servers {
		i, srv := i, srv
		wg.Add(1)
		go func() {
			defer wg.Done()
			nlog.Infof("accepting connections on %s", binds[i])
			if err := srv.Serve(listeners[i]); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- errors.Wrapf(err, "serving %q", binds[i])
			}
		}()
	}

	go func() {
		<-ctx.Done()
		nlog.Infoln("draining: signal received")
		for i, srv := range servers {
			shCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			if err := srv.Shutdown(shCtx); err != nil {
				nlog.Warnf("shutting down %s: %v", binds[i], err)
			}
			cancel()
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
