// Package xsync is the concurrency substrate shared by the blob pipeline:
// Sync is the one-shot completion handle backend RPCs are started against
// (spec.md §4.1/"Sync"/§9), and Yield is the cooperative-yield point
// Upload.Write must hit after each buffered/triggered chunk so a long body
// cannot monopolise the task (spec.md §4.4/§5).
//
// The original source models this over a single-threaded coroutine
// runtime (libmill); Go's goroutine scheduler gives the same contract —
// many Syncs in flight concurrently over one shared Client, a suspension
// point on Wait — without a custom runtime. Yield is runtime.Gosched(),
// the closest Go equivalent to the explicit libmill yield() call.
package xsync

import "runtime"

// Sync is a one-shot completion handle for an asynchronous backend RPC.
// Wait blocks the calling goroutine until the RPC has resolved into err.
type Sync struct {
	done chan struct{}
	err  error
}

// NewSync returns a Sync that resolves when resolve is called.
func NewSync() *Sync {
	return &Sync{done: make(chan struct{})}
}

// Resolve completes the Sync exactly once. Later calls are no-ops.
func (s *Sync) Resolve(err error) {
	select {
	case <-s.done:
		return
	default:
	}
	s.err = err
	close(s.done)
}

// Wait suspends the calling goroutine until Resolve has been called and
// returns the error the RPC completed with, if any.
func (s *Sync) Wait() error {
	<-s.done
	return s.err
}

// Yield gives other goroutines a chance to run. Called once per Write so
// a caller streaming a large body cooperatively shares the task.
func Yield() { runtime.Gosched() }
