package blob

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/oio-sds/kinetic-gateway/backend"
	"github.com/pkg/errors"
)

// ListingStatus is the outcome of Listing.Prepare (spec.md §4.3).
type ListingStatus int

const (
	ListingOK ListingStatus = iota
	ListingNotFound
	ListingNetworkError
	ListingProtocolError
)

// Resolver is the subset of *backend.Factory the blob package depends
// on: resolving a target address to a Client. Accepting the interface
// rather than the concrete Factory lets tests substitute an in-memory
// backend.Client without a real S3 endpoint.
type Resolver interface {
	Get(ctx context.Context, target string) (backend.Client, error)
}

// Listing fans a key-range query for one chunk out to every target and
// merges the per-target results into a single key-ordered stream, with
// target index as the deterministic tiebreaker for duplicate keys
// (spec.md §4.3, C3). It is the shared building block Download and
// Removal both Prepare on top of.
type Listing struct {
	chunkID  string
	targets  []string
	resolver Resolver

	frags []Fragment
	pos   int
}

// NewListing returns a Listing over chunkID across targets, in the order
// targets were given (not deduplicated: Download preserves caller order
// for its replay, spec.md §3).
func NewListing(resolver Resolver, chunkID string, targets []string) *Listing {
	return &Listing{chunkID: chunkID, targets: targets, resolver: resolver}
}

// Prepare issues the key-range probe against every target concurrently
// and merges the results. A single target reporting NetworkError or
// ProtocolError fails the whole listing (spec.md §4.3's "first error
// wins, network beats protocol"); a target reporting NotFound simply
// contributes no fragments.
func (l *Listing) Prepare(ctx context.Context) (ListingStatus, error) {
	start, end := KeyRangeBounds(l.chunkID)

	type probe struct {
		keys []string
		err  error
	}
	results := make([]probe, len(l.targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, target := range l.targets {
		i, target := i, target
		g.Go(func() error {
			client, err := l.resolver.Get(gctx, target)
			if err != nil {
				results[i] = probe{err: err}
				return nil
			}
			op := &backend.ListRangeOp{Start: start, End: end}
			s := client.Start(gctx, op)
			if err := s.Wait(); err != nil {
				results[i] = probe{err: err}
				return nil
			}
			results[i] = probe{keys: op.Keys}
			return nil
		})
	}
	_ = g.Wait() // errors are carried per-result above, never via g.Wait

	var networkErr, protoErr error
	for _, r := range results {
		if r.err == nil {
			continue
		}
		switch errors.Cause(r.err) {
		case backend.ErrNotFound:
			// target holds nothing for this chunk; not a listing failure.
		case backend.ErrProtocol:
			if protoErr == nil {
				protoErr = r.err
			}
		default:
			if networkErr == nil {
				networkErr = r.err
			}
		}
	}
	if networkErr != nil {
		return ListingNetworkError, networkErr
	}
	if protoErr != nil {
		return ListingProtocolError, protoErr
	}

	for i, r := range results {
		for _, key := range r.keys {
			l.frags = append(l.frags, Fragment{Target: l.targets[i], Key: key})
		}
	}
	// Stable sort on key alone: equal-key fragments keep the relative
	// order they were appended in above, which is target order — the
	// deterministic tiebreaker spec.md §4.3 requires.
	sort.SliceStable(l.frags, func(a, b int) bool {
		return l.frags[a].Key < l.frags[b].Key
	})

	if len(l.frags) == 0 {
		return ListingNotFound, nil
	}
	return ListingOK, nil
}

// Next returns the next (target, key) pair in merged order, or
// ok == false once exhausted.
func (l *Listing) Next() (target, key string, ok bool) {
	if l.pos >= len(l.frags) {
		return "", "", false
	}
	f := l.frags[l.pos]
	l.pos++
	return f.Target, f.Key, true
}
