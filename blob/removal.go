package blob

import (
	"context"

	"github.com/oio-sds/kinetic-gateway/backend"
	"github.com/oio-sds/kinetic-gateway/internal/metrics"
	"github.com/oio-sds/kinetic-gateway/internal/xsync"
)

// RemovalParallelism is the maximum number of DELETEs Removal.Commit
// keeps in flight at once (spec.md §4.6, the original's hardcoded P=8).
const RemovalParallelism = 8

// RemovalStatus is the outcome of Removal.Prepare (spec.md §4.6).
type RemovalStatus int

const (
	RemovalOK RemovalStatus = iota
	RemovalNotFound
	RemovalNetworkError
	RemovalProtocolError
)

type pendingDelete struct {
	client backend.Client
	key    string
	sync   *xsync.Sync
}

// Removal deletes every fragment of a chunk, never exceeding
// RemovalParallelism deletes in flight at once (spec.md §4.6, C6).
type Removal struct {
	chunkID  string
	targets  []string
	resolver Resolver

	ops []*pendingDelete
}

// NewRemoval returns a Removal over chunkID, across the deduplicated
// target set.
func NewRemoval(resolver Resolver, chunkID string, targets []string) *Removal {
	return &Removal{chunkID: chunkID, targets: dedupeTargets(targets), resolver: resolver}
}

// Prepare lists the chunk's fragments (including the manifest, which is
// deleted along with the data fragments) and resolves a client for each.
func (r *Removal) Prepare(ctx context.Context) (RemovalStatus, error) {
	listing := NewListing(r.resolver, r.chunkID, r.targets)
	status, err := listing.Prepare(ctx)
	switch status {
	case ListingNotFound:
		return RemovalNotFound, nil
	case ListingNetworkError:
		return RemovalNetworkError, err
	case ListingProtocolError:
		return RemovalProtocolError, err
	}

	for {
		target, key, ok := listing.Next()
		if !ok {
			break
		}
		client, err := r.resolver.Get(ctx, target)
		if err != nil {
			return RemovalNetworkError, err
		}
		r.ops = append(r.ops, &pendingDelete{client: client, key: key})
	}
	return RemovalOK, nil
}

// start issues the i'th DELETE.
func (r *Removal) start(ctx context.Context, i int) {
	r.ops[i].sync = r.ops[i].client.Start(ctx, &backend.DeleteOp{Key: r.ops[i].key})
}

// Commit runs every DELETE to completion, prestarting the first P and
// then starting one more each time one finishes — in submission order,
// so in-flight deletes never exceed RemovalParallelism (spec.md §4.6,
// the original source's literal Removal::Commit algorithm). It reports
// true only if every DELETE succeeded.
func (r *Removal) Commit(ctx context.Context) bool {
	n := len(r.ops)
	p := RemovalParallelism

	for i := 0; i < p && i < n; i++ {
		r.start(ctx, i)
	}

	ok := true
	for i := 0; i < n; i++ {
		if err := r.ops[i].sync.Wait(); err != nil {
			ok = false
		} else {
			metrics.FragmentsTotal.WithLabelValues("delete").Inc()
		}
		if next := i + p; next < n {
			r.start(ctx, next)
		}
	}
	return ok
}

// Abort is a no-op: Removal has nothing to undo before Commit starts
// issuing deletes (spec.md §4.6).
func (r *Removal) Abort() {}
