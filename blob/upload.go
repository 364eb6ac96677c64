package blob

import (
	"context"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/oio-sds/kinetic-gateway/backend"
	"github.com/oio-sds/kinetic-gateway/internal/metrics"
	"github.com/oio-sds/kinetic-gateway/internal/xsync"
)

// DefaultBlockSize is the striping block size used when the caller does
// not override it (spec.md §4.4's "two 8 KiB writes, 1 MiB block size"
// test uses an explicit override; cmd/gateway passes this constant as
// is, since the configuration has no block-size option).
const DefaultBlockSize = 512 * 1024

// UploadStatus is the outcome of Upload.Prepare (spec.md §4.4).
type UploadStatus int

const (
	UploadOK UploadStatus = iota
	UploadAlready
)

// Upload implements the chunk-upload pipeline (spec.md §4.4, C4): data is
// buffered until it reaches blockSize, then flushed as one fragment to
// the next target in round-robin order; Commit flushes any remainder and
// writes the manifest as the last fragment.
type Upload struct {
	chunkID   string
	targets   []string
	blockSize int
	clients   []backend.Client

	next    int
	buffer  []byte
	xattr   map[string]string
	pending []*xsync.Sync
}

// NewUpload resolves a backend.Client for every target (deduplicated,
// first-seen order preserved for striping) and returns a ready-to-use
// Upload. blockSize <= 0 selects DefaultBlockSize.
func NewUpload(ctx context.Context, resolver Resolver, chunkID string, targets []string, blockSize int) (*Upload, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	uniq := dedupeTargets(targets)
	clients := make([]backend.Client, 0, len(uniq))
	for _, t := range uniq {
		c, err := resolver.Get(ctx, t)
		if err != nil {
			return nil, errors.Wrapf(err, "upload %s: resolving target %q", chunkID, t)
		}
		clients = append(clients, c)
	}
	return &Upload{
		chunkID:   chunkID,
		targets:   uniq,
		blockSize: blockSize,
		clients:   clients,
		xattr:     make(map[string]string),
	}, nil
}

// Prepare probes every target for an existing manifest. If any target
// already holds one, the upload must not proceed (spec.md §4.4,
// UploadAlready); a target error other than NotFound fails Prepare.
func (u *Upload) Prepare(ctx context.Context) (UploadStatus, error) {
	key := ManifestKey(u.chunkID)

	found := make([]bool, len(u.clients))
	errs := make([]error, len(u.clients))
	var wg sync.WaitGroup
	for i, c := range u.clients {
		i, c := i, c
		wg.Add(1)
		go func() {
			defer wg.Done()
			op := &backend.ListRangeOp{Start: key, End: key, MaxItems: 1}
			s := c.Start(ctx, op)
			if err := s.Wait(); err != nil {
				if errors.Cause(err) != backend.ErrNotFound {
					errs[i] = err
				}
				return
			}
			found[i] = len(op.Keys) > 0
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return UploadOK, err
		}
	}
	for _, f := range found {
		if f {
			return UploadAlready, nil
		}
	}
	return UploadOK, nil
}

// Write appends p to the internal buffer, flushing a fragment each time
// the buffer reaches blockSize. Write cannot fail at the call site
// (spec.md §4.4): fragment PUTs run asynchronously and are only awaited
// in Commit. Write yields cooperatively after buffering, matching the
// original source's per-write mill_yield.
func (u *Upload) Write(ctx context.Context, p []byte) {
	for len(p) > 0 {
		room := u.blockSize - len(u.buffer)
		n := len(p)
		if n > room {
			n = room
		}
		u.buffer = append(u.buffer, p[:n]...)
		p = p[n:]
		if len(u.buffer) >= u.blockSize {
			u.flushFragment(ctx)
		}
	}
	xsync.Yield()
}

// Flush sends any partially-filled buffer as a short final fragment,
// without writing the manifest (spec.md §4.4: the last data fragment may
// be shorter than blockSize).
func (u *Upload) Flush(ctx context.Context) {
	if len(u.buffer) > 0 {
		u.flushFragment(ctx)
	}
}

// flushFragment PUTs the current buffer to clients[u.next % N] under the
// fragment key for index u.next, then advances the round-robin cursor.
// Commit's manifest write advances the same cursor, so the manifest also
// lands on the next target in rotation — exactly the original's
// "manifest on target (last_index+1) mod N".
func (u *Upload) flushFragment(ctx context.Context) {
	idx := u.next
	u.next++
	client := u.clients[idx%len(u.clients)]
	key := DataKey(u.chunkID, idx, len(u.buffer))
	value := u.buffer
	u.buffer = nil

	s := client.Start(ctx, &backend.PutOp{Key: key, Value: value})
	u.pending = append(u.pending, s)
	metrics.FragmentsTotal.WithLabelValues("put").Inc()
}

// SetXattr records a manifest attribute to be serialized at Commit.
func (u *Upload) SetXattr(key, value string) {
	u.xattr[key] = value
}

// Commit flushes any buffered remainder, writes the manifest (the
// chunk's xattr set, JSON-encoded) as the final fragment, and waits for
// every fragment PUT — data and manifest — to complete. It reports
// success only if all of them succeeded (spec.md §4.4).
func (u *Upload) Commit(ctx context.Context) (bool, error) {
	u.Flush(ctx)

	manifest, err := jsoniter.Marshal(u.xattr)
	if err != nil {
		return false, errors.Wrap(err, "marshaling manifest xattr")
	}
	idx := u.next
	u.next++
	client := u.clients[idx%len(u.clients)]
	s := client.Start(ctx, &backend.PutOp{Key: ManifestKey(u.chunkID), Value: manifest})
	u.pending = append(u.pending, s)
	metrics.FragmentsTotal.WithLabelValues("put").Inc()

	var firstErr error
	for _, s := range u.pending {
		if err := s.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr == nil, firstErr
}

// Abort discards the upload. Already-written fragments are left in
// place: with no manifest ever committed, they are simply unreachable
// debris, reclaimed the same way any other orphaned fragment is (spec.md
// §4.4 lists no Abort-time cleanup obligation).
func (u *Upload) Abort() {
	u.buffer = nil
	u.pending = nil
}
