package blob

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/oio-sds/kinetic-gateway/backend"
	"github.com/oio-sds/kinetic-gateway/internal/xsync"
)

// fakeClient is an in-memory backend.Client used to exercise the blob
// package without a real S3 endpoint (spec.md §8's testable properties
// are about the striping/listing/removal algorithms, not the backend
// wire protocol).
type fakeClient struct {
	id string

	mu       sync.Mutex
	store    map[string][]byte
	down     bool // simulates an unreachable target: every op fails NetworkError
	badProto bool // simulates a target returning malformed responses
}

func newFakeClient(id string) *fakeClient {
	return &fakeClient{id: id, store: make(map[string][]byte)}
}

func (c *fakeClient) ID() string { return c.id }

func (c *fakeClient) Start(ctx context.Context, op backend.Op) *xsync.Sync {
	s := xsync.NewSync()
	go func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.down {
			s.Resolve(errors.Wrap(backend.ErrNetwork, "fake target down"))
			return
		}
		if c.badProto {
			s.Resolve(errors.Wrap(backend.ErrProtocol, "fake target malformed response"))
			return
		}

		switch o := op.(type) {
		case *backend.PutOp:
			c.store[o.Key] = append([]byte(nil), o.Value...)
			s.Resolve(nil)
		case *backend.GetOp:
			v, ok := c.store[o.Key]
			if !ok {
				s.Resolve(errors.Wrap(backend.ErrNotFound, o.Key))
				return
			}
			o.Value = v
			s.Resolve(nil)
		case *backend.DeleteOp:
			delete(c.store, o.Key)
			s.Resolve(nil)
		case *backend.ListRangeOp:
			var keys []string
			for k := range c.store {
				if k < o.Start || k > o.End {
					continue
				}
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if o.MaxItems > 0 && len(keys) > o.MaxItems {
				keys = keys[:o.MaxItems]
			}
			o.Keys = keys
			s.Resolve(nil)
		default:
			s.Resolve(errors.Errorf("fakeClient: unsupported op %T", op))
		}
	}()
	return s
}

// fakeResolver implements blob.Resolver over a fixed target -> fakeClient
// map, so tests can address targets by name without a factory.
type fakeResolver struct {
	clients map[string]*fakeClient
}

func newFakeResolver(targets ...string) *fakeResolver {
	r := &fakeResolver{clients: make(map[string]*fakeClient, len(targets))}
	for _, t := range targets {
		r.clients[t] = newFakeClient(t)
	}
	return r
}

func (r *fakeResolver) Get(_ context.Context, target string) (backend.Client, error) {
	c, ok := r.clients[target]
	if !ok {
		return nil, errors.Errorf("fakeResolver: unknown target %q", target)
	}
	return c, nil
}

func (r *fakeResolver) setDown(target string) {
	r.clients[target].mu.Lock()
	r.clients[target].down = true
	r.clients[target].mu.Unlock()
}

func (r *fakeResolver) setBadProto(target string) {
	r.clients[target].mu.Lock()
	r.clients[target].badProto = true
	r.clients[target].mu.Unlock()
}

// allKeys returns every key stored across all of r's clients, joined
// with its target, for assertions that don't care about ordering.
func (r *fakeResolver) allKeys() []string {
	var out []string
	for target, c := range r.clients {
		c.mu.Lock()
		for k := range c.store {
			out = append(out, target+":"+k)
		}
		c.mu.Unlock()
	}
	sort.Strings(out)
	return out
}

func targetNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "target" + string(rune('a'+i))
	}
	return names
}
