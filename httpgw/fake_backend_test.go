package httpgw_test

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/oio-sds/kinetic-gateway/backend"
	"github.com/oio-sds/kinetic-gateway/internal/xsync"
)

// fakeClient is a minimal in-memory backend.Client, letting the httpgw
// spec suite drive real Handler/Upload/Download/Removal code without a
// network-reachable S3 endpoint.
type fakeClient struct {
	mu    sync.Mutex
	store map[string][]byte
}

func newFakeClient() *fakeClient { return &fakeClient{store: make(map[string][]byte)} }

func (c *fakeClient) ID() string { return "fake" }

func (c *fakeClient) Start(_ context.Context, op backend.Op) *xsync.Sync {
	s := xsync.NewSync()
	go func() {
		c.mu.Lock()
		defer c.mu.Unlock()
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
// map.
type fakeResolver struct {
	clients map[string]*fakeClient
}

func newFakeResolver(targets ...string) *fakeResolver {
	r := &fakeResolver{clients: make(map[string]*fakeClient, len(targets))}
	for _, t := range targets {
		r.clients[t] = newFakeClient()
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
