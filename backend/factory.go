package backend

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Factory maps a target address string to a shared, lazily-created
// Client (spec.md §4.2, C2). Get is idempotent: two calls with the same
// target return the same *s3Client, process-wide, with no eviction in
// scope — exactly aistore's own lazy per-target client caches and the
// original source's ClientFactory::Get.
type Factory struct {
	mu      sync.Mutex
	clients map[string]Client
}

// NewFactory returns an empty, ready-to-use Factory.
func NewFactory() *Factory {
	return &Factory{clients: make(map[string]Client)}
}

// Get returns the pooled Client for target, creating it on first use.
func (f *Factory) Get(ctx context.Context, target string) (Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[target]; ok {
		return c, nil
	}
	c, err := newS3Client(ctx, target)
	if err != nil {
		return nil, errors.Wrapf(err, "client factory: target %q", target)
	}
	f.clients[target] = c
	return c, nil
}
