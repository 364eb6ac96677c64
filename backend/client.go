// Package backend implements the backend client handle (spec.md §4.1, C1)
// and the client factory that pools it by target address (§4.2, C2).
//
// spec.md treats the backend RPC codec as an external collaborator,
// specified only by the operations the pipeline invokes on it. This
// package supplies the one concrete realization the rest of the gateway
// is built and tested against: targets are S3-compatible endpoints, and
// PUT/GET/RANGE/DELETE/key-range-LIST map onto PutObject/GetObject(Range)/
// DeleteObject/ListObjectsV2. See SPEC_FULL.md §3 for why.
package backend

import (
	"context"

	"github.com/oio-sds/kinetic-gateway/internal/xsync"
)

// Client is a session to one backend target. It accepts asynchronous
// PUT/GET/RANGE/DELETE/LIST submissions and returns a completion handle
// (Sync) per submission; multiple Starts on one Client may be in flight
// concurrently, multiplexed over the same underlying session, and may
// complete in any order. The handle is shared across requests: lifetime
// equals its longest holder (the Factory's pool entry).
type Client interface {
	// ID returns a stable string identifying the target, used for log
	// correlation and as the Removal/Listing fragment's target field.
	ID() string

	// Start submits op asynchronously and returns immediately with a
	// completion handle. op's result fields are populated before the
	// returned Sync resolves.
	Start(ctx context.Context, op Op) *xsync.Sync
}

// compile-time documentation: the concrete S3 client satisfies Client.
var (
	_ Client = (*s3Client)(nil)
)
