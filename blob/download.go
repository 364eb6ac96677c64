package blob

import (
	"context"

	"github.com/oio-sds/kinetic-gateway/backend"
	"github.com/oio-sds/kinetic-gateway/internal/metrics"
)

// DownloadStatus is the outcome of Download.Prepare (spec.md §4.5).
type DownloadStatus int

const (
	DownloadOK DownloadStatus = iota
	DownloadNotFound
	DownloadNetworkError
	DownloadProtocolError
)

// Download replays a chunk's data fragments in Listing order, skipping
// the manifest fragment (spec.md §4.5, C5).
type Download struct {
	chunkID  string
	targets  []string
	resolver Resolver

	frags []Fragment
	pos   int
	eof   bool
}

// NewDownload returns a Download over chunkID, queried across targets.
func NewDownload(resolver Resolver, chunkID string, targets []string) *Download {
	return &Download{chunkID: chunkID, targets: targets, resolver: resolver}
}

// Prepare lists the chunk's fragments and filters out the manifest,
// leaving the ordered data-fragment replay sequence.
func (d *Download) Prepare(ctx context.Context) (DownloadStatus, error) {
	listing := NewListing(d.resolver, d.chunkID, d.targets)
	status, err := listing.Prepare(ctx)
	switch status {
	case ListingNotFound:
		d.eof = true
		return DownloadNotFound, nil
	case ListingNetworkError:
		return DownloadNetworkError, err
	case ListingProtocolError:
		return DownloadProtocolError, err
	}

	for {
		target, key, ok := listing.Next()
		if !ok {
			break
		}
		if IsManifestKey(key) {
			continue
		}
		d.frags = append(d.frags, Fragment{Target: target, Key: key})
	}
	if len(d.frags) == 0 {
		d.eof = true
	}
	return DownloadOK, nil
}

// IsEof reports whether every data fragment has already been returned
// from Read.
func (d *Download) IsEof() bool { return d.eof }

// Read fetches and returns the next data fragment's full value. It must
// not be called once IsEof is true.
func (d *Download) Read(ctx context.Context) ([]byte, error) {
	frag := d.frags[d.pos]
	client, err := d.resolver.Get(ctx, frag.Target)
	if err != nil {
		return nil, err
	}
	op := &backend.GetOp{Key: frag.Key}
	s := client.Start(ctx, op)
	if err := s.Wait(); err != nil {
		return nil, err
	}
	metrics.FragmentsTotal.WithLabelValues("get").Inc()

	d.pos++
	if d.pos >= len(d.frags) {
		d.eof = true
	}
	return op.Value, nil
}
