package httpgw

import (
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/oio-sds/kinetic-gateway/blob"
	"github.com/oio-sds/kinetic-gateway/internal/metrics"
	"github.com/oio-sds/kinetic-gateway/internal/nlog"
)

// Handler dispatches PUT/GET/DELETE onto Upload/Download/Removal
// (spec.md §4.7, C7). 100-continue, chunked framing and trailer parsing
// are all handled by net/http itself; see SPEC_FULL.md §6 for why this
// handler doesn't hand-roll a parser.
//
// Factory is a blob.Resolver rather than the concrete *backend.Factory
// so tests can substitute an in-memory backend; production callers pass
// a real *backend.Factory, which satisfies the interface as-is.
type Handler struct {
	Factory   blob.Resolver
	BlockSize int
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	outcome := "ok"
	metrics.InflightRequests.Inc()
	defer func() {
		metrics.InflightRequests.Dec()
		metrics.RequestsTotal.WithLabelValues(r.Method, outcome).Inc()
		nlog.Infof("[%s] %s %s -> %s", reqID, r.Method, r.URL.Path, outcome)
	}()

	ctx := parseRequest(r)
	if ctx.deferred != nil {
		outcome = "error"
		writeError(w, ctx.deferred)
		return
	}

	switch r.Method {
	case http.MethodPut:
		if !h.handleUpload(w, r, ctx) {
			outcome = "error"
		}
	case http.MethodGet:
		if !h.handleDownload(w, r, ctx) {
			outcome = "error"
		}
	case http.MethodDelete:
		if !h.handleRemoval(w, r, ctx) {
			outcome = "error"
		}
	default:
		outcome = "error"
		writeError(w, methodNotAllowed(r.Method))
	}
}

// handleUpload implements the UPLOAD state (spec.md §4.7): body bytes
// forward to Upload.Write, message-complete calls Commit.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request, rc *requestContext) bool {
	up, err := blob.NewUpload(r.Context(), h.Factory, rc.chunkID, rc.targets, h.BlockSize)
	if err != nil {
		writeError(w, serverError("resolving targets for %s: %v", rc.chunkID, err))
		return false
	}

	status, err := up.Prepare(r.Context())
	if err != nil {
		writeError(w, serverError("prepare %s: %v", rc.chunkID, err))
		return false
	}
	if status == blob.UploadAlready {
		writeError(w, badRequest("chunk %s already exists", rc.chunkID))
		return false
	}

	buf := make([]byte, 8*1024)
	for {
		n, rerr := r.Body.Read(buf)
		if n > 0 {
			up.Write(r.Context(), buf[:n])
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			up.Abort()
			writeError(w, serverError("reading body for %s: %v", rc.chunkID, rerr))
			return false
		}
	}

	// Trailers extend the xattr set the manifest is built from; net/http
	// only populates r.Trailer once Body.Read has returned io.EOF, which
	// it just did above. Trailers extending the *target* list (spec.md
	// §4.7) are not applied here: Upload's client set is already resolved
	// and striping has already begun by the time trailers arrive, so a
	// late target addition has nothing left to stripe onto.
	for key, values := range r.Trailer {
		if len(values) > 0 {
			up.SetXattr(key, values[0])
		}
	}

	ok, commitErr := up.Commit(r.Context())
	if !ok {
		writeError(w, serverError("commit %s: %v", rc.chunkID, commitErr))
		return false
	}

	w.Header().Set("Content-Length", "0")
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusOK)
	return true
}

// handleDownload implements the DOWNLOAD state (spec.md §4.7):
// message-complete builds and prepares a Download, then streams every
// fragment as one HTTP chunk.
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request, rc *requestContext) bool {
	dl := blob.NewDownload(h.Factory, rc.chunkID, rc.targets)
	status, err := dl.Prepare(r.Context())
	switch status {
	case blob.DownloadNotFound:
		writeError(w, badRequest("chunk %s not found", rc.chunkID))
		return false
	case blob.DownloadOK:
	default:
		writeError(w, serverError("prepare %s: %v", rc.chunkID, err))
		return false
	}

	// No Content-Length is set and the response is flushed incrementally
	// below, so net/http frames this as Transfer-Encoding: chunked on its
	// own (spec.md §4.7/§6): setting that header explicitly is redundant
	// and net/http's own docs warn against it.
	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)

	for !dl.IsEof() {
		frag, rerr := dl.Read(r.Context())
		if rerr != nil {
			// Mid-stream backend failure: spec.md §7 notes there is no way
			// to signal this to the client beyond a truncated body, so we
			// stop writing and close the connection without the
			// terminating 0-length chunk (returning normally would let
			// net/http finish the chunked body as if it were complete).
			nlog.Errorf("download %s: mid-stream read error: %v", rc.chunkID, rerr)
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, herr := hj.Hijack(); herr == nil {
					conn.Close()
					return false
				}
			}
			panic(http.ErrAbortHandler)
		}
		w.Write(frag)
		if canFlush {
			flusher.Flush()
		}
	}
	return true
}

// handleRemoval implements the REMOVAL state (spec.md §4.7):
// headers-complete prepares, message-complete commits.
func (h *Handler) handleRemoval(w http.ResponseWriter, r *http.Request, rc *requestContext) bool {
	rm := blob.NewRemoval(h.Factory, rc.chunkID, rc.targets)
	status, err := rm.Prepare(r.Context())
	switch status {
	case blob.RemovalNotFound:
		// Deleting an already-absent chunk is treated as a no-op success
		// rather than an error: spec.md doesn't define this case
		// explicitly, and idempotent DELETE matches the rest of the
		// backend keyspace's semantics ("deleting an absent key is not an
		// error", spec.md §4.1).
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
		return true
	case blob.RemovalOK:
	default:
		writeError(w, serverError("prepare %s: %v", rc.chunkID, err))
		return false
	}

	if ok := rm.Commit(r.Context()); !ok {
		writeError(w, serverError("removal failed for chunk %s", rc.chunkID))
		return false
	}

	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusOK)
	return true
}
