package httpgw

import (
	"net/http"
	"path"
	"strings"
)

// targetHeader is the repeatable header carrying backend target
// addresses (spec.md §6).
const targetHeader = "X-Oio-Chunk-Meta-Target"

// requestContext is the Go rendering of the parser state spec.md §4.7
// threads through its callback table: chunk id, target list, the
// Expect: 100-continue flag, and a deferred-error slot. net/http has
// already parsed the request line and headers by the time a Handler
// runs, so parseRequest computes this in one linear pass instead of
// accumulating it across incremental callbacks.
type requestContext struct {
	chunkID   string
	targets   []string
	expect100 bool
	deferred  *softError
}

// parseRequest extracts chunk-id (the basename of the URL path) and the
// target list (every X-oio-chunk-meta-target header value), matching
// spec.md §4.7's DEFAULT-state callbacks. A validation failure is
// recorded as ctx.deferred rather than returned, so ServeHTTP can reply
// with it at the same point the original's deferred-error slot would
// have surfaced it (headers-complete).
func parseRequest(r *http.Request) *requestContext {
	ctx := &requestContext{}

	for _, v := range r.Header.Values("Expect") {
		if strings.EqualFold(v, "100-continue") {
			ctx.expect100 = true
		}
	}

	if strings.HasSuffix(r.URL.Path, "/") {
		ctx.deferred = badRequest("empty chunk-id in path %q", r.URL.Path)
		return ctx
	}
	base := path.Base(r.URL.Path)
	if base == "" || base == "/" || base == "." {
		ctx.deferred = badRequest("empty chunk-id in path %q", r.URL.Path)
		return ctx
	}
	ctx.chunkID = base

	ctx.targets = r.Header.Values(targetHeader)
	if len(ctx.targets) == 0 {
		ctx.deferred = badRequest("missing required header %s", targetHeader)
		return ctx
	}
	return ctx
}
