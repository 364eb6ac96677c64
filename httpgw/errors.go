package httpgw

import (
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/oio-sds/kinetic-gateway/internal/nlog"
)

// softError carries both the HTTP status actually written and an
// application-level status code, per spec.md §6/§7's
// `{"status": <softcode>, "message": <reason>}` error body, where
// softcode is "distinct from the HTTP status" (e.g. 500/400, 500/500).
type softError struct {
	httpStatus int
	softCode   int
	message    string
}

func (e *softError) Error() string { return e.message }

func badRequest(format string, args ...any) *softError {
	return &softError{httpStatus: http.StatusBadRequest, softCode: http.StatusBadRequest, message: fmt.Sprintf(format, args...)}
}

func serverError(format string, args ...any) *softError {
	return &softError{httpStatus: http.StatusInternalServerError, softCode: http.StatusInternalServerError, message: fmt.Sprintf(format, args...)}
}

func methodNotAllowed(method string) *softError {
	return &softError{httpStatus: http.StatusNotAcceptable, softCode: http.StatusNotAcceptable, message: "unsupported method " + method}
}

type errorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// writeError writes err as the sole HTTP response: the exact JSON shape
// spec.md §6 requires, with err.httpStatus as the transport status.
func writeError(w http.ResponseWriter, err *softError) {
	body, merr := jsoniter.Marshal(errorBody{Status: err.softCode, Message: err.message})
	if merr != nil {
		nlog.Errorf("marshaling error body: %v", merr)
		body = []byte(`{"status":500,"message":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.httpStatus)
	w.Write(body)
}
