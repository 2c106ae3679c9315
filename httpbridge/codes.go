package httpbridge

import (
	"context"
	"encoding/json"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StatusClientClosedRequest is the non-standard HTTP status (nginx's 499)
// used for cancelled calls, which have no standard HTTP equivalent.
const StatusClientClosedRequest = 499

// HTTPStatusFromCode translates an RPC status code into the HTTP status of a
// bridged response. The mapping is fixed and total:
//
//	OK                  200
//	Canceled            499 Client Closed Request
//	Unknown             500 Internal Server Error
//	InvalidArgument     400 Bad Request
//	DeadlineExceeded    504 Gateway Timeout
//	NotFound            404 Not Found
//	AlreadyExists       409 Conflict
//	PermissionDenied    403 Forbidden
//	Unauthenticated     401 Unauthorized
//	ResourceExhausted   429 Too Many Requests
//	FailedPrecondition  400 Bad Request
//	Aborted             409 Conflict
//	OutOfRange          400 Bad Request
//	Unimplemented       501 Not Implemented
//	Internal            500 Internal Server Error
//	Unavailable         503 Service Unavailable
//	DataLoss            500 Internal Server Error
//
// Any other code (which cannot occur with a well-formed status) falls back to
// 500 Internal Server Error.
func HTTPStatusFromCode(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.Canceled:
		return StatusClientClosedRequest
	case codes.Unknown:
		return http.StatusInternalServerError
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.FailedPrecondition:
		return http.StatusBadRequest
	case codes.Aborted:
		return http.StatusConflict
	case codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Internal:
		return http.StatusInternalServerError
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DataLoss:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON envelope sent for failed calls.
type errorBody struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// ErrorRenderer writes an error response for a failed call. The request
// context is the original, uncancelled request context, in case the renderer
// wants to distinguish client-cancelled calls.
type ErrorRenderer func(ctx context.Context, st *status.Status, w http.ResponseWriter)

// DefaultErrorRenderer maps the status code via HTTPStatusFromCode and writes
// a JSON body of the form {"code": <integer RPC code>, "message": <string>}.
func DefaultErrorRenderer(ctx context.Context, st *status.Status, w http.ResponseWriter) {
	body, err := json.Marshal(errorBody{Code: int32(st.Code()), Message: st.Message()})
	if err != nil {
		// cannot happen for this shape; keep the response well-formed anyway
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatusFromCode(st.Code()))
	w.Write(body)
}
