// Package httpbridge exposes RPC services described by the g2h schema model
// as JSON-over-HTTP endpoints, so that one service implementation can serve
// both a native RPC transport and plain HTTP clients.
//
// A Bridge walks the schema once and produces, per service, a ServiceBinding.
// The binding's NewRouteTable constructor accepts a concrete implementation
// value and resolves one Go method per schema method, returning an immutable
// RouteTable that can be mounted on any HTTP server. Binding happens once, at
// table construction; per-request work is limited to decoding, dispatch and
// encoding.
//
// # Anatomy of a bridged call
//
// Each unary method is reachable as "POST /{package}.{Service}/{Method}"
// (optionally below a configured path prefix) with a JSON request body. The
// request body is decoded into the method's request message; enum-typed
// fields accept either the symbolic name or the integer discriminant when
// string enums are enabled. Request headers, minus a small block list, become
// call metadata, retrievable via metadata.FromIncomingContext. Metadata the
// implementation attaches with grpc.SetHeader and grpc.SetTrailer is copied
// back into response headers; keys ending in "-bin" are transported
// base64-encoded.
//
// On success the response is the JSON-encoded response message with a 200
// status; enum fields are rendered as symbolic names when the discriminant is
// known. On failure the implementation's status code is mapped to an HTTP
// status and the body carries {"code": <int>, "message": <string>}.
//
// Streaming methods are out of scope: a schema that marks a method as
// streaming on either side is rejected at bind time.
package httpbridge
