// Package g2h contains the normalized schema model for bridging RPC services
// to HTTP/JSON endpoints. The model is produced by an external schema compiler
// and consumed read-only: services with unary methods, the message and enum
// types those methods reference, and a type registry that resolves references
// by name.
//
// The model deliberately references types by registry name rather than by
// embedded values, so that traversal stays iterative and terminates even for
// self-referential message definitions.
//
// The httpbridge package turns this model into live HTTP routes. See its
// documentation for the anatomy of a bridged call.
package g2h
