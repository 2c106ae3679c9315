// Package bridgetesting provides a greeter service — schema, message types
// and a default implementation — used to test bridge implementations against
// a known service. The bridge's own tests use it, and it can be reused by
// anything that needs a ready-made bridged service.
package bridgetesting

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/juspay/g2h"
)

// Status enum discriminants. The declared set is deliberately sparse
// (ARCHIVED is 5) to exercise non-contiguous discriminants.
const (
	StatusUnspecified int32 = 0
	StatusActive      int32 = 1
	StatusSuspended   int32 = 2
	StatusArchived    int32 = 5
)

// HelloRequest is the request message for SayHello.
type HelloRequest struct {
	Name     string `json:"name"`
	Status   int32  `json:"status,omitempty"`
	Priority int32  `json:"priority,omitempty"`

	// Headers, when set, is attached to the outgoing call metadata.
	Headers map[string]string `json:"headers,omitempty"`
	// EchoHeaders names incoming metadata keys to copy into outgoing
	// metadata and into the response's Metadata field.
	EchoHeaders []string `json:"echoHeaders,omitempty"`
	// FailCode, when non-zero, makes the call fail with that RPC code.
	FailCode int32 `json:"failCode,omitempty"`
	// Panic makes the implementation panic, for boundary-recovery tests.
	Panic bool `json:"panic,omitempty"`
}

// HelloResponse is the response message for SayHello.
type HelloResponse struct {
	Message   string            `json:"message"`
	Timestamp string            `json:"timestamp"`
	Status    int32             `json:"status,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// StatusFilter is a self-referential message, exercising recursive schema
// traversal.
type StatusFilter struct {
	Status int32         `json:"status,omitempty"`
	Not    *StatusFilter `json:"not,omitempty"`
}

// DescribeRequest exercises repeated and map enum fields.
type DescribeRequest struct {
	Statuses []int32          `json:"statuses,omitempty"`
	ByLabel  map[string]int32 `json:"byLabel,omitempty"`
	Filter   *StatusFilter    `json:"filter,omitempty"`
}

// DescribeResponse echoes the request's enum values.
type DescribeResponse struct {
	Statuses []int32 `json:"statuses,omitempty"`
	Total    int32   `json:"total"`
}

// NewRegistry returns a type registry holding the greeter schemas.
func NewRegistry() *g2h.TypeRegistry {
	reg := g2h.NewTypeRegistry()
	mustRegister := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	mustRegister(reg.RegisterEnum(&g2h.EnumSchema{
		Name: "greeter.v1.Status",
		Values: []g2h.EnumValue{
			{Name: "STATUS_UNSPECIFIED", Number: StatusUnspecified},
			{Name: "ACTIVE", Number: StatusActive},
			{Name: "SUSPENDED", Number: StatusSuspended},
			{Name: "ARCHIVED", Number: StatusArchived},
		},
	}))
	mustRegister(reg.RegisterMessage(&g2h.MessageSchema{
		Name: "greeter.v1.HelloRequest",
		Fields: []g2h.FieldSchema{
			{Name: "name", JSONName: "name", Kind: g2h.KindScalar},
			{Name: "status", JSONName: "status", Kind: g2h.KindEnum, TypeName: "greeter.v1.Status"},
			{Name: "priority", JSONName: "priority", Kind: g2h.KindScalar},
			{Name: "headers", JSONName: "headers", Kind: g2h.KindScalar, Map: true},
			{Name: "echo_headers", JSONName: "echoHeaders", Kind: g2h.KindScalar, Repeated: true},
			{Name: "fail_code", JSONName: "failCode", Kind: g2h.KindScalar},
			{Name: "panic", JSONName: "panic", Kind: g2h.KindScalar},
		},
	}))
	mustRegister(reg.RegisterMessage(&g2h.MessageSchema{
		Name: "greeter.v1.HelloResponse",
		Fields: []g2h.FieldSchema{
			{Name: "message", JSONName: "message", Kind: g2h.KindScalar},
			{Name: "timestamp", JSONName: "timestamp", Kind: g2h.KindScalar},
			{Name: "status", JSONName: "status", Kind: g2h.KindEnum, TypeName: "greeter.v1.Status"},
			{Name: "metadata", JSONName: "metadata", Kind: g2h.KindScalar, Map: true},
		},
	}))
	mustRegister(reg.RegisterMessage(&g2h.MessageSchema{
		Name: "greeter.v1.StatusFilter",
		Fields: []g2h.FieldSchema{
			{Name: "status", JSONName: "status", Kind: g2h.KindEnum, TypeName: "greeter.v1.Status"},
			{Name: "not", JSONName: "not", Kind: g2h.KindMessage, TypeName: "greeter.v1.StatusFilter"},
		},
	}))
	mustRegister(reg.RegisterMessage(&g2h.MessageSchema{
		Name: "greeter.v1.DescribeRequest",
		Fields: []g2h.FieldSchema{
			{Name: "statuses", JSONName: "statuses", Kind: g2h.KindEnum, TypeName: "greeter.v1.Status", Repeated: true},
			{Name: "by_label", JSONName: "byLabel", Kind: g2h.KindEnum, TypeName: "greeter.v1.Status", Map: true},
			{Name: "filter", JSONName: "filter", Kind: g2h.KindMessage, TypeName: "greeter.v1.StatusFilter"},
		},
	}))
	mustRegister(reg.RegisterMessage(&g2h.MessageSchema{
		Name: "greeter.v1.DescribeResponse",
		Fields: []g2h.FieldSchema{
			{Name: "statuses", JSONName: "statuses", Kind: g2h.KindEnum, TypeName: "greeter.v1.Status", Repeated: true},
			{Name: "total", JSONName: "total", Kind: g2h.KindScalar},
		},
	}))
	return reg
}

// ServiceDesc returns the greeter service descriptor.
func ServiceDesc() *g2h.ServiceDescriptor {
	return &g2h.ServiceDescriptor{
		Package: "greeter.v1",
		Name:    "GreeterService",
		Methods: []g2h.MethodDescriptor{
			{Name: "SayHello", Input: "greeter.v1.HelloRequest", Output: "greeter.v1.HelloResponse"},
			{Name: "Describe", Input: "greeter.v1.DescribeRequest", Output: "greeter.v1.DescribeResponse"},
		},
	}
}

// GreeterServer has default responses for the greeter methods.
type GreeterServer struct{}

// SayHello implements the greeter service.
func (s *GreeterServer) SayHello(ctx context.Context, req *HelloRequest) (*HelloResponse, error) {
	if req.Panic {
		panic("greeter asked to panic")
	}
	if len(req.Headers) > 0 {
		grpc.SetHeader(ctx, metadata.New(req.Headers))
	}
	var echoed map[string]string
	if len(req.EchoHeaders) > 0 {
		md, _ := metadata.FromIncomingContext(ctx)
		echoed = map[string]string{}
		out := metadata.MD{}
		for _, k := range req.EchoHeaders {
			if vals := md.Get(k); len(vals) > 0 {
				echoed[k] = vals[0]
				out.Set(k, vals...)
			}
		}
		grpc.SetHeader(ctx, out)
	}
	if req.FailCode != 0 {
		return nil, status.Errorf(codes.Code(req.FailCode), "greeter failed with code %d", req.FailCode)
	}
	return &HelloResponse{
		Message:   fmt.Sprintf("Hello, %s!", req.Name),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Status:    req.Status,
		Metadata:  echoed,
	}, nil
}

// Describe implements the greeter service.
func (s *GreeterServer) Describe(ctx context.Context, req *DescribeRequest) (*DescribeResponse, error) {
	total := len(req.Statuses) + len(req.ByLabel)
	for f := req.Filter; f != nil; f = f.Not {
		total++
	}
	return &DescribeResponse{
		Statuses: req.Statuses,
		Total:    int32(total),
	}, nil
}
