package g2h

import "fmt"

// SchemaError reports a malformed or unsupported schema: duplicate names,
// dangling type references, or a streaming method where only unary methods
// can be bridged. Schema errors are fatal to bridge generation; generation
// aborts on the first one and produces no partial output.
type SchemaError struct {
	Detail string
}

func (e *SchemaError) Error() string {
	return "schema: " + e.Detail
}

// SchemaErrorf returns a SchemaError with a formatted detail message.
func SchemaErrorf(format string, args ...interface{}) *SchemaError {
	return &SchemaError{Detail: fmt.Sprintf(format, args...)}
}

// ServiceDescriptor describes one RPC service: its proto package, its name,
// and its methods in declaration order. Method names must be unique within
// the service; Validate enforces this.
type ServiceDescriptor struct {
	Package string
	Name    string
	Methods []MethodDescriptor
}

// FullName returns the fully-qualified service name, "package.Service", or
// just the service name when the package is empty.
func (sd *ServiceDescriptor) FullName() string {
	if sd.Package == "" {
		return sd.Name
	}
	return sd.Package + "." + sd.Name
}

// RoutePath derives the HTTP route for the given method:
// "/" + package + "." + service + "/" + method.
func (sd *ServiceDescriptor) RoutePath(md *MethodDescriptor) string {
	return "/" + sd.FullName() + "/" + md.Name
}

// Validate checks the descriptor's internal invariants.
func (sd *ServiceDescriptor) Validate() error {
	if sd.Name == "" {
		return SchemaErrorf("service with empty name (package %q)", sd.Package)
	}
	seen := make(map[string]struct{}, len(sd.Methods))
	for i := range sd.Methods {
		md := &sd.Methods[i]
		if md.Name == "" {
			return SchemaErrorf("service %s: method with empty name", sd.FullName())
		}
		if _, ok := seen[md.Name]; ok {
			return SchemaErrorf("service %s: duplicate method %s", sd.FullName(), md.Name)
		}
		seen[md.Name] = struct{}{}
	}
	return nil
}

// MethodDescriptor describes one method of a service. Input and Output name
// the request and response message types in the service's TypeRegistry.
type MethodDescriptor struct {
	Name            string
	Input           string
	Output          string
	ClientStreaming bool
	ServerStreaming bool
}

// IsStreaming reports whether the method streams on either side. Streaming
// methods cannot be bridged.
func (md *MethodDescriptor) IsStreaming() bool {
	return md.ClientStreaming || md.ServerStreaming
}
