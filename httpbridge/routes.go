package httpbridge

import (
	"path"
	"strings"

	"github.com/juspay/g2h"
)

// route binds one method descriptor to its derived HTTP path.
type route struct {
	method *g2h.MethodDescriptor
	path   string
}

// buildRoutes derives the route list for one service: one
// "/{package}.{Service}/{Method}" path per method, below the given prefix.
// It is a pure transformation; the schema is not modified.
//
// Streaming methods cannot be bridged and are rejected rather than silently
// emitting a broken route. A duplicate derived path within the service is
// likewise a fatal SchemaError.
func buildRoutes(prefix string, sd *g2h.ServiceDescriptor) ([]route, error) {
	if err := sd.Validate(); err != nil {
		return nil, err
	}
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		// route lookup is against r.URL.Path, which always starts with "/"
		prefix = "/" + prefix
	}
	seen := make(map[string]struct{}, len(sd.Methods))
	routes := make([]route, 0, len(sd.Methods))
	for i := range sd.Methods {
		md := &sd.Methods[i]
		if md.IsStreaming() {
			return nil, g2h.SchemaErrorf("service %s: method %s is streaming; only unary methods can be bridged", sd.FullName(), md.Name)
		}
		p := sd.RoutePath(md)
		if prefix != "" {
			p = path.Join(prefix, p)
		}
		if _, ok := seen[p]; ok {
			return nil, g2h.SchemaErrorf("service %s: duplicate route %s", sd.FullName(), p)
		}
		seen[p] = struct{}{}
		routes = append(routes, route{method: md, path: p})
	}
	return routes, nil
}
