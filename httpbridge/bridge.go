package httpbridge

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"

	"github.com/juspay/g2h"
)

// Bridge turns schema model services into HTTP route bindings. A Bridge is
// configured once and performs one deterministic pass per Bind call; it holds
// no per-request state and may be reused across calls.
type Bridge struct {
	stringEnums bool
	pathPrefix  string
	filter      func(*g2h.ServiceDescriptor) bool
	interceptor grpc.UnaryServerInterceptor
	errFunc     ErrorRenderer
	logger      *slog.Logger
	validate    *validator.Validate
}

// Option configures a Bridge.
type Option interface {
	apply(*Bridge)
}

type optionFunc func(*Bridge)

func (fn optionFunc) apply(b *Bridge) {
	fn(b)
}

// WithStringEnums wires the enum codec into request decoding, so that
// enum-typed fields accept their symbolic name as well as their integer
// discriminant. Unknown integer discriminants are always accepted, with or
// without this option (open-enum semantics); a strict mode rejecting them is
// deliberately left undefined.
func WithStringEnums() Option {
	return optionFunc(func(b *Bridge) {
		b.stringEnums = true
	})
}

// WithPathPrefix prepends the given prefix to every derived route.
func WithPathPrefix(prefix string) Option {
	return optionFunc(func(b *Bridge) {
		b.pathPrefix = prefix
	})
}

// WithServiceFilter restricts which services are bridged. Services for which
// the predicate returns false are skipped by Bind.
func WithServiceFilter(f func(*g2h.ServiceDescriptor) bool) Option {
	return optionFunc(func(b *Bridge) {
		b.filter = f
	})
}

// WithUnaryInterceptor configures the bridge to pass every dispatched call
// through the given server interceptor.
func WithUnaryInterceptor(interceptor grpc.UnaryServerInterceptor) Option {
	return optionFunc(func(b *Bridge) {
		b.interceptor = interceptor
	})
}

// WithErrorRenderer replaces DefaultErrorRenderer for failed calls.
func WithErrorRenderer(fn ErrorRenderer) Option {
	return optionFunc(func(b *Bridge) {
		b.errFunc = fn
	})
}

// WithLogger sets the logger used for recovered panics and response write
// failures. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(b *Bridge) {
		b.logger = logger
	})
}

// WithValidation validates decoded request messages against their
// `validate` struct tags before dispatch. A validation failure is reported
// like any other decode failure, as InvalidArgument.
func WithValidation() Option {
	return optionFunc(func(b *Bridge) {
		b.validate = validator.New()
	})
}

// New returns a Bridge with the given options applied.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		errFunc: DefaultErrorRenderer,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o.apply(b)
	}
	return b
}

// ServiceBinding is the generated registration unit for one service: the
// descriptor, its derived routes, and a constructor producing a RouteTable
// once a concrete implementation is supplied.
type ServiceBinding struct {
	Service *g2h.ServiceDescriptor

	bridge *Bridge
	reg    *g2h.TypeRegistry
	routes []route
}

// Routes returns the derived route paths in method declaration order.
func (sb *ServiceBinding) Routes() []string {
	paths := make([]string, len(sb.routes))
	for i, rt := range sb.routes {
		paths[i] = rt.path
	}
	return paths
}

// Bind walks the given services and produces one ServiceBinding per service
// that passes the configured filter. The pass is deterministic and fails
// loudly: any schema violation (duplicate method or route, streaming method,
// dangling type reference) aborts the whole call with a SchemaError and no
// partial output. Bindings from separate Bind calls compose only by the
// caller explicitly combining their route tables.
func (b *Bridge) Bind(reg *g2h.TypeRegistry, services ...*g2h.ServiceDescriptor) ([]*ServiceBinding, error) {
	bindings := make([]*ServiceBinding, 0, len(services))
	seen := map[string]string{} // route path -> service full name
	for _, sd := range services {
		if b.filter != nil && !b.filter(sd) {
			continue
		}
		routes, err := buildRoutes(b.pathPrefix, sd)
		if err != nil {
			return nil, err
		}
		for _, rt := range routes {
			if other, ok := seen[rt.path]; ok {
				return nil, g2h.SchemaErrorf("route %s of service %s collides with service %s", rt.path, sd.FullName(), other)
			}
			seen[rt.path] = sd.FullName()
			if err := reg.CheckMessage(rt.method.Input); err != nil {
				return nil, err
			}
			if err := reg.CheckMessage(rt.method.Output); err != nil {
				return nil, err
			}
		}
		bindings = append(bindings, &ServiceBinding{
			Service: sd,
			bridge:  b,
			reg:     reg,
			routes:  routes,
		})
	}
	return bindings, nil
}

// NewRouteTable resolves one exported method per schema method on impl and
// returns the populated route table. Each method must have the signature
//
//	func (s *Impl) MethodName(ctx context.Context, req *Request) (*Response, error)
//
// where Request and Response are JSON-(un)marshalable structs matching the
// schema's message types. Resolution happens here, once; the returned table
// is immutable and safe for arbitrarily many concurrent requests.
func (sb *ServiceBinding) NewRouteTable(impl interface{}) (*RouteTable, error) {
	table := &RouteTable{routes: make(map[string]http.Handler, len(sb.routes))}
	for _, rt := range sb.routes {
		bm, err := sb.bind(rt, impl)
		if err != nil {
			return nil, err
		}
		table.routes[rt.path] = sb.bridge.handleMethod(bm)
	}
	return table, nil
}

// RouteTable maps route paths to bound handlers. It is built once, never
// mutated afterwards, and shared read-only across concurrent requests.
type RouteTable struct {
	routes map[string]http.Handler
}

// ServeHTTP implements http.Handler by pure path lookup.
func (t *RouteTable) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h, ok := t.routes[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.ServeHTTP(w, r)
}

// Handler returns the handler bound to the given path, or nil.
func (t *RouteTable) Handler(path string) http.Handler {
	return t.routes[path]
}

// Paths returns all route paths in sorted order.
func (t *RouteTable) Paths() []string {
	paths := make([]string, 0, len(t.routes))
	for p := range t.routes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Combine merges route table fragments from multiple services into one
// server-wide table. A path present in more than one fragment is an error.
func Combine(tables ...*RouteTable) (*RouteTable, error) {
	combined := &RouteTable{routes: map[string]http.Handler{}}
	for _, t := range tables {
		for p, h := range t.routes {
			if _, ok := combined.routes[p]; ok {
				return nil, fmt.Errorf("duplicate route %s", p)
			}
			combined.routes[p] = h
		}
	}
	return combined, nil
}
