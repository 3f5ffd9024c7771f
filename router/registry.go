package router

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/cobalt-web/cobalt/http"
	"github.com/cobalt-web/cobalt/http/method"
	"github.com/cobalt-web/cobalt/http/mime"
	"github.com/cobalt-web/cobalt/http/status"
)

// Registry is a basic map-based Router implementation. It does exact path
// matching only; applications needing path variables or prefix trees bring
// their own Router and keep the same pipeline.
//
// Registration is not safe for concurrent use and must be finished before
// serving starts; lookups afterwards are read-only and safe to share.
type Registry struct {
	routes   map[string]map[method.Method]Match
	statuses map[status.Code]Match
	errors   map[string][]errorRoute
	filters  []Filter
}

type errorRoute struct {
	cause error
	match Match
}

func NewRegistry() *Registry {
	return &Registry{
		routes:   make(map[string]map[method.Method]Match),
		statuses: make(map[status.Code]Match),
		errors:   make(map[string][]errorRoute),
	}
}

// RouteOption refines a registered route.
type RouteOption func(*Match)

// Consumes declares the media types the route accepts. A request whose
// content type is none of them is answered with 415.
func Consumes(mimes ...mime.MIME) RouteOption {
	return func(m *Match) { m.consumes = mimes }
}

// Produces declares the media types the route can produce, preferred
// first. The first one is the default response content type.
func Produces(mimes ...mime.MIME) RouteOption {
	return func(m *Match) { m.produces = mimes }
}

// Requires declares the named inputs which must be bound before the route
// becomes executable.
func Requires(args ...Argument) RouteOption {
	return func(m *Match) { m.required = args }
}

// Executor assigns the route to a dedicated executor pool by key.
func Executor(key string) RouteOption {
	return func(m *Match) { m.executorKey = key }
}

// DeclaredBy scopes the route to a handler type name, so error routes
// declared for the same name take precedence for its failures.
func DeclaredBy(name string) RouteOption {
	return func(m *Match) { m.declaring = name }
}

// Route registers a handler for the method and path.
func (r *Registry) Route(m method.Method, path string, handler Handler, opts ...RouteOption) *Registry {
	path = stripTrailingSlash(path)
	methodsMap := r.routes[path]
	if methodsMap == nil {
		methodsMap = make(map[method.Method]Match)
		r.routes[path] = methodsMap
	}

	if _, ok := methodsMap[m]; ok {
		panic(fmt.Sprintf("router: route already registered: %s %s", m, path))
	}

	methodsMap[m] = newMatch(handler, opts)

	return r
}

func (r *Registry) Get(path string, handler Handler, opts ...RouteOption) *Registry {
	return r.Route(method.GET, path, handler, opts...)
}

func (r *Registry) Post(path string, handler Handler, opts ...RouteOption) *Registry {
	return r.Route(method.POST, path, handler, opts...)
}

func (r *Registry) Put(path string, handler Handler, opts ...RouteOption) *Registry {
	return r.Route(method.PUT, path, handler, opts...)
}

func (r *Registry) Delete(path string, handler Handler, opts ...RouteOption) *Registry {
	return r.Route(method.DELETE, path, handler, opts...)
}

// Status registers a fallback route for a status code. It overrides the
// synthesized default response for that code at every fallback step.
func (r *Registry) Status(code status.Code, handler Handler, opts ...RouteOption) *Registry {
	r.statuses[code] = newMatch(handler, opts)
	return r
}

// Error registers a global error route for failures matching the cause.
func (r *Registry) Error(cause error, handler Handler, opts ...RouteOption) *Registry {
	return r.ErrorFor("", cause, handler, opts...)
}

// ErrorFor registers an error route scoped to the declaring handler type
// name. Scoped routes shadow global ones for failures of that type's
// routes.
func (r *Registry) ErrorFor(declaring string, cause error, handler Handler, opts ...RouteOption) *Registry {
	r.errors[declaring] = append(r.errors[declaring], errorRoute{
		cause: cause,
		match: newMatch(handler, opts),
	})

	return r
}

// Use appends a filter to the chain. Filters run in registration order,
// outermost first.
func (r *Registry) Use(f Filter) *Registry {
	r.filters = append(r.filters, f)
	return r
}

func (r *Registry) Find(m method.Method, path string) []Match {
	match, found := r.routes[stripTrailingSlash(path)][m]
	if !found {
		return nil
	}

	return []Match{match}
}

func (r *Registry) FindAny(path string) []method.Method {
	methodsMap := r.routes[stripTrailingSlash(path)]
	if len(methodsMap) == 0 {
		return nil
	}

	// stable order regardless of map iteration
	var methods []method.Method
	for _, m := range method.List {
		if _, ok := methodsMap[m]; ok {
			methods = append(methods, m)
		}
	}

	return methods
}

func (r *Registry) RouteStatus(code status.Code) (Match, bool) {
	match, found := r.statuses[code]
	return match, found
}

func (r *Registry) RouteError(declaring string, cause error) (Match, bool) {
	for _, route := range r.errors[declaring] {
		if errors.Is(cause, route.cause) {
			return route.match, true
		}
	}

	return Match{}, false
}

func (r *Registry) FindFilters(*http.Request) []Filter {
	return r.filters
}

func newMatch(handler Handler, opts []RouteOption) Match {
	match := Match{handler: handler}
	for _, opt := range opts {
		opt(&match)
	}

	return match
}

func stripTrailingSlash(path string) string {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	return path
}
