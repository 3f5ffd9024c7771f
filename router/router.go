// Package router defines the lookup surface the dispatch pipeline requires
// from a route table, plus a basic in-memory implementation of it. Route
// table compilation, path variables and the like are a concern of the
// surrounding application; the pipeline only ever calls the lookup
// operations below.
package router

import (
	"github.com/cobalt-web/cobalt/http"
	"github.com/cobalt-web/cobalt/http/method"
	"github.com/cobalt-web/cobalt/http/status"
)

// Router is the read-only route table. It is shared across connections and
// must never be mutated once the pipeline started serving.
type Router interface {
	// Find returns the candidate matches for the method and path, best
	// first.
	Find(m method.Method, path string) []Match
	// FindAny returns the methods under which the path has any match.
	FindAny(path string) []method.Method
	// RouteStatus returns the fallback route registered for the status
	// code, letting applications override synthesized default responses.
	RouteStatus(code status.Code) (Match, bool)
	// RouteError returns the error route for the cause. A route declared
	// for the same handler type (declaring) shadows a globally declared
	// one; pass an empty declaring for the global lookup only.
	RouteError(declaring string, cause error) (Match, bool)
	// FindFilters returns the ordered filter list for the request,
	// outermost first.
	FindFilters(r *http.Request) []Filter
}
