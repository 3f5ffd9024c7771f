package pipeline

import (
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/cobalt-web/cobalt/http"
	"github.com/cobalt-web/cobalt/http/method"
	"github.com/cobalt-web/cobalt/http/status"
	"github.com/cobalt-web/cobalt/router"
)

// dispatch resolves the request to a route and drives it to execution.
//
// The fallback order is strict: a registered status route always wins over
// a synthesized default response, at every step. Synthesized responses are
// pushed straight through the filter chain and the response writer without
// ever touching the body stream.
func (ex *exchange) dispatch() {
	p, req := ex.p, ex.req

	p.log.Debug("matching route",
		zap.Stringer("method", req.Method), zap.String("path", req.Path))

	var route router.Match

	candidates := p.router.Find(req.Method, req.Path)
	if len(candidates) == 0 {
		allowed := p.router.FindAny(req.Path)
		if len(allowed) > 0 {
			p.log.Debug("method not allowed",
				zap.Stringer("method", req.Method), zap.String("path", req.Path))
			req.Env.AllowedMethods = renderAllowed(allowed)

			statusRoute, ok := p.router.RouteStatus(status.MethodNotAllowed)
			if !ok {
				if req.Method == method.OPTIONS {
					// OPTIONS on a known path asks what the path supports,
					// it is not a method mismatch
					ex.emitDefault(req.Respond().
						Code(status.NoContent).
						Header("Allow", req.Env.AllowedMethods))
					return
				}

				ex.emitDefault(req.Respond().
					Code(status.MethodNotAllowed).
					Header("Allow", req.Env.AllowedMethods))
				return
			}

			ex.statusRouted = true
			route = statusRoute
		} else {
			p.log.Debug("no matching route", zap.String("path", req.Path))

			statusRoute, ok := p.router.RouteStatus(status.NotFound)
			if !ok {
				ex.emitDefault(req.Respond().Code(status.NotFound))
				return
			}

			ex.statusRouted = true
			route = statusRoute
		}
	} else {
		route = candidates[0]
	}

	// the route matched, but it may not consume what the request carries
	if !route.Accepts(req.ContentType) {
		p.log.Debug("matched route does not support the media type",
			zap.String("content-type", req.ContentType))

		statusRoute, ok := p.router.RouteStatus(status.UnsupportedMediaType)
		if !ok {
			ex.emitDefault(req.Respond().Code(status.UnsupportedMediaType))
			return
		}

		ex.statusRouted = true
		route = statusRoute
	}

	ex.handleRouteMatch(route)
}

func (ex *exchange) handleRouteMatch(route router.Match) {
	req := ex.req

	// bind everything derivable without the body
	route = ex.p.binder.Fulfill(route, req)
	req.SetMatchedRoute(route)

	if !route.Executable() && req.Method.PermitsBody() && req.Chunks != nil {
		// the route needs the body; consume it chunk by chunk until the
		// route becomes executable
		newBodyProcessor(ex, route).run()
		return
	}

	ex.execute(route)
}

// execute runs the route through the filter chain, with the actual
// execution appended as the chain's terminal stage, and hands the outcome
// to the response writer. Any failure goes through the error classifier,
// which guarantees a terminal write or an explicit close.
func (ex *exchange) execute(route router.Match) {
	resp, err := ex.runChain(ex.prepareExecution(route))
	if err != nil {
		ex.classify(err)
		return
	}

	ex.write(resp, route)
}

// emitDefault resolves the request with a synthesized response: through
// the filters and the writer, but never the body stream.
func (ex *exchange) emitDefault(resp *http.Response) {
	result, err := ex.runChain(func() (*http.Response, error) {
		return resp, nil
	})
	if err != nil {
		ex.p.log.Error("filter failed on a synthesized response", zap.Error(err))
		ex.writeDefaultError()
		return
	}

	ex.write(result, router.Match{})
}

func (ex *exchange) runChain(terminal router.Terminal) (*http.Response, error) {
	filters := ex.p.router.FindFilters(ex.req)
	return router.NewChain(ex.req, filters, terminal).Proceed()
}

func renderAllowed(methods []method.Method) string {
	return strings.Join(lo.Map(methods, func(m method.Method, _ int) string {
		return m.String()
	}), ",")
}
