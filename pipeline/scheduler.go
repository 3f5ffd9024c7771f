package pipeline

import (
	"github.com/cockroachdb/errors"

	"github.com/cobalt-web/cobalt/http"
	"github.com/cobalt-web/cobalt/router"
)

// prepareExecution wraps the route into the terminal stage of the filter
// chain. The handler always runs as an asynchronous unit of work on the
// selected executor, never inline on the goroutine driving the transport;
// failures, including panics, complete the stage with an error instead of
// unwinding across goroutines.
func (ex *exchange) prepareExecution(route router.Match) router.Terminal {
	exec, ok := ex.p.selector.Select(route)
	if !ok || exec == nil {
		// no dedicated pool for the route: use the connection's own
		// serialized loop
		exec = ex.loop
	}

	return func() (*http.Response, error) {
		type outcome struct {
			resp *http.Response
			err  error
		}

		out := make(chan outcome, 1)

		exec.Submit(func() {
			defer func() {
				if rec := recover(); rec != nil {
					out <- outcome{err: errors.Newf("handler panic: %v", rec)}
				}
			}()

			resp, err := ex.invoke(route)
			out <- outcome{resp: resp, err: err}
		})

		res := <-out
		return res.resp, res.err
	}
}

// invoke executes the route and classifies its result: nil becomes an
// empty 200, a response with a status of 300 and above is re-routed
// through the status-route table once (a registered status route's result
// takes priority over the original value), anything else is wrapped as a
// 200 with a body.
func (ex *exchange) invoke(route router.Match) (*http.Response, error) {
	req := ex.req

	if !route.Executable() {
		route = ex.p.binder.Fulfill(route, req)
	}

	result, err := route.Execute(req)
	if err != nil {
		return nil, err
	}

	switch res := result.(type) {
	case nil:
		return req.Respond(), nil
	case *http.Response:
		return ex.remapStatus(res)
	default:
		return http.NewResponse().Body(res), nil
	}
}

// remapStatus implements the single re-map of erroneous handler results:
// a 302 returned by a handler is answered by the registered 302 status
// route, if any, allowing custom error bodies per status. The remap is
// applied once only; whatever a status route itself returns is written
// as-is, bounding the recursion.
func (ex *exchange) remapStatus(resp *http.Response) (*http.Response, error) {
	code := resp.Expose().Code
	if code < 300 || ex.statusRouted {
		return resp, nil
	}

	statusRoute, ok := ex.p.router.RouteStatus(code)
	if !ok {
		return resp, nil
	}

	statusRoute = ex.p.binder.Fulfill(statusRoute, ex.req)
	if !statusRoute.Executable() {
		return resp, nil
	}

	ex.statusRouted = true

	remapped, err := statusRoute.Execute(ex.req)
	if err != nil {
		return nil, err
	}

	switch res := remapped.(type) {
	case nil:
		return resp, nil
	case *http.Response:
		return res, nil
	default:
		// an arbitrary value keeps the original status, only the body is
		// replaced
		return http.NewResponse().Code(code).Body(res), nil
	}
}
