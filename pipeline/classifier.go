package pipeline

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/cobalt-web/cobalt/http"
	"github.com/cobalt-web/cobalt/http/status"
	"github.com/cobalt-web/cobalt/router"
)

// classify resolves a failed request. The lookup order is fixed: the
// close-connection signal, the unsatisfied-input shortcut, an error route
// scoped to the declaring handler type, a global error route, a registered
// generic handler, and finally the bare 500. Whatever path is taken, the
// request ends resolved.
func (ex *exchange) classify(cause error) {
	p, req := ex.p, ex.req

	if req.Env.Error != nil {
		// the request is already inside error handling; a second failure
		// means the error path itself is broken, so stop recursing
		p.log.Error("error handling failed", zap.Error(cause),
			zap.NamedError("original", req.Env.Error))
		ex.writeDefaultError()
		return
	}

	req.Env.Error = cause

	if errors.Is(cause, status.ErrCloseConnection) {
		_ = req.Client().Close()
		ex.finish()
		return
	}

	if errors.Is(cause, status.ErrUnsatisfiedInput) {
		p.log.Debug("request does not satisfy the route input", zap.Error(cause))

		if route, ok := p.router.RouteStatus(status.BadRequest); ok {
			ex.executeErrorRoute(route, status.BadRequest)
			return
		}

		ex.write(http.NewResponse().Error(cause), router.Match{})
		return
	}

	var declaring string
	if m, ok := req.MatchedRoute().(router.Match); ok {
		declaring = m.Declaring()
	}

	if route, ok := p.router.RouteError(declaring, cause); ok {
		ex.executeErrorRoute(route, status.InternalServerError)
		return
	}

	if declaring != "" {
		if route, ok := p.router.RouteError("", cause); ok {
			ex.executeErrorRoute(route, status.InternalServerError)
			return
		}
	}

	if handler, ok := p.handlers.Find(cause); ok {
		result, err := callErrorHandler(handler, req, cause)
		if err != nil {
			p.log.Error("error handler failed", zap.Error(err))
			ex.writeDefaultError()
			return
		}

		ex.write(errorResult(result, status.InternalServerError), router.Match{})
		return
	}

	var httpErr status.HTTPError
	if errors.As(cause, &httpErr) {
		// the cause carries its own status, render it as-is
		ex.write(http.NewResponse().Error(cause), router.Match{})
		return
	}

	p.log.Error("unexpected error occurred", zap.Error(cause),
		zap.Stringer("method", req.Method), zap.String("path", req.Path))
	ex.writeDefaultError()
}

// executeErrorRoute runs an error or status route picked by the
// classifier. The route runs inline: by the time errors are being
// classified the body is no longer consumable, so there is nothing to
// overlap with.
func (ex *exchange) executeErrorRoute(route router.Match, fallback status.Code) {
	req := ex.req

	route = ex.p.binder.Fulfill(route, req)
	if !route.Executable() {
		ex.p.log.Error("error route input cannot be satisfied")
		ex.writeDefaultError()
		return
	}

	result, err := route.Execute(req)
	if err != nil {
		ex.p.log.Error("error route failed", zap.Error(err))
		ex.writeDefaultError()
		return
	}

	ex.write(errorResult(result, fallback), route)
}

// callErrorHandler shields the pipeline from a panicking handler.
func callErrorHandler(handler ErrorHandler, req *http.Request, cause error) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Newf("error handler panic: %v", rec)
		}
	}()

	return handler(req, cause), nil
}

// errorResult normalizes an error-path result into a response. A nil
// result keeps the fallback code with an empty body; a full response
// passes through; anything else becomes the fallback code with the value
// as the body.
func errorResult(result any, fallback status.Code) *http.Response {
	switch res := result.(type) {
	case nil:
		return http.NewResponse().Code(fallback)
	case *http.Response:
		return res
	default:
		return http.NewResponse().Code(fallback).Body(res)
	}
}
