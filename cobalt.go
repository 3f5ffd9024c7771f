// Package cobalt is the front door of the request-dispatch pipeline. A
// transport parses request heads and feeds body chunks; cobalt takes over
// from there: route resolution, argument binding from the body stream,
// filter chain, handler execution and response serialization, with the
// guarantee that every request ends in exactly one written response or an
// explicit connection close.
package cobalt

import (
	"github.com/cobalt-web/cobalt/http"
	"github.com/cobalt-web/cobalt/pipeline"
	"github.com/cobalt-web/cobalt/router"
)

// App binds a router to a dispatch pipeline. One App serves any number of
// connections concurrently.
type App struct {
	pipe *pipeline.Pipeline
}

// New assembles an App over the passed router. All tunables (codecs,
// executor selector, error handlers, config, logger) are defaulted and may
// be replaced via options.
func New(r router.Router, opts ...pipeline.Option) *App {
	return &App{pipe: pipeline.New(r, opts...)}
}

// OnRequest resolves a single parsed request. It blocks until the request
// is answered or the connection is closed, so the transport may reuse the
// request object right after it returns.
func (a *App) OnRequest(req *http.Request) {
	a.pipe.OnRequest(req)
}

// OnError resolves a request that failed before it could be dispatched,
// e.g. on head parsing or routing performed by the transport itself.
func (a *App) OnError(req *http.Request, cause error) {
	a.pipe.OnError(req, cause)
}

// Close releases the pipeline's shared resources. No requests may be in
// flight.
func (a *App) Close() {
	a.pipe.Close()
}
