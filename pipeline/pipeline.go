// Package pipeline implements the request-dispatch core: it turns an
// already-parsed request into a matched handler invocation and the
// handler's result into a correctly framed response, consuming the request
// body and producing the response body incrementally under backpressure.
//
// Route table construction, body parsing and connection framing all live
// upstream; the pipeline talks to them through the router.Router,
// codec.Registry and transport.Client interfaces only.
package pipeline

import (
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/cobalt-web/cobalt/codec"
	"github.com/cobalt-web/cobalt/config"
	"github.com/cobalt-web/cobalt/http"
	"github.com/cobalt-web/cobalt/router"
)

// ErrorHandler is the last-resort collaborator for failures no error route
// covers. The returned value is encoded like any handler result.
type ErrorHandler func(r *http.Request, cause error) any

// ErrorHandlers is a registry of ErrorHandler keyed by the failure they
// respond to.
type ErrorHandlers struct {
	entries []errorHandlerEntry
}

type errorHandlerEntry struct {
	cause   error
	handler ErrorHandler
}

func NewErrorHandlers() *ErrorHandlers {
	return &ErrorHandlers{}
}

// On registers a handler for failures matching the cause.
func (e *ErrorHandlers) On(cause error, handler ErrorHandler) *ErrorHandlers {
	e.entries = append(e.entries, errorHandlerEntry{cause: cause, handler: handler})
	return e
}

// Find returns the first handler whose cause matches.
func (e *ErrorHandlers) Find(cause error) (ErrorHandler, bool) {
	if e == nil {
		return nil, false
	}

	for _, entry := range e.entries {
		if errors.Is(cause, entry.cause) {
			return entry.handler, true
		}
	}

	return nil, false
}

// Pipeline is the dispatch core shared by all connections. Everything it
// holds is read-only during serving.
type Pipeline struct {
	cfg      *config.Config
	router   router.Router
	binder   router.Binder
	codecs   *codec.Registry
	selector Selector
	handlers *ErrorHandlers
	io       *Pool
	log      *zap.Logger
}

type Option func(*Pipeline)

// WithConfig replaces the default config.
func WithConfig(cfg *config.Config) Option {
	return func(p *Pipeline) { p.cfg = cfg }
}

// WithBinder replaces the default header-only argument binder.
func WithBinder(b router.Binder) Option {
	return func(p *Pipeline) { p.binder = b }
}

// WithCodecs replaces the default codec registry (JSON plus plain text).
func WithCodecs(r *codec.Registry) Option {
	return func(p *Pipeline) { p.codecs = r }
}

// WithSelector sets the dedicated-executor selector for routes carrying an
// executor assignment.
func WithSelector(s Selector) Option {
	return func(p *Pipeline) { p.selector = s }
}

// WithErrorHandlers sets the generic error handler registry consulted when
// no error route matches.
func WithErrorHandlers(h *ErrorHandlers) Option {
	return func(p *Pipeline) { p.handlers = h }
}

// WithLogger sets the logger. Defaults to a nop one.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

func New(r router.Router, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      config.Default(),
		router:   r,
		binder:   router.DefaultBinder(),
		codecs:   codec.NewRegistry(codec.JSON(), codec.Text()),
		selector: noSelector{},
		handlers: NewErrorHandlers(),
		log:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.io = NewPool(p.cfg.Executors.IOWorkers, p.cfg.Executors.QueueDepth)

	return p
}

// Close stops the encoding pool. Must not be called while requests are in
// flight.
func (p *Pipeline) Close() {
	p.io.Close()
}

// OnRequest pushes one request through dispatch, body fulfillment, filter
// chain, execution and response writing. It returns once the request is
// resolved: a response was fully written, or the connection was closed.
// There is no failure mode that leaves the request unanswered.
func (p *Pipeline) OnRequest(req *http.Request) {
	ex := newExchange(p, req)
	defer ex.loop.Close()

	ex.dispatch()
	ex.wait()
}

// OnError resolves a request which failed upstream of dispatch, e.g. on
// head parsing. It runs the failure through the same classification as
// handler errors.
func (p *Pipeline) OnError(req *http.Request, cause error) {
	ex := newExchange(p, req)
	defer ex.loop.Close()

	ex.classify(cause)
	ex.wait()
}

// exchange is the per-request state: the pipeline plus the serialized
// executor standing in for the connection's single-threaded loop. All
// mutable state below is private to the request's call chain.
type exchange struct {
	p    *Pipeline
	req  *http.Request
	loop *Serial

	// set when the executing route already is a status route, so its
	// result is never re-routed through the status table again
	statusRouted bool

	finishOnce sync.Once
	done       chan struct{}
}

func newExchange(p *Pipeline, req *http.Request) *exchange {
	return &exchange{
		p:    p,
		req:  req,
		loop: NewSerial(),
		done: make(chan struct{}),
	}
}

// finish marks the request as resolved. Idempotent: overlapping failure
// paths may race to it, only the first resolution counts.
func (ex *exchange) finish() {
	ex.finishOnce.Do(func() {
		close(ex.done)
	})
}

func (ex *exchange) wait() {
	<-ex.done
}
