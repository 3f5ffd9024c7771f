package http

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/cobalt-web/cobalt/http/method"
	"github.com/cobalt-web/cobalt/http/mime"
	"github.com/cobalt-web/cobalt/kv"
	"github.com/cobalt-web/cobalt/stream"
	"github.com/cobalt-web/cobalt/transport"
)

type Headers = *kv.Storage

var zeroContext = context.Background()

// Request represents a single HTTP request whose head was already parsed
// by the transport. It is owned by the connection for its whole lifetime
// and released when the response completes or the connection closes.
type Request struct {
	// Method is an enum representing the request method.
	Method method.Method
	// Path is a decoded and validated request path.
	Path string
	// Headers holds non-normalized header pairs; lookup is case-insensitive.
	Headers Headers
	// ContentType obtains the Content-Type header value.
	ContentType mime.MIME
	// KeepAlive tells whether the connection may be reused after the
	// response is written.
	KeepAlive bool
	// Ctx is canceled when the connection closes; all blocking operations
	// on the request honor it.
	Ctx context.Context
	// Env contains a fixed set of contextual values which are useful in
	// specific cases.
	Env Environment
	// Chunks is the backpressured stream of body units fed by the
	// transport. Nil when the request carries no body.
	Chunks *stream.Pipe[Chunk]

	client     transport.Client
	response   *Response
	matched    any
	body       []byte
	bodyValue  any
	hasBody    bool
	responding atomic.Bool
}

func NewRequest(client transport.Client, headers *kv.Storage) *Request {
	return &Request{
		Method:   method.Unknown,
		Headers:  headers,
		Ctx:      zeroContext,
		client:   client,
		response: NewResponse(),
	}
}

type Environment struct {
	// Error contains the error being classified, if any.
	Error error
	// AllowedMethods is a comma-separated list of methods the path can be
	// served with. Non-empty only when 405 Method Not Allowed raises.
	AllowedMethods string
}

// Client returns the write side of the connection the request arrived on.
func (r *Request) Client() transport.Client {
	return r.client
}

// Respond returns the response builder bound to the request.
//
// WARNING: the builder is cleared under the hood, so it must not be stored
// across requests.
func (r *Request) Respond() *Response {
	return r.response.Clear()
}

// SetMatchedRoute stores the route the request was dispatched to. The
// stored value is an opaque reference to avoid a dependency loop with the
// router; the error classifier is its only consumer.
func (r *Request) SetMatchedRoute(route any) {
	r.matched = route
}

func (r *Request) MatchedRoute() any {
	return r.matched
}

// GrowBody ensures the body accumulator has at least n bytes of spare
// capacity.
func (r *Request) GrowBody(n int) {
	r.body = slices.Grow(r.body, n)
}

// AppendBody appends a piece of raw content to the body accumulator.
func (r *Request) AppendBody(data []byte) {
	r.body = append(r.body, data...)
	r.hasBody = true
}

// SetBody replaces the accumulating body with an already-decoded value.
func (r *Request) SetBody(value any) {
	r.bodyValue = value
	r.hasBody = true
}

// Body returns the accumulated body: either the decoded value, if one was
// set, or the raw accumulated bytes.
func (r *Request) Body() (any, bool) {
	if !r.hasBody {
		return nil, false
	}

	if r.bodyValue != nil {
		return r.bodyValue, true
	}

	return r.body, true
}

// BodyBytes returns the raw body accumulator.
func (r *Request) BodyBytes() []byte {
	return r.body
}

// BeginResponse flips the request into the responding state. It reports
// whether the caller is the first (and thereby the only legitimate)
// response writer; once it returned true to somebody, no new handler
// execution for the request may start.
func (r *Request) BeginResponse() bool {
	return r.responding.CompareAndSwap(false, true)
}

// Responding tells whether the response has already begun streaming.
func (r *Request) Responding() bool {
	return r.responding.Load()
}

// RetractResponse releases the responding state after a transmission that
// delivered nothing to the peer, so error handling may answer instead.
// Only the writer holding the state may call it.
func (r *Request) RetractResponse() {
	r.responding.Store(false)
}
