package http

import (
	"errors"

	"github.com/cobalt-web/cobalt/http/mime"
	"github.com/cobalt-web/cobalt/http/status"
	"github.com/cobalt-web/cobalt/kv"
)

// why 7? Seems to be a reasonable seat count for an average response.
const preallocHeaders = 7

// Fields is the underlying state of a response builder, exposed to the
// response writer.
type Fields struct {
	Code        status.Code
	Status      status.Status
	Headers     *kv.Storage
	ContentType mime.MIME
	// Body is the value to be encoded. May be a raw []byte, a
	// stream.Source for chunked transfer, or any codec-encodable value.
	Body any
	// Chunked forces chunked framing even for a single buffered value.
	Chunked bool
}

// Response is a builder for an HTTP response. It stays mutable until the
// first byte of it is written to the transport; the pipeline never touches
// it afterwards.
type Response struct {
	fields Fields
}

// NewResponse returns a response builder with the status code set to
// 200 OK and no body.
func NewResponse() *Response {
	return &Response{
		fields: Fields{
			Code:    status.OK,
			Headers: kv.NewPrealloc(preallocHeaders),
		},
	}
}

// Code sets the response code.
func (r *Response) Code(code status.Code) *Response {
	r.fields.Code = code
	return r
}

// Status sets a custom status text. Usually there is no reason to, as the
// standard text is derived from the code.
func (r *Response) Status(s status.Status) *Response {
	r.fields.Status = s
	return r
}

// ContentType sets a custom Content-Type value.
func (r *Response) ContentType(value mime.MIME) *Response {
	r.fields.ContentType = value
	return r
}

// Header adds a header to the response. Values of an already existing key
// are appended, not replaced.
func (r *Response) Header(key string, values ...string) *Response {
	for _, value := range values {
		r.fields.Headers.Add(key, value)
	}

	return r
}

// Body sets the response body value. What exactly ends up on the wire is
// decided by the response writer: streams are framed chunk by chunk, raw
// bytes pass through, anything else is run through a codec.
func (r *Response) Body(value any) *Response {
	r.fields.Body = value
	return r
}

// String is a shorthand for a plain text body.
func (r *Response) String(body string) *Response {
	r.fields.Body = []byte(body)
	if len(r.fields.ContentType) == 0 {
		r.fields.ContentType = mime.Plain
	}

	return r
}

// Chunked forces chunked transfer framing regardless of the body shape.
func (r *Response) Chunked() *Response {
	r.fields.Chunked = true
	return r
}

// Error sets the code from the passed error and its message as a plain
// text body. Non-HTTP errors are rendered as a bare 500 without the
// message, in order to not leak internals.
func (r *Response) Error(err error) *Response {
	r.Code(status.CodeOf(err))

	var httpErr status.HTTPError
	if errors.As(err, &httpErr) {
		r.String(httpErr.Message)
	}

	return r
}

// Expose exposes the underlying response fields.
func (r *Response) Expose() *Fields {
	return &r.fields
}

// Clear resets the builder to its initial state.
func (r *Response) Clear() *Response {
	r.fields = Fields{
		Code:    status.OK,
		Headers: r.fields.Headers.Clear(),
	}

	return r
}
