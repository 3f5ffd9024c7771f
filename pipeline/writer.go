package pipeline

import (
	"context"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/cobalt-web/cobalt/codec"
	"github.com/cobalt-web/cobalt/http"
	"github.com/cobalt-web/cobalt/http/method"
	"github.com/cobalt-web/cobalt/http/mime"
	"github.com/cobalt-web/cobalt/http/status"
	"github.com/cobalt-web/cobalt/router"
	"github.com/cobalt-web/cobalt/stream"
	"github.com/cobalt-web/cobalt/transport"
)

const crlf = "\r\n"

// defaultErrorResponse is the terminal fallback for requests whose error
// handling itself failed. It carries no body on purpose.
const defaultErrorResponse = "HTTP/1.1 500 Internal Server Error" + crlf +
	"Content-Length: 0" + crlf + crlf

// write serializes the response and transmits it, picking buffered or
// chunked framing from the body shape. It always resolves the request:
// either the response goes out in full, or the connection is closed.
func (ex *exchange) write(resp *http.Response, route router.Match) {
	w := writer{
		ex:   ex,
		buff: make([]byte, 0, ex.p.cfg.NET.WriteBufferSize),
	}

	fields := resp.Expose()

	if src, ok := fields.Body.(stream.Source); ok {
		w.stream(fields, src, route)
		return
	}

	if fields.Chunked {
		w.stream(fields, &oneshot{value: fields.Body}, route)
		return
	}

	w.buffered(fields, route)
}

// writeDefaultError writes the bare 500 and closes the connection, unless
// the response already began streaming, in which case only the close is
// left to do.
func (ex *exchange) writeDefaultError() {
	req := ex.req

	if req.BeginResponse() {
		if err := req.Client().Write([]byte(defaultErrorResponse)); err != nil {
			ex.p.log.Debug("writing the fallback response failed", zap.Error(err))
		}
	}

	_ = req.Client().Close()
	ex.finish()
}

// fallbackCodec renders values no registered codec claims.
var fallbackCodec = codec.Text()

type writer struct {
	ex    *exchange
	buff  []byte
	began bool

	// true once at least one transmission succeeded; a later failure can
	// no longer be turned into a fresh error response
	delivered bool
}

// buffered encodes the whole body up front and sends the response in a
// single write with an exact Content-Length.
func (w *writer) buffered(fields *http.Fields, route router.Match) {
	respType := responseType(fields, route)

	body, err := w.encode(respType, fields.Body)
	if err != nil {
		// nothing went onto the wire yet, so the failure is still
		// classifiable into a proper error response
		w.ex.classify(errors.Wrap(err, "encoding response body"))
		return
	}

	if len(body) == 0 {
		respType = mime.Unset
	}

	w.head(fields, respType)
	w.buff = append(w.buff, "Content-Length: "...)
	w.buff = strconv.AppendInt(w.buff, int64(len(body)), 10)
	w.buff = append(w.buff, crlf+crlf...)

	if w.ex.req.Method != method.HEAD {
		w.buff = append(w.buff, body...)
	}

	if !w.flush() {
		return
	}

	w.close(fields.Code)
}

// stream sends the response with chunked framing, one frame per body
// element, pulling elements strictly one at a time.
func (w *writer) stream(fields *http.Fields, src stream.Source, route router.Match) {
	req := w.ex.req
	respType := responseType(fields, route)

	w.head(fields, respType)
	w.buff = append(w.buff, "Transfer-Encoding: chunked"+crlf+crlf...)

	if req.Method == method.HEAD {
		w.buff = append(w.buff, "0"+crlf+crlf...)
		if w.flush() {
			w.close(fields.Code)
		}
		return
	}

	if !w.flush() {
		return
	}

	for {
		value, err := src.Next(req.Ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				w.ex.p.log.Error("response stream aborted", zap.Error(err))
				w.abort()
				return
			}
			break
		}

		data, err := w.encode(respType, value)
		if err != nil {
			w.ex.p.log.Error("encoding a response stream element failed", zap.Error(err))
			w.abort()
			return
		}
		if len(data) == 0 {
			// a zero-length frame would terminate the stream prematurely
			continue
		}

		w.buff = strconv.AppendUint(w.buff[:0], uint64(len(data)), 16)
		w.buff = append(w.buff, crlf...)
		w.buff = append(w.buff, data...)
		w.buff = append(w.buff, crlf...)

		if !w.flush() {
			return
		}
	}

	w.buff = append(w.buff[:0], "0"+crlf+crlf...)

	// an event stream over a connection which cannot be kept alive ends
	// with a synthesized 204 head, so the client can tell a complete
	// stream from a torn connection
	if mime.Complies(mime.EventStream, respType) && !req.KeepAlive {
		w.buff = append(w.buff, "HTTP/1.1 204 No Content"+crlf+crlf...)
	}

	if !w.flush() {
		return
	}

	w.close(fields.Code)
}

// head renders the status line and everything above the framing headers.
func (w *writer) head(fields *http.Fields, respType mime.MIME) {
	w.buff = append(w.buff, "HTTP/1.1 "...)
	w.buff = strconv.AppendInt(w.buff, int64(fields.Code), 10)
	w.buff = append(w.buff, ' ')

	text := fields.Status
	if len(text) == 0 {
		text = status.Text(fields.Code)
	}
	w.buff = append(w.buff, string(text)...)
	w.buff = append(w.buff, crlf...)

	for key, value := range fields.Headers.Pairs() {
		w.buff = append(w.buff, key...)
		w.buff = append(w.buff, ": "...)
		w.buff = append(w.buff, value...)
		w.buff = append(w.buff, crlf...)
	}

	for key, value := range w.ex.p.cfg.Headers.Default {
		if fields.Headers.Has(key) {
			continue
		}

		w.buff = append(w.buff, key...)
		w.buff = append(w.buff, ": "...)
		w.buff = append(w.buff, value...)
		w.buff = append(w.buff, crlf...)
	}

	if len(respType) != 0 && !fields.Headers.Has("Content-Type") {
		w.buff = append(w.buff, "Content-Type: "...)
		w.buff = append(w.buff, respType...)
		w.buff = append(w.buff, crlf...)
	}
}

// encode turns a body value into wire bytes. Raw bytes pass through
// untouched; anything else runs through the negotiated codec on the
// encoding pool, keeping serialization off the connection loop.
func (w *writer) encode(respType mime.MIME, value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	default:
		value = v
	}

	c, ok := w.ex.p.codecs.Find(respType, value)
	if !ok {
		c = fallbackCodec
	}

	type outcome struct {
		data []byte
		err  error
	}

	out := make(chan outcome, 1)
	w.ex.p.io.Submit(func() {
		data, err := c.Encode(value)
		out <- outcome{data, err}
	})

	res := <-out
	return res.data, res.err
}

// flush transmits the accumulated buffer, claiming the first-writer slot
// on the initial call. It reports whether the caller may continue; on a
// failed transmission the request is already resolved.
func (w *writer) flush() bool {
	req := w.ex.req

	if !w.began {
		if !req.BeginResponse() {
			// somebody else already answered the request
			w.ex.finish()
			return false
		}
		w.began = true
	}

	err := req.Client().Write(w.buff)
	w.buff = w.buff[:0]

	if err == nil {
		w.delivered = true
		return true
	}

	if errors.Is(err, transport.ErrClosed) {
		// the peer went away; normal churn, not worth a word above debug
		w.ex.p.log.Debug("response discarded: connection is closed")
		w.abort()
		return false
	}

	if !w.delivered && req.Client().Writable() {
		// nothing reached the peer and the channel still accepts data:
		// release the writer slot and re-raise, so error handling gets a
		// chance to answer over the same connection
		w.ex.p.log.Error("writing the response failed", zap.Error(err))
		w.began = false
		req.RetractResponse()
		w.ex.classify(errors.Wrap(err, "writing the response"))
		return false
	}

	w.ex.p.log.Error("writing the response failed, the connection is unusable",
		zap.Error(err))
	w.abort()
	return false
}

func (w *writer) abort() {
	_ = w.ex.req.Client().Close()
	w.ex.finish()
}

// close applies the connection close policy and resolves the request. The
// connection survives only a successful response on a keep-alive request.
func (w *writer) close(code status.Code) {
	req := w.ex.req

	if !req.KeepAlive || code >= 300 {
		_ = req.Client().Close()
	}

	w.ex.finish()
}

// responseType resolves the Content-Type to respond with: an explicitly
// set one wins, then the first media type the route declares to produce,
// then JSON.
func responseType(fields *http.Fields, route router.Match) mime.MIME {
	if len(fields.ContentType) != 0 {
		return fields.ContentType
	}

	if produces := route.Produces(); len(produces) > 0 {
		return produces[0]
	}

	return mime.JSON
}

// oneshot adapts a single buffered value to the stream interface for
// responses with forced chunked framing.
type oneshot struct {
	value any
	spent bool
}

func (o *oneshot) Next(context.Context) (any, error) {
	if o.spent {
		return nil, io.EOF
	}

	o.spent = true
	return o.value, nil
}
