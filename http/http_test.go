package http

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cobalt-web/cobalt/http/mime"
	"github.com/cobalt-web/cobalt/http/status"
	"github.com/cobalt-web/cobalt/kv"
)

func TestResponseBuilder(t *testing.T) {
	t.Run("defaults to an empty 200", func(t *testing.T) {
		fields := NewResponse().Expose()

		require.Equal(t, status.OK, fields.Code)
		require.Nil(t, fields.Body)
	})

	t.Run("string sets the content type only when unset", func(t *testing.T) {
		require.Equal(t, mime.Plain, NewResponse().String("hi").Expose().ContentType)
		require.Equal(t, mime.HTML,
			NewResponse().ContentType(mime.HTML).String("<p>hi</p>").Expose().ContentType)
	})

	t.Run("error renders http errors with their message", func(t *testing.T) {
		fields := NewResponse().Error(status.ErrNotFound).Expose()

		require.Equal(t, status.NotFound, fields.Code)
		require.Equal(t, []byte("not found"), fields.Body)
	})

	t.Run("error hides non-http causes", func(t *testing.T) {
		fields := NewResponse().Error(io.ErrClosedPipe).Expose()

		require.Equal(t, status.InternalServerError, fields.Code)
		require.Nil(t, fields.Body)
	})

	t.Run("clear resets everything but keeps the header storage", func(t *testing.T) {
		resp := NewResponse().
			Code(status.Teapot).
			Header("X-Custom", "value").
			String("body")

		fields := resp.Clear().Expose()
		require.Equal(t, status.OK, fields.Code)
		require.Nil(t, fields.Body)
		require.True(t, fields.Headers.Empty())
	})
}

func TestRequest(t *testing.T) {
	t.Run("body accumulates", func(t *testing.T) {
		req := NewRequest(nil, kv.New())

		_, has := req.Body()
		require.False(t, has)

		req.AppendBody([]byte("hel"))
		req.AppendBody([]byte("lo"))

		body, has := req.Body()
		require.True(t, has)
		require.Equal(t, []byte("hello"), body)
		require.Equal(t, []byte("hello"), req.BodyBytes())
	})

	t.Run("decoded body value wins over raw bytes", func(t *testing.T) {
		req := NewRequest(nil, kv.New())
		req.AppendBody([]byte("{}"))
		req.SetBody(map[string]any{})

		body, has := req.Body()
		require.True(t, has)
		require.Equal(t, map[string]any{}, body)
	})

	t.Run("only the first writer may begin the response", func(t *testing.T) {
		req := NewRequest(nil, kv.New())

		require.False(t, req.Responding())
		require.True(t, req.BeginResponse())
		require.False(t, req.BeginResponse())
		require.True(t, req.Responding())
	})
}

func TestPart(t *testing.T) {
	ctx := context.Background()

	t.Run("reads fed pieces in order", func(t *testing.T) {
		part := NewPart("file", "f.txt")

		go func() {
			require.NoError(t, part.Feed(ctx, []byte("hel")))
			require.NoError(t, part.Feed(ctx, []byte("lo")))
			part.Complete()
		}()

		content, err := io.ReadAll(part)
		require.NoError(t, err)
		require.Equal(t, "hello", string(content))
	})

	t.Run("abort reason reaches the reader", func(t *testing.T) {
		part := NewPart("file", "f.txt")
		part.Abort(io.ErrUnexpectedEOF)

		_, err := io.ReadAll(part)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("abort without a reason defaults to unexpected EOF", func(t *testing.T) {
		part := NewPart("file", "f.txt")
		part.Abort(nil)

		_, err := io.ReadAll(part)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}
