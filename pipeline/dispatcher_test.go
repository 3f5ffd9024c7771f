package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cobalt-web/cobalt/http"
	"github.com/cobalt-web/cobalt/http/method"
	"github.com/cobalt-web/cobalt/http/mime"
	"github.com/cobalt-web/cobalt/http/status"
	"github.com/cobalt-web/cobalt/router"
)

func TestDispatch(t *testing.T) {
	t.Run("no route resolves to an empty 404", func(t *testing.T) {
		p := newTestPipeline(t, router.NewRegistry())
		client := new(fakeClient)

		p.OnRequest(newTestRequest(client, method.GET, "/missing"))

		require.Contains(t, client.Sent(), "HTTP/1.1 404 Not Found\r\n")
		require.Contains(t, client.Sent(), "Content-Length: 0\r\n")
		require.True(t, client.Closed())
	})

	t.Run("wrong method resolves to 405 with the allow list", func(t *testing.T) {
		r := router.NewRegistry().
			Post("/users", func(*http.Request, router.Args) (any, error) {
				return nil, nil
			}).
			Delete("/users", func(*http.Request, router.Args) (any, error) {
				return nil, nil
			})

		p := newTestPipeline(t, r)
		client := new(fakeClient)

		p.OnRequest(newTestRequest(client, method.GET, "/users"))

		require.Contains(t, client.Sent(), "HTTP/1.1 405 Method Not Allowed\r\n")
		require.Contains(t, client.Sent(), "Allow: POST,DELETE\r\n")
	})

	t.Run("options on a known path yields the allow list", func(t *testing.T) {
		r := router.NewRegistry().
			Post("/users", func(*http.Request, router.Args) (any, error) {
				return nil, nil
			})

		p := newTestPipeline(t, r)
		client := new(fakeClient)

		p.OnRequest(newTestRequest(client, method.OPTIONS, "/users"))

		require.Contains(t, client.Sent(), "HTTP/1.1 204 No Content\r\n")
		require.Contains(t, client.Sent(), "Allow: POST\r\n")
		require.False(t, client.Closed())
	})

	t.Run("status route wins over the options default", func(t *testing.T) {
		r := router.NewRegistry().
			Post("/users", func(*http.Request, router.Args) (any, error) {
				return nil, nil
			}).
			Status(status.MethodNotAllowed, func(r *http.Request, _ router.Args) (any, error) {
				return r.Respond().
					Code(status.MethodNotAllowed).
					Header("Allow", r.Env.AllowedMethods).
					String("custom mismatch"), nil
			})

		p := newTestPipeline(t, r)
		client := new(fakeClient)

		// the registered status route outranks the synthesized 204, even
		// for an OPTIONS capability query
		p.OnRequest(newTestRequest(client, method.OPTIONS, "/users"))

		require.Contains(t, client.Sent(), "HTTP/1.1 405 Method Not Allowed\r\n")
		require.Contains(t, client.Sent(), "Allow: POST\r\n")
		require.Contains(t, client.Sent(), "custom mismatch")
		require.NotContains(t, client.Sent(), "204")
	})

	t.Run("unconsumable content type resolves to 415", func(t *testing.T) {
		r := router.NewRegistry().
			Post("/users", func(*http.Request, router.Args) (any, error) {
				return nil, nil
			}, router.Consumes(mime.JSON))

		p := newTestPipeline(t, r)
		client := new(fakeClient)

		req := newTestRequest(client, method.POST, "/users")
		req.ContentType = mime.Plain
		p.OnRequest(req)

		require.Contains(t, client.Sent(), "HTTP/1.1 415 Unsupported Media Type\r\n")
	})

	t.Run("status route overrides the synthesized 404", func(t *testing.T) {
		r := router.NewRegistry().
			Status(status.NotFound, func(r *http.Request, _ router.Args) (any, error) {
				return r.Respond().Code(status.NotFound).String("nothing here"), nil
			})

		p := newTestPipeline(t, r)
		client := new(fakeClient)

		p.OnRequest(newTestRequest(client, method.GET, "/missing"))

		require.Contains(t, client.Sent(), "HTTP/1.1 404 Not Found\r\n")
		require.Contains(t, client.Sent(), "nothing here")
	})

	t.Run("status route overrides the synthesized 405", func(t *testing.T) {
		r := router.NewRegistry().
			Post("/users", func(*http.Request, router.Args) (any, error) {
				return nil, nil
			}).
			Status(status.MethodNotAllowed, func(r *http.Request, _ router.Args) (any, error) {
				return r.Respond().
					Code(status.MethodNotAllowed).
					Header("Allow", r.Env.AllowedMethods).
					String("try another method"), nil
			})

		p := newTestPipeline(t, r)
		client := new(fakeClient)

		p.OnRequest(newTestRequest(client, method.GET, "/users"))

		require.Contains(t, client.Sent(), "HTTP/1.1 405 Method Not Allowed\r\n")
		require.Contains(t, client.Sent(), "Allow: POST\r\n")
		require.Contains(t, client.Sent(), "try another method")
	})

	t.Run("matched handler runs off the caller goroutine", func(t *testing.T) {
		done := make(chan struct{})
		r := router.NewRegistry().
			Get("/", func(*http.Request, router.Args) (any, error) {
				close(done)
				return "hello", nil
			})

		p := newTestPipeline(t, r)
		client := new(fakeClient)

		p.OnRequest(newTestRequest(client, method.GET, "/"))

		<-done
		require.Contains(t, client.Sent(), "HTTP/1.1 200 OK\r\n")
		require.Contains(t, client.Sent(), "hello")
		require.False(t, client.Closed())
	})

	t.Run("filters wrap the execution", func(t *testing.T) {
		var order []string
		r := router.NewRegistry().
			Use(func(req *http.Request, chain *router.Chain) (*http.Response, error) {
				order = append(order, "filter")
				return chain.Proceed()
			}).
			Get("/", func(*http.Request, router.Args) (any, error) {
				order = append(order, "handler")
				return nil, nil
			})

		p := newTestPipeline(t, r)
		client := new(fakeClient)

		p.OnRequest(newTestRequest(client, method.GET, "/"))

		require.Equal(t, []string{"filter", "handler"}, order)
	})

	t.Run("filters apply to synthesized responses too", func(t *testing.T) {
		r := router.NewRegistry().
			Use(func(req *http.Request, chain *router.Chain) (*http.Response, error) {
				resp, err := chain.Proceed()
				if resp != nil {
					resp.Header("X-Filtered", "yes")
				}
				return resp, err
			})

		p := newTestPipeline(t, r)
		client := new(fakeClient)

		p.OnRequest(newTestRequest(client, method.GET, "/missing"))

		require.Contains(t, client.Sent(), "HTTP/1.1 404 Not Found\r\n")
		require.Contains(t, client.Sent(), "X-Filtered: yes\r\n")
	})

	t.Run("short-circuiting filter skips the handler", func(t *testing.T) {
		handlerRan := false
		r := router.NewRegistry().
			Use(func(req *http.Request, _ *router.Chain) (*http.Response, error) {
				return req.Respond().Code(status.Forbidden).String("denied"), nil
			}).
			Get("/", func(*http.Request, router.Args) (any, error) {
				handlerRan = true
				return nil, nil
			})

		p := newTestPipeline(t, r)
		client := new(fakeClient)

		p.OnRequest(newTestRequest(client, method.GET, "/"))

		require.False(t, handlerRan)
		require.Contains(t, client.Sent(), "HTTP/1.1 403 Forbidden\r\n")
	})

	t.Run("default headers are applied", func(t *testing.T) {
		p := newTestPipeline(t, router.NewRegistry())
		client := new(fakeClient)

		p.OnRequest(newTestRequest(client, method.GET, "/missing"))

		require.Contains(t, client.Sent(), "Server: cobalt\r\n")
	})
}
