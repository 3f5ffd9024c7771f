package pipeline

import (
	"sync"
	"testing"

	"github.com/cobalt-web/cobalt/config"
	"github.com/cobalt-web/cobalt/http"
	"github.com/cobalt-web/cobalt/http/method"
	"github.com/cobalt-web/cobalt/kv"
	"github.com/cobalt-web/cobalt/router"
	"github.com/cobalt-web/cobalt/transport"
)

// fakeClient records everything the pipeline writes. Response writing may
// happen off the test goroutine, so access is synchronized; reads are only
// meaningful after OnRequest returned.
type fakeClient struct {
	mu   sync.Mutex
	data []byte

	// consumed one per write, in order; a nil entry means the write goes
	// through, an exhausted queue means every write goes through
	writeErrs  []error
	closed     bool
	unwritable bool
}

func (c *fakeClient) Write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.writeErrs) > 0 {
		err := c.writeErrs[0]
		c.writeErrs = c.writeErrs[1:]
		if err != nil {
			return err
		}
	}
	if c.closed {
		return transport.ErrClosed
	}

	c.data = append(c.data, b...)
	return nil
}

func (c *fakeClient) Writable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.unwritable && !c.closed
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return nil
}

func (c *fakeClient) Sent() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return string(c.data)
}

func (c *fakeClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func newTestRequest(client transport.Client, m method.Method, path string) *http.Request {
	req := http.NewRequest(client, kv.New())
	req.Method = m
	req.Path = path
	req.KeepAlive = true

	return req
}

func newTestConfig() *config.Config {
	return config.Default()
}

func newTestPipeline(t *testing.T, r router.Router, opts ...Option) *Pipeline {
	t.Helper()

	p := New(r, opts...)
	t.Cleanup(p.Close)

	return p
}
