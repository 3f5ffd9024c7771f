package transport

import "errors"

// ErrClosed is the closed-channel condition: the peer went away and no
// further writes can succeed. It is expected under client disconnect and
// is generally swallowed rather than escalated.
var ErrClosed = errors.New("transport: connection is closed")

// Client is the write side of an established connection. Reading and
// parsing happen upstream; the pipeline only ever writes responses and
// decides when the connection must be closed.
type Client interface {
	// Write transmits the whole buffer or fails. A connection gone away
	// reports ErrClosed.
	Write(b []byte) error
	// Writable reports whether the connection can still accept data. Once
	// false, any pending failure is fatal and the connection must be
	// force-closed instead of being responded to.
	Writable() bool
	Close() error
}
