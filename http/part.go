package http

import (
	"context"
	"io"

	"github.com/cobalt-web/cobalt/stream"
)

// Part represents one field of a multipart body as its own independently
// backpressured sub-stream. It exists only while the enclosing request is
// being consumed: the body processor feeds it piece by piece, the handler
// pulls from it, and it is completed once the upload (or the whole body
// stream) finishes.
type Part struct {
	Name     string
	Filename string
	pipe     *stream.Pipe[[]byte]
	stash    []byte
	pending  []byte
	err      error
}

func NewPart(name, filename string) *Part {
	return &Part{
		Name:     name,
		Filename: filename,
		pipe:     stream.NewPipe[[]byte](),
	}
}

// Next returns the next piece of the upload. io.EOF signals that the part
// is complete.
func (p *Part) Next(ctx context.Context) ([]byte, error) {
	if len(p.stash) > 0 {
		data := p.stash
		p.stash = nil
		return data, nil
	}

	return p.pipe.Pull(ctx)
}

// Read implements io.Reader over the part's pieces, so an upload can be
// drained with io.Copy and friends.
func (p *Part) Read(into []byte) (n int, err error) {
	if len(p.pending) == 0 && p.err == nil {
		p.pending, p.err = p.Next(context.Background())
	}

	n = copy(into, p.pending)
	p.pending = p.pending[n:]

	if len(p.pending) == 0 && p.err != nil {
		err = p.err
	}

	return n, err
}

// Feed delivers one piece to the consumer, blocking until it is pulled.
// Used by the body processor only.
func (p *Part) Feed(ctx context.Context, data []byte) error {
	return p.pipe.Push(ctx, data)
}

// Buffer stashes a piece to be consumed ahead of any fed ones. Unlike
// Feed it never blocks, so it is the only safe way to store data while
// no consumer exists yet. Must not be called concurrently with the
// consumer side.
func (p *Part) Buffer(data []byte) {
	if len(data) > 0 {
		p.stash = append(p.stash, data...)
	}
}

// Complete marks the upload as fully received.
func (p *Part) Complete() {
	p.pipe.Close()
}

// Abort terminates the part with an error, e.g. on connection closure. The
// consumer observes the reason instead of io.EOF.
func (p *Part) Abort(err error) {
	if err == nil {
		err = io.ErrUnexpectedEOF
	}

	p.pipe.CloseWithError(err)
}
