package stream

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrClosed is reported to a producer trying to push into a pipe which was
// already completed or aborted.
var ErrClosed = errors.New("stream: pipe is closed")

// Source is the consuming side of a pipe with the element type erased. The
// response writer relies on it in order to stream bodies of arbitrary
// element types.
type Source interface {
	// Next blocks until the next element arrives and returns it. io.EOF
	// signals a clean completion, any other error aborts the stream.
	Next(ctx context.Context) (any, error)
}

// Pipe connects exactly one producer with exactly one consumer using
// credit-based flow control: the producer may not deliver an element until
// the consumer explicitly requests one, and at most a single element is
// ever in flight. This bounds memory use regardless of how fast the
// producer is.
//
// Neither side may be shared between goroutines.
type Pipe[T any] struct {
	demand chan struct{}
	items  chan T
	done   chan struct{}
	once   sync.Once
	err    error
}

func NewPipe[T any]() *Pipe[T] {
	return &Pipe[T]{
		// a single buffered slot, so the consumer can leave its credit
		// without blocking on the producer
		demand: make(chan struct{}, 1),
		items:  make(chan T),
		done:   make(chan struct{}),
	}
}

// Push delivers one element to the consumer. It blocks until the consumer
// grants a credit via Pull, the pipe is closed or the context is canceled.
func (p *Pipe[T]) Push(ctx context.Context, value T) error {
	select {
	case <-p.demand:
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case p.items <- value:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pull grants a single credit to the producer and blocks until the element
// arrives. A cleanly completed pipe results in io.EOF, an aborted one in
// the abort reason.
func (p *Pipe[T]) Pull(ctx context.Context) (value T, err error) {
	select {
	case p.demand <- struct{}{}:
	case <-p.done:
		return value, p.completionError()
	case <-ctx.Done():
		return value, ctx.Err()
	}

	select {
	case value = <-p.items:
		return value, nil
	case <-p.done:
		return value, p.completionError()
	case <-ctx.Done():
		return value, ctx.Err()
	}
}

// Close completes the pipe. The consumer observes io.EOF once all in-flight
// elements are consumed.
func (p *Pipe[T]) Close() {
	p.CloseWithError(nil)
}

// CloseWithError aborts the pipe with the passed reason. A nil reason is
// equivalent to Close. Safe to call multiple times; only the first reason
// wins.
func (p *Pipe[T]) CloseWithError(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

// Next implements Source.
func (p *Pipe[T]) Next(ctx context.Context) (any, error) {
	value, err := p.Pull(ctx)
	if err != nil {
		return nil, err
	}

	return value, nil
}

func (p *Pipe[T]) completionError() error {
	// reading p.err is safe here: it is always written before done is
	// closed, and we only ever read it after observing the close
	if p.err == nil {
		return io.EOF
	}

	return p.err
}
