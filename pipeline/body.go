package pipeline

import (
	"io"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/cobalt-web/cobalt/http"
	"github.com/cobalt-web/cobalt/http/status"
	"github.com/cobalt-web/cobalt/router"
)

type bodyState uint8

const (
	awaitingData bodyState = iota
	accumulatingPart
	executedState
)

// bodyProcessor consumes the request's chunk stream unit by unit,
// fulfilling the route's required inputs until it becomes executable. It
// requests exactly one chunk at a time: resuming the pull is the sole
// mechanism advancing the byte stream, so a stalled handler never causes
// unbounded buffering.
type bodyProcessor struct {
	ex    *exchange
	route router.Match
	part  *http.Part
	state bodyState

	// flipped exactly once; overlapping terminal-chunk and executability
	// triggers race to it, only the winner starts the execution
	executed atomic.Bool
}

func newBodyProcessor(ex *exchange, route router.Match) *bodyProcessor {
	ex.req.GrowBody(ex.p.cfg.Body.AccumulatorPrealloc)

	return &bodyProcessor{
		ex:    ex,
		route: route,
	}
}

func (b *bodyProcessor) run() {
	req := b.ex.req

	for {
		chunk, err := req.Chunks.Pull(req.Ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			b.complete()
			b.closePart()
			return
		default:
			// the producer failed: report it upstream as a pipeline
			// exception instead of silently dropping the request
			b.abort(err)
			return
		}

		if done := b.onChunk(chunk); done {
			return
		}
	}
}

func (b *bodyProcessor) onChunk(chunk http.Chunk) (done bool) {
	req := b.ex.req
	executed := b.executed.Load()

	if chunk.IsForm() {
		switch {
		case b.part != nil:
			if b.part.Name != chunk.Name {
				// a protocol violation by the producer, not by us: treat
				// the stream as completed
				b.complete()
				b.closePart()
				return true
			}

			if executed {
				// the handler is pulling: deliver under flow control
				if len(chunk.Data) > 0 {
					if err := b.feed(b.part, chunk.Data); err != nil {
						b.abort(err)
						return true
					}
				}
			} else {
				// no consumer exists yet, a blocking feed would stall the
				// pull loop forever: stash inside the part instead, the
				// handler drains the stash on its first read
				b.part.Buffer(chunk.Data)
			}

			if chunk.FieldComplete {
				b.closePart()
			}
		case executed:
			// a fresh field after the execution started: nothing left to
			// fulfill, treat the stream as completed
			b.complete()
			return true
		default:
			arg, required := b.route.RequiredInput(chunk.Name)
			switch {
			case !required:
				// the route has no use for the field, keep it as raw body
				if !b.accumulate(chunk.Data) {
					return true
				}
			case arg.Kind == router.KindUpload && chunk.IsUpload():
				b.part = http.NewPart(chunk.Name, chunk.Filename)
				b.state = accumulatingPart
				b.route = b.route.Fulfill(chunk.Name, b.part)
				b.part.Buffer(chunk.Data)

				if chunk.FieldComplete {
					b.closePart()
				}
			default:
				b.route = b.route.Fulfill(chunk.Name, chunk.Data)
			}
		}
	} else {
		if executed {
			// the handler already runs and may be reading the accumulator;
			// late raw content is drained, not stored
			return false
		}

		if !b.accumulate(chunk.Data) {
			return true
		}

		if !b.route.Executable() && chunk.Last {
			// the terminal chunk was seen and the route still awaits a
			// body argument: bind whatever has accumulated
			if arg, ok := b.route.BodyArgument(); ok {
				b.route = b.route.Fulfill(arg.Name, req.BodyBytes())
			}
		}
	}

	if !executed && (b.route.Executable() || chunk.Last) {
		// enough data to satisfy the route
		b.complete()
	}

	return false
}

// complete transitions to the executed state and starts the downstream
// execution, exactly once no matter how many triggers race to it.
func (b *bodyProcessor) complete() {
	if b.executed.CompareAndSwap(false, true) {
		b.state = executedState
		route := b.route

		// the execution must not block the pull loop: an open part is
		// still fed by it while the handler is already running
		go b.ex.execute(route)
	}
}

func (b *bodyProcessor) feed(part *http.Part, data []byte) error {
	return part.Feed(b.ex.req.Ctx, data)
}

func (b *bodyProcessor) closePart() {
	if b.part == nil {
		return
	}

	b.part.Complete()
	b.part = nil

	if b.executed.Load() {
		b.state = executedState
	} else {
		b.state = awaitingData
	}
}

func (b *bodyProcessor) accumulate(data []byte) bool {
	req, cfg := b.ex.req, b.ex.p.cfg

	if uint(len(req.BodyBytes())+len(data)) > cfg.Body.MaxSize {
		b.abort(status.ErrBodyTooLarge)
		return false
	}

	req.AppendBody(data)

	return true
}

func (b *bodyProcessor) abort(err error) {
	if b.part != nil {
		b.part.Abort(err)
		b.part = nil
	}

	b.ex.classify(err)
}
