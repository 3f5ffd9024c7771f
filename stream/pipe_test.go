package stream

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPipe(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers elements in order", func(t *testing.T) {
		pipe := NewPipe[int]()

		go func() {
			for i := 0; i < 5; i++ {
				require.NoError(t, pipe.Push(ctx, i))
			}
			pipe.Close()
		}()

		for i := 0; i < 5; i++ {
			value, err := pipe.Pull(ctx)
			require.NoError(t, err)
			require.Equal(t, i, value)
		}

		_, err := pipe.Pull(ctx)
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("push blocks until a credit is granted", func(t *testing.T) {
		pipe := NewPipe[string]()
		pushed := make(chan struct{})

		go func() {
			require.NoError(t, pipe.Push(ctx, "hello"))
			close(pushed)
		}()

		select {
		case <-pushed:
			require.Fail(t, "push completed without a pull")
		case <-time.After(20 * time.Millisecond):
		}

		value, err := pipe.Pull(ctx)
		require.NoError(t, err)
		require.Equal(t, "hello", value)
		<-pushed
	})

	t.Run("abort reason reaches the consumer", func(t *testing.T) {
		pipe := NewPipe[int]()
		reason := errors.New("upstream blew up")
		pipe.CloseWithError(reason)

		_, err := pipe.Pull(ctx)
		require.ErrorIs(t, err, reason)
	})

	t.Run("first close reason wins", func(t *testing.T) {
		pipe := NewPipe[int]()
		pipe.Close()
		pipe.CloseWithError(errors.New("too late"))

		_, err := pipe.Pull(ctx)
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("push into a closed pipe fails", func(t *testing.T) {
		pipe := NewPipe[int]()
		pipe.Close()

		require.ErrorIs(t, pipe.Push(ctx, 1), ErrClosed)
	})

	t.Run("pull honors context cancellation", func(t *testing.T) {
		pipe := NewPipe[int]()
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := pipe.Pull(canceled)
		require.ErrorIs(t, err, context.Canceled)
	})
}

// The single-credit invariant: no matter how pushes and pulls interleave,
// the consumer observes exactly the pushed sequence and the producer is
// never more than one element ahead.
func TestPipeSingleCredit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		elements := rapid.SliceOfN(rapid.Int(), 0, 64).Draw(t, "elements")

		pipe := NewPipe[int]()
		var delivered int

		go func() {
			for _, el := range elements {
				if pipe.Push(ctx, el) != nil {
					return
				}
			}
			pipe.Close()
		}()

		for {
			value, err := pipe.Pull(ctx)
			if err != nil {
				require.ErrorIs(t, err, io.EOF)
				break
			}

			require.Equal(t, elements[delivered], value)
			delivered++
		}

		require.Equal(t, len(elements), delivered)
	})
}
