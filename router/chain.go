package router

import (
	"fmt"
	"sync/atomic"

	"github.com/cobalt-web/cobalt/http"
)

// Filter is a single request-processing stage. It may inspect the request,
// short-circuit by returning its own response without proceeding (the
// standard pattern for CORS, auth and the like), or call chain.Proceed()
// exactly once to pass control further down.
type Filter func(r *http.Request, chain *Chain) (*http.Response, error)

// Terminal produces the response of the innermost stage, i.e. the actual
// route execution.
type Terminal func() (*http.Response, error)

// Chain is an ordered, immutable list of filter stages plus a cursor. The
// terminal stage is appended automatically, so a chain of N filters
// performs exactly N+1 Proceed calls when nothing short-circuits.
type Chain struct {
	request  *http.Request
	filters  []Filter
	terminal Terminal
	pos      atomic.Int32
}

func NewChain(r *http.Request, filters []Filter, terminal Terminal) *Chain {
	return &Chain{
		request:  r,
		filters:  filters,
		terminal: terminal,
	}
}

// Proceed advances the chain exactly one position and runs the stage
// there. Invoking it more than once per stage is not a request failure but
// a broken filter definition, so it fails fast by panicking.
func (c *Chain) Proceed() (*http.Response, error) {
	pos := int(c.pos.Add(1))
	if pos > len(c.filters)+1 {
		panic(fmt.Sprintf(
			"router: Chain.Proceed must be invoked exactly once per filter execution, "+
				"but was invoked %d times across %d stages by an erroneous filter definition",
			pos, len(c.filters)+1,
		))
	}

	if pos == len(c.filters)+1 {
		return c.terminal()
	}

	return c.filters[pos-1](c.request, c)
}

// Proceeds returns how many stages were entered so far.
func (c *Chain) Proceeds() int {
	return int(c.pos.Load())
}
