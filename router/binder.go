package router

import (
	"github.com/cobalt-web/cobalt/http"
)

// Binder fulfills the arguments of a match which are derivable without
// consuming the request body, e.g. header-bound inputs. Body-derived
// arguments are left unbound for the body stream processor.
type Binder interface {
	Fulfill(m Match, r *http.Request) Match
}

type headerBinder struct{}

// DefaultBinder binds KindHeader arguments from the request headers by
// name. Anything else stays for later fulfillment.
func DefaultBinder() Binder {
	return headerBinder{}
}

func (headerBinder) Fulfill(m Match, r *http.Request) Match {
	// iterate over a snapshot, as every Fulfill shrinks the required list
	// of the copy it returns
	for _, arg := range append([]Argument(nil), m.required...) {
		if arg.Kind != KindHeader {
			continue
		}

		if value, found := r.Headers.Get(arg.Name); found {
			m = m.Fulfill(arg.Name, value)
		}
	}

	return m
}
