package router

import (
	"github.com/cockroachdb/errors"

	"github.com/cobalt-web/cobalt/http"
	"github.com/cobalt-web/cobalt/http/mime"
	"github.com/cobalt-web/cobalt/http/status"
)

// Handler is the unit of work a route resolves to. The bound arguments of
// the match are passed alongside the request; the returned value is
// classified by the execution scheduler (nil becomes an empty 200, a
// *http.Response is taken as-is, anything else is encoded as a 200 body).
type Handler func(r *http.Request, args Args) (any, error)

// Args holds the values bound to the route's named inputs.
type Args map[string]any

// String returns the named input as a string, converting raw bytes if
// necessary.
func (a Args) String(name string) string {
	switch v := a[name].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// Bytes returns the named input as raw bytes.
func (a Args) Bytes(name string) []byte {
	switch v := a[name].(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}

// Part returns the named input as a streaming upload.
func (a Args) Part(name string) *http.Part {
	part, _ := a[name].(*http.Part)
	return part
}

// Kind tells a match how a required input can be satisfied.
type Kind uint8

const (
	// KindHeader is bound from a request header before the body is touched.
	KindHeader Kind = iota + 1
	// KindField is bound from a named form field of the body.
	KindField
	// KindUpload is bound from a file upload field as a streaming Part.
	KindUpload
	// KindBody is bound from the accumulated raw body on the terminal chunk.
	KindBody
)

// Argument is a single required named input of a route.
type Argument struct {
	Name string
	Kind Kind
}

// Match is the binding of a request to a specific handler plus its
// progressively-fulfilled arguments. It is an immutable value: every
// Fulfill returns a copy with one more input bound, and the caller threads
// the latest value explicitly. Partially-fulfilled states can therefore be
// discarded on error without corrupting anything shared.
type Match struct {
	handler     Handler
	declaring   string
	consumes    []mime.MIME
	produces    []mime.MIME
	required    []Argument
	bound       Args
	executorKey string
}

// Executable reports whether every required input is bound.
func (m Match) Executable() bool {
	return m.handler != nil && len(m.required) == 0
}

// Zero reports whether the match is the zero value, i.e. no route at all.
func (m Match) Zero() bool {
	return m.handler == nil
}

// RequiredInput returns the still-unbound argument with the name.
func (m Match) RequiredInput(name string) (Argument, bool) {
	for _, arg := range m.required {
		if arg.Name == name {
			return arg, true
		}
	}

	return Argument{}, false
}

// BodyArgument returns the argument fed by the accumulated raw body, if
// the route declares one and it is still unbound.
func (m Match) BodyArgument() (Argument, bool) {
	for _, arg := range m.required {
		if arg.Kind == KindBody {
			return arg, true
		}
	}

	return Argument{}, false
}

// Fulfill binds one more input and returns the updated match. The receiver
// is left untouched.
func (m Match) Fulfill(name string, value any) Match {
	required := make([]Argument, 0, len(m.required))
	for _, arg := range m.required {
		if arg.Name != name {
			required = append(required, arg)
		}
	}

	bound := make(Args, len(m.bound)+1)
	for k, v := range m.bound {
		bound[k] = v
	}
	bound[name] = value

	m.required = required
	m.bound = bound

	return m
}

// Accepts reports whether the route consumes the passed content type. A
// route without declared consumable types accepts anything.
func (m Match) Accepts(contentType mime.MIME) bool {
	if len(m.consumes) == 0 {
		return true
	}

	for _, c := range m.consumes {
		if mime.Complies(c, contentType) {
			return true
		}
	}

	return false
}

// Produces returns the ordered list of media types the route can produce.
func (m Match) Produces() []mime.MIME {
	return m.produces
}

// Declaring returns the name of the handler type the route was declared
// on. Used to scope error routes.
func (m Match) Declaring() string {
	return m.declaring
}

// ExecutorKey returns the route's executor assignment, if any.
func (m Match) ExecutorKey() string {
	return m.executorKey
}

// Execute invokes the handler with the bound arguments. Calling it on a
// non-executable match is a contract violation mapped to a bad request.
func (m Match) Execute(r *http.Request) (any, error) {
	if !m.Executable() {
		name := ""
		if len(m.required) > 0 {
			name = m.required[0].Name
		}

		return nil, errors.Wrapf(status.ErrUnsatisfiedInput, "argument %q", name)
	}

	return m.handler(r, m.bound)
}
