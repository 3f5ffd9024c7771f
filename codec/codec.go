// Package codec implements media type negotiation around body codecs. Only
// the negotiation and the two baseline codecs (JSON and plain text) live
// here; anything more specific is registered by the surrounding
// application.
package codec

import (
	"github.com/samber/lo"

	"github.com/cobalt-web/cobalt/http/mime"
)

// Codec encodes response body values of a specific media type.
type Codec interface {
	// MIME returns the media type the codec produces.
	MIME() mime.MIME
	// Supports reports whether the codec can encode the concrete value.
	Supports(value any) bool
	Encode(value any) ([]byte, error)
}

// Registry holds the codecs available for response encoding. It is built
// once, shared across connections and never mutated afterwards.
type Registry struct {
	codecs []Codec
}

func NewRegistry(codecs ...Codec) *Registry {
	return &Registry{codecs: codecs}
}

// Find returns a codec matching both the negotiated media type and the
// concrete value.
func (r *Registry) Find(m mime.MIME, value any) (Codec, bool) {
	return lo.Find(r.codecs, func(c Codec) bool {
		return mime.Complies(c.MIME(), m) && c.Supports(value)
	})
}
