package codec

import (
	"fmt"

	"github.com/cobalt-web/cobalt/http/mime"
)

type textCodec struct{}

// Text returns the plain text codec. It accepts any value and is used as
// the fallback when no registered codec matches the negotiated media type.
func Text() Codec {
	return textCodec{}
}

func (textCodec) MIME() mime.MIME {
	return mime.Plain
}

func (textCodec) Supports(any) bool {
	return true
}

func (textCodec) Encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case fmt.Stringer:
		return []byte(v.String()), nil
	case error:
		return []byte(v.Error()), nil
	default:
		return fmt.Appendf(nil, "%v", value), nil
	}
}
