package codec

import (
	json "github.com/json-iterator/go"

	"github.com/cobalt-web/cobalt/http/mime"
)

type jsonCodec struct{}

// JSON returns a codec encoding arbitrary values as application/json.
func JSON() Codec {
	return jsonCodec{}
}

func (jsonCodec) MIME() mime.MIME {
	return mime.JSON
}

func (jsonCodec) Supports(any) bool {
	return true
}

func (jsonCodec) Encode(value any) ([]byte, error) {
	return json.ConfigDefault.Marshal(value)
}
