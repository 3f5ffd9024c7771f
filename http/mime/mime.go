package mime

import (
	"github.com/cobalt-web/cobalt/internal/strutil"
)

type MIME = string

const (
	Unset          MIME = ""
	OctetStream    MIME = "application/octet-stream"
	Plain          MIME = "text/plain"
	HTML           MIME = "text/html"
	XML            MIME = "text/xml"
	JSON           MIME = "application/json"
	YAML           MIME = "application/yaml"
	FormUrlencoded MIME = "application/x-www-form-urlencoded"
	Multipart      MIME = "multipart/form-data"
	EventStream    MIME = "text/event-stream"
)

// Complies returns whether two MIMEs are compatible. Empty MIME is
// considered compatible with any other MIME.
func Complies(mime MIME, with string) bool {
	// get rid of parameters if any
	with, _ = strutil.CutHeader(with)
	return len(with) == 0 || strutil.CmpFold(with, mime)
}
