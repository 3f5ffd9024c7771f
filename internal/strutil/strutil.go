package strutil

import "strings"

// CmpFold compares two strings case-insensitively. Works correctly only
// for ASCII, which headers and media types are guaranteed to be.
func CmpFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i]|0x20 != b[i]|0x20 {
			return false
		}
	}

	return true
}

func LStripWS(str string) string {
	for i, c := range str {
		switch c {
		case ' ', '\t':
		default:
			return str[i:]
		}
	}

	return ""
}

// CutHeader splits a header value into the value itself and its parameters,
// e.g. "text/html; charset=utf-8" yields ("text/html", "charset=utf-8").
func CutHeader(header string) (value, params string) {
	sep := strings.IndexByte(header, ';')
	if sep == -1 {
		return header, ""
	}

	return header[:sep], LStripWS(header[sep+1:])
}
