package packet

import (
	"golang.org/x/text/encoding/charmap"
	"strings"
	"unicode/utf8"
)

// DecodeLine decodes a received line as UTF-8, falling back to ISO-8859-1
// when the bytes are not valid UTF-8.
func DecodeLine(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uffff")
	}
	return string(s)
}

// EncodeLine renders a line for transmission as strict UTF-8.
func EncodeLine(s string) []byte {
	return []byte(strings.ToValidUTF8(s, "?"))
}
