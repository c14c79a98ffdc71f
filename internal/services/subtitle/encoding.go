package subtitle

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeToUTF8 normalizes a raw subtitle payload to UTF-8. Valid UTF-8 passes
// through; anything else is treated as Windows-1252, the usual encoding of
// legacy caption files. Undecodable input is returned as-is.
func DecodeToUTF8(payload []byte) string {
	if utf8.Valid(payload) {
		return string(payload)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(payload)
	if err != nil {
		return string(payload)
	}
	return string(decoded)
}
