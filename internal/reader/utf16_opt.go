package reader

import (
	"strings"
	"unicode/utf16"
)

// decodeUTF16LE decodes UTF-16LE bytes to UTF-8. Key names are nearly always
// ASCII, so that case skips rune decoding entirely.
func decodeUTF16LE(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	allASCII := true
	for i := 0; i+1 < len(data); i += 2 {
		if data[i+1] != 0 || data[i] >= 0x80 {
			allASCII = false
			break
		}
	}
	if allASCII {
		var b strings.Builder
		b.Grow(len(data) / 2)
		for i := 0; i+1 < len(data); i += 2 {
			b.WriteByte(data[i])
		}
		return b.String()
	}

	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = uint16(data[2*i]) | uint16(data[2*i+1])<<8
	}
	return string(utf16.Decode(units))
}
