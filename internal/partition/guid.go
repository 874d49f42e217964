package partition

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/joshuapare/samkit/internal/buf"
)

// guidString renders an on-disk GUID (first three groups little-endian).
func guidString(b []byte) string {
	return fmt.Sprintf("%08X-%04X-%04X-%X-%X",
		buf.U32LE(b[0:]), buf.U16LE(b[4:]), buf.U16LE(b[6:]), b[8:10], b[10:16])
}

func utf16Name(b []byte) string {
	codes := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		c := buf.U16LE(b[i:])
		if c == 0 {
			break
		}
		codes = append(codes, c)
	}
	return strings.TrimSpace(string(utf16.Decode(codes)))
}
