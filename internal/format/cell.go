package format

import (
	"errors"
	"fmt"

	"github.com/joshuapare/samkit/internal/buf"
)

// Cell represents a single allocation (free or in-use) within an HBIN.
//
//	Offset  Size  Description
//	0x00    4     Signed size. Negative => allocated, positive => free.
//	              The absolute value includes the 4-byte header.
//	0x04    ...   Payload. First two bytes form the record tag when allocated.
type Cell struct {
	Size int  // Total size including header
	Free bool // True when the cell is marked as free
	Data []byte
}

// ParseCell decodes the cell starting at b[0]. The payload aliases b.
func ParseCell(b []byte) (Cell, error) {
	if len(b) < CellHeaderSize {
		return Cell{}, fmt.Errorf("cell: %w", ErrTruncated)
	}
	raw := buf.I32LE(b)
	if raw == 0 {
		return Cell{}, errors.New("cell: zero length")
	}
	size := int(raw)
	if raw < 0 {
		size = -size
	}
	if size < CellHeaderSize || size > len(b) {
		return Cell{}, fmt.Errorf("cell: declared size %d: %w", size, ErrTruncated)
	}
	return Cell{Size: size, Free: raw > 0, Data: b[CellHeaderSize:size]}, nil
}
