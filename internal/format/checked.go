package format

import (
	"fmt"

	"github.com/joshuapare/samkit/internal/buf"
)

// CheckedReadU16 reads a little-endian uint16 at off, failing with
// ErrTruncated instead of returning a zero value.
func CheckedReadU16(b []byte, off int) (uint16, error) {
	s, ok := buf.Slice(b, off, 2)
	if !ok {
		return 0, fmt.Errorf("u16 at %d: %w", off, ErrTruncated)
	}
	return buf.U16LE(s), nil
}

// CheckedReadU32 reads a little-endian uint32 at off.
func CheckedReadU32(b []byte, off int) (uint32, error) {
	s, ok := buf.Slice(b, off, 4)
	if !ok {
		return 0, fmt.Errorf("u32 at %d: %w", off, ErrTruncated)
	}
	return buf.U32LE(s), nil
}

// CheckedReadU64 reads a little-endian uint64 at off.
func CheckedReadU64(b []byte, off int) (uint64, error) {
	s, ok := buf.Slice(b, off, 8)
	if !ok {
		return 0, fmt.Errorf("u64 at %d: %w", off, ErrTruncated)
	}
	return buf.U64LE(s), nil
}
