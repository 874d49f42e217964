package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/samkit/internal/buf"
)

// SubkeyList is a decoded subkey list cell. For LI/LF/LH leaves Offsets are
// NK cell offsets; for RI roots they point at further leaf lists.
type SubkeyList struct {
	Indirect bool
	Offsets  []uint32
}

// DecodeSubkeyList decodes any of the four subkey list variants. LF/LH name
// hints are skipped because callers compare decoded names.
func DecodeSubkeyList(b []byte) (SubkeyList, error) {
	if len(b) < ListHeaderSize {
		return SubkeyList{}, fmt.Errorf("subkey list: %w", ErrTruncated)
	}
	sig := b[:SignatureSize]
	count := int(buf.U16LE(b[SignatureSize:]))
	body := b[ListHeaderSize:]

	var stride int
	indirect := false
	switch {
	case bytes.Equal(sig, LFSignature), bytes.Equal(sig, LHSignature):
		stride = LFEntrySize
	case bytes.Equal(sig, LISignature):
		stride = OffsetFieldSize
	case bytes.Equal(sig, RISignature):
		stride = OffsetFieldSize
		indirect = true
	default:
		return SubkeyList{}, fmt.Errorf("subkey list %q: %w", sig, ErrUnsupported)
	}
	if !buf.Has(body, 0, count*stride) {
		return SubkeyList{}, fmt.Errorf("subkey list %q count %d: %w", sig, count, ErrTruncated)
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = buf.U32LE(body[i*stride:])
	}
	return SubkeyList{Indirect: indirect, Offsets: out}, nil
}

// DecodeValueList decodes a value list containing offsets to VK records.
func DecodeValueList(b []byte, count uint32) ([]uint32, error) {
	need := int(count) * OffsetFieldSize
	if need == 0 {
		return nil, nil
	}
	if len(b) < need {
		return nil, fmt.Errorf("value list: %w", ErrTruncated)
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = buf.U32LE(b[i*OffsetFieldSize:])
	}
	return out, nil
}
