package record

import (
	"encoding/hex"
	"fmt"

	"github.com/Velocidex/ordereddict"

	"github.com/joshuapare/samkit/internal/buf"
	"github.com/joshuapare/samkit/pkg/filetime"
	"github.com/joshuapare/samkit/pkg/types"
)

// DecodeF decodes blob field by field in schema order. uint16 and uint32
// fields decode little-endian, filetime fields through filetime.Decode, and
// any other type as a lowercase hex string of its bytes. A field reaching
// past FSize or past the blob is a truncated-record error.
func DecodeF(blob []byte, schema FSchema) (*ordereddict.Dict, error) {
	out := ordereddict.NewDict()
	limit := min(len(blob), FSize)
	for _, f := range schema {
		size := f.Size
		if w, ok := typeWidth(f.Type); ok {
			size = w
		}
		if !buf.Within(f.Offset, size, limit) {
			return nil, truncated("F", f.Name, f.Offset, size, limit)
		}
		raw := blob[f.Offset : f.Offset+size]
		switch f.Type {
		case TypeUint16:
			out.Set(f.Name, buf.U16LE(raw))
		case TypeUint32:
			out.Set(f.Name, buf.U32LE(raw))
		case TypeFiletime:
			out.Set(f.Name, filetime.Decode(buf.U64LE(raw)))
		default:
			out.Set(f.Name, hex.EncodeToString(raw))
		}
	}
	return out, nil
}

func truncated(record, field string, off, size, limit int) error {
	return &types.Error{
		Kind: types.ErrKindTruncated,
		Msg: fmt.Sprintf("%s field %q: %d bytes at offset %d exceed %d-byte record",
			record, field, size, off, limit),
	}
}
