package record

import (
	"fmt"

	"github.com/Velocidex/ordereddict"
	"golang.org/x/text/encoding/unicode"

	"github.com/joshuapare/samkit/internal/buf"
	"github.com/joshuapare/samkit/pkg/filetime"
)

// VFieldResult reports where a V field was found as well as its value, so
// an investigator can check the decode against a hex view.
type VFieldResult struct {
	Field        string `json:"field"`
	Kind         string `json:"kind"`
	HeaderOffset int    `json:"header_offset"`
	// LengthOffset and DataOffset are -1 for timestamp fields.
	LengthOffset int `json:"length_offset"`
	DataOffset   int `json:"data_offset"`
	Length       int `json:"length"`
	Value        any `json:"value"`
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// DecodeV decodes blob in schema order into field -> value. Timestamp
// fields hold a filetime.Value and pointer fields a string.
func DecodeV(blob []byte, schema VSchema) (*ordereddict.Dict, error) {
	fields, err := DecodeVDetailed(blob, schema)
	if err != nil {
		return nil, err
	}
	out := ordereddict.NewDict()
	for _, f := range fields {
		out.Set(f.Field, f.Value)
	}
	return out, nil
}

// DecodeVDetailed decodes blob and reports the location of each field.
// Timestamp fields read 8 bytes at their header offset. Pointer fields read
// an (offset, length) pair there and decode length bytes at
// VHeaderSize+offset as UTF-16LE; a zero length yields "" without touching
// the data region.
func DecodeVDetailed(blob []byte, schema VSchema) ([]VFieldResult, error) {
	header := min(len(blob), VHeaderSize)
	out := make([]VFieldResult, 0, len(schema))
	for _, f := range schema {
		if !buf.Within(f.HeaderOffset, 8, header) {
			return nil, truncated("V", f.Name, f.HeaderOffset, 8, header)
		}
		res := VFieldResult{Field: f.Name, Kind: f.Kind, HeaderOffset: f.HeaderOffset}
		switch f.Kind {
		case KindTimestamp:
			res.LengthOffset, res.DataOffset, res.Length = -1, -1, 8
			res.Value = filetime.Decode(buf.U64LE(blob[f.HeaderOffset:]))
		case KindPointer:
			rel := buf.U32LE(blob[f.HeaderOffset:])
			length := buf.U32LE(blob[f.HeaderOffset+4:])
			res.LengthOffset = f.HeaderOffset + 4
			res.DataOffset = VHeaderSize + int(rel)
			res.Length = int(length)
			if length == 0 {
				res.Value = ""
				break
			}
			if uint64(VHeaderSize)+uint64(rel)+uint64(length) > uint64(len(blob)) {
				return nil, truncated("V", f.Name, res.DataOffset, res.Length, len(blob))
			}
			s, err := decodeUTF16(blob[res.DataOffset : res.DataOffset+res.Length])
			if err != nil {
				return nil, fmt.Errorf("V field %q: %w", f.Name, err)
			}
			res.Value = s
		default:
			return nil, fmt.Errorf("V field %q: unknown kind %q", f.Name, f.Kind)
		}
		out = append(out, res)
	}
	return out, nil
}

// decodeUTF16 drops a dangling odd byte; invalid surrogates become U+FFFD.
func decodeUTF16(b []byte) (string, error) {
	b = b[:len(b)&^1]
	s, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(s), nil
}
