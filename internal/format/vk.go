package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/samkit/internal/buf"
)

// VKRecord models a value key record header. VK cells describe registry
// values and reference the data either inline or through another cell.
//
//	Offset  Size  Field
//	0x00    2     'v' 'k'
//	0x02    2     Name length
//	0x04    4     Data length (bit 31 => data stored inline)
//	0x08    4     Data offset, or the data itself when inline
//	0x0C    4     Value type
//	0x10    2     Flags (bit 0 => name stored as Windows-1252)
//	0x14    n     Name bytes
type VKRecord struct {
	NameLength uint16
	DataLength uint32
	DataOffset uint32
	Type       uint32
	Flags      uint16
	NameRaw    []byte
}

// NameIsASCII reports whether the name is stored as ANSI bytes.
func (vk VKRecord) NameIsASCII() bool {
	return vk.Flags&VKFlagASCIIName != 0
}

// DataInline reports whether the data is stored within the DataOffset field.
func (vk VKRecord) DataInline() bool {
	return vk.DataLength&VKDataInlineBit != 0
}

// Length returns the data length with the inline marker stripped.
func (vk VKRecord) Length() int {
	return int(vk.DataLength & VKDataLengthMask)
}

// DecodeVK decodes a VK record payload.
func DecodeVK(b []byte) (VKRecord, error) {
	if len(b) < VKMinSize {
		return VKRecord{}, fmt.Errorf("vk: %w (have %d, need %d)", ErrTruncated, len(b), VKMinSize)
	}
	if !bytes.Equal(b[:SignatureSize], VKSignature) {
		return VKRecord{}, fmt.Errorf("vk: %w", ErrSignatureMismatch)
	}
	vk := VKRecord{
		NameLength: buf.U16LE(b[VKNameLenOffset:]),
		DataLength: buf.U32LE(b[VKDataLenOffset:]),
		DataOffset: buf.U32LE(b[VKDataOffOffset:]),
		Type:       buf.U32LE(b[VKTypeOffset:]),
		Flags:      buf.U16LE(b[VKFlagsOffset:]),
	}
	if int(vk.NameLength) > MaxNameLen {
		return VKRecord{}, fmt.Errorf("vk name len %d exceeds limit %d: %w",
			vk.NameLength, MaxNameLen, ErrSanityLimit)
	}
	if vk.Length() > MaxValueDataLen {
		return VKRecord{}, fmt.Errorf("vk data len %d exceeds limit %d: %w",
			vk.Length(), MaxValueDataLen, ErrSanityLimit)
	}
	name, ok := buf.Slice(b, VKNameOffset, int(vk.NameLength))
	if !ok {
		return VKRecord{}, fmt.Errorf("vk name: %w (need %d bytes from %d, have %d)",
			ErrTruncated, vk.NameLength, VKNameOffset, len(b))
	}
	vk.NameRaw = name
	return vk, nil
}
