package format

import (
	"encoding/binary"
	"errors"
	"testing"
)

func buildVK(name string, dataLen, dataOff, typ uint32) []byte {
	b := make([]byte, VKNameOffset+len(name))
	copy(b, VKSignature)
	binary.LittleEndian.PutUint16(b[VKNameLenOffset:], uint16(len(name)))
	binary.LittleEndian.PutUint32(b[VKDataLenOffset:], dataLen)
	binary.LittleEndian.PutUint32(b[VKDataOffOffset:], dataOff)
	binary.LittleEndian.PutUint32(b[VKTypeOffset:], typ)
	if name != "" {
		binary.LittleEndian.PutUint16(b[VKFlagsOffset:], VKFlagASCIIName)
	}
	copy(b[VKNameOffset:], name)
	return b
}

func TestDecodeVK(t *testing.T) {
	vk, err := DecodeVK(buildVK("F", 0x50, 0x400, 3))
	if err != nil {
		t.Fatalf("DecodeVK: %v", err)
	}
	if string(vk.NameRaw) != "F" || !vk.NameIsASCII() {
		t.Fatalf("name = %q", vk.NameRaw)
	}
	if vk.DataInline() || vk.Length() != 0x50 || vk.DataOffset != 0x400 || vk.Type != 3 {
		t.Fatalf("unexpected record: %+v", vk)
	}
}

func TestDecodeVKInlineDefault(t *testing.T) {
	// The Names index stores the RID in the type field of an empty default value.
	vk, err := DecodeVK(buildVK("", VKDataInlineBit, 0, 0x3E8))
	if err != nil {
		t.Fatalf("DecodeVK: %v", err)
	}
	if !vk.DataInline() || vk.Length() != 0 {
		t.Fatalf("expected empty inline data: %+v", vk)
	}
	if vk.Type != 0x3E8 || len(vk.NameRaw) != 0 {
		t.Fatalf("unexpected record: %+v", vk)
	}
}

func TestDecodeVKErrors(t *testing.T) {
	overrun := buildVK("V", 4, 0, 3)
	binary.LittleEndian.PutUint16(overrun[VKNameLenOffset:], 9)

	huge := buildVK("V", MaxValueDataLen+1, 0, 3)

	if _, err := DecodeVK([]byte("vk")); !errors.Is(err, ErrTruncated) {
		t.Fatalf("short: %v", err)
	}
	if _, err := DecodeVK(overrun); !errors.Is(err, ErrTruncated) {
		t.Fatalf("overrun: %v", err)
	}
	if _, err := DecodeVK(huge); !errors.Is(err, ErrSanityLimit) {
		t.Fatalf("huge: %v", err)
	}
}
