package format

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestParseHeader(t *testing.T) {
	b := make([]byte, HeaderSize)
	copy(b, REGFSignature)
	binary.LittleEndian.PutUint32(b[REGFPrimarySeqOffset:], 7)
	binary.LittleEndian.PutUint32(b[REGFSecondarySeqOffset:], 6)
	binary.LittleEndian.PutUint32(b[REGFRootCellOffset:], 0x20)
	binary.LittleEndian.PutUint32(b[REGFDataSizeOffset:], 0x1000)

	h, err := ParseHeader(b)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.RootCellOffset != 0x20 || h.HiveBinsDataSize != 0x1000 || !h.Dirty() {
		t.Fatalf("unexpected header: %+v", h)
	}

	if _, err := ParseHeader(b[:100]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("short header: %v", err)
	}
	copy(b, "fger")
	if _, err := ParseHeader(b); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("bad signature: %v", err)
	}
}

func TestNextHBIN(t *testing.T) {
	b := make([]byte, 2*HBINAlignment)
	copy(b, HBINSignature)
	binary.LittleEndian.PutUint32(b[HBINSizeOffset:], HBINAlignment)

	h, next, err := NextHBIN(b, 0)
	if err != nil {
		t.Fatalf("NextHBIN: %v", err)
	}
	if h.Size != HBINAlignment || next != HBINAlignment {
		t.Fatalf("unexpected hbin %+v next=%d", h, next)
	}
	if _, _, err := NextHBIN(b, HBINAlignment); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("second bin has no header: %v", err)
	}

	binary.LittleEndian.PutUint32(b[HBINSizeOffset:], 3*HBINAlignment)
	if _, _, err := NextHBIN(b, 0); !errors.Is(err, ErrTruncated) {
		t.Fatalf("oversized bin: %v", err)
	}
}

func TestParseCell(t *testing.T) {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b, uint32(0xFFFFFFF0)) // -16, allocated
	copy(b[4:], "nk")
	c, err := ParseCell(b)
	if err != nil {
		t.Fatalf("ParseCell: %v", err)
	}
	if c.Free || c.Size != 16 || len(c.Data) != 12 || string(c.Data[:2]) != "nk" {
		t.Fatalf("unexpected cell %+v", c)
	}

	binary.LittleEndian.PutUint32(b, 32)
	if _, err := ParseCell(b); !errors.Is(err, ErrTruncated) {
		t.Fatalf("oversized cell: %v", err)
	}
	binary.LittleEndian.PutUint32(b, 0)
	if _, err := ParseCell(b); err == nil {
		t.Fatalf("zero-length cell accepted")
	}
}

func TestDecodeDB(t *testing.T) {
	b := make([]byte, DBMinSize)
	copy(b, DBSignature)
	binary.LittleEndian.PutUint16(b[DBNumBlocksOffset:], 3)
	binary.LittleEndian.PutUint32(b[DBBlocklistOffset:], 0x1000)

	db, err := DecodeDB(b)
	if err != nil {
		t.Fatalf("DecodeDB: %v", err)
	}
	if db.NumBlocks != 3 || db.BlocklistOffset != 0x1000 {
		t.Fatalf("unexpected record %+v", db)
	}
	if _, err := DecodeDB(b[:4]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("short: %v", err)
	}
}

func TestCheckedReads(t *testing.T) {
	b := []byte{1, 0, 0, 0, 0, 0, 0, 0}
	if v, err := CheckedReadU64(b, 0); err != nil || v != 1 {
		t.Fatalf("CheckedReadU64 = %d, %v", v, err)
	}
	if _, err := CheckedReadU32(b, 6); !errors.Is(err, ErrTruncated) {
		t.Fatalf("CheckedReadU32 past end: %v", err)
	}
	if _, err := CheckedReadU16(b, -1); !errors.Is(err, ErrTruncated) {
		t.Fatalf("CheckedReadU16 negative: %v", err)
	}
}
