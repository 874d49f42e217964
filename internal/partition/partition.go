// Package partition decodes MBR and GPT partition tables and numbers the
// allocated entries 1..N in table order, the way evidence tools address
// them as /p1, /p2, ...
package partition

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/joshuapare/samkit/internal/buf"
	"github.com/joshuapare/samkit/pkg/types"
)

// SectorSize is the logical sector size assumed for partition tables.
const SectorSize = 512

// Scheme names a partitioning scheme.
type Scheme string

const (
	SchemeMBR Scheme = "mbr"
	SchemeGPT Scheme = "gpt"
	// SchemeVolume is an unpartitioned image holding one filesystem.
	SchemeVolume Scheme = "volume"
	// SchemeDir is a directory of exported partitions p1, p2, ...
	SchemeDir Scheme = "dir"
)

const (
	mbrTableOffset = 446
	mbrEntrySize   = 16
	mbrEntries     = 4
	mbrTypeGPT     = 0xEE

	gptSignature   = "EFI PART"
	gptMaxEntries  = 1024
	gptMinEntry    = 128
	maxLogicalEBRs = 256
)

var ntfsOEM = []byte("NTFS    ")

// Entry is one allocated partition.
type Entry struct {
	Index  int    `json:"index"`
	Start  int64  `json:"start"`  // bytes from the start of the image
	Length int64  `json:"length"` // bytes
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
}

// Locator renders the entry's /pN address.
func (e Entry) Locator() string { return fmt.Sprintf("/p%d", e.Index) }

// Table is a decoded partition table.
type Table struct {
	Scheme  Scheme  `json:"scheme"`
	Entries []Entry `json:"entries"`
}

// Get returns the entry with 1-based index. Decoded tables number their
// entries densely; exported directories may skip indices.
func (t Table) Get(index int) (Entry, error) {
	if index >= 1 && index <= len(t.Entries) && t.Entries[index-1].Index == index {
		return t.Entries[index-1], nil
	}
	for _, e := range t.Entries {
		if e.Index == index {
			return e, nil
		}
	}
	return Entry{}, &types.Error{
		Kind:      types.ErrKindAddress,
		Msg:       fmt.Sprintf("no partition /p%d (%s table has %d)", index, t.Scheme, len(t.Entries)),
		Partition: index,
	}
}

// Read decodes the partition table of an image of the given size.
func Read(r io.ReaderAt, size int64) (Table, error) {
	boot := make([]byte, SectorSize)
	if _, err := r.ReadAt(boot, 0); err != nil {
		return Table{}, &types.Error{Kind: types.ErrKindIO, Msg: "read boot sector", Err: err}
	}
	if bytes.Equal(boot[3:11], ntfsOEM) {
		return Table{Scheme: SchemeVolume, Entries: []Entry{{Index: 1, Length: size, Type: "NTFS"}}}, nil
	}
	if boot[510] != 0x55 || boot[511] != 0xAA {
		return Table{}, &types.Error{Kind: types.ErrKindFormat, Msg: "no partition table or known filesystem in boot sector"}
	}
	for i := range mbrEntries {
		if boot[mbrTableOffset+i*mbrEntrySize+4] == mbrTypeGPT {
			return readGPT(r)
		}
	}
	return readMBR(r, boot)
}

func formatErr(format string, args ...any) error {
	return &types.Error{Kind: types.ErrKindFormat, Msg: fmt.Sprintf(format, args...)}
}

func isExtended(t byte) bool { return t == 0x05 || t == 0x0F || t == 0x85 }

type mbrEntry struct {
	typ          byte
	start, count uint32
}

func mbrEntriesOf(sector []byte) [mbrEntries]mbrEntry {
	var out [mbrEntries]mbrEntry
	for i := range out {
		e := sector[mbrTableOffset+i*mbrEntrySize:]
		out[i] = mbrEntry{typ: e[4], start: buf.U32LE(e[8:]), count: buf.U32LE(e[12:])}
	}
	return out
}

func readMBR(r io.ReaderAt, boot []byte) (Table, error) {
	t := Table{Scheme: SchemeMBR}
	add := func(typ byte, startLBA, count uint64) {
		t.Entries = append(t.Entries, Entry{
			Index:  len(t.Entries) + 1,
			Start:  int64(startLBA) * SectorSize,
			Length: int64(count) * SectorSize,
			Type:   fmt.Sprintf("0x%02X", typ),
		})
	}
	var extended []mbrEntry
	for _, e := range mbrEntriesOf(boot) {
		switch {
		case e.typ == 0 || e.count == 0:
		case isExtended(e.typ):
			extended = append(extended, e)
		default:
			add(e.typ, uint64(e.start), uint64(e.count))
		}
	}
	for _, ext := range extended {
		if err := walkEBRs(r, ext, add); err != nil {
			return Table{}, err
		}
	}
	return t, nil
}

// walkEBRs follows the logical-partition chain of one extended partition.
// Logical starts are relative to their EBR; next-EBR links are relative to
// the extended partition.
func walkEBRs(r io.ReaderAt, ext mbrEntry, add func(byte, uint64, uint64)) error {
	sector := make([]byte, SectorSize)
	seen := map[uint64]bool{}
	ebr := uint64(ext.start)
	for n := 0; ; n++ {
		if n >= maxLogicalEBRs || seen[ebr] {
			return formatErr("extended partition chain at LBA %d loops", ext.start)
		}
		seen[ebr] = true
		if _, err := r.ReadAt(sector, int64(ebr)*SectorSize); err != nil {
			return &types.Error{Kind: types.ErrKindFormat, Msg: fmt.Sprintf("read EBR at LBA %d", ebr), Err: err}
		}
		if sector[510] != 0x55 || sector[511] != 0xAA {
			return formatErr("EBR at LBA %d has no signature", ebr)
		}
		entries := mbrEntriesOf(sector)
		if l := entries[0]; l.typ != 0 && l.count != 0 {
			add(l.typ, ebr+uint64(l.start), uint64(l.count))
		}
		next := entries[1]
		if !isExtended(next.typ) || next.start == 0 {
			return nil
		}
		ebr = uint64(ext.start) + uint64(next.start)
	}
}

func readGPT(r io.ReaderAt) (Table, error) {
	h := make([]byte, SectorSize)
	if _, err := r.ReadAt(h, SectorSize); err != nil {
		return Table{}, &types.Error{Kind: types.ErrKindFormat, Msg: "read GPT header", Err: err}
	}
	if string(h[:8]) != gptSignature {
		return Table{}, formatErr("protective MBR without GPT header")
	}
	hsize := buf.U32LE(h[12:])
	if hsize < 92 || hsize > SectorSize {
		return Table{}, formatErr("GPT header size %d", hsize)
	}
	stored := buf.U32LE(h[16:])
	check := append([]byte(nil), h[:hsize]...)
	clear(check[16:20])
	if crc32.ChecksumIEEE(check) != stored {
		return Table{}, formatErr("GPT header checksum mismatch")
	}
	arrayLBA := buf.U64LE(h[72:])
	count := buf.U32LE(h[80:])
	esize := buf.U32LE(h[84:])
	if count > gptMaxEntries || esize < gptMinEntry || esize > 4096 {
		return Table{}, formatErr("GPT entry array %d x %d", count, esize)
	}
	array := make([]byte, int(count)*int(esize))
	if _, err := r.ReadAt(array, int64(arrayLBA)*SectorSize); err != nil {
		return Table{}, &types.Error{Kind: types.ErrKindFormat, Msg: "read GPT entries", Err: err}
	}
	if crc32.ChecksumIEEE(array) != buf.U32LE(h[88:]) {
		return Table{}, formatErr("GPT entry array checksum mismatch")
	}

	t := Table{Scheme: SchemeGPT}
	var zero [16]byte
	for i := range int(count) {
		e := array[i*int(esize):]
		if bytes.Equal(e[:16], zero[:]) {
			continue
		}
		first, last := buf.U64LE(e[32:]), buf.U64LE(e[40:])
		if last < first {
			return Table{}, formatErr("GPT entry %d ends before it starts", i)
		}
		t.Entries = append(t.Entries, Entry{
			Index:  len(t.Entries) + 1,
			Start:  int64(first) * SectorSize,
			Length: int64(last-first+1) * SectorSize,
			Type:   guidString(e[:16]),
			Name:   utf16Name(e[56:128]),
		})
	}
	return t, nil
}
