// Package hivebuild assembles small, well-formed registry hives in memory
// for tests. It writes exactly the structures the reader walks: base block,
// one hive bin, NK/VK cells, LF or RI subkey lists, value lists, data cells
// and big-data records.
package hivebuild

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/joshuapare/samkit/internal/format"
)

// Key describes one key node and its subtree.
type Key struct {
	Name      string
	LastWrite uint64
	Values    []Value
	Subkeys   []*Key
	// UTF16Name stores the name as UTF-16LE instead of Windows-1252.
	UTF16Name bool
	// LeafSize splits the subkey list into an RI root over LF leaves of at
	// most this many entries. Zero keeps a single LF list.
	LeafSize int
}

// Value describes one VK record.
type Value struct {
	Name string
	Type uint32
	Data []byte
}

// K is shorthand for a key with subkeys.
func K(name string, subkeys ...*Key) *Key {
	return &Key{Name: name, Subkeys: subkeys}
}

// With appends values to k and returns it.
func (k *Key) With(values ...Value) *Key {
	k.Values = append(k.Values, values...)
	return k
}

// UTF16 encodes s as UTF-16LE without a terminator.
func UTF16(s string) []byte {
	codes := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(codes))
	for i, c := range codes {
		binary.LittleEndian.PutUint16(out[2*i:], c)
	}
	return out
}

type builder struct {
	data []byte // hive bin contents, offset 0 is the bin header
}

// Build lays out root and its subtree and returns the full hive image.
func Build(root *Key) []byte {
	b := &builder{data: make([]byte, format.HBINHeaderSize)}
	rootOff := b.key(root, format.InvalidOffset, true)

	binSize := (len(b.data) + format.HBINAlignment - 1) / format.HBINAlignment * format.HBINAlignment
	if free := binSize - len(b.data); free > 0 {
		cell := make([]byte, free)
		binary.LittleEndian.PutUint32(cell, uint32(free))
		b.data = append(b.data, cell...)
	}
	copy(b.data, format.HBINSignature)
	binary.LittleEndian.PutUint32(b.data[format.HBINSizeOffset:], uint32(binSize))

	out := make([]byte, format.HeaderSize, format.HeaderSize+binSize)
	copy(out, format.REGFSignature)
	binary.LittleEndian.PutUint32(out[format.REGFPrimarySeqOffset:], 1)
	binary.LittleEndian.PutUint32(out[format.REGFSecondarySeqOffset:], 1)
	binary.LittleEndian.PutUint32(out[format.REGFMajorVersionOffset:], 1)
	binary.LittleEndian.PutUint32(out[format.REGFMinorVersionOffset:], 5)
	binary.LittleEndian.PutUint32(out[format.REGFRootCellOffset:], rootOff)
	binary.LittleEndian.PutUint32(out[format.REGFDataSizeOffset:], uint32(binSize))
	return append(out, b.data...)
}

// alloc appends an allocated cell holding payload and returns its offset.
func (b *builder) alloc(payload []byte) uint32 {
	off := uint32(len(b.data))
	size := (format.CellHeaderSize + len(payload) + 7) &^ 7
	cell := make([]byte, size)
	binary.LittleEndian.PutUint32(cell, uint32(-int32(size)))
	copy(cell[format.CellHeaderSize:], payload)
	b.data = append(b.data, cell...)
	return off
}

func (b *builder) key(k *Key, parent uint32, root bool) uint32 {
	var children []uint32
	for _, sk := range k.Subkeys {
		children = append(children, b.key(sk, 0, false))
	}
	subList := uint32(format.InvalidOffset)
	if len(children) > 0 {
		subList = b.subkeyList(children, k.LeafSize)
	}

	valList := uint32(format.InvalidOffset)
	if len(k.Values) > 0 {
		offs := make([]byte, 4*len(k.Values))
		for i, v := range k.Values {
			binary.LittleEndian.PutUint32(offs[4*i:], b.value(v))
		}
		valList = b.alloc(offs)
	}

	name := []byte(k.Name)
	flags := uint16(format.NKFlagCompressedName)
	if k.UTF16Name {
		name = UTF16(k.Name)
		flags = 0
	}
	if root {
		flags |= 0x04 | 0x08
	}
	nk := make([]byte, format.NKNameOffset+len(name))
	copy(nk, format.NKSignature)
	binary.LittleEndian.PutUint16(nk[format.NKFlagsOffset:], flags)
	binary.LittleEndian.PutUint64(nk[format.NKLastWriteOffset:], k.LastWrite)
	binary.LittleEndian.PutUint32(nk[format.NKParentOffset:], parent)
	binary.LittleEndian.PutUint32(nk[format.NKSubkeyCountOffset:], uint32(len(children)))
	binary.LittleEndian.PutUint32(nk[format.NKSubkeyListOffset:], subList)
	binary.LittleEndian.PutUint32(nk[format.NKValueCountOffset:], uint32(len(k.Values)))
	binary.LittleEndian.PutUint32(nk[format.NKValueListOffset:], valList)
	binary.LittleEndian.PutUint32(nk[format.NKClassNameOffset:], format.InvalidOffset)
	binary.LittleEndian.PutUint16(nk[format.NKNameLenOffset:], uint16(len(name)))
	copy(nk[format.NKNameOffset:], name)
	return b.alloc(nk)
}

func (b *builder) leaf(offsets []uint32) uint32 {
	lf := make([]byte, format.ListHeaderSize+format.LFEntrySize*len(offsets))
	copy(lf, format.LFSignature)
	binary.LittleEndian.PutUint16(lf[2:], uint16(len(offsets)))
	for i, off := range offsets {
		binary.LittleEndian.PutUint32(lf[format.ListHeaderSize+i*format.LFEntrySize:], off)
	}
	return b.alloc(lf)
}

func (b *builder) subkeyList(children []uint32, leafSize int) uint32 {
	if leafSize <= 0 || len(children) <= leafSize {
		return b.leaf(children)
	}
	var leaves []uint32
	for start := 0; start < len(children); start += leafSize {
		end := min(start+leafSize, len(children))
		leaves = append(leaves, b.leaf(children[start:end]))
	}
	ri := make([]byte, format.ListHeaderSize+format.OffsetFieldSize*len(leaves))
	copy(ri, format.RISignature)
	binary.LittleEndian.PutUint16(ri[2:], uint16(len(leaves)))
	for i, off := range leaves {
		binary.LittleEndian.PutUint32(ri[format.ListHeaderSize+i*format.OffsetFieldSize:], off)
	}
	return b.alloc(ri)
}

// bigDataBlock is the payload size of one big-data block.
const bigDataBlock = 16344

func (b *builder) value(v Value) uint32 {
	length := uint32(len(v.Data))
	var dataOff uint32
	switch {
	case len(v.Data) <= 4:
		var inline [4]byte
		copy(inline[:], v.Data)
		dataOff = binary.LittleEndian.Uint32(inline[:])
		length |= format.VKDataInlineBit
	case len(v.Data) > bigDataBlock:
		dataOff = b.bigData(v.Data)
	default:
		dataOff = b.alloc(v.Data)
	}

	name := []byte(v.Name)
	vk := make([]byte, format.VKNameOffset+len(name))
	copy(vk, format.VKSignature)
	binary.LittleEndian.PutUint16(vk[format.VKNameLenOffset:], uint16(len(name)))
	binary.LittleEndian.PutUint32(vk[format.VKDataLenOffset:], length)
	binary.LittleEndian.PutUint32(vk[format.VKDataOffOffset:], dataOff)
	binary.LittleEndian.PutUint32(vk[format.VKTypeOffset:], v.Type)
	if len(name) > 0 {
		binary.LittleEndian.PutUint16(vk[format.VKFlagsOffset:], format.VKFlagASCIIName)
	}
	copy(vk[format.VKNameOffset:], name)
	return b.alloc(vk)
}

func (b *builder) bigData(data []byte) uint32 {
	var blocks []uint32
	for start := 0; start < len(data); start += bigDataBlock {
		end := min(start+bigDataBlock, len(data))
		// Each block carries trailing padding that readers strip.
		block := make([]byte, end-start+format.DBBlockPadding)
		copy(block, data[start:end])
		blocks = append(blocks, b.alloc(block))
	}
	list := make([]byte, 4*len(blocks))
	for i, off := range blocks {
		binary.LittleEndian.PutUint32(list[4*i:], off)
	}
	listOff := b.alloc(list)

	db := make([]byte, format.DBMinSize)
	copy(db, format.DBSignature)
	binary.LittleEndian.PutUint16(db[format.DBNumBlocksOffset:], uint16(len(blocks)))
	binary.LittleEndian.PutUint32(db[format.DBBlocklistOffset:], listOff)
	return b.alloc(db)
}
