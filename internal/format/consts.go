// Package format houses the byte-level decoders for the Windows registry
// hive ("regf") file format: the base block, hive bins, cells and the NK,
// VK, subkey-list and big-data records reachable from them. Decoders work on
// borrowed slices and never allocate for fixed fields.
package format

var (
	// REGFSignature opens every hive base block.
	REGFSignature = []byte{'r', 'e', 'g', 'f'}
	// HBINSignature opens every hive bin.
	HBINSignature = []byte{'h', 'b', 'i', 'n'}

	NKSignature = []byte{'n', 'k'}
	VKSignature = []byte{'v', 'k'}

	// LF/LH carry a name hint per entry, LI is a plain offset array and RI
	// points at further leaf lists.
	LFSignature = []byte{'l', 'f'}
	LHSignature = []byte{'l', 'h'}
	LISignature = []byte{'l', 'i'}
	RISignature = []byte{'r', 'i'}

	DBSignature = []byte{'d', 'b'}
)

const (
	// HeaderSize is the size of the base block. Cell offsets are relative to
	// its end.
	HeaderSize = 4096

	HBINHeaderSize = 0x20
	CellHeaderSize = 4
	HBINAlignment  = 0x1000
	SignatureSize  = 2

	HBINFileOffsetField = 0x04
	HBINSizeOffset      = 0x08

	// InvalidOffset marks an unused cell reference.
	InvalidOffset = 0xFFFFFFFF
)

// Base block fields.
const (
	REGFSignatureSize      = 4
	REGFPrimarySeqOffset   = 0x004
	REGFSecondarySeqOffset = 0x008
	REGFTimeStampOffset    = 0x00C
	REGFMajorVersionOffset = 0x014
	REGFMinorVersionOffset = 0x018
	REGFRootCellOffset     = 0x024
	REGFDataSizeOffset     = 0x028
)

// NK record fields, relative to the start of the cell payload.
const (
	NKFlagsOffset        = 0x02
	NKLastWriteOffset    = 0x04
	NKParentOffset       = 0x10
	NKSubkeyCountOffset  = 0x14
	NKSubkeyListOffset   = 0x1C
	NKValueCountOffset   = 0x24
	NKValueListOffset    = 0x28
	NKClassNameOffset    = 0x30
	NKNameLenOffset      = 0x48
	NKClassLenOffset     = 0x4A
	NKNameOffset         = 0x4C
	NKMinSize            = NKNameOffset
	NKFlagCompressedName = 0x20
)

// VK record fields.
const (
	VKNameLenOffset = 0x02
	VKDataLenOffset = 0x04
	VKDataOffOffset = 0x08
	VKTypeOffset    = 0x0C
	VKFlagsOffset   = 0x10
	VKNameOffset    = 0x14
	VKMinSize       = VKNameOffset

	VKFlagASCIIName  = 0x0001
	VKDataInlineBit  = 0x80000000
	VKDataLengthMask = 0x7FFFFFFF
)

// List records share a signature plus u16 count header.
const (
	ListHeaderSize  = 4
	OffsetFieldSize = 4
	LFEntrySize     = 8
)

// DB (big data) record fields.
const (
	DBNumBlocksOffset = 0x02
	DBBlocklistOffset = 0x04
	DBMinSize         = 0x0C
	// DBBlockPadding trails every data block and is not part of the value.
	DBBlockPadding = 4
)
