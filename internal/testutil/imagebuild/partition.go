package imagebuild

import (
	"encoding/binary"
	"hash/crc32"
	"unicode/utf16"
)

// SectorSize is the sector size used by every builder here.
const SectorSize = 512

// Part is one MBR partition entry, in sectors.
type Part struct {
	Type    byte
	Start   uint32
	Sectors uint32
}

// Disk returns a zeroed image of n sectors.
func Disk(sectors int) []byte {
	return make([]byte, sectors*SectorSize)
}

// MBR writes a partition table into disk. When logical is non-empty an
// extended partition (type 0x0F) spanning extStart..end of disk is added
// after the primaries and the logical partitions are chained through EBRs
// placed one sector before each of them.
func MBR(disk []byte, primaries []Part, extStart uint32, logical []Part) {
	entries := primaries
	if len(logical) > 0 {
		total := uint32(len(disk) / SectorSize)
		entries = append(append([]Part(nil), primaries...), Part{Type: 0x0F, Start: extStart, Sectors: total - extStart})
	}
	writeMBRSector(disk[:SectorSize], entries)

	for i, l := range logical {
		ebr := l.Start - 1
		var chain []Part
		chain = append(chain, Part{Type: l.Type, Start: 1, Sectors: l.Sectors})
		if i+1 < len(logical) {
			next := logical[i+1]
			chain = append(chain, Part{Type: 0x05, Start: next.Start - 1 - extStart, Sectors: next.Sectors + 1})
		}
		off := int(ebr) * SectorSize
		writeMBRSector(disk[off:off+SectorSize], chain)
	}
}

func writeMBRSector(sector []byte, entries []Part) {
	for i, p := range entries {
		e := sector[446+16*i:]
		e[4] = p.Type
		binary.LittleEndian.PutUint32(e[8:], p.Start)
		binary.LittleEndian.PutUint32(e[12:], p.Sectors)
	}
	sector[510], sector[511] = 0x55, 0xAA
}

// GPTPart is one GPT entry, in LBAs (inclusive end).
type GPTPart struct {
	First, Last uint64
	Name        string
}

// basicDataGUID is the on-disk (mixed-endian) Microsoft basic data type.
var basicDataGUID = [16]byte{0xA2, 0xA0, 0xD0, 0xEB, 0xE5, 0xB9, 0x33, 0x44, 0x87, 0xC0, 0x68, 0xB6, 0xB7, 0x26, 0x99, 0xC7}

// GPT writes a protective MBR, the primary header at LBA 1 and a
// 128-entry array at LBA 2. Zero-valued slots in parts (First == 0) are
// left unused.
func GPT(disk []byte, parts []GPTPart) {
	total := uint32(len(disk) / SectorSize)
	writeMBRSector(disk[:SectorSize], []Part{{Type: 0xEE, Start: 1, Sectors: total - 1}})

	const entries, entrySize = 128, 128
	array := make([]byte, entries*entrySize)
	for i, p := range parts {
		if p.First == 0 {
			continue
		}
		e := array[i*entrySize:]
		copy(e[0:16], basicDataGUID[:])
		e[16] = byte(i + 1)
		binary.LittleEndian.PutUint64(e[32:], p.First)
		binary.LittleEndian.PutUint64(e[40:], p.Last)
		for j, c := range utf16.Encode([]rune(p.Name)) {
			binary.LittleEndian.PutUint16(e[56+2*j:], c)
		}
	}
	copy(disk[2*SectorSize:], array)

	h := disk[SectorSize : 2*SectorSize]
	copy(h, "EFI PART")
	binary.LittleEndian.PutUint32(h[8:], 0x00010000)
	binary.LittleEndian.PutUint32(h[12:], 92)
	binary.LittleEndian.PutUint64(h[24:], 1)
	binary.LittleEndian.PutUint64(h[32:], uint64(total-1))
	binary.LittleEndian.PutUint64(h[40:], 34)
	binary.LittleEndian.PutUint64(h[48:], uint64(total-34))
	binary.LittleEndian.PutUint64(h[72:], 2)
	binary.LittleEndian.PutUint32(h[80:], entries)
	binary.LittleEndian.PutUint32(h[84:], entrySize)
	binary.LittleEndian.PutUint32(h[88:], crc32.ChecksumIEEE(array))
	binary.LittleEndian.PutUint32(h[16:], crc32.ChecksumIEEE(h[:92]))
}

// NTFSBoot writes the identifying fields of an NTFS boot sector at the
// start of sector. It is enough for detection, not for mounting.
func NTFSBoot(sector []byte, totalSectors uint64) {
	sector[0], sector[1], sector[2] = 0xEB, 0x52, 0x90
	copy(sector[3:], "NTFS    ")
	binary.LittleEndian.PutUint16(sector[11:], SectorSize)
	sector[13] = 8
	binary.LittleEndian.PutUint64(sector[40:], totalSectors)
	sector[510], sector[511] = 0x55, 0xAA
}
