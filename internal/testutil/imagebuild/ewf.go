// Package imagebuild assembles synthetic evidence images for tests: EWF-E01
// segment sets, MBR and GPT partition tables and bare NTFS boot sectors.
package imagebuild

import (
	"bytes"
	"encoding/binary"
	"hash/adler32"

	"github.com/klauspost/compress/zlib"
)

var ewfSignature = []byte{'E', 'V', 'F', 0x09, 0x0D, 0x0A, 0xFF, 0x00}

// EWFOptions controls EWF layout.
type EWFOptions struct {
	SectorsPerChunk  int // default 64
	BytesPerSector   int // default 512
	ChunksPerSegment int // default: everything in one segment
	// Compress decides per chunk index whether it is stored deflated.
	Compress func(chunk int) bool
}

// EWF encodes media as EWF-E01 segment files, returned in segment order.
func EWF(media []byte, opts EWFOptions) [][]byte {
	if opts.SectorsPerChunk == 0 {
		opts.SectorsPerChunk = 64
	}
	if opts.BytesPerSector == 0 {
		opts.BytesPerSector = 512
	}
	chunkSize := opts.SectorsPerChunk * opts.BytesPerSector
	var chunks [][]byte
	for off := 0; off < len(media); off += chunkSize {
		chunks = append(chunks, media[off:min(off+chunkSize, len(media))])
	}
	per := opts.ChunksPerSegment
	if per <= 0 {
		per = max(len(chunks), 1)
	}

	var segs [][]byte
	for start, n := 0, 1; start < len(chunks) || n == 1; start, n = start+per, n+1 {
		end := min(start+per, len(chunks))
		last := end >= len(chunks)
		seg := &segment{}
		seg.fileHeader(n)
		if n == 1 {
			vol := make([]byte, 1052)
			vol[0] = 0x01
			binary.LittleEndian.PutUint32(vol[4:], uint32(len(chunks)))
			binary.LittleEndian.PutUint32(vol[8:], uint32(opts.SectorsPerChunk))
			binary.LittleEndian.PutUint32(vol[12:], uint32(opts.BytesPerSector))
			binary.LittleEndian.PutUint64(vol[16:], uint64(len(media)/opts.BytesPerSector))
			seg.section("volume", vol)
		}

		sectorsStart := len(seg.b)
		var data []byte
		var offsets []uint32
		for i := start; i < end; i++ {
			offsets = append(offsets, uint32(sectorsStart+76+len(data)))
			c := chunks[i]
			if opts.Compress != nil && opts.Compress(i) {
				var z bytes.Buffer
				zw := zlib.NewWriter(&z)
				_, _ = zw.Write(c)
				_ = zw.Close()
				offsets[len(offsets)-1] |= 0x80000000
				data = append(data, z.Bytes()...)
			} else {
				data = append(data, c...)
				data = binary.LittleEndian.AppendUint32(data, adler32.Checksum(c))
			}
		}
		seg.section("sectors", data)

		table := make([]byte, 24, 24+4*len(offsets)+4)
		binary.LittleEndian.PutUint32(table[0:], uint32(len(offsets)))
		binary.LittleEndian.PutUint32(table[20:], adler32.Checksum(table[:20]))
		entries := make([]byte, 0, 4*len(offsets))
		for _, o := range offsets {
			entries = binary.LittleEndian.AppendUint32(entries, o)
		}
		table = append(table, entries...)
		table = binary.LittleEndian.AppendUint32(table, adler32.Checksum(entries))
		seg.section("table", table)
		seg.section("table2", table)

		if last {
			seg.section("done", nil)
		} else {
			seg.section("next", nil)
		}
		segs = append(segs, seg.b)
		if last {
			break
		}
	}
	return segs
}

type segment struct {
	b []byte
}

func (s *segment) fileHeader(n int) {
	s.b = append(s.b, ewfSignature...)
	s.b = append(s.b, 0x01)
	s.b = binary.LittleEndian.AppendUint16(s.b, uint16(n))
	s.b = binary.LittleEndian.AppendUint16(s.b, 0)
}

// section appends a descriptor and its payload. done and next sections
// point at themselves.
func (s *segment) section(typ string, payload []byte) {
	off := len(s.b)
	hdr := make([]byte, 76)
	copy(hdr, typ)
	size := 76 + len(payload)
	next := off + size
	if typ == "done" || typ == "next" {
		next = off
	}
	binary.LittleEndian.PutUint64(hdr[16:], uint64(next))
	binary.LittleEndian.PutUint64(hdr[24:], uint64(size))
	binary.LittleEndian.PutUint32(hdr[72:], adler32.Checksum(hdr[:72]))
	s.b = append(s.b, hdr...)
	s.b = append(s.b, payload...)
}
