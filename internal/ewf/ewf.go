// Package ewf reads EnCase (EWF-E01) evidence images. Segment files are
// discovered next to the first segment, their section chains are walked
// once to build a chunk index, and the media is exposed as an io.ReaderAt.
package ewf

import (
	"bytes"
	"fmt"
	"hash/adler32"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/spf13/afero"

	"github.com/joshuapare/samkit/internal/buf"
	"github.com/joshuapare/samkit/pkg/types"
)

// Signature opens every EWF-E01 segment file.
var Signature = []byte{'E', 'V', 'F', 0x09, 0x0D, 0x0A, 0xFF, 0x00}

const (
	// FileHeaderSize is the segment file header: signature, a start-of-fields
	// byte, the u16 segment number and a u16 end-of-fields marker.
	FileHeaderSize = 13
	// SectionHeaderSize is the section descriptor size.
	SectionHeaderSize = 76

	sectionTypeSize   = 16
	sectionNextOffset = 16
	sectionSizeOffset = 24
	sectionChecksum   = 72

	volumeChunkCount      = 4
	volumeSectorsPerChunk = 8
	volumeBytesPerSector  = 12
	volumeSectorCount     = 16
	volumeMinSize         = 24

	tableHeaderSize = 24
	tableEntryCount = 0
	tableBaseOffset = 8
	tableEntrySize  = 4
	tableCompressed = 0x80000000
	tableOffsetMask = 0x7FFFFFFF
	// maxTableEntries is the largest table EnCase writes (EnCase 6; older
	// versions stop at 16375).
	maxTableEntries = 65534

	// maxChunkSize guards allocations driven by the volume section.
	maxChunkSize = 64 << 20
	maxSegments  = 14971 // E01..E99 then EAA..ZZZ
)

type chunk struct {
	seg        int
	off        int64
	size       int64
	compressed bool
}

// Reader exposes the media stored in an EWF image. It is safe for
// concurrent use.
type Reader struct {
	segs           []afero.File
	chunks         []chunk
	chunkSize      int64
	bytesPerSector int64
	size           int64

	mu        sync.Mutex
	cacheIdx  int
	cacheData []byte
}

// Open opens the image whose first segment is at path, discovering the
// remaining segments in the same directory.
func Open(fs afero.Fs, path string) (*Reader, error) {
	paths, err := Segments(fs, path)
	if err != nil {
		return nil, err
	}
	r := &Reader{cacheIdx: -1}
	for _, p := range paths {
		f, err := fs.Open(p)
		if err != nil {
			_ = r.Close()
			return nil, &types.Error{Kind: types.ErrKindIO, Msg: "open segment", Path: p, Err: err}
		}
		r.segs = append(r.segs, f)
	}
	if err := r.index(paths); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// Segments lists the segment files of the image starting at first, in
// order. Discovery stops at the first missing name.
func Segments(fs afero.Fs, first string) ([]string, error) {
	ext := filepath.Ext(first)
	if len(ext) != 4 {
		return []string{first}, nil
	}
	base := strings.TrimSuffix(first, ext)
	lower := ext[1] >= 'a' && ext[1] <= 'z'
	out := []string{first}
	for n := 2; n <= maxSegments; n++ {
		e, ok := SegmentExt(ext[1], n)
		if !ok {
			break
		}
		if lower {
			e = strings.ToLower(e)
		}
		p := base + "." + e
		if _, err := fs.Stat(p); err != nil {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

// SegmentExt returns the extension (without dot) of segment n, 1-based:
// E01..E99, then EAA..EZZ, FAA.. and so on.
func SegmentExt(first byte, n int) (string, bool) {
	if first >= 'a' && first <= 'z' {
		first -= 'a' - 'A'
	}
	if n < 1 {
		return "", false
	}
	if n <= 99 {
		return fmt.Sprintf("%c%02d", first, n), true
	}
	n -= 100
	lead := int(first-'A') + n/(26*26)
	if lead >= 26 {
		return "", false
	}
	return string([]byte{byte('A' + lead), byte('A' + n/26%26), byte('A' + n%26)}), true
}

// Size returns the media size in bytes.
func (r *Reader) Size() int64 { return r.size }

// ChunkSize returns the uncompressed chunk size in bytes.
func (r *Reader) ChunkSize() int64 { return r.chunkSize }

// Close closes every segment file.
func (r *Reader) Close() error {
	var first error
	for _, f := range r.segs {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.segs = nil
	return first
}

// ReadAt implements io.ReaderAt over the media.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, &types.Error{Kind: types.ErrKindAddress, Msg: fmt.Sprintf("negative offset %d", off)}
	}
	if off >= r.size {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) && off < r.size {
		idx := int(off / r.chunkSize)
		data, err := r.chunk(idx)
		if err != nil {
			return n, err
		}
		c := copy(p[n:], data[off%r.chunkSize:])
		n += c
		off += int64(c)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (r *Reader) chunk(idx int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx == r.cacheIdx {
		return r.cacheData, nil
	}
	if idx >= len(r.chunks) {
		return nil, &types.Error{Kind: types.ErrKindFormat, Msg: fmt.Sprintf("chunk %d missing from table", idx)}
	}
	c := r.chunks[idx]
	want := min(r.chunkSize, r.size-int64(idx)*r.chunkSize)

	raw := make([]byte, c.size)
	if _, err := r.segs[c.seg].ReadAt(raw, c.off); err != nil {
		return nil, &types.Error{Kind: types.ErrKindIO, Msg: fmt.Sprintf("read chunk %d", idx), Err: err}
	}
	var data []byte
	if c.compressed {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, &types.Error{Kind: types.ErrKindFormat, Msg: fmt.Sprintf("chunk %d", idx), Err: err}
		}
		data = make([]byte, want)
		_, err = io.ReadFull(zr, data)
		_ = zr.Close()
		if err != nil {
			return nil, &types.Error{Kind: types.ErrKindFormat, Msg: fmt.Sprintf("inflate chunk %d", idx), Err: err}
		}
	} else {
		if int64(len(raw)) < want {
			return nil, &types.Error{Kind: types.ErrKindFormat, Msg: fmt.Sprintf("chunk %d short: %d bytes", idx, len(raw))}
		}
		data = raw[:want]
	}
	r.cacheIdx, r.cacheData = idx, data
	return data, nil
}

type section struct {
	typ  string
	off  int64
	next int64
	size int64
}

func readSection(f io.ReaderAt, off int64) (section, error) {
	var hdr [SectionHeaderSize]byte
	if _, err := f.ReadAt(hdr[:], off); err != nil {
		return section{}, fmt.Errorf("section at %d: %w", off, err)
	}
	if got, want := adler32.Checksum(hdr[:sectionChecksum]), buf.U32LE(hdr[sectionChecksum:]); got != want {
		return section{}, fmt.Errorf("section at %d: checksum %08x, stored %08x", off, got, want)
	}
	return section{
		typ:  string(bytes.TrimRight(hdr[:sectionTypeSize], "\x00")),
		off:  off,
		next: int64(buf.U64LE(hdr[sectionNextOffset:])),
		size: int64(buf.U64LE(hdr[sectionSizeOffset:])),
	}, nil
}

// index walks each segment's section chain and records every chunk.
func (r *Reader) index(paths []string) error {
	formatErr := func(p string, err error) error {
		return &types.Error{Kind: types.ErrKindFormat, Msg: "corrupt EWF image", Path: p, Err: err}
	}
	var chunkCount uint32
	var sectorCount uint64
	done := false
	for seg, f := range r.segs {
		var head [FileHeaderSize]byte
		if _, err := f.ReadAt(head[:], 0); err != nil || !bytes.Equal(head[:len(Signature)], Signature) {
			return formatErr(paths[seg], fmt.Errorf("missing EWF signature"))
		}
		if got := int(buf.U16LE(head[9:])); got != seg+1 {
			return formatErr(paths[seg], fmt.Errorf("segment number %d, expected %d", got, seg+1))
		}

		fi, err := f.Stat()
		if err != nil {
			return &types.Error{Kind: types.ErrKindIO, Msg: "stat EWF segment", Path: paths[seg], Err: err}
		}
		segSize := fi.Size()

		off := int64(FileHeaderSize)
		for steps := 0; ; steps++ {
			if steps > 1<<16 {
				return formatErr(paths[seg], fmt.Errorf("section chain does not terminate"))
			}
			s, err := readSection(f, off)
			if err != nil {
				return formatErr(paths[seg], err)
			}
			switch s.typ {
			case "volume", "disk":
				vc, ss, err := r.readVolume(f, s)
				if err != nil {
					return formatErr(paths[seg], err)
				}
				chunkCount, sectorCount = vc, ss
			case "table":
				if r.chunkSize == 0 {
					return formatErr(paths[seg], fmt.Errorf("table before volume section"))
				}
				if err := r.readTable(f, seg, s, segSize); err != nil {
					return formatErr(paths[seg], err)
				}
			case "done":
				done = true
			}
			if s.typ == "next" || s.typ == "done" {
				break
			}
			if s.next <= s.off {
				return formatErr(paths[seg], fmt.Errorf("section %q at %d links backwards", s.typ, s.off))
			}
			off = s.next
		}
		if done {
			break
		}
	}
	if !done {
		return formatErr(paths[len(paths)-1], fmt.Errorf("image ends without a done section (missing segment?)"))
	}
	if r.chunkSize == 0 {
		return formatErr(paths[0], fmt.Errorf("no volume section"))
	}
	if uint32(len(r.chunks)) < chunkCount {
		return formatErr(paths[0], fmt.Errorf("table holds %d of %d chunks", len(r.chunks), chunkCount))
	}
	r.size = int64(sectorCount) * r.bytesPerSector
	if limit := int64(len(r.chunks)) * r.chunkSize; r.size > limit || r.size < 0 {
		return formatErr(paths[0], fmt.Errorf("media size %d exceeds %d chunks", r.size, len(r.chunks)))
	}
	return nil
}

func (r *Reader) readVolume(f io.ReaderAt, s section) (uint32, uint64, error) {
	var v [volumeMinSize]byte
	if _, err := f.ReadAt(v[:], s.off+SectionHeaderSize); err != nil {
		return 0, 0, fmt.Errorf("volume section: %w", err)
	}
	spc := int64(buf.U32LE(v[volumeSectorsPerChunk:]))
	bps := int64(buf.U32LE(v[volumeBytesPerSector:]))
	if spc == 0 || bps == 0 || spc*bps > maxChunkSize {
		return 0, 0, fmt.Errorf("volume section: chunk geometry %d x %d", spc, bps)
	}
	r.chunkSize = spc * bps
	r.bytesPerSector = bps
	return buf.U32LE(v[volumeChunkCount:]), buf.U64LE(v[volumeSectorCount:]), nil
}

// readTable appends the chunks listed in a table section. Offsets are
// relative to the table's base offset; a chunk ends where the next one
// starts, and the last one ends at the table section itself. The entry
// count is checked against the format limit and the segment's real size
// before the entries are read.
func (r *Reader) readTable(f io.ReaderAt, seg int, s section, segSize int64) error {
	var hdr [tableHeaderSize]byte
	if _, err := f.ReadAt(hdr[:], s.off+SectionHeaderSize); err != nil {
		return fmt.Errorf("table section: %w", err)
	}
	n := int64(buf.U32LE(hdr[tableEntryCount:]))
	base := int64(buf.U64LE(hdr[tableBaseOffset:]))
	if avail := (s.size - SectionHeaderSize - tableHeaderSize) / tableEntrySize; n > avail || n < 0 {
		return fmt.Errorf("table section: %d entries in %d bytes", n, s.size)
	}
	if n > maxTableEntries {
		return fmt.Errorf("table section: %d entries exceeds %d", n, maxTableEntries)
	}
	at := s.off + SectionHeaderSize + tableHeaderSize
	if at+n*tableEntrySize > segSize {
		return fmt.Errorf("table section: %d entries past end of %d-byte segment", n, segSize)
	}
	entries := make([]byte, n*tableEntrySize)
	if _, err := f.ReadAt(entries, at); err != nil {
		return fmt.Errorf("table entries: %w", err)
	}
	for i := int64(0); i < n; i++ {
		e := buf.U32LE(entries[i*tableEntrySize:])
		start := base + int64(e&tableOffsetMask)
		end := s.off
		if i+1 < n {
			end = base + int64(buf.U32LE(entries[(i+1)*tableEntrySize:])&tableOffsetMask)
		}
		size := end - start
		if size <= 0 || size > 2*maxChunkSize {
			return fmt.Errorf("table entry %d: chunk size %d", i, size)
		}
		r.chunks = append(r.chunks, chunk{seg: seg, off: start, size: size, compressed: e&tableCompressed != 0})
	}
	return nil
}
