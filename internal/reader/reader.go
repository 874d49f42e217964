// Package reader is the read-only hive engine behind pkg/hive. It resolves
// cells inside a validated bin layout and decodes keys and values into small
// handles, translating low-level format failures into typed errors.
package reader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/joshuapare/samkit/internal/buf"
	"github.com/joshuapare/samkit/internal/format"
	"github.com/joshuapare/samkit/internal/mmfile"
	"github.com/joshuapare/samkit/pkg/types"
)

// maxCellSize guards against absurd cell sizes in hostile input.
const maxCellSize = 64 << 20

// Reader is a read-only view over one hive image. It is safe for
// concurrent use; nothing is cached between calls.
type Reader struct {
	buf    []byte
	unmap  func() error
	head   format.Header
	bins   []binSpan
	closed bool
}

// binSpan is the absolute [start, end) range of one hive bin.
type binSpan struct {
	start, end int
}

// Open maps the hive at path. The caller must Close the reader.
func Open(path string) (*Reader, error) {
	data, unmap, err := mmfile.Map(path)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindIO, Msg: "open hive", Path: path, Err: err}
	}
	r, err := newReader(data, unmap)
	if err != nil {
		if unmap != nil {
			_ = unmap()
		}
		return nil, err
	}
	return r, nil
}

// OpenBytes creates a reader backed by the provided buffer.
func OpenBytes(b []byte) (*Reader, error) {
	return newReader(b, nil)
}

func newReader(b []byte, unmap func() error) (*Reader, error) {
	head, err := format.ParseHeader(b)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	r := &Reader{buf: b, unmap: unmap, head: head}
	// Open succeeds only when every bin header is sound.
	if err := r.indexBins(); err != nil {
		return nil, err
	}
	if _, err := r.nk(r.Root()); err != nil {
		return nil, &types.Error{Kind: types.ErrKindParse, Msg: "root key unreadable", Err: err}
	}
	return r, nil
}

// Close releases the mapping, if any. It is idempotent.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.unmap != nil {
		return r.unmap()
	}
	return nil
}

// Header returns the decoded base block.
func (r *Reader) Header() format.Header { return r.head }

// Root returns the root key handle.
func (r *Reader) Root() types.NodeID {
	return types.NodeID(r.head.RootCellOffset)
}

// KeyName decodes the name of a key.
func (r *Reader) KeyName(id types.NodeID) (string, error) {
	nk, err := r.nk(id)
	if err != nil {
		return "", err
	}
	name, err := DecodeKeyName(nk)
	if err != nil {
		return "", wrapFormatErr(err)
	}
	return name, nil
}

// KeyTimestamp returns the raw FILETIME of a key's last write.
func (r *Reader) KeyTimestamp(id types.NodeID) (uint64, error) {
	nk, err := r.nk(id)
	if err != nil {
		return 0, err
	}
	return nk.LastWriteRaw, nil
}

// Subkeys lists direct child keys in on-disk order.
func (r *Reader) Subkeys(id types.NodeID) ([]types.NodeID, error) {
	nk, err := r.nk(id)
	if err != nil {
		return nil, err
	}
	if !nk.HasSubkeys() {
		return nil, nil
	}
	list, err := r.subkeyList(nk.SubkeyListOffset, true)
	if err != nil {
		return nil, err
	}
	out := make([]types.NodeID, len(list))
	for i, off := range list {
		out[i] = types.NodeID(off)
	}
	return out, nil
}

// Lookup finds a direct child key by name (case-insensitive).
func (r *Reader) Lookup(parent types.NodeID, childName string) (types.NodeID, error) {
	children, err := r.Subkeys(parent)
	if err != nil {
		return 0, err
	}
	for _, child := range children {
		name, err := r.KeyName(child)
		if err != nil {
			return 0, err
		}
		if strings.EqualFold(name, childName) {
			return child, nil
		}
	}
	return 0, &types.Error{
		Kind: types.ErrKindKeyNotFound,
		Msg:  fmt.Sprintf("subkey %q not found", childName),
	}
}

// Values lists value handles for a key.
func (r *Reader) Values(id types.NodeID) ([]types.ValueID, error) {
	nk, err := r.nk(id)
	if err != nil {
		return nil, err
	}
	if !nk.HasValues() {
		return nil, nil
	}
	c, err := r.cell(nk.ValueListOffset)
	if err != nil {
		return nil, err
	}
	list, err := format.DecodeValueList(c.Data, nk.ValueCount)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	out := make([]types.ValueID, len(list))
	for i, off := range list {
		out[i] = types.ValueID(off)
	}
	return out, nil
}

// StatValue returns VK metadata without touching the data cell.
func (r *Reader) StatValue(id types.ValueID) (types.ValueMeta, error) {
	vk, err := r.vk(uint32(id))
	if err != nil {
		return types.ValueMeta{}, err
	}
	name, err := DecodeValueName(vk)
	if err != nil {
		return types.ValueMeta{}, wrapFormatErr(err)
	}
	return types.ValueMeta{
		Name:   name,
		Type:   types.RegType(vk.Type),
		Size:   vk.Length(),
		Inline: vk.DataInline(),
	}, nil
}

// GetValue finds a value by name (case-insensitive). Use "" for the
// default value.
func (r *Reader) GetValue(node types.NodeID, name string) (types.ValueID, error) {
	values, err := r.Values(node)
	if err != nil {
		return 0, err
	}
	for _, id := range values {
		meta, err := r.StatValue(id)
		if err != nil {
			return 0, err
		}
		if strings.EqualFold(meta.Name, name) {
			return id, nil
		}
	}
	return 0, &types.Error{Kind: types.ErrKindNotFound, Msg: fmt.Sprintf("value %q not found", name)}
}

// ValueBytes returns a private copy of the value's data.
func (r *Reader) ValueBytes(id types.ValueID) ([]byte, error) {
	vk, err := r.vk(uint32(id))
	if err != nil {
		return nil, err
	}
	length := vk.Length()
	if vk.DataInline() {
		if length > format.OffsetFieldSize {
			return nil, &types.Error{Kind: types.ErrKindParse, Msg: "inline length exceeds field"}
		}
		var field [format.OffsetFieldSize]byte
		binary.LittleEndian.PutUint32(field[:], vk.DataOffset)
		out := make([]byte, length)
		copy(out, field[:length])
		return out, nil
	}
	if length == 0 {
		return []byte{}, nil
	}
	dc, err := r.cell(vk.DataOffset)
	if err != nil {
		return nil, err
	}
	if format.IsDBRecord(dc.Data) && length > len(dc.Data) {
		return r.bigData(dc.Data, length)
	}
	if len(dc.Data) < length {
		return nil, &types.Error{
			Kind: types.ErrKindParse,
			Msg:  fmt.Sprintf("value data truncated: need %d bytes, cell holds %d", length, len(dc.Data)),
		}
	}
	return append([]byte(nil), dc.Data[:length]...), nil
}

// Internal helpers ----------------------------------------------------------

func (r *Reader) nk(id types.NodeID) (format.NKRecord, error) {
	c, err := r.cell(uint32(id))
	if err != nil {
		return format.NKRecord{}, err
	}
	nk, err := format.DecodeNK(c.Data)
	if err != nil {
		return format.NKRecord{}, wrapFormatErr(err)
	}
	return nk, nil
}

func (r *Reader) vk(offset uint32) (format.VKRecord, error) {
	c, err := r.cell(offset)
	if err != nil {
		return format.VKRecord{}, err
	}
	vk, err := format.DecodeVK(c.Data)
	if err != nil {
		return format.VKRecord{}, wrapFormatErr(err)
	}
	return vk, nil
}

// subkeyList flattens a subkey list. An RI root may only point at leaves,
// which bounds recursion on hostile input.
func (r *Reader) subkeyList(offset uint32, allowIndirect bool) ([]uint32, error) {
	c, err := r.cell(offset)
	if err != nil {
		return nil, err
	}
	list, err := format.DecodeSubkeyList(c.Data)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	if !list.Indirect {
		return list.Offsets, nil
	}
	if !allowIndirect {
		return nil, &types.Error{Kind: types.ErrKindParse, Msg: "nested ri subkey list"}
	}
	var out []uint32
	for _, leaf := range list.Offsets {
		sub, err := r.subkeyList(leaf, false)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// bigData assembles a value split across big-data blocks.
func (r *Reader) bigData(dbData []byte, length int) ([]byte, error) {
	db, err := format.DecodeDB(dbData)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	lc, err := r.cell(db.BlocklistOffset)
	if err != nil {
		return nil, fmt.Errorf("db blocklist: %w", err)
	}
	blocks, err := format.DecodeValueList(lc.Data, uint32(db.NumBlocks))
	if err != nil {
		return nil, wrapFormatErr(fmt.Errorf("db blocklist: %w", err))
	}
	out := make([]byte, 0, length)
	for i, off := range blocks {
		bc, err := r.cell(off)
		if err != nil {
			return nil, fmt.Errorf("db block %d: %w", i, err)
		}
		data := bc.Data
		if len(data) > format.DBBlockPadding {
			data = data[:len(data)-format.DBBlockPadding]
		}
		data = data[:min(len(data), length-len(out))]
		out = append(out, data...)
		if len(out) == length {
			return out, nil
		}
	}
	return nil, &types.Error{
		Kind: types.ErrKindParse,
		Msg:  fmt.Sprintf("db data size mismatch: expected %d bytes, got %d", length, len(out)),
	}
}

// indexBins walks the bin chain once and records each bin's span.
func (r *Reader) indexBins() error {
	off := format.HeaderSize
	end := len(r.buf)
	if declared, ok := buf.AddOverflowSafe(format.HeaderSize, int(r.head.HiveBinsDataSize)); ok && declared < end {
		end = declared
	}
	for off < end {
		h, next, err := format.NextHBIN(r.buf, off)
		if err != nil {
			return wrapFormatErr(err)
		}
		r.bins = append(r.bins, binSpan{start: off, end: off + int(h.Size)})
		off = next
	}
	if len(r.bins) == 0 {
		return &types.Error{Kind: types.ErrKindParse, Msg: "hive has no bins"}
	}
	return nil
}

// cell resolves a bin-relative offset to an allocated cell that lies wholly
// inside one bin.
func (r *Reader) cell(offset uint32) (format.Cell, error) {
	if r.closed {
		return format.Cell{}, &types.Error{Kind: types.ErrKindIO, Msg: "hive is closed"}
	}
	abs := format.HeaderSize + int(offset)
	i := sort.Search(len(r.bins), func(i int) bool { return r.bins[i].end > abs })
	if offset == format.InvalidOffset || i == len(r.bins) || abs < r.bins[i].start+format.HBINHeaderSize {
		return format.Cell{}, &types.Error{
			Kind: types.ErrKindParse,
			Msg:  fmt.Sprintf("cell offset %#x out of range", offset),
		}
	}
	c, err := format.ParseCell(r.buf[abs:r.bins[i].end])
	if err != nil {
		return format.Cell{}, wrapFormatErr(err)
	}
	if c.Free {
		return format.Cell{}, &types.Error{
			Kind: types.ErrKindParse,
			Msg:  fmt.Sprintf("cell %#x marked free", offset),
		}
	}
	if c.Size > maxCellSize {
		return format.Cell{}, &types.Error{Kind: types.ErrKindParse, Msg: "cell exceeds size limit"}
	}
	return c, nil
}

// Error helpers --------------------------------------------------------------

func wrapFormatErr(err error) error {
	var te *types.Error
	if errors.As(err, &te) {
		return err
	}
	switch {
	case errors.Is(err, format.ErrSignatureMismatch):
		return &types.Error{Kind: types.ErrKindParse, Msg: "signature mismatch", Err: err}
	case errors.Is(err, format.ErrTruncated):
		return &types.Error{Kind: types.ErrKindParse, Msg: "hive truncated", Err: err}
	default:
		return &types.Error{Kind: types.ErrKindParse, Msg: "corrupt hive structure", Err: err}
	}
}
