package hive

import (
	"github.com/joshuapare/samkit/internal/format"
	"github.com/joshuapare/samkit/internal/reader"
	"github.com/joshuapare/samkit/pkg/filetime"
	"github.com/joshuapare/samkit/pkg/types"
)

// Hive is an open registry hive.
type Hive struct {
	r *reader.Reader
}

// Info summarizes the hive base block.
type Info struct {
	PrimarySequence   uint32
	SecondarySequence uint32
	LastWrite         filetime.Value
	MajorVersion      uint32
	MinorVersion      uint32
	// Dirty is set when the sequence numbers disagree, i.e. the image was
	// captured with pending transaction-log changes.
	Dirty bool
}

// Open parses an in-memory hive image. The buffer must not be modified
// while the Hive is in use.
func Open(data []byte) (*Hive, error) {
	r, err := reader.OpenBytes(data)
	if err != nil {
		return nil, err
	}
	return &Hive{r: r}, nil
}

// OpenFile memory-maps the hive at path. The caller must Close it.
func OpenFile(path string) (*Hive, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, err
	}
	return &Hive{r: r}, nil
}

// Close releases the underlying mapping. Keys obtained from the hive are
// unusable afterwards.
func (h *Hive) Close() error {
	return h.r.Close()
}

// Info returns the decoded base block.
func (h *Hive) Info() Info {
	return infoFromHeader(h.r.Header())
}

func infoFromHeader(head format.Header) Info {
	return Info{
		PrimarySequence:   head.PrimarySequence,
		SecondarySequence: head.SecondarySequence,
		LastWrite:         filetime.Decode(head.LastWriteRaw),
		MajorVersion:      head.MajorVersion,
		MinorVersion:      head.MinorVersion,
		Dirty:             head.Dirty(),
	}
}

// Root returns the root key.
func (h *Hive) Root() (Key, error) {
	return h.key(h.r.Root())
}

// Resolve walks path from the root key.
func (h *Hive) Resolve(path string) (Key, error) {
	id, err := h.r.Find(path)
	if err != nil {
		return Key{}, err
	}
	return h.key(id)
}

func (h *Hive) key(id types.NodeID) (Key, error) {
	name, err := h.r.KeyName(id)
	if err != nil {
		return Key{}, err
	}
	ts, err := h.r.KeyTimestamp(id)
	if err != nil {
		return Key{}, err
	}
	return Key{h: h, id: id, name: name, lastWrite: ts}, nil
}
