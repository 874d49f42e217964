package evidence

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/joshuapare/samkit/pkg/types"
)

// Kind identifies an evidence container codec.
type Kind string

const (
	// KindEWF is an EnCase EWF-E01 segment set.
	KindEWF Kind = "ewf"
	// KindRaw is a flat byte-for-byte image.
	KindRaw Kind = "raw"
	// KindDir is a directory of exported partitions named p1, p2, ...
	KindDir Kind = "dir"
)

// Container describes an opened evidence container.
type Container struct {
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
	Size int64  `json:"size"`
}

// PartitionAddress selects one partition of a container by 1-based index.
type PartitionAddress struct {
	Container string `json:"container"`
	Index     int    `json:"index"`
}

// Locator renders the partition as "/pN".
func (a PartitionAddress) Locator() string {
	return fmt.Sprintf("/p%d", a.Index)
}

// ParseLocator parses "/pN" or "pN" into N.
func ParseLocator(s string) (int, error) {
	rest, ok := strings.CutPrefix(strings.TrimPrefix(s, "/"), "p")
	if !ok || rest == "" {
		return 0, &types.Error{Kind: types.ErrKindAddress, Msg: fmt.Sprintf("bad partition locator %q", s)}
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, &types.Error{Kind: types.ErrKindAddress, Msg: fmt.Sprintf("bad partition locator %q", s)}
	}
	return n, nil
}

// FileLocator is a forward-slash path inside one partition.
type FileLocator struct {
	Partition PartitionAddress `json:"partition"`
	Path      string           `json:"path"`
}

// At returns a locator for p inside partition index of container.
func At(container string, index int, p string) FileLocator {
	return FileLocator{Partition: PartitionAddress{Container: container, Index: index}, Path: CleanPath(p)}
}

func (l FileLocator) String() string {
	return l.Partition.Container + l.Partition.Locator() + CleanPath(l.Path)
}

// CleanPath normalizes a partition path to an absolute, forward-slash form.
func CleanPath(p string) string {
	return path.Clean("/" + strings.ReplaceAll(p, `\`, "/"))
}

// DirEntry is one directory listing entry.
type DirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}
