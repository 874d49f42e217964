package evidence

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/joshuapare/samkit/internal/partition"
	"github.com/joshuapare/samkit/pkg/types"
)

// Image is an opened container. Media-backed images expose their bytes
// through an io.ReaderAt; dir containers have none.
type Image struct {
	Container

	r      *Resolver
	media  io.ReaderAt
	closer io.Closer

	tableOnce sync.Once
	table     partition.Table
	tableErr  error
}

// Media returns the container's media, or nil for dir containers.
func (im *Image) Media() io.ReaderAt { return im.media }

// Close releases the container's files.
func (im *Image) Close() error {
	if im.closer == nil {
		return nil
	}
	err := im.closer.Close()
	im.closer = nil
	return err
}

// Partitions returns the container's partition table, decoding it on
// first use.
func (im *Image) Partitions() (partition.Table, error) {
	im.tableOnce.Do(func() {
		if im.Kind == KindDir {
			im.table, im.tableErr = im.dirTable()
		} else {
			im.table, im.tableErr = partition.Read(im.media, im.Size)
		}
		if im.tableErr != nil {
			im.tableErr = contextualize(im.tableErr, im.Path)
		}
	})
	return im.table, im.tableErr
}

// dirTable numbers the pN subdirectories of a dir container.
func (im *Image) dirTable() (partition.Table, error) {
	infos, err := afero.ReadDir(im.r.fs, im.Path)
	if err != nil {
		return partition.Table{}, pathError("list container", 0, im.Path, err)
	}
	t := partition.Table{Scheme: partition.SchemeDir}
	for _, info := range infos {
		rest, ok := strings.CutPrefix(info.Name(), "p")
		if !ok || !info.IsDir() {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 || strconv.Itoa(n) != rest {
			continue
		}
		t.Entries = append(t.Entries, partition.Entry{Index: n, Type: "dir", Name: info.Name()})
	}
	sort.Slice(t.Entries, func(i, j int) bool { return t.Entries[i].Index < t.Entries[j].Index })
	return t, nil
}

func contextualize(err error, p string) error {
	if te, ok := err.(*types.Error); ok && te.Path == "" {
		cp := *te
		cp.Path = p
		return &cp
	}
	return err
}

// Session mounts partition index. The session borrows the image; closing it
// leaves the image open.
func (im *Image) Session(ctx context.Context, index int) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, err := im.Partitions()
	if err != nil {
		return nil, err
	}
	entry, err := table.Get(index)
	if err != nil {
		return nil, contextualize(err, im.Path)
	}
	addr := PartitionAddress{Container: im.Path, Index: index}

	if im.Kind == KindDir {
		base := path.Join(im.Path, entry.Name)
		return &Session{Address: addr, Entry: entry, fs: afero.NewReadOnlyFs(afero.NewBasePathFs(im.r.fs, base))}, nil
	}

	section := io.NewSectionReader(im.media, entry.Start, entry.Length)
	for _, p := range im.r.probes {
		if !p.Match(section) {
			continue
		}
		fs, err := p.Mount(section, entry.Length)
		if err != nil {
			kind := types.KindOf(err)
			if kind == types.ErrKindUnknown {
				kind = types.ErrKindFormat
			}
			return nil, &types.Error{Kind: kind, Msg: "mount " + p.Name, Partition: index, Path: im.Path, Err: err}
		}
		im.r.log.Debug("mounted partition", "container", im.Path, "partition", index, "fs", p.Name)
		return &Session{Address: addr, Entry: entry, fs: afero.NewReadOnlyFs(fs)}, nil
	}
	return nil, &types.Error{
		Kind:      types.ErrKindFormat,
		Msg:       fmt.Sprintf("no supported filesystem (partition type %s)", entry.Type),
		Partition: index,
		Path:      im.Path,
	}
}
