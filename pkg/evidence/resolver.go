// Package evidence resolves partitions and files inside forensic evidence
// containers. A container is an EWF-E01 segment set, a raw image or a
// directory of already-exported partitions; each partition is mounted as a
// read-only afero.Fs and addressed by its 1-based index.
package evidence

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/joshuapare/samkit/internal/ewf"
	"github.com/joshuapare/samkit/internal/logger"
	"github.com/joshuapare/samkit/internal/ntfsfs"
	"github.com/joshuapare/samkit/pkg/types"
)

// Probe recognizes and mounts one filesystem type.
type Probe struct {
	Name  string
	Match func(r io.ReaderAt) bool
	Mount func(r io.ReaderAt, size int64) (afero.Fs, error)
}

// NTFSProbe returns the NTFS probe with the given page cache size.
func NTFSProbe(cachePages int) Probe {
	return Probe{
		Name:  "ntfs",
		Match: ntfsfs.Probe,
		Mount: func(r io.ReaderAt, _ int64) (afero.Fs, error) {
			return ntfsfs.Open(r, cachePages)
		},
	}
}

// DefaultCachePages is the NTFS page cache size used when none is set.
const DefaultCachePages = 1024

var rawExtensions = map[string]bool{
	".dd": true, ".raw": true, ".img": true, ".001": true, ".bin": true,
}

// Resolver opens containers stored on a native filesystem.
type Resolver struct {
	fs     afero.Fs
	log    *slog.Logger
	probes []Probe
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFs sets the native filesystem containers are read from.
func WithFs(fs afero.Fs) Option {
	return func(r *Resolver) { r.fs = fs }
}

// WithLogger sets the resolver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// WithProbes replaces the filesystem probe list. Probes are tried in order.
func WithProbes(p ...Probe) Option {
	return func(r *Resolver) { r.probes = p }
}

// NewResolver returns a resolver over the OS filesystem with NTFS support.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, o := range opts {
		o(r)
	}
	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	if r.probes == nil {
		r.probes = []Probe{NTFSProbe(DefaultCachePages)}
	}
	r.log = logger.Or(r.log)
	return r
}

// Fs returns the native filesystem.
func (r *Resolver) Fs() afero.Fs { return r.fs }

// Detect identifies the container codec at path: directories are dir
// containers, the EVF signature marks EWF, and raw images are recognized
// by extension or a boot sector signature.
func (r *Resolver) Detect(path string) (Container, error) {
	info, err := r.fs.Stat(path)
	if err != nil {
		return Container{}, pathError("open container", 0, path, err)
	}
	if info.IsDir() {
		return Container{Path: path, Kind: KindDir}, nil
	}
	f, err := r.fs.Open(path)
	if err != nil {
		return Container{}, pathError("open container", 0, path, err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Container{}, pathError("read container", 0, path, err)
	}
	head = head[:n]
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case bytes.HasPrefix(head, ewf.Signature):
		return Container{Path: path, Kind: KindEWF}, nil
	case ext == ".e01":
		return Container{}, &types.Error{Kind: types.ErrKindFormat, Msg: "E01 file without EWF signature", Path: path}
	case rawExtensions[ext], n == 512 && head[510] == 0x55 && head[511] == 0xAA:
		return Container{Path: path, Kind: KindRaw, Size: info.Size()}, nil
	}
	return Container{}, &types.Error{Kind: types.ErrKindFormat, Msg: "unrecognized evidence container", Path: path}
}

// OpenContainer opens the container at path. The partition table is not
// read until a partition is requested.
func (r *Resolver) OpenContainer(ctx context.Context, path string) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := r.Detect(path)
	if err != nil {
		return nil, err
	}
	im := &Image{Container: c, r: r}
	switch c.Kind {
	case KindEWF:
		er, err := ewf.Open(r.fs, path)
		if err != nil {
			return nil, err
		}
		im.media, im.closer = er, er
		im.Size = er.Size()
	case KindRaw:
		f, err := r.fs.Open(path)
		if err != nil {
			return nil, pathError("open container", 0, path, err)
		}
		im.media, im.closer = f, f
	case KindDir:
		size, err := dirSize(r.fs, path)
		if err != nil {
			return nil, err
		}
		im.Size = size
	}
	r.log.Debug("opened container", "path", path, "kind", c.Kind, "size", im.Size)
	return im, nil
}

// OpenSession opens the container and mounts one partition. Closing the
// session closes the container.
func (r *Resolver) OpenSession(ctx context.Context, addr PartitionAddress) (*Session, error) {
	im, err := r.OpenContainer(ctx, addr.Container)
	if err != nil {
		return nil, err
	}
	s, err := im.Session(ctx, addr.Index)
	if err != nil {
		_ = im.Close()
		return nil, err
	}
	s.owned = im
	return s, nil
}

// List lists the directory at loc.
func (r *Resolver) List(ctx context.Context, loc FileLocator) ([]DirEntry, error) {
	s, err := r.OpenSession(ctx, loc.Partition)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.List(loc.Path)
}

// ReadFile reads the whole file at loc.
func (r *Resolver) ReadFile(ctx context.Context, loc FileLocator) ([]byte, error) {
	s, err := r.OpenSession(ctx, loc.Partition)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.ReadFile(loc.Path)
}

// Open opens the file at loc. Closing the returned reader releases the
// container.
func (r *Resolver) Open(ctx context.Context, loc FileLocator) (io.ReadCloser, error) {
	s, err := r.OpenSession(ctx, loc.Partition)
	if err != nil {
		return nil, err
	}
	f, err := s.Open(loc.Path)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return &sessionFile{File: f, s: s}, nil
}

type sessionFile struct {
	afero.File
	s *Session
}

func (f *sessionFile) Close() error {
	err := f.File.Close()
	if cerr := f.s.Close(); err == nil {
		err = cerr
	}
	return err
}

// VolumeInfo describes a container's size.
type VolumeInfo struct {
	Path      string  `json:"path"`
	Kind      Kind    `json:"kind"`
	SizeBytes int64   `json:"size_bytes"`
	SizeMB    float64 `json:"size_MB"`
}

// VolumeInfo reports the media size of the container at path.
func (r *Resolver) VolumeInfo(ctx context.Context, path string) (VolumeInfo, error) {
	im, err := r.OpenContainer(ctx, path)
	if err != nil {
		return VolumeInfo{}, err
	}
	defer im.Close()
	return VolumeInfo{
		Path:      path,
		Kind:      im.Kind,
		SizeBytes: im.Size,
		SizeMB:    math.Round(float64(im.Size)/(1024*1024)*100) / 100,
	}, nil
}

func dirSize(fs afero.Fs, root string) (int64, error) {
	var total int64
	err := afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, pathError("walk container", 0, root, err)
	}
	return total, nil
}
