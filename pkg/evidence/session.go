package evidence

import (
	"github.com/spf13/afero"

	"github.com/joshuapare/samkit/internal/partition"
	"github.com/joshuapare/samkit/pkg/types"
)

// Session is one mounted partition. Paths are forward-slash and rooted at
// the partition; NTFS lookups ignore case. A session is not safe for
// concurrent use.
type Session struct {
	Address PartitionAddress
	Entry   partition.Entry

	fs    afero.Fs
	owned *Image
}

// Fs returns the partition's read-only filesystem.
func (s *Session) Fs() afero.Fs { return s.fs }

// Locator returns a file locator for p in this partition.
func (s *Session) Locator(p string) FileLocator {
	return FileLocator{Partition: s.Address, Path: CleanPath(p)}
}

// Close releases the container when the session owns it.
func (s *Session) Close() error {
	if s.owned == nil {
		return nil
	}
	err := s.owned.Close()
	s.owned = nil
	return err
}

// List returns the entries of directory p sorted by name.
func (s *Session) List(p string) ([]DirEntry, error) {
	p = CleanPath(p)
	infos, err := afero.ReadDir(s.fs, p)
	if err != nil {
		return nil, pathError("list directory", s.Address.Index, p, err)
	}
	out := make([]DirEntry, 0, len(infos))
	for _, info := range infos {
		out = append(out, DirEntry{Name: info.Name(), IsDir: info.IsDir(), Size: info.Size()})
	}
	return out, nil
}

// Names returns the entry names of directory p.
func (s *Session) Names(p string) ([]string, error) {
	entries, err := s.List(p)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names, nil
}

// Stat describes the entry at p.
func (s *Session) Stat(p string) (DirEntry, error) {
	p = CleanPath(p)
	info, err := s.fs.Stat(p)
	if err != nil {
		return DirEntry{}, pathError("stat", s.Address.Index, p, err)
	}
	name := info.Name()
	if p == "/" {
		name = "/"
	}
	return DirEntry{Name: name, IsDir: info.IsDir(), Size: info.Size()}, nil
}

// Open opens the regular file at p.
func (s *Session) Open(p string) (afero.File, error) {
	p = CleanPath(p)
	info, err := s.fs.Stat(p)
	if err != nil {
		return nil, pathError("open", s.Address.Index, p, err)
	}
	if info.IsDir() {
		return nil, &types.Error{Kind: types.ErrKindAddress, Msg: "open: is a directory", Partition: s.Address.Index, Path: p}
	}
	f, err := s.fs.Open(p)
	if err != nil {
		return nil, pathError("open", s.Address.Index, p, err)
	}
	return f, nil
}

// ReadFile reads the whole regular file at p.
func (s *Session) ReadFile(p string) ([]byte, error) {
	f, err := s.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := afero.ReadAll(f)
	if err != nil {
		return nil, pathError("read", s.Address.Index, CleanPath(p), err)
	}
	return data, nil
}
