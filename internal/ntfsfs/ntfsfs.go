// Package ntfsfs exposes an NTFS volume as a read-only afero.Fs on top of
// go-ntfs. Path lookup is case-insensitive, like NTFS itself. The parser
// panics on some malformed structures; every entry point recovers and
// reports a format error instead.
package ntfsfs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	ntfs "www.velocidex.com/golang/go-ntfs/parser"

	"github.com/joshuapare/samkit/pkg/types"
)

// PageSize is the paged reader's page size.
const PageSize = 0x1000

var oem = []byte("NTFS    ")

// Probe reports whether r starts with an NTFS boot sector.
func Probe(r io.ReaderAt) bool {
	var boot [11]byte
	if _, err := r.ReadAt(boot[:], 0); err != nil {
		return false
	}
	return bytes.Equal(boot[3:], oem)
}

// Fs is a read-only NTFS filesystem. It is not safe for concurrent use;
// the go-ntfs context caches MFT entries internally.
type Fs struct {
	ctx  *ntfs.NTFSContext
	root *ntfs.MFT_ENTRY
}

var _ afero.Fs = (*Fs)(nil)

// Open mounts the volume at the start of r.
func Open(r io.ReaderAt, cachePages int) (fs *Fs, err error) {
	defer recoverFormat(&err, "mount NTFS")
	if !Probe(r) {
		return nil, &types.Error{Kind: types.ErrKindFormat, Msg: "not an NTFS volume"}
	}
	paged, err := ntfs.NewPagedReader(r, PageSize, cachePages)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindFormat, Msg: "mount NTFS", Err: err}
	}
	ctx, err := ntfs.GetNTFSContext(paged, 0)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindFormat, Msg: "mount NTFS", Err: err}
	}
	root, err := ctx.GetMFT(5)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindFormat, Msg: "NTFS root directory", Err: err}
	}
	return &Fs{ctx: ctx, root: root}, nil
}

func recoverFormat(err *error, op string) {
	if r := recover(); r != nil {
		*err = &types.Error{Kind: types.ErrKindFormat, Msg: fmt.Sprintf("%s: NTFS parser failure: %v", op, r)}
	}
}

// components splits an afero-style path into NTFS path components.
func components(name string) []string {
	name = strings.ReplaceAll(name, `\`, "/")
	var out []string
	for _, c := range strings.Split(path.Clean("/"+name), "/") {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func notExist(op, name string) error {
	return &os.PathError{Op: op, Path: name, Err: os.ErrNotExist}
}

// listDir lists dir, dropping the "." and ".." entries and duplicate names.
func (fs *Fs) listDir(dir *ntfs.MFT_ENTRY) []*ntfs.FileInfo {
	var out []*ntfs.FileInfo
	seen := map[string]bool{}
	for _, info := range ntfs.ListDir(fs.ctx, dir) {
		if info == nil || info.Name == "." || info.Name == ".." || seen[info.Name] {
			continue
		}
		seen[info.Name] = true
		out = append(out, info)
	}
	return out
}

// lookup resolves name to its MFT entry and directory listing info. The
// root has no listing info and returns a synthesized one.
func (fs *Fs) lookup(op, name string) (*ntfs.MFT_ENTRY, os.FileInfo, error) {
	parts := components(name)
	if len(parts) == 0 {
		return fs.root, fileInfo{name: "/", dir: true}, nil
	}
	entry := fs.root
	var info *ntfs.FileInfo
	for _, part := range parts {
		info = nil
		for _, child := range fs.listDir(entry) {
			if strings.EqualFold(child.Name, part) {
				info = child
				break
			}
		}
		if info == nil {
			return nil, nil, notExist(op, name)
		}
		next, err := entry.Open(fs.ctx, info.Name)
		if err != nil {
			return nil, nil, notExist(op, name)
		}
		entry = next
	}
	return entry, toFileInfo(info), nil
}

func toFileInfo(info *ntfs.FileInfo) fileInfo {
	return fileInfo{name: info.Name, size: info.Size, dir: info.IsDir, mtime: info.Mtime}
}

// Open opens a file or directory for reading.
func (fs *Fs) Open(name string) (f afero.File, err error) {
	defer recoverFormat(&err, "open "+name)
	entry, info, err := fs.lookup("open", name)
	if err != nil {
		return nil, err
	}
	file := &File{fs: fs, name: name, entry: entry, info: info}
	if !info.IsDir() {
		data, err := ntfs.GetDataForPath(fs.ctx, `\`+strings.Join(components(name), `\`))
		if err != nil {
			return nil, &os.PathError{Op: "open", Path: name, Err: err}
		}
		file.data = data
	}
	return file, nil
}

// OpenFile opens name read-only; any write flag fails.
func (fs *Fs) OpenFile(name string, flag int, _ os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, readOnly("open", name)
	}
	return fs.Open(name)
}

// Stat returns the file info for name.
func (fs *Fs) Stat(name string) (fi os.FileInfo, err error) {
	defer recoverFormat(&err, "stat "+name)
	_, info, err := fs.lookup("stat", name)
	return info, err
}

// Name implements afero.Fs.
func (fs *Fs) Name() string { return "ntfs" }

func readOnly(op, name string) error {
	return &os.PathError{Op: op, Path: name, Err: syscall.EROFS}
}

func (fs *Fs) Create(name string) (afero.File, error) {
	return nil, readOnly("create", name)
}

func (fs *Fs) Mkdir(name string, _ os.FileMode) error {
	return readOnly("mkdir", name)
}

func (fs *Fs) MkdirAll(name string, _ os.FileMode) error {
	return readOnly("mkdir", name)
}

func (fs *Fs) Remove(name string) error {
	return readOnly("remove", name)
}

func (fs *Fs) RemoveAll(name string) error {
	return readOnly("remove", name)
}

func (fs *Fs) Rename(oldname, _ string) error {
	return readOnly("rename", oldname)
}

func (fs *Fs) Chmod(name string, _ os.FileMode) error {
	return readOnly("chmod", name)
}

func (fs *Fs) Chown(name string, _, _ int) error {
	return readOnly("chown", name)
}

func (fs *Fs) Chtimes(name string, _, _ time.Time) error {
	return readOnly("chtimes", name)
}
