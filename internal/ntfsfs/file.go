package ntfsfs

import (
	"io"
	"os"
	"time"

	ntfs "www.velocidex.com/golang/go-ntfs/parser"
)

// fileInfo implements os.FileInfo for NTFS entries.
type fileInfo struct {
	name  string
	size  int64
	dir   bool
	mtime time.Time
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) ModTime() time.Time { return fi.mtime }
func (fi fileInfo) IsDir() bool        { return fi.dir }
func (fi fileInfo) Sys() any           { return nil }

func (fi fileInfo) Mode() os.FileMode {
	if fi.dir {
		return os.ModeDir | 0o555
	}
	return 0o444
}

// File is an open NTFS file or directory.
type File struct {
	fs    *Fs
	name  string
	entry *ntfs.MFT_ENTRY
	info  os.FileInfo
	data  ntfs.RangeReaderAt
	pos   int64
	// listed is the directory cursor for Readdir.
	listed []os.FileInfo
	cursor int
}

func (f *File) Name() string               { return f.name }
func (f *File) Stat() (os.FileInfo, error) { return f.info, nil }
func (f *File) Close() error               { return nil }
func (f *File) Sync() error                { return nil }

// ReadAt reads from the file's default data stream.
func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	defer recoverFormat(&err, "read "+f.name)
	if f.data == nil {
		return 0, &os.PathError{Op: "read", Path: f.name, Err: errIsDir}
	}
	size := f.info.Size()
	if off >= size {
		return 0, io.EOF
	}
	want := p
	if rem := size - off; int64(len(want)) > rem {
		want = want[:rem]
	}
	n, err = f.data.ReadAt(want, off)
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (f *File) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.pos)
	f.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += f.pos
	case io.SeekEnd:
		offset += f.info.Size()
	}
	if offset < 0 {
		return 0, &os.PathError{Op: "seek", Path: f.name, Err: os.ErrInvalid}
	}
	f.pos = offset
	return offset, nil
}

// Readdir lists the directory like os.File.Readdir.
func (f *File) Readdir(count int) (infos []os.FileInfo, err error) {
	defer recoverFormat(&err, "readdir "+f.name)
	if !f.info.IsDir() {
		return nil, &os.PathError{Op: "readdir", Path: f.name, Err: errNotDir}
	}
	if f.listed == nil {
		for _, info := range f.fs.listDir(f.entry) {
			f.listed = append(f.listed, toFileInfo(info))
		}
		if f.listed == nil {
			f.listed = []os.FileInfo{}
		}
	}
	rest := f.listed[f.cursor:]
	if count <= 0 {
		f.cursor = len(f.listed)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	n := min(count, len(rest))
	f.cursor += n
	return rest[:n], nil
}

func (f *File) Readdirnames(n int) ([]string, error) {
	infos, err := f.Readdir(n)
	names := make([]string, len(infos))
	for i, fi := range infos {
		names[i] = fi.Name()
	}
	return names, err
}

func (f *File) Write([]byte) (int, error)          { return 0, readOnly("write", f.name) }
func (f *File) WriteAt([]byte, int64) (int, error) { return 0, readOnly("write", f.name) }
func (f *File) WriteString(string) (int, error)    { return 0, readOnly("write", f.name) }
func (f *File) Truncate(int64) error               { return readOnly("truncate", f.name) }
