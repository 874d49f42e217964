package ntfsfs

import (
	"bytes"
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/samkit/internal/testutil/imagebuild"
	"github.com/joshuapare/samkit/pkg/types"
)

func TestProbe(t *testing.T) {
	disk := imagebuild.Disk(16)
	assert.False(t, Probe(bytes.NewReader(disk)))
	assert.False(t, Probe(bytes.NewReader(nil)))

	imagebuild.NTFSBoot(disk, 16)
	assert.True(t, Probe(bytes.NewReader(disk)))
}

func TestOpen_RejectsNonNTFS(t *testing.T) {
	_, err := Open(bytes.NewReader(imagebuild.Disk(16)), 16)
	require.True(t, errors.Is(err, types.ErrFormat), "got %v", err)
}

func TestOpen_BootSectorOnly(t *testing.T) {
	// A boot sector with no MFT behind it must fail cleanly, whether the
	// parser returns an error or panics.
	disk := imagebuild.Disk(64)
	imagebuild.NTFSBoot(disk, 64)
	_, err := Open(bytes.NewReader(disk), 16)
	require.True(t, errors.Is(err, types.ErrFormat), "got %v", err)
}

func TestComponents(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"/", nil},
		{"", nil},
		{"/Windows/System32/config/SAM", []string{"Windows", "System32", "config", "SAM"}},
		{`\Users\alice\`, []string{"Users", "alice"}},
		{"Users/../Windows", []string{"Windows"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, components(tt.in), tt.in)
	}
}

func TestReadOnly(t *testing.T) {
	fs := &Fs{}
	_, err := fs.OpenFile("/x", os.O_RDWR, 0)
	require.True(t, errors.Is(err, syscall.EROFS))
	require.True(t, errors.Is(fs.Remove("/x"), syscall.EROFS))
	require.True(t, errors.Is(fs.MkdirAll("/x/y", 0o755), syscall.EROFS))
	assert.Equal(t, "ntfs", fs.Name())
}

func TestFileInfo(t *testing.T) {
	dir := fileInfo{name: "config", dir: true}
	assert.True(t, dir.Mode().IsDir())
	file := fileInfo{name: "SAM", size: 262144}
	assert.Equal(t, os.FileMode(0o444), file.Mode())
	assert.Equal(t, int64(262144), file.Size())
}
