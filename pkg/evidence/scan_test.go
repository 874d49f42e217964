package evidence

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/samkit/internal/testutil/imagebuild"
	"github.com/joshuapare/samkit/pkg/types"
)

func TestScan_DirContainer(t *testing.T) {
	r := NewResolver(WithFs(exported(t)))

	report, err := NewScanner(r, DefaultScanOptions()).Scan(context.Background(), "/ev/exported")
	require.NoError(t, err)
	assert.Equal(t, []Match{
		{PartitionID: 1, Listing: []string{"Documents and Settings", "pagefile.sys"}},
		{PartitionID: 3, Listing: []string{"Documents and Settings"}},
	}, report.Matches)
	assert.Empty(t, report.Unreadable)
}

func TestScan_Window(t *testing.T) {
	r := NewResolver(WithFs(exported(t)))
	opts := DefaultScanOptions()
	opts.First, opts.Last = 2, 3

	report, err := NewScanner(r, opts).Scan(context.Background(), "/ev/exported")
	require.NoError(t, err)
	require.Len(t, report.Matches, 1)
	assert.Equal(t, 3, report.Matches[0].PartitionID)

	opts.First, opts.Last = 4, 2
	_, err = NewScanner(r, opts).Scan(context.Background(), "/ev/exported")
	require.True(t, errors.Is(err, types.ErrAddress), "got %v", err)
}

func TestScan_NoPartitions(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/ev/blank.dd", imagebuild.Disk(64), 0o644))
	r := NewResolver(WithFs(fs))

	report, err := NewScanner(r, DefaultScanOptions()).Scan(context.Background(), "/ev/blank.dd")
	require.NoError(t, err)
	assert.Empty(t, report.Matches)
	assert.NotNil(t, report.Matches)
	assert.Empty(t, report.Unreadable)
}

func TestScan_UnreadableSlot(t *testing.T) {
	fs := afero.NewMemMapFs()
	ewfPath := writeEWF(t, fs, "/ev/disk", mbrDisk())
	r := NewResolver(WithFs(fs), WithProbes(fakeFS))

	report, err := NewScanner(r, DefaultScanOptions()).Scan(context.Background(), ewfPath)
	require.NoError(t, err)
	require.Len(t, report.Matches, 1)
	assert.Equal(t, 1, report.Matches[0].PartitionID)
	assert.Equal(t, []string{"Documents and Settings", "Windows"}, report.Matches[0].Listing)
	require.Len(t, report.Unreadable, 1)
	assert.Equal(t, 2, report.Unreadable[0].PartitionID)
}

func TestScan_ContainerFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	ewfPath := writeEWF(t, fs, "/ev/disk", mbrDisk())
	require.NoError(t, fs.Remove("/ev/disk.E04"))
	r := NewResolver(WithFs(fs), WithProbes(fakeFS))
	s := NewScanner(r, DefaultScanOptions())

	_, err := s.Scan(context.Background(), ewfPath)
	require.True(t, errors.Is(err, types.ErrFormat), "got %v", err)

	_, err = s.Scan(context.Background(), "/ev/absent.E01")
	require.True(t, errors.Is(err, types.ErrAddress), "got %v", err)
}

func TestScan_Cancelled(t *testing.T) {
	r := NewResolver(WithFs(exported(t)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner(r, DefaultScanOptions()).Scan(ctx, "/ev/exported")
	require.ErrorIs(t, err, context.Canceled)
}
