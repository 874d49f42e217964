package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/samkit/internal/config"
	"github.com/joshuapare/samkit/internal/testutil/samfixture"
	"github.com/joshuapare/samkit/pkg/evidence"
	"github.com/joshuapare/samkit/pkg/filetime"
	"github.com/joshuapare/samkit/pkg/record"
	"github.com/joshuapare/samkit/pkg/sam"
	"github.com/joshuapare/samkit/pkg/types"
)

func newWorkspace(t *testing.T) (*Workspace, *samfixture.Fixture) {
	t.Helper()
	fx := samfixture.New(t)
	cfg := config.NewDefaultConfig()
	cfg.Evidence.Workdir = samfixture.Workdir
	w, err := New(Options{Config: cfg, Fs: fx.Fs, Probes: []evidence.Probe{fx.Probe}})
	require.NoError(t, err)
	require.Equal(t, samfixture.Image, w.Image())
	return w, fx
}

func TestVolumeInfo(t *testing.T) {
	w, _ := newWorkspace(t)
	info, err := w.VolumeInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, evidence.KindEWF, info.Kind)
	assert.Equal(t, int64(512*512), info.SizeBytes)
	assert.Equal(t, 0.25, info.SizeMB)
}

func TestPartitions(t *testing.T) {
	w, _ := newWorkspace(t)
	report, err := w.Partitions(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Matches, 1)
	assert.Equal(t, 1, report.Matches[0].PartitionID)
	assert.Equal(t, []string{"Documents and Settings", "Users", "Windows"}, report.Matches[0].Listing)
	require.Len(t, report.Unreadable, 1)
	assert.Equal(t, 2, report.Unreadable[0].PartitionID)
}

func TestExtractSAM(t *testing.T) {
	w, fx := newWorkspace(t)
	ctx := context.Background()

	x, err := w.ExtractSAM(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "/work/partitions/1/extracted_SAM", x.LocalPath)
	assert.Equal(t, samfixture.SAMPath, x.Source)
	assert.Len(t, x.BLAKE3, 64)

	got, err := afero.ReadFile(fx.Fs, x.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, samfixture.SAM(), got)
	assert.Equal(t, int64(len(got)), x.Size)

	// Extracting again replaces the copy with identical bytes.
	again, err := w.ExtractSAM(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, x, again)

	// No temp files are left behind.
	infos, err := afero.ReadDir(fx.Fs, w.PartitionDir(1))
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "extracted_SAM", infos[0].Name())
}

func TestExtractHive_Errors(t *testing.T) {
	w, _ := newWorkspace(t)
	ctx := context.Background()

	_, err := w.ExtractHive(ctx, 1, "SOFTWARE")
	require.True(t, errors.Is(err, types.ErrAddress), "got %v", err)

	_, err = w.ExtractHive(ctx, 1, "SECURITY")
	require.True(t, errors.Is(err, types.ErrParse), "got %v", err)

	_, err = w.ExtractSAM(ctx, 2)
	require.True(t, errors.Is(err, types.ErrFormat), "got %v", err)

	_, err = w.ExtractSAM(ctx, 7)
	require.True(t, errors.Is(err, types.ErrAddress), "got %v", err)
}

func TestExtractSAM_Concurrent(t *testing.T) {
	w, _ := newWorkspace(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]Extraction, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = w.ExtractSAM(ctx, 1)
		}()
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].BLAKE3, results[i].BLAKE3)
	}
}

func TestListAccounts(t *testing.T) {
	w, _ := newWorkspace(t)
	ctx := context.Background()
	want := []sam.Name{
		{Name: "Administrator", RID: samfixture.RIDAdministrator},
		{Name: "Guest", RID: samfixture.RIDGuest},
		{Name: samfixture.Username, RID: samfixture.RIDUser},
	}

	// Straight from the image.
	names, err := w.ListAccounts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, want, names)

	// From the extracted copy.
	_, err = w.ExtractSAM(ctx, 1)
	require.NoError(t, err)
	names, err = w.ListAccounts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, want, names)
}

func TestUserFValue(t *testing.T) {
	w, _ := newWorkspace(t)
	ctx := context.Background()

	d, err := w.UserFValue(ctx, 1, samfixture.RIDUser)
	require.NoError(t, err)
	v, _ := d.Get("rid")
	assert.Equal(t, uint32(samfixture.RIDUser), v)
	v, _ = d.Get("logon_count")
	assert.Equal(t, uint16(42), v)
	v, _ = d.Get("last_logon")
	assert.Equal(t, filetime.Decode(samfixture.UserLastLogon), v)
	v, _ = d.Get("account_expires")
	assert.Equal(t, filetime.Decode(0x7FFFFFFFFFFFFFFF), v)

	first, err := json.Marshal(d)
	require.NoError(t, err)
	d2, err := w.UserFValue(ctx, 1, samfixture.RIDUser)
	require.NoError(t, err)
	second, err := json.Marshal(d2)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = w.UserFValue(ctx, 1, 0x4242)
	require.True(t, errors.Is(err, types.ErrNotFound), "got %v", err)
}

func TestUserFlags(t *testing.T) {
	w, _ := newWorkspace(t)
	report, err := w.UserFlags(context.Background(), 1, samfixture.RIDUser)
	require.NoError(t, err)
	assert.Equal(t, uint32(samfixture.RIDUser), report.RID)
	assert.Equal(t, uint32(samfixture.UserUAC), report.Mask)
	assert.Equal(t, []string{"LOCKOUT", "NORMAL_ACCOUNT"}, record.Labels(report.Flags))
}

func TestUserFlags_RIDMismatch(t *testing.T) {
	w, _ := newWorkspace(t)
	_, err := w.UserFlags(context.Background(), 1, samfixture.RIDMiskeyed)
	require.True(t, errors.Is(err, types.ErrParse), "got %v", err)
	assert.Contains(t, err.Error(), "000003EA records RID 1001")
}

func TestUserVValue(t *testing.T) {
	w, _ := newWorkspace(t)
	ctx := context.Background()

	d, err := w.UserVValue(ctx, 1, samfixture.RIDUser)
	require.NoError(t, err)
	v, _ := d.Get("username")
	assert.Equal(t, samfixture.Username, v)
	v, _ = d.Get("full_name")
	assert.Equal(t, samfixture.FullName, v)
	v, _ = d.Get("comment")
	assert.Equal(t, "", v)

	_, err = w.UserVValue(ctx, 1, samfixture.RIDGuest)
	require.True(t, errors.Is(err, types.ErrNotFound), "got %v", err)
}

func TestUserEmails(t *testing.T) {
	w, _ := newWorkspace(t)
	ctx := context.Background()

	arts, err := w.UserEmails(ctx, 1, samfixture.RIDUser)
	require.NoError(t, err)
	require.Len(t, arts, 3)
	for _, a := range arts {
		assert.Equal(t, "Wes Mantooth <wes@kvwn.example>", a.From)
		assert.NotEmpty(t, a.Subject)
		assert.NotEmpty(t, a.Date)
		assert.NotEmpty(t, a.To)
	}
	assert.Equal(t, samfixture.MailDir+"/Inbox/1.eml", arts[0].SourcePath)

	// Administrator has no mail store.
	_, err = w.UserEmails(ctx, 1, samfixture.RIDAdministrator)
	require.True(t, errors.Is(err, types.ErrAddress), "got %v", err)
}

func TestUsername_FallsBackToV(t *testing.T) {
	w, _ := newWorkspace(t)
	name, err := w.Username(context.Background(), 1, samfixture.RIDUser)
	require.NoError(t, err)
	assert.Equal(t, samfixture.Username, name)
}

func TestListAndReadFile(t *testing.T) {
	w, _ := newWorkspace(t)
	ctx := context.Background()

	entries, err := w.List(ctx, 1, "/Windows/System32/config")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "SAM", entries[0].Name)

	data, err := w.ReadFile(ctx, 1, samfixture.SAMPath)
	require.NoError(t, err)
	assert.Equal(t, samfixture.SAM(), data)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Evidence.Hives = map[string]string{"SECURITY": "/x"}
	_, err := New(Options{Config: cfg, Fs: afero.NewMemMapFs()})
	require.Error(t, err)
}
