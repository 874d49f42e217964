package partition

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/samkit/internal/testutil/imagebuild"
	"github.com/joshuapare/samkit/pkg/types"
)

func read(t *testing.T, disk []byte) (Table, error) {
	t.Helper()
	return Read(bytes.NewReader(disk), int64(len(disk)))
}

func TestRead_MBRWithLogicals(t *testing.T) {
	disk := imagebuild.Disk(400)
	imagebuild.MBR(disk,
		[]imagebuild.Part{{Type: 0x07, Start: 63, Sectors: 100}, {Type: 0x0B, Start: 163, Sectors: 50}},
		220,
		[]imagebuild.Part{{Type: 0x07, Start: 221, Sectors: 60}, {Type: 0x83, Start: 300, Sectors: 90}},
	)

	table, err := read(t, disk)
	require.NoError(t, err)
	assert.Equal(t, SchemeMBR, table.Scheme)
	require.Len(t, table.Entries, 4)

	want := []Entry{
		{Index: 1, Start: 63 * 512, Length: 100 * 512, Type: "0x07"},
		{Index: 2, Start: 163 * 512, Length: 50 * 512, Type: "0x0B"},
		{Index: 3, Start: 221 * 512, Length: 60 * 512, Type: "0x07"},
		{Index: 4, Start: 300 * 512, Length: 90 * 512, Type: "0x83"},
	}
	assert.Equal(t, want, table.Entries)
	assert.Equal(t, "/p3", table.Entries[2].Locator())
}

func TestRead_EBRLoop(t *testing.T) {
	disk := imagebuild.Disk(300)
	imagebuild.MBR(disk, nil, 100,
		[]imagebuild.Part{{Type: 0x07, Start: 101, Sectors: 5}, {Type: 0x07, Start: 111, Sectors: 5}})
	// Point the second EBR's next link back at itself.
	ebr2 := 110 * 512
	entry := disk[ebr2+446+16:]
	entry[4] = 0x05
	binary.LittleEndian.PutUint32(entry[8:], 10)
	binary.LittleEndian.PutUint32(entry[12:], 6)

	_, err := read(t, disk)
	require.True(t, errors.Is(err, types.ErrFormat), "got %v", err)
}

func TestRead_GPT(t *testing.T) {
	disk := imagebuild.Disk(400)
	imagebuild.GPT(disk, []imagebuild.GPTPart{
		{First: 40, Last: 139, Name: "Basic data partition"},
		{},
		{First: 200, Last: 299, Name: "Recovery"},
	})

	table, err := read(t, disk)
	require.NoError(t, err)
	assert.Equal(t, SchemeGPT, table.Scheme)
	require.Len(t, table.Entries, 2)

	assert.Equal(t, Entry{
		Index: 1, Start: 40 * 512, Length: 100 * 512,
		Type: "EBD0A0A2-B9E5-4433-87C0-68B6B72699C7", Name: "Basic data partition",
	}, table.Entries[0])
	assert.Equal(t, 2, table.Entries[1].Index)
	assert.Equal(t, int64(200*512), table.Entries[1].Start)
	assert.Equal(t, "Recovery", table.Entries[1].Name)
}

func TestRead_GPTChecksum(t *testing.T) {
	disk := imagebuild.Disk(400)
	imagebuild.GPT(disk, []imagebuild.GPTPart{{First: 40, Last: 139}})
	disk[2*512+40]++ // corrupt the entry array

	_, err := read(t, disk)
	require.True(t, errors.Is(err, types.ErrFormat))
}

func TestRead_BareNTFS(t *testing.T) {
	disk := imagebuild.Disk(64)
	imagebuild.NTFSBoot(disk, 64)

	table, err := read(t, disk)
	require.NoError(t, err)
	assert.Equal(t, SchemeVolume, table.Scheme)
	assert.Equal(t, []Entry{{Index: 1, Length: 64 * 512, Type: "NTFS"}}, table.Entries)
}

func TestRead_Blank(t *testing.T) {
	_, err := read(t, imagebuild.Disk(8))
	require.True(t, errors.Is(err, types.ErrFormat))

	_, err = read(t, make([]byte, 100))
	require.True(t, errors.Is(err, types.ErrIO))
}

func TestTable_Get(t *testing.T) {
	table := Table{Scheme: SchemeMBR, Entries: []Entry{{Index: 1}, {Index: 2}}}

	e, err := table.Get(2)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Index)

	for _, idx := range []int{0, 3, -1} {
		_, err := table.Get(idx)
		require.True(t, errors.Is(err, types.ErrAddress), "index %d", idx)
	}
}

func TestTable_GetSparse(t *testing.T) {
	table := Table{Scheme: SchemeDir, Entries: []Entry{{Index: 1}, {Index: 3}}}

	e, err := table.Get(3)
	require.NoError(t, err)
	assert.Equal(t, 3, e.Index)

	_, err = table.Get(2)
	require.True(t, errors.Is(err, types.ErrAddress))
}
