package reader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/samkit/internal/format"
	"github.com/joshuapare/samkit/internal/testutil/hivebuild"
	"github.com/joshuapare/samkit/pkg/types"
)

// samTree mirrors the layout of a SAM hive with two accounts.
func samTree() *hivebuild.Key {
	names := hivebuild.K("Names",
		hivebuild.K("Administrator").With(hivebuild.Value{Type: 0x1F4}),
		hivebuild.K("Guest").With(hivebuild.Value{Type: 0x1F5}),
	)
	users := hivebuild.K("Users",
		hivebuild.K("000001F4").With(
			hivebuild.Value{Name: "F", Type: uint32(types.REG_BINARY), Data: bytes.Repeat([]byte{0xAA}, 80)},
			hivebuild.Value{Name: "V", Type: uint32(types.REG_BINARY), Data: bytes.Repeat([]byte{0xBB}, 300)},
		),
		hivebuild.K("000001F5").With(
			hivebuild.Value{Name: "F", Type: uint32(types.REG_BINARY), Data: []byte{1, 2, 3}},
		),
		names,
	)
	root := hivebuild.K("ROOT",
		hivebuild.K("SAM", hivebuild.K("Domains", hivebuild.K("Account", users))),
	)
	root.LastWrite = 128919356295000000
	return root
}

func openTree(t *testing.T, root *hivebuild.Key) *Reader {
	t.Helper()
	r, err := OpenBytes(hivebuild.Build(root))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestOpenBytes_RootKey(t *testing.T) {
	r := openTree(t, samTree())

	name, err := r.KeyName(r.Root())
	require.NoError(t, err)
	require.Equal(t, "ROOT", name)

	ts, err := r.KeyTimestamp(r.Root())
	require.NoError(t, err)
	require.Equal(t, uint64(128919356295000000), ts)
	require.False(t, r.Header().Dirty())
}

func TestOpenBytes_RejectsCorruptInput(t *testing.T) {
	good := hivebuild.Build(samTree())

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"short", func(b []byte) []byte { return b[:100] }},
		{"bad signature", func(b []byte) []byte { b[0] = 'x'; return b }},
		{"bad bin signature", func(b []byte) []byte { b[format.HeaderSize] = 'x'; return b }},
		{"root out of range", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[format.REGFRootCellOffset:], 0x7FFFFFF0)
			return b
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.mutate(append([]byte(nil), good...))
			_, err := OpenBytes(b)
			require.Error(t, err)
			require.True(t, errors.Is(err, types.ErrParse), "want parse error, got %v", err)
		})
	}
}

func TestFind(t *testing.T) {
	r := openTree(t, samTree())

	tests := []struct {
		name string
		path string
		want string
	}{
		{"plain", `SAM\Domains\Account\Users`, "Users"},
		{"case insensitive", `sam\DOMAINS\account\users`, "Users"},
		{"forward slashes", "SAM/Domains/Account", "Account"},
		{"hklm prefix", `HKLM\SAM\Domains`, "Domains"},
		{"root name prefix", `ROOT\SAM\Domains`, "Domains"},
		{"empty", "", "ROOT"},
		{"trailing separator", `SAM\Domains\`, "Domains"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := r.Find(tt.path)
			require.NoError(t, err)
			name, err := r.KeyName(id)
			require.NoError(t, err)
			require.Equal(t, tt.want, name)
		})
	}
}

func TestFind_RootNamedLikeChild(t *testing.T) {
	// Real SAM hives have a root named after the file and a child "SAM".
	root := hivebuild.K("SAM", hivebuild.K("SAM", hivebuild.K("Domains")))
	r := openTree(t, root)

	id, err := r.Find(`SAM\Domains`)
	require.NoError(t, err)
	name, err := r.KeyName(id)
	require.NoError(t, err)
	require.Equal(t, "Domains", name)
}

func TestFind_MissingSegment(t *testing.T) {
	r := openTree(t, samTree())

	_, err := r.Find(`SAM\Domains\Builtin\Users`)
	require.Error(t, err)
	require.True(t, errors.Is(err, types.ErrKeyNotFound))

	var te *types.Error
	require.True(t, errors.As(err, &te))
	require.Equal(t, `SAM\Domains\Builtin\Users`, te.Key)
	require.Contains(t, te.Msg, `"Builtin"`)
}

func TestSubkeys_OnDiskOrder(t *testing.T) {
	r := openTree(t, samTree())

	users, err := r.Find(`SAM\Domains\Account\Users`)
	require.NoError(t, err)
	children, err := r.Subkeys(users)
	require.NoError(t, err)

	var names []string
	for _, c := range children {
		n, err := r.KeyName(c)
		require.NoError(t, err)
		names = append(names, n)
	}
	require.Equal(t, []string{"000001F4", "000001F5", "Names"}, names)
}

func TestSubkeys_IndirectList(t *testing.T) {
	parent := hivebuild.K("Users")
	for i := range 10 {
		parent.Subkeys = append(parent.Subkeys, hivebuild.K(fmt.Sprintf("%08X", 1000+i)))
	}
	parent.LeafSize = 3
	r := openTree(t, hivebuild.K("ROOT", parent))

	id, err := r.Find("Users")
	require.NoError(t, err)
	children, err := r.Subkeys(id)
	require.NoError(t, err)
	require.Len(t, children, 10)

	last, err := r.KeyName(children[9])
	require.NoError(t, err)
	require.Equal(t, "000003F1", last)

	found, err := r.Lookup(id, "000003ef")
	require.NoError(t, err)
	name, err := r.KeyName(found)
	require.NoError(t, err)
	require.Equal(t, "000003EF", name)
}

func TestKeyName_Encodings(t *testing.T) {
	wide := &hivebuild.Key{Name: "Benutzeré中", UTF16Name: true}
	latin := &hivebuild.Key{Name: "caf\xe9"}
	r := openTree(t, hivebuild.K("ROOT", wide, latin))

	children, err := r.Subkeys(r.Root())
	require.NoError(t, err)
	require.Len(t, children, 2)

	got, err := r.KeyName(children[0])
	require.NoError(t, err)
	require.Equal(t, "Benutzeré中", got)

	got, err = r.KeyName(children[1])
	require.NoError(t, err)
	require.Equal(t, "café", got)
}

func TestValues(t *testing.T) {
	big := bytes.Repeat([]byte("0123456789abcdef"), 2100)
	root := hivebuild.K("ROOT").With(
		hivebuild.Value{Name: "inline", Type: uint32(types.REG_DWORD), Data: []byte{1, 0, 0, 0}},
		hivebuild.Value{Name: "short", Type: uint32(types.REG_BINARY), Data: []byte{9, 8}},
		hivebuild.Value{Name: "empty", Type: uint32(types.REG_BINARY)},
		hivebuild.Value{Name: "cell", Type: uint32(types.REG_SZ), Data: hivebuild.UTF16("hello\x00")},
		hivebuild.Value{Name: "big", Type: uint32(types.REG_BINARY), Data: big},
	)
	r := openTree(t, root)

	tests := []struct {
		name string
		typ  types.RegType
		want []byte
	}{
		{"inline", types.REG_DWORD, []byte{1, 0, 0, 0}},
		{"short", types.REG_BINARY, []byte{9, 8}},
		{"empty", types.REG_BINARY, []byte{}},
		{"CELL", types.REG_SZ, hivebuild.UTF16("hello\x00")},
		{"big", types.REG_BINARY, big},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := r.GetValue(r.Root(), tt.name)
			require.NoError(t, err)
			meta, err := r.StatValue(id)
			require.NoError(t, err)
			require.Equal(t, tt.typ, meta.Type)
			require.Equal(t, len(tt.want), meta.Size)

			data, err := r.ValueBytes(id)
			require.NoError(t, err)
			require.Equal(t, tt.want, data)
		})
	}
}

func TestValueBytes_ReturnsCopy(t *testing.T) {
	r := openTree(t, samTree())
	users, err := r.Find(`SAM\Domains\Account\Users\000001F4`)
	require.NoError(t, err)
	id, err := r.GetValue(users, "F")
	require.NoError(t, err)

	first, err := r.ValueBytes(id)
	require.NoError(t, err)
	first[0] = 0
	second, err := r.ValueBytes(id)
	require.NoError(t, err)
	require.Equal(t, byte(0xAA), second[0])
}

func TestDefaultValue_TypeCarriesRID(t *testing.T) {
	r := openTree(t, samTree())
	admin, err := r.Find(`SAM\Domains\Account\Users\Names\Administrator`)
	require.NoError(t, err)

	id, err := r.GetValue(admin, "")
	require.NoError(t, err)
	meta, err := r.StatValue(id)
	require.NoError(t, err)
	require.Equal(t, "", meta.Name)
	require.Equal(t, types.RegType(0x1F4), meta.Type)
}

func TestGetValue_Missing(t *testing.T) {
	r := openTree(t, samTree())
	_, err := r.GetValue(r.Root(), "nope")
	require.True(t, errors.Is(err, types.ErrNotFound))
}

func TestCell_FreeCellRejected(t *testing.T) {
	b := hivebuild.Build(samTree())
	r, err := OpenBytes(b)
	require.NoError(t, err)
	users, err := r.Find(`SAM\Domains\Account\Users`)
	require.NoError(t, err)

	// Flip the Users NK cell to free.
	abs := format.HeaderSize + int(users)
	size := int32(binary.LittleEndian.Uint32(b[abs:]))
	binary.LittleEndian.PutUint32(b[abs:], uint32(-size))

	_, err = r.KeyName(users)
	require.True(t, errors.Is(err, types.ErrParse), "got %v", err)
}

func TestClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SAM")
	require.NoError(t, os.WriteFile(path, hivebuild.Build(samTree()), 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.KeyName(r.Root())
	require.True(t, errors.Is(err, types.ErrIO))
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent"))
	require.True(t, errors.Is(err, types.ErrIO))
}
