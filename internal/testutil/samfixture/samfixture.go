// Package samfixture builds a small evidence image for end-to-end tests: an
// EWF container whose first partition is a Windows volume with a SAM hive
// and a mail store, and whose second partition holds no known filesystem.
// The Windows volume is an afero tree mounted through a test probe.
package samfixture

import (
	"encoding/binary"
	"fmt"
	"io"
	"path"
	"strconv"
	"testing"

	"github.com/spf13/afero"

	"github.com/joshuapare/samkit/internal/testutil/hivebuild"
	"github.com/joshuapare/samkit/internal/testutil/imagebuild"
	"github.com/joshuapare/samkit/pkg/evidence"
	"github.com/joshuapare/samkit/pkg/types"
)

// Accounts in the SAM hive.
const (
	RIDAdministrator = 500
	RIDGuest         = 501
	RIDUser          = 1001
	// RIDMiskeyed names a key whose F value carries RIDUser.
	RIDMiskeyed = 1002
	Username         = "Wes Mantooth"
	FullName         = "Wesley Mantooth"

	// UserUAC is NORMAL_ACCOUNT | LOCKOUT.
	UserUAC = 0x0210
	// UserLastLogon is 2009-07-14T10:00:00Z.
	UserLastLogon = 128920392000000000
)

// Paths inside the Windows partition.
const (
	SAMPath = "/Windows/System32/config/SAM"
	MailDir = "/Users/Wes Mantooth/AppData/Local/Microsoft/Windows Mail/Local Folders"
)

// Paths on the native filesystem.
const (
	Workdir = "/work"
	Image   = "/work/upload.E01"
)

const magic = "SAMFIXFS"

// FBlob is an 80-byte F value for rid with account control mask uac.
func FBlob(rid, uac uint32, lastLogon uint64, logons uint16) []byte {
	b := make([]byte, 80)
	binary.LittleEndian.PutUint16(b[0x00:], 2)
	binary.LittleEndian.PutUint64(b[0x08:], lastLogon)
	binary.LittleEndian.PutUint64(b[0x20:], 0x7FFFFFFFFFFFFFFF)
	binary.LittleEndian.PutUint32(b[0x30:], rid)
	binary.LittleEndian.PutUint32(b[0x34:], 513)
	binary.LittleEndian.PutUint32(b[0x38:], uac)
	binary.LittleEndian.PutUint16(b[0x42:], logons)
	return b
}

// VBlob is a V value holding username and full name.
func VBlob(username, fullName string) []byte {
	user := hivebuild.UTF16(username)
	full := hivebuild.UTF16(fullName)
	b := make([]byte, 204, 204+len(user)+len(full))
	binary.LittleEndian.PutUint32(b[0x0C:], 0)
	binary.LittleEndian.PutUint32(b[0x10:], uint32(len(user)))
	binary.LittleEndian.PutUint32(b[0x18:], uint32(len(user)))
	binary.LittleEndian.PutUint32(b[0x1C:], uint32(len(full)))
	b = append(b, user...)
	return append(b, full...)
}

func bin(name string, data []byte) hivebuild.Value {
	return hivebuild.Value{Name: name, Type: uint32(types.REG_BINARY), Data: data}
}

// SAM returns a SAM hive with Administrator, Guest and the user account.
// Guest has no V value. Key 000003EA is not in the Names index and its F
// value records RID 1001.
func SAM() []byte {
	users := hivebuild.K("Users",
		hivebuild.K("000001F4").With(
			bin("F", FBlob(RIDAdministrator, 0x0211, 0, 0)),
			bin("V", VBlob("Administrator", "")),
		),
		hivebuild.K("000001F5").With(
			bin("F", FBlob(RIDGuest, 0x0215, 0, 0)),
		),
		hivebuild.K("000003E9").With(
			bin("F", FBlob(RIDUser, UserUAC, UserLastLogon, 42)),
			bin("V", VBlob(Username, FullName)),
		),
		hivebuild.K("000003EA").With(
			bin("F", FBlob(RIDUser, UserUAC, 0, 0)),
		),
		hivebuild.K("Names",
			hivebuild.K("Administrator").With(hivebuild.Value{Type: RIDAdministrator}),
			hivebuild.K("Guest").With(hivebuild.Value{Type: RIDGuest}),
			hivebuild.K(Username).With(hivebuild.Value{Type: RIDUser}),
		),
	)
	root := hivebuild.K("CMI-CreateHive{C4E7BA2B-68E8-499C-B1A1-371AC8D717C7}",
		hivebuild.K("SAM", hivebuild.K("Domains", hivebuild.K("Account", users))),
	)
	return hivebuild.Build(root)
}

// Message is a small RFC 5322 message numbered n.
func Message(n int) string {
	return "From: Wes Mantooth <wes@kvwn.example>\r\n" +
		"To: Ron Burgundy <ron@kvwn.example>\r\n" +
		"Subject: note " + strconv.Itoa(n) + "\r\n" +
		"Date: Tue, 14 Jul 2009 10:00:00 +0000\r\n" +
		"\r\n" +
		"body " + strconv.Itoa(n) + "\r\n"
}

// Volume returns the Windows partition's tree: three .eml files, two other
// files, a SAM hive and the marker directory.
func Volume(t testing.TB) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string][]byte{
		SAMPath:                              SAM(),
		"/Windows/System32/config/SECURITY":  []byte("not a hive"),
		path.Join(MailDir, "Inbox/1.eml"):    []byte(Message(1)),
		path.Join(MailDir, "Inbox/2.eml"):    []byte(Message(2)),
		path.Join(MailDir, "Sent/3.eml"):     []byte(Message(3)),
		path.Join(MailDir, "Inbox/todo.txt"): []byte("call Ron"),
		path.Join(MailDir, "Sent/3.eml.bak"): []byte(Message(3)),
	}
	for p, data := range files {
		if err := afero.WriteFile(fs, p, data, 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	if err := fs.MkdirAll("/Documents and Settings", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return fs
}

// Probe mounts vol for any partition that starts with the fixture magic.
func Probe(vol afero.Fs) evidence.Probe {
	return evidence.Probe{
		Name: "samfixture",
		Match: func(r io.ReaderAt) bool {
			b := make([]byte, len(magic))
			_, err := r.ReadAt(b, 0)
			return err == nil && string(b) == magic
		},
		Mount: func(io.ReaderAt, int64) (afero.Fs, error) { return vol, nil },
	}
}

// Fixture is a native filesystem holding the image, plus the probe that
// mounts its Windows partition.
type Fixture struct {
	Fs     afero.Fs
	Volume afero.Fs
	Probe  evidence.Probe
}

// New writes the image to a fresh in-memory native filesystem.
func New(t testing.TB) *Fixture {
	t.Helper()
	disk := imagebuild.Disk(512)
	imagebuild.MBR(disk, []imagebuild.Part{
		{Type: 0x07, Start: 64, Sectors: 128},
		{Type: 0x83, Start: 256, Sectors: 128},
	}, 0, nil)
	copy(disk[64*imagebuild.SectorSize:], magic)

	fs := afero.NewMemMapFs()
	segs := imagebuild.EWF(disk, imagebuild.EWFOptions{SectorsPerChunk: 16, ChunksPerSegment: 16, Compress: func(i int) bool { return i%2 == 1 }})
	for i, seg := range segs {
		p := fmt.Sprintf("%s/upload.E%02d", Workdir, i+1)
		if err := afero.WriteFile(fs, p, seg, 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	vol := Volume(t)
	return &Fixture{Fs: fs, Volume: vol, Probe: Probe(vol)}
}
