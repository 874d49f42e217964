package main

import (
	"context"
	"testing"

	"github.com/Velocidex/ordereddict"
	"github.com/spf13/afero"

	"github.com/joshuapare/samkit/internal/testutil/samfixture"
	"github.com/joshuapare/samkit/internal/workspace"
	"github.com/joshuapare/samkit/pkg/sam"
)

func TestVolumeCommand(t *testing.T) {
	useFixture(t)
	out, err := captureOutput(t, func() error { return runVolume(context.Background()) })
	if err != nil {
		t.Fatalf("volume: %v", err)
	}
	assertContains(t, out, []string{"Kind: ewf", "262144 bytes (0.25 MB)", samfixture.Image})

	jsonOut = true
	out, err = captureOutput(t, func() error { return runVolume(context.Background()) })
	if err != nil {
		t.Fatalf("volume --json: %v", err)
	}
	assertJSON(t, out)
	assertContains(t, out, []string{`"size_MB": 0.25`, `"kind": "ewf"`})
}

func TestPartitionsCommand(t *testing.T) {
	useFixture(t)
	out, err := captureOutput(t, func() error { return runPartitions(context.Background()) })
	if err != nil {
		t.Fatalf("partitions: %v", err)
	}
	assertContains(t, out, []string{"Partition 1:", "  Documents and Settings", "  Users"})
	assertNotContains(t, out, []string{"Partition 2:"})

	jsonOut = true
	out, err = captureOutput(t, func() error { return runPartitions(context.Background()) })
	if err != nil {
		t.Fatalf("partitions --json: %v", err)
	}
	assertJSON(t, out)
	assertContains(t, out, []string{`"partition_id": 1`, `"files_and_directories"`})
}

func TestLsAndCatCommands(t *testing.T) {
	useFixture(t)
	ctx := context.Background()

	out, err := captureOutput(t, func() error { return runLs(ctx, []string{"1"}) })
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	assertContains(t, out, []string{"Users/", "Windows/"})

	out, err = captureOutput(t, func() error { return runLs(ctx, []string{"1", `\Windows\System32\config`}) })
	if err != nil {
		t.Fatalf("ls config: %v", err)
	}
	assertContains(t, out, []string{"SAM", "SECURITY"})

	out, err = captureOutput(t, func() error {
		return runCat(ctx, []string{"1", samfixture.MailDir + "/Inbox/1.eml"})
	})
	if err != nil {
		t.Fatalf("cat: %v", err)
	}
	if out != samfixture.Message(1) {
		t.Errorf("cat output = %q", out)
	}

	tests := []struct {
		name string
		args []string
	}{
		{name: "partition zero", args: []string{"0"}},
		{name: "not a number", args: []string{"one"}},
		{name: "missing path", args: []string{"1", "/nope"}},
		{name: "absent partition", args: []string{"7"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := captureOutput(t, func() error { return runLs(ctx, tt.args) }); err == nil {
				t.Errorf("ls %v: expected error", tt.args)
			}
		})
	}
}

func TestExtractCommand(t *testing.T) {
	fx := useFixture(t)
	out, err := captureOutput(t, func() error { return runExtract(context.Background(), "1", "SAM") })
	if err != nil {
		t.Fatalf("extract-sam: %v", err)
	}
	assertContains(t, out, []string{"Extracted " + samfixture.SAMPath, "/work/partitions/1/extracted_SAM"})

	data, err := afero.ReadFile(fx.Fs, "/work/partitions/1/extracted_SAM")
	if err != nil {
		t.Fatalf("read extracted copy: %v", err)
	}
	if string(data) != string(samfixture.SAM()) {
		t.Errorf("extracted copy differs from the hive in the image")
	}

	if _, err := captureOutput(t, func() error { return runExtract(context.Background(), "1", "SECURITY") }); err == nil {
		t.Errorf("expected SECURITY (not a hive) to fail")
	}
	if _, err := captureOutput(t, func() error { return runExtract(context.Background(), "1", "SOFTWARE") }); err == nil {
		t.Errorf("expected unconfigured hive to fail")
	}
}

func TestUsersCommand(t *testing.T) {
	useFixture(t)
	out, err := captureOutput(t, func() error { return runUsers(context.Background(), []string{"1"}) })
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	assertContains(t, out, []string{"   500  Administrator", "   501  Guest", "  1001  Wes Mantooth"})

	jsonOut = true
	out, err = captureOutput(t, func() error { return runUsers(context.Background(), []string{"1"}) })
	if err != nil {
		t.Fatalf("users --json: %v", err)
	}
	assertJSON(t, out)
	assertContains(t, out, []string{`"name": "Guest"`, `"rid": 501`})
}

func TestRecordCommands(t *testing.T) {
	useFixture(t)
	ctx := context.Background()
	fvalue := func(ctx context.Context, ws *workspace.Workspace, p int, rid sam.RID) (*ordereddict.Dict, error) {
		return ws.UserFValue(ctx, p, rid)
	}
	vvalue := func(ctx context.Context, ws *workspace.Workspace, p int, rid sam.RID) (*ordereddict.Dict, error) {
		return ws.UserVValue(ctx, p, rid)
	}

	out, err := captureOutput(t, func() error { return runRecord(ctx, []string{"1", "1001"}, fvalue) })
	if err != nil {
		t.Fatalf("fvalue: %v", err)
	}
	assertContains(t, out, []string{"rid:", "1001", "logon_count:", "42"})

	jsonOut = true
	out, err = captureOutput(t, func() error { return runRecord(ctx, []string{"1", "0x3E9"}, fvalue) })
	if err != nil {
		t.Fatalf("fvalue --json: %v", err)
	}
	assertJSON(t, out)
	assertContains(t, out, []string{`"logon_count": 42`})

	out, err = captureOutput(t, func() error { return runRecord(ctx, []string{"1", "1001"}, vvalue) })
	if err != nil {
		t.Fatalf("vvalue: %v", err)
	}
	assertContains(t, out, []string{`"username": "Wes Mantooth"`, `"full_name": "Wesley Mantooth"`})

	if _, err := captureOutput(t, func() error { return runRecord(ctx, []string{"1", "4242"}, fvalue) }); err == nil {
		t.Errorf("expected missing RID to fail")
	}
	if _, err := captureOutput(t, func() error { return runRecord(ctx, []string{"1", "-1"}, fvalue) }); err == nil {
		t.Errorf("expected negative RID to fail")
	}
}

func TestFlagsCommand(t *testing.T) {
	useFixture(t)
	out, err := captureOutput(t, func() error { return runFlags(context.Background(), []string{"1", "1001"}) })
	if err != nil {
		t.Fatalf("flags: %v", err)
	}
	assertContains(t, out, []string{"RID 1001: 0x00000210 (528)", "LOCKOUT", "NORMAL_ACCOUNT"})
}

func TestEmailsCommand(t *testing.T) {
	useFixture(t)
	ctx := context.Background()

	emailsBody = true
	out, err := captureOutput(t, func() error { return runEmails(ctx, []string{"1", "1001"}) })
	if err != nil {
		t.Fatalf("emails: %v", err)
	}
	assertContains(t, out, []string{"3 message(s)", "Subject: note 1", "Subject: note 3", "body 2"})
	assertNotContains(t, out, []string{"todo.txt", "3.eml.bak"})

	if _, err := captureOutput(t, func() error { return runEmails(ctx, []string{"1", "500"}) }); err == nil {
		t.Errorf("expected account without a mail store to fail")
	}
}

func TestParseRID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{in: "500", want: 500},
		{in: "0x3E9", want: 1001},
		{in: "4294967295", want: 0xFFFFFFFF},
		{in: "4294967296", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "admin", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && uint32(got) != tt.want {
				t.Errorf("parseRID(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
