package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit_Disabled(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Options{Enabled: false, Output: &buf}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("disabled logger wrote %q", buf.String())
	}
}

func TestInit_JSONLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Options{Enabled: true, Level: slog.LevelWarn, JSON: true, Output: &buf}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = Init(Options{}) })

	Info("below level")
	Warn("slot unreadable", "partition", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["msg"] != "slot unreadable" || rec["partition"] != float64(3) {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "samctl.log")
	if err := Init(Options{Enabled: true, File: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Error("extract failed", "partition", 2)
	if err := Init(Options{}); err != nil {
		t.Fatalf("reset: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "msg=\"extract failed\" partition=2") {
		t.Fatalf("log file = %q", data)
	}
}

func TestOr(t *testing.T) {
	if Or(nil) != L {
		t.Fatalf("Or(nil) should return L")
	}
	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if Or(custom) != custom {
		t.Fatalf("Or(custom) should return custom")
	}
}
