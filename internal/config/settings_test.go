package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"js8bulletin/internal/schedule"
	logx "js8bulletin/pkg/logx"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), DefaultSettingsFile)
	store := NewFileStore(path, logx.Nop())

	spec, _ := schedule.Every(30)
	in := Snapshot{
		Message:          "QST DE N0CALL: net tonight 20:00 on 7.078",
		Schedule:         spec,
		LimitChars:       140,
		Connection:       Connection{Host: "10.0.0.5", Port: 2443, FrequencyHz: 7078000},
		AutostartEnabled: true,
		SavedAt:          time.Date(2026, 4, 1, 12, 30, 0, 0, time.UTC),
	}
	store.Save(in)

	out, ok := store.Load()
	if !ok {
		t.Fatal("Load reported no snapshot after Save")
	}
	if !out.SavedAt.Equal(in.SavedAt) {
		t.Fatalf("SavedAt = %s, want %s", out.SavedAt, in.SavedAt)
	}
	out.SavedAt = in.SavedAt
	if out != in {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}

	for _, sp := range []schedule.Spec{schedule.Even(), schedule.Odd()} {
		in.Schedule = sp
		store.Save(in)
		out, _ = store.Load()
		if out.Schedule != sp {
			t.Fatalf("schedule %s round-tripped as %s", sp, out.Schedule)
		}
	}
}

func TestSaveStampsSavedAt(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "s.json")
	store := NewFileStore(path, logx.Nop())
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	store.Save(DefaultSnapshot())
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, key := range []string{`"message"`, `"interval": "15"`, `"max_chars": 210`, `"js8_host": "127.0.0.1"`, `"js8_port": 2442`, `"js8_frequency": 0`, `"autostart_enabled": false`, `"saved_at": "2026-01-02T03:04:05Z"`} {
		if !strings.Contains(string(b), key) {
			t.Fatalf("saved file missing %s:\n%s", key, b)
		}
	}
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	if _, ok := NewFileStore(filepath.Join(dir, "missing.json"), logx.Nop()).Load(); ok {
		t.Fatal("missing file should not load")
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte(`{"message": "half`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, ok := NewFileStore(corrupt, logx.Nop()).Load(); ok {
		t.Fatal("corrupt file should not load")
	}
}

func TestLoadLegacyFileAndClamps(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), DefaultSettingsFile)
	legacy := `{
  "message": "` + strings.Repeat("A", 90) + `",
  "interval": "odd",
  "max_chars": 70,
  "js8_host": "",
  "js8_port": 0,
  "saved_at": "2025-11-30T18:22:41.123456"
}`
	if err := os.WriteFile(path, []byte(legacy), 0o600); err != nil {
		t.Fatal(err)
	}
	snap, ok := NewFileStore(path, logx.Nop()).Load()
	if !ok {
		t.Fatal("legacy file should load")
	}
	if len(snap.Message) != 70 {
		t.Fatalf("message not truncated to limit: %d", len(snap.Message))
	}
	if snap.Schedule != schedule.Odd() || snap.LimitChars != 70 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Connection != DefaultConnection() {
		t.Fatalf("empty host/port should fall back to defaults: %+v", snap.Connection)
	}
	if snap.SavedAt.IsZero() || snap.SavedAt.Year() != 2025 {
		t.Fatalf("legacy saved_at not parsed: %v", snap.SavedAt)
	}
}

func TestLoadInvalidFieldsFallBack(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "s.json")
	if err := os.WriteFile(path, []byte(`{"message":"hi","interval":"7","max_chars":3,"js8_frequency":-5}`), 0o600); err != nil {
		t.Fatal(err)
	}
	snap, ok := NewFileStore(path, logx.Nop()).Load()
	if !ok {
		t.Fatal("file with bad fields should still load")
	}
	def := DefaultSnapshot()
	if snap.Schedule != def.Schedule || snap.LimitChars != def.LimitChars || snap.Connection.FrequencyHz != 0 || snap.Message != "hi" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSaveFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	// Parent "directory" is a regular file, so the write must fail.
	store := NewFileStore(filepath.Join(blocker, "s.json"), logx.Nop())
	store.Save(DefaultSnapshot())
	if _, ok := store.Load(); ok {
		t.Fatal("nothing should have been written")
	}
}
