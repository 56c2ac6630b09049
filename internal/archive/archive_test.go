package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type recordingUploader struct {
	keys []string
}

func (r *recordingUploader) Upload(_ context.Context, key, _ string) error {
	r.keys = append(r.keys, key)
	return nil
}

func TestSaveWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	a := New(dir, nil)
	a.now = func() time.Time { return time.Date(2026, 8, 29, 7, 30, 15, 0, time.UTC) }

	path, err := a.Save(context.Background(), "2026-08-29", "# report")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if filepath.Base(path) != "2026-08-29_073015.md" {
		t.Errorf("unexpected file name %q", filepath.Base(path))
	}

	for _, name := range []string{"2026-08-29_073015.md", "2026-08-29_latest.md"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(data) != "# report" {
			t.Errorf("%s content = %q", name, data)
		}
	}
}

func TestSaveLatestOverwritten(t *testing.T) {
	dir := t.TempDir()
	a := New(dir, nil)

	stamps := []time.Time{
		time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC),
	}
	i := 0
	a.now = func() time.Time { t := stamps[i]; i++; return t }

	if _, err := a.Save(context.Background(), "2026-08-29", "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Save(context.Background(), "2026-08-29", "second"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "2026-08-29_latest.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("latest = %q, want the newer edition", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 3 {
		t.Errorf("expected 2 timestamped files plus latest, got %d entries", len(entries))
	}
}

func TestSaveUploads(t *testing.T) {
	up := &recordingUploader{}
	a := New(t.TempDir(), up)
	a.now = func() time.Time { return time.Date(2026, 8, 29, 7, 0, 0, 0, time.UTC) }

	if _, err := a.Save(context.Background(), "2026-08-29", "content"); err != nil {
		t.Fatal(err)
	}

	if len(up.keys) != 2 {
		t.Fatalf("expected 2 uploads, got %v", up.keys)
	}
	for _, key := range up.keys {
		if !strings.HasPrefix(key, "reports/2026-08-29") {
			t.Errorf("unexpected key %q", key)
		}
	}
}
