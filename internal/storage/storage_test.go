package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestDisk(t *testing.T) *Disk {
	t.Helper()
	d, err := NewDisk(filepath.Join(t.TempDir(), "media"), "/media")
	if err != nil {
		t.Fatalf("NewDisk() error = %v", err)
	}
	return d
}

func TestDisk_SaveAndRemove(t *testing.T) {
	d := newTestDisk(t)
	ctx := context.Background()

	url, err := d.Save(ctx, "photo.PNG", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasPrefix(url, "/media/") || !strings.HasSuffix(url, ".png") {
		t.Errorf("Save() url = %q", url)
	}

	full := filepath.Join(d.Dir(), filepath.Base(url))
	data, err := os.ReadFile(full)
	if err != nil || string(data) != "png-bytes" {
		t.Fatalf("stored file = %q, %v", data, err)
	}

	if err := d.Remove(ctx, url); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(full); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still exists after Remove(): %v", err)
	}

	// Removing again is fine.
	if err := d.Remove(ctx, url); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}
}

func TestDisk_RejectsNonImages(t *testing.T) {
	d := newTestDisk(t)

	_, err := d.Save(context.Background(), "script.sh", strings.NewReader("#!/bin/sh"))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Save() error = %v, want ErrUnsupportedType", err)
	}
}

func TestDisk_RemoveIgnoresForeignURLs(t *testing.T) {
	d := newTestDisk(t)

	for _, url := range []string{"", "https://lh3.googleusercontent.com/a/x.png", "/media/../secret"} {
		if err := d.Remove(context.Background(), url); err != nil {
			t.Errorf("Remove(%q) error = %v", url, err)
		}
	}
}

func TestDisk_SaveHonoursContext(t *testing.T) {
	d := newTestDisk(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Save(ctx, "a.jpg", strings.NewReader("data")); !errors.Is(err, context.Canceled) {
		t.Errorf("Save() error = %v, want context.Canceled", err)
	}
	entries, _ := os.ReadDir(d.Dir())
	if len(entries) != 0 {
		t.Errorf("partial file left behind: %d entries", len(entries))
	}
}
