package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileRepositoryMissing(t *testing.T) {
	repo := &FileRepository{Path: filepath.Join(t.TempDir(), "nope.conf")}

	err := repo.Refresh()
	if !errors.Is(err, ErrNotExist) {
		t.Errorf("Refresh on a missing file = %v, want ErrNotExist", err)
	}
}

func TestFileRepositoryStoreAndRefresh(t *testing.T) {
	// The parent directory does not exist yet; Store must create it.
	path := filepath.Join(t.TempDir(), "app", "config", "app.conf")
	repo := &FileRepository{Path: path}

	doc := []byte(`{"user": "Mike"}`)
	if err := repo.Store(doc); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !bytes.Equal(repo.GetRawData(), doc) {
		t.Error("GetRawData does not reflect the stored document")
	}

	fresh := &FileRepository{Path: path}
	if err := fresh.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !bytes.Equal(fresh.GetRawData(), doc) {
		t.Errorf("Refresh read %q, want %q", fresh.GetRawData(), doc)
	}

	// The temp file used for the atomic write must not be left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		for _, e := range entries {
			t.Logf("leftover: %s", e.Name())
		}
		t.Errorf("expected only the config file in the directory, found %d entries", len(entries))
	}
}

func TestFileRepositoryReplacesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.conf")
	repo := &FileRepository{Path: path}

	if err := repo.Store([]byte(`{"a": 1, "b": 2}`)); err != nil {
		t.Fatal(err)
	}
	replacement := []byte(`{"c": 3}`)
	if err := repo.Store(replacement); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, replacement) {
		t.Errorf("file content %q, want %q (no merge with previous state)", data, replacement)
	}
}

func TestFileRepositoryGetName(t *testing.T) {
	repo := &FileRepository{Path: "/etc/app/settings.conf"}
	if got := repo.GetName(); got != "settings.conf" {
		t.Errorf("GetName = %q, want the file base name", got)
	}
	repo.Name = "settings"
	if got := repo.GetName(); got != "settings" {
		t.Errorf("GetName = %q, want %q", got, "settings")
	}
}
