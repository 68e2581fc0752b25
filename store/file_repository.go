package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileRepository is a Repository for a config document on the local
// filesystem. This is the primary backend: it is the only one a Config
// constructed with New ever talks to.
type FileRepository struct {
	sync.RWMutex         // RWMutex to synchronize access to rawData during refresh
	Name         string  // Name of the configuration source
	Path         string  // File path of the config document
	rawData      []byte  // Raw bytes of the config document
}

// GetName returns the name of the configuration source, falling back to the
// file base name when no name was set.
func (f *FileRepository) GetName() string {
	if f.Name == "" {
		return filepath.Base(f.Path)
	}
	return f.Name
}

// GetRawData returns the raw bytes of the config document.
func (f *FileRepository) GetRawData() []byte {
	f.RLock()
	defer f.RUnlock()
	return f.rawData
}

// Refresh re-reads the config document from disk. A missing file is reported
// as ErrNotExist so callers can treat it as a fresh start.
func (f *FileRepository) Refresh() error {
	f.Lock()
	defer f.Unlock()

	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", f.Path, ErrNotExist)
	}
	if err != nil {
		logrus.WithError(err).Debug("error reading file")
		return err
	}

	f.rawData = data
	return nil
}

// Store replaces the config document wholesale. The write goes through a
// temporary file in the target directory followed by a rename, so a failed
// save never clobbers the previous good document.
func (f *FileRepository) Store(data []byte) error {
	f.Lock()
	defer f.Unlock()

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %q: %w", dir, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %q: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing %q: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %q: %w", f.Path, err)
	}

	f.rawData = append([]byte(nil), data...)
	return nil
}
