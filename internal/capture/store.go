package capture

import (
	"fmt"
	"os"
	"path/filepath"
)

// FrameStore is the single on-disk slot for the latest frame. Every Save
// overwrites it.
type FrameStore struct {
	path string
}

func NewFrameStore(path string) *FrameStore {
	return &FrameStore{path: path}
}

// Path returns the file path frames are written to.
func (s *FrameStore) Path() string { return s.path }

// Filename returns the base name used as the upload filename.
func (s *FrameStore) Filename() string { return filepath.Base(s.path) }

// Save writes data to the slot, replacing any previous frame. The write
// goes through a temporary sibling and a rename so a reader never sees a
// half-written file.
func (s *FrameStore) Save(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return &FileError{Path: s.path, Err: fmt.Errorf("create dir: %w", err)}
	}

	tmp, err := os.CreateTemp(dir, ".frame-*")
	if err != nil {
		return &FileError{Path: s.path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &FileError{Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &FileError{Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return &FileError{Path: s.path, Err: err}
	}
	return nil
}

// Load reads the current frame back.
func (s *FrameStore) Load() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &FileError{Path: s.path, Err: err}
	}
	return data, nil
}

// Remove deletes the slot. A missing file is not an error.
func (s *FrameStore) Remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return &FileError{Path: s.path, Err: err}
	}
	return nil
}
