package database

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// JSONFileStore keeps the gallery index as a pretty-printed JSON array in a single file.
type JSONFileStore struct {
	path string
}

func NewJSONFileStore(path string) (*JSONFileStore, error) {
	if path == "" {
		return nil, errors.New("json metadata store requires a file path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}
	return &JSONFileStore{path: path}, nil
}

func (s *JSONFileStore) Path() string {
	return s.path
}

func (s *JSONFileStore) Load() Snapshot {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.Save(nil); err != nil {
			return unreadableSnapshot(fmt.Errorf("failed to initialize %s: %w", s.path, err))
		}
		return initializedSnapshot()
	}
	if err != nil {
		return unreadableSnapshot(fmt.Errorf("failed to read %s: %w", s.path, err))
	}

	records, err := decodeIndex(data)
	if err != nil {
		return unreadableSnapshot(fmt.Errorf("%s: %w", s.path, err))
	}
	return okSnapshot(records)
}

// Save writes the index next to the target and renames it into place,
// so a failed write leaves the previous document intact.
func (s *JSONFileStore) Save(records []ImageRecord) error {
	data, err := encodeIndex(records)
	if err != nil {
		return err
	}

	tmp := s.path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// Ping checks that the directory holding the document is still there.
func (s *JSONFileStore) Ping() error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("metadata directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("metadata directory unavailable: %s is not a directory", dir)
	}
	return nil
}

func (s *JSONFileStore) Close() error {
	return nil
}
