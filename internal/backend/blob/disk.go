package blob

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DiskStore keeps blobs as files in a single directory. The directory is expected to be
// served read-only under PublicPath so every src returned by Put is fetchable.
type DiskStore struct {
	dir        string
	publicPath string
	maxSize    int64
	now        func() time.Time
	filename   func(originalName, mimeType string, now time.Time) string
}

const maxNameAttempts = 5

func NewDiskStore(dir, publicPath string, maxSize int64) (*DiskStore, error) {
	if dir == "" {
		return nil, errors.New("blob directory must not be empty")
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &DiskStore{
		dir:        dir,
		publicPath: normalizePublicPath(publicPath),
		maxSize:    maxSize,
		now:        time.Now,
		filename:   GenerateFilename,
	}, nil
}

func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) PublicPath() string {
	return s.publicPath
}

func (s *DiskStore) MaxSize() int64 {
	return s.maxSize
}

func (s *DiskStore) Put(originalName, mimeType string, data []byte) (string, error) {
	if err := validate(mimeType, data, s.maxSize); err != nil {
		return "", err
	}

	tmp, err := s.writeTemp(data)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = os.Remove(tmp)
	}()

	// Link fails with ErrExist instead of replacing a blob that already has the name
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := s.filename(originalName, mimeType, s.now())
		err := os.Link(tmp, filepath.Join(s.dir, name))
		if err == nil {
			return s.publicPath + "/" + name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to store blob: %w", err)
		}
	}
	return "", fmt.Errorf("failed to store blob: no free name after %d attempts", maxNameAttempts)
}

// writeTemp writes data to a hidden file in the blob directory and returns its path.
func (s *DiskStore) writeTemp(data []byte) (string, error) {
	f, err := os.CreateTemp(s.dir, ".upload-*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create blob: %w", err)
	}
	tmp := f.Name()
	fail := func(format string, err error) (string, error) {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf(format, err)
	}

	if err := f.Chmod(0o644); err != nil {
		return fail("failed to set blob permissions: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return fail("failed to write blob: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fail("failed to sync blob: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to close blob: %w", err)
	}
	return tmp, nil
}

func (s *DiskStore) Delete(src string) error {
	name, err := filenameFromSource(s.publicPath, src)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}

// Path maps src to the file backing it.
func (s *DiskStore) Path(src string) (string, error) {
	name, err := filenameFromSource(s.publicPath, src)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}
