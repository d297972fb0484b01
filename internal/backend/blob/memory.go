package blob

import (
	"sync"
	"time"
)

// MemoryStore is an in-memory BlobStore for tests. It applies the same validation as DiskStore.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	publicPath string
	maxSize    int64
	blobs      map[string][]byte
}

func NewMemoryStore(publicPath string, maxSize int64) *MemoryStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &MemoryStore{
		publicPath: normalizePublicPath(publicPath),
		maxSize:    maxSize,
		blobs:      make(map[string][]byte),
	}
}

func (m *MemoryStore) Put(originalName, mimeType string, data []byte) (string, error) {
	if err := validate(mimeType, data, m.maxSize); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var src string
	for {
		src = m.publicPath + "/" + GenerateFilename(originalName, mimeType, time.Now())
		if _, taken := m.blobs[src]; !taken {
			break
		}
	}
	m.blobs[src] = append([]byte(nil), data...)
	return src, nil
}

func (m *MemoryStore) Delete(src string) error {
	if _, err := filenameFromSource(m.publicPath, src); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, src)
	return nil
}

// Get returns a copy of the blob stored under src.
func (m *MemoryStore) Get(src string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[src]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.blobs)
}
