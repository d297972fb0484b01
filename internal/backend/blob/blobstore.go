package blob

import (
	"errors"
	"fmt"
	"math/rand"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMaxFileSize is the largest blob accepted by Put (5 MiB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

var (
	ErrInvalidFileType = errors.New("invalid file type, only JPEG, PNG and WebP images are allowed")
	ErrPayloadTooLarge = errors.New("file too large")
	ErrEmptyBlob       = errors.New("empty file")
	ErrInvalidSource   = errors.New("source is not managed by this blob store")
)

// allowedMimeTypes maps each accepted media type to the extension used when the
// uploaded filename does not carry an image extension.
var allowedMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// BlobStore persists uploaded image bytes under generated, collision-resistant names.
// Put returns the public path (src) under which the blob is reachable; Delete takes that
// same path and treats a missing blob as already deleted.
type BlobStore interface {
	Put(originalName, mimeType string, data []byte) (string, error)
	Delete(src string) error
}

// IsAllowedMimeType reports whether mimeType is one of the accepted image types.
// Parameters such as "; charset=binary" are ignored.
func IsAllowedMimeType(mimeType string) bool {
	_, ok := allowedMimeTypes[mediaType(mimeType)]
	return ok
}

func mediaType(mimeType string) string {
	parsed, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		parsed = strings.TrimSpace(mimeType)
	}
	return strings.ToLower(parsed)
}

// validate checks a blob against the type allow-list and size limit before anything is written.
func validate(mimeType string, data []byte, maxSize int64) error {
	if !IsAllowedMimeType(mimeType) {
		return fmt.Errorf("%w: %q", ErrInvalidFileType, mimeType)
	}
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%w: %d bytes (max: %d)", ErrPayloadTooLarge, len(data), maxSize)
	}
	if len(data) == 0 {
		return ErrEmptyBlob
	}
	return nil
}

// GenerateFilename returns gallery-<unixMillis>-<random>.<ext>. The extension of
// originalName is kept as written when it is an image extension; otherwise the one
// belonging to mimeType is used, so a stored blob is always served as an image.
func GenerateFilename(originalName, mimeType string, now time.Time) string {
	return fmt.Sprintf("gallery-%d-%d%s", now.UnixMilli(), rand.Int63n(1e9), fileExtension(originalName, mimeType))
}

func fileExtension(originalName, mimeType string) string {
	ext := filepath.Ext(filepath.Base(originalName))
	if imageExtensions[strings.ToLower(ext)] {
		return ext
	}
	return allowedMimeTypes[mediaType(mimeType)]
}

// normalizePublicPath returns publicPath with a leading slash and without a trailing one.
func normalizePublicPath(publicPath string) string {
	publicPath = "/" + strings.Trim(publicPath, "/")
	if publicPath == "/" {
		return ""
	}
	return publicPath
}

// filenameFromSource extracts the blob filename from src, rejecting anything that does not
// live directly under publicPath.
func filenameFromSource(publicPath, src string) (string, error) {
	prefix := publicPath + "/"
	if !strings.HasPrefix(src, prefix) {
		return "", fmt.Errorf("%w: %s", ErrInvalidSource, src)
	}
	name := strings.TrimPrefix(src, prefix)
	if name == "" || name != path.Base(name) || name == "." || name == ".." || strings.Contains(name, `\`) {
		return "", fmt.Errorf("%w: %s", ErrInvalidSource, src)
	}
	return name, nil
}
