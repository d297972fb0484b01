package core

import (
	"errors"

	"github.com/jo-hoe/gallery/internal/backend/blob"
)

// Error kinds returned by GalleryService. Match them with errors.Is.
var (
	ErrMissingFile     = errors.New("no file uploaded")
	ErrMissingFields   = errors.New("alt text and category are required")
	ErrInvalidFileType = blob.ErrInvalidFileType
	ErrPayloadTooLarge = blob.ErrPayloadTooLarge
	ErrNotFound        = errors.New("image not found")
	ErrPersistFailure  = errors.New("failed to save gallery data")
	// ErrReadFailure is never returned by List; it is logged and the gallery is served empty.
	ErrReadFailure = errors.New("failed to read gallery data")
)
