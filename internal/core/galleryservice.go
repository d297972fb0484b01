package core

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator"
	"github.com/jo-hoe/gallery/internal/backend/blob"
	"github.com/jo-hoe/gallery/internal/backend/database"
)

// CategoryAll selects every record in ListByCategory.
const CategoryAll = "all"

const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// createdAtLayout is ISO-8601 in UTC with millisecond precision.
const createdAtLayout = "2006-01-02T15:04:05.000Z"

// UploadRequest carries one uploaded file and its form fields.
type UploadRequest struct {
	Data         []byte
	OriginalName string
	MimeType     string
	Alt          string `validate:"required"`
	Category     string `validate:"required"`
}

type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// GalleryService is the only writer of the metadata and blob stores. It keeps both in step:
// no record without a blob, and no blob left behind by a failed upload.
type GalleryService struct {
	metadata  database.MetadataStore
	blobs     blob.BlobStore
	validator *validator.Validate
	now       func() time.Time
	logger    *slog.Logger

	// serializes load-modify-save across Upload and Delete within this process
	writeMu sync.Mutex
}

type Option func(*GalleryService)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *GalleryService) {
		s.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *GalleryService) {
		s.logger = logger
	}
}

func NewGalleryService(metadata database.MetadataStore, blobs blob.BlobStore, opts ...Option) *GalleryService {
	service := &GalleryService{
		metadata:  metadata,
		blobs:     blobs,
		validator: validator.New(),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// NewGalleryServiceFromConfig builds the metadata and blob stores described by config.
func NewGalleryServiceFromConfig(config *ServiceConfig, opts ...Option) (*GalleryService, error) {
	metadata, err := database.NewMetadataStore(config.MetadataOptions())
	if err != nil {
		return nil, err
	}
	blobs, err := blob.NewDiskStore(config.Uploads.Dir, config.Uploads.PublicPath, config.Uploads.MaxFileSize)
	if err != nil {
		_ = metadata.Close()
		return nil, err
	}
	slog.Info("blob store initialized", "dir", blobs.Dir(), "public_path", blobs.PublicPath(), "max_size", blobs.MaxSize())
	return NewGalleryService(metadata, blobs, opts...), nil
}

// snapshot loads the index; an unreadable document is logged and served as empty.
func (service *GalleryService) snapshot() database.Snapshot {
	snapshot := service.metadata.Load()
	if snapshot.Status == database.LoadUnreadable {
		service.logger.Error("gallery index unreadable, treating as empty",
			"error", fmt.Errorf("%w: %w", ErrReadFailure, snapshot.Err))
	}
	return snapshot
}

// List returns every record, newest first.
func (service *GalleryService) List() []database.ImageRecord {
	return service.snapshot().Records
}

// ListByCategory returns the records whose category matches exactly, in index order.
// CategoryAll returns everything.
func (service *GalleryService) ListByCategory(category string) []database.ImageRecord {
	records := service.List()
	if category == CategoryAll {
		return records
	}

	filtered := make([]database.ImageRecord, 0, len(records))
	for _, record := range records {
		if record.Category == category {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

// Categories returns the distinct categories in order of first appearance.
func (service *GalleryService) Categories() []string {
	seen := make(map[string]bool)
	categories := []string{}
	for _, record := range service.List() {
		if !seen[record.Category] {
			seen[record.Category] = true
			categories = append(categories, record.Category)
		}
	}
	return categories
}

func (service *GalleryService) Upload(request UploadRequest) (*database.ImageRecord, error) {
	if len(request.Data) == 0 {
		return nil, ErrMissingFile
	}

	request.Alt = strings.TrimSpace(request.Alt)
	request.Category = strings.TrimSpace(request.Category)
	if err := service.validator.Struct(request); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingFields, err)
	}

	id, err := generateID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate image id: %w", err)
	}

	service.writeMu.Lock()
	defer service.writeMu.Unlock()

	src, err := service.blobs.Put(request.OriginalName, request.MimeType, request.Data)
	if err != nil {
		return nil, err
	}

	record := database.ImageRecord{
		ID:        id,
		Src:       src,
		Alt:       request.Alt,
		Category:  request.Category,
		CreatedAt: service.now().UTC().Format(createdAtLayout),
	}

	current := service.snapshot().Records
	records := make([]database.ImageRecord, 0, len(current)+1)
	records = append(records, record)
	records = append(records, current...)

	if err := service.metadata.Save(records); err != nil {
		if cleanupErr := service.blobs.Delete(src); cleanupErr != nil {
			service.logger.Error("failed to remove blob after failed save",
				"src", src, "error", cleanupErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistFailure, err)
	}

	service.logger.Info("image uploaded", "image_id", record.ID, "src", record.Src, "category", record.Category)
	return &record, nil
}

// Delete removes the blob first and then the record. If saving the index fails the blob is
// already gone; that window is accepted since a deleted file cannot be restored.
func (service *GalleryService) Delete(id string) error {
	service.writeMu.Lock()
	defer service.writeMu.Unlock()

	records := service.snapshot().Records
	index := -1
	for i := range records {
		if records[i].ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	target := records[index]

	if err := service.blobs.Delete(target.Src); err != nil {
		// The record is still removed, otherwise it could never be deleted
		service.logger.Warn("failed to remove blob, deleting record anyway",
			"image_id", id, "src", target.Src, "error", err)
	}

	remaining := make([]database.ImageRecord, 0, len(records)-1)
	remaining = append(remaining, records[:index]...)
	remaining = append(remaining, records[index+1:]...)

	if err := service.metadata.Save(remaining); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistFailure, err)
	}

	service.logger.Info("image deleted", "image_id", id, "src", target.Src)
	return nil
}

// Health reports HealthDegraded while the metadata store cannot be reached.
func (service *GalleryService) Health() HealthStatus {
	status := HealthOK
	if err := service.metadata.Ping(); err != nil {
		service.logger.Warn("metadata store unreachable", "error", err)
		status = HealthDegraded
	}
	return HealthStatus{
		Status:    status,
		Timestamp: service.now().UTC().Format(createdAtLayout),
	}
}

func (service *GalleryService) Close() error {
	return service.metadata.Close()
}
