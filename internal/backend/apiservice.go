package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jo-hoe/gallery/internal/core"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	HealthPath = "/api/health"

	uploadFormField = "image"
	// room for the alt/category fields and multipart boundaries on top of the file itself
	multipartOverhead int64 = 1 << 20
)

type APIService struct {
	config         *core.ServiceConfig
	galleryService *core.GalleryService
}

type idParams struct {
	ID string `param:"id" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewAPIService(config *core.ServiceConfig, galleryService *core.GalleryService) *APIService {
	return &APIService{
		config:         config,
		galleryService: galleryService,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.config.CORS.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	}))

	// Set probe route
	e.GET(HealthPath, s.healthHandler)

	// Uploaded files are served under the same path that records carry in src
	e.Static(s.config.Uploads.PublicPath, s.config.Uploads.Dir)

	gallery := e.Group("/api/gallery")
	gallery.GET("", s.listImagesHandler)
	gallery.GET("/categories", s.listCategoriesHandler)
	gallery.GET("/category/:category", s.listImagesByCategoryHandler)
	gallery.POST("/upload", s.uploadImageHandler, middleware.BodyLimit(bodyLimit(s.config.Uploads.MaxFileSize)))
	gallery.DELETE("/:id", s.deleteImageHandler)
}

func bodyLimit(maxFileSize int64) string {
	return strconv.FormatInt(maxFileSize+multipartOverhead, 10) + "B"
}

func (s *APIService) healthHandler(ctx echo.Context) error {
	health := s.galleryService.Health()
	if health.Status != core.HealthOK {
		return ctx.JSON(http.StatusServiceUnavailable, health)
	}
	return ctx.JSON(http.StatusOK, health)
}

func (s *APIService) listImagesHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.galleryService.List())
}

func (s *APIService) listCategoriesHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.galleryService.Categories())
}

func (s *APIService) listImagesByCategoryHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.galleryService.ListByCategory(ctx.Param("category")))
}

func (s *APIService) uploadImageHandler(ctx echo.Context) error {
	file, err := ctx.FormFile(uploadFormField)
	if err != nil {
		// body limit violations surface while parsing the multipart form
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return err
		}
		slog.Warn("uploadImageHandler: no file in request", "error", err)
		return s.errorJSON(ctx, core.ErrMissingFile)
	}

	maxFileSize := s.config.Uploads.MaxFileSize
	if file.Size > maxFileSize {
		return s.errorJSON(ctx, fmt.Errorf("%w: %d bytes (max: %d)", core.ErrPayloadTooLarge, file.Size, maxFileSize))
	}

	src, err := file.Open()
	if err != nil {
		slog.Error("uploadImageHandler: failed to open uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to open uploaded file"})
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("uploadImageHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	// Read one byte past the limit so an understated part size is still caught
	data, err := io.ReadAll(io.LimitReader(src, maxFileSize+1))
	if err != nil {
		slog.Error("uploadImageHandler: failed to read uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to read uploaded file"})
	}

	record, err := s.galleryService.Upload(core.UploadRequest{
		Data:         data,
		OriginalName: file.Filename,
		MimeType:     file.Header.Get(echo.HeaderContentType),
		Alt:          ctx.FormValue("alt"),
		Category:     ctx.FormValue("category"),
	})
	if err != nil {
		return s.errorJSON(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, record)
}

func (s *APIService) deleteImageHandler(ctx echo.Context) error {
	var params idParams
	if err := ctx.Bind(&params); err != nil {
		return err
	}
	if err := ctx.Validate(&params); err != nil {
		return err
	}

	if err := s.galleryService.Delete(params.ID); err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Image deleted successfully"})
}

// errorJSON maps a gallery error kind to its status code and a stable message.
func (s *APIService) errorJSON(ctx echo.Context, err error) error {
	status, message := describeError(err)
	if status >= http.StatusInternalServerError {
		slog.Error("gallery request failed", "status", status, "route", ctx.Path(), "error", err)
	} else {
		slog.Warn("gallery request rejected", "status", status, "route", ctx.Path(), "error", err)
	}
	return ctx.JSON(status, errorResponse{Error: message})
}

func describeError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrMissingFile):
		return http.StatusBadRequest, core.ErrMissingFile.Error()
	case errors.Is(err, core.ErrMissingFields):
		return http.StatusBadRequest, core.ErrMissingFields.Error()
	case errors.Is(err, core.ErrInvalidFileType):
		return http.StatusBadRequest, core.ErrInvalidFileType.Error()
	case errors.Is(err, core.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, core.ErrPayloadTooLarge.Error()
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, core.ErrNotFound.Error()
	case errors.Is(err, core.ErrPersistFailure):
		return http.StatusInternalServerError, core.ErrPersistFailure.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
