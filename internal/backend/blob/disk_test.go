package blob

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func newTestDiskStore(t *testing.T) *DiskStore {
	t.Helper()

	store, err := NewDiskStore(filepath.Join(t.TempDir(), "uploads"), "/uploads", DefaultMaxFileSize)
	if err != nil {
		t.Fatalf("NewDiskStore error: %v", err)
	}
	return store
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	return len(entries)
}

func TestNewDiskStore(t *testing.T) {
	t.Run("creates directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "uploads")
		if _, err := NewDiskStore(dir, "/uploads", 0); err != nil {
			t.Fatalf("NewDiskStore error: %v", err)
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s to exist: %v", dir, err)
		}
	})

	t.Run("defaults max size", func(t *testing.T) {
		store, err := NewDiskStore(t.TempDir(), "/uploads", 0)
		if err != nil {
			t.Fatalf("NewDiskStore error: %v", err)
		}
		if store.MaxSize() != DefaultMaxFileSize {
			t.Errorf("MaxSize() = %d, want %d", store.MaxSize(), DefaultMaxFileSize)
		}
	})

	t.Run("normalizes public path", func(t *testing.T) {
		store, err := NewDiskStore(t.TempDir(), "static/uploads/", 0)
		if err != nil {
			t.Fatalf("NewDiskStore error: %v", err)
		}
		if store.PublicPath() != "/static/uploads" {
			t.Errorf("PublicPath() = %q, want %q", store.PublicPath(), "/static/uploads")
		}
	})

	t.Run("rejects empty directory", func(t *testing.T) {
		if _, err := NewDiskStore("", "/uploads", 0); err == nil {
			t.Fatal("expected error for empty directory, got nil")
		}
	})
}

func TestDiskStore_PutRoundTrip(t *testing.T) {
	store := newTestDiskStore(t)
	data := []byte("\xff\xd8\xff\xe0 fake jpeg")

	src, err := store.Put("Holiday.JPG", "image/jpeg", data)
	if err != nil {
		t.Fatalf("Put error: %v", err)
	}

	pattern := regexp.MustCompile(`^/uploads/gallery-\d+-\d+\.JPG$`)
	if !pattern.MatchString(src) {
		t.Fatalf("unexpected src %q", src)
	}

	path, err := store.Path(src)
	if err != nil {
		t.Fatalf("Path error: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("stored bytes mismatch: got %q", got)
	}
	if n := countFiles(t, store.Dir()); n != 1 {
		t.Fatalf("expected exactly 1 file in blob dir, got %d", n)
	}
}

func TestDiskStore_PutRejects(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		data     []byte
		wantErr  error
	}{
		{name: "text file", mimeType: "text/plain", data: []byte("hello"), wantErr: ErrInvalidFileType},
		{name: "gif", mimeType: "image/gif", data: []byte("GIF89a"), wantErr: ErrInvalidFileType},
		{name: "oversized", mimeType: "image/png", data: bytes.Repeat([]byte{1}, int(DefaultMaxFileSize)+1), wantErr: ErrPayloadTooLarge},
		{name: "empty", mimeType: "image/png", data: nil, wantErr: ErrEmptyBlob},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestDiskStore(t)

			src, err := store.Put("file.png", tt.mimeType, tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Put error = %v, want %v", err, tt.wantErr)
			}
			if src != "" {
				t.Errorf("expected empty src on failure, got %q", src)
			}
			if n := countFiles(t, store.Dir()); n != 0 {
				t.Errorf("expected no files written, got %d", n)
			}
		})
	}
}

func TestDiskStore_PutAcceptsExactLimit(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "/uploads", 16)
	if err != nil {
		t.Fatalf("NewDiskStore error: %v", err)
	}
	if _, err := store.Put("a.webp", "image/webp", bytes.Repeat([]byte{1}, 16)); err != nil {
		t.Fatalf("expected blob at the size limit to be accepted, got %v", err)
	}
}

func TestDiskStore_DeleteIsIdempotent(t *testing.T) {
	store := newTestDiskStore(t)

	src, err := store.Put("a.png", "image/png", []byte("png"))
	if err != nil {
		t.Fatalf("Put error: %v", err)
	}

	if err := store.Delete(src); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if n := countFiles(t, store.Dir()); n != 0 {
		t.Fatalf("expected blob to be removed, %d files left", n)
	}
	if err := store.Delete(src); err != nil {
		t.Fatalf("second Delete should succeed, got %v", err)
	}
}

func TestDiskStore_DeleteRejectsForeignSources(t *testing.T) {
	store := newTestDiskStore(t)

	outside := filepath.Join(filepath.Dir(store.Dir()), "keep.txt")
	if err := os.WriteFile(outside, []byte("keep"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	for _, src := range []string{
		"/uploads/../keep.txt",
		"/other/gallery-1-1.png",
		"/uploads/",
		"/uploads/nested/file.png",
		"gallery-1-1.png",
	} {
		if err := store.Delete(src); !errors.Is(err, ErrInvalidSource) {
			t.Errorf("Delete(%q) error = %v, want ErrInvalidSource", src, err)
		}
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("file outside the blob dir must survive: %v", err)
	}
}

func TestGenerateFilename(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	tests := []struct {
		original string
		mimeType string
		suffix   string
	}{
		{original: "photo.jpeg", mimeType: "image/jpeg", suffix: ".jpeg"},
		{original: "PHOTO.PNG", mimeType: "image/png", suffix: ".PNG"},
		{original: "archive.tar.webp", mimeType: "image/webp", suffix: ".webp"},
		{original: "noext", mimeType: "image/png", suffix: ".png"},
		{original: "../../etc/passwd.jpg", mimeType: "image/jpeg", suffix: ".jpg"},
		{original: "evil.html", mimeType: "image/png", suffix: ".png"},
		{original: "evil.svg", mimeType: "image/jpg", suffix: ".jpg"},
		{original: "page.HTM", mimeType: "image/webp; charset=binary", suffix: ".webp"},
	}
	for _, tt := range tests {
		got := GenerateFilename(tt.original, tt.mimeType, now)
		if !strings.HasPrefix(got, "gallery-1700000000123-") {
			t.Errorf("GenerateFilename(%q) = %q, want timestamp prefix", tt.original, got)
		}
		if filepath.Ext(got) != tt.suffix || strings.Contains(got, "/") {
			t.Errorf("GenerateFilename(%q, %q) = %q, want extension %q", tt.original, tt.mimeType, got, tt.suffix)
		}
	}

	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		name := GenerateFilename("a.png", "image/png", now)
		if _, dup := seen[name]; dup {
			t.Fatalf("GenerateFilename returned duplicate name %q for the same instant", name)
		}
		seen[name] = struct{}{}
	}
}

func TestDiskStore_PutNeverServesNonImageExtension(t *testing.T) {
	store := newTestDiskStore(t)

	src, err := store.Put("evil.html", "image/png", []byte("<script>alert(1)</script>"))
	if err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if ext := filepath.Ext(src); ext != ".png" {
		t.Fatalf("stored extension = %q, want .png (src %q)", ext, src)
	}
}

// sequence returns the given names in order, one per call.
func sequence(names ...string) func(string, string, time.Time) string {
	i := 0
	return func(string, string, time.Time) string {
		name := names[i]
		if i < len(names)-1 {
			i++
		}
		return name
	}
}

func TestDiskStore_PutDoesNotOverwriteOnCollision(t *testing.T) {
	store := newTestDiskStore(t)

	existing := filepath.Join(store.Dir(), "gallery-1-1.png")
	if err := os.WriteFile(existing, []byte("original"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	store.filename = sequence("gallery-1-1.png", "gallery-1-2.png")

	src, err := store.Put("a.png", "image/png", []byte("newcomer"))
	if err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if src != "/uploads/gallery-1-2.png" {
		t.Fatalf("src = %q, want the next free name", src)
	}

	got, err := os.ReadFile(existing)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(got) != "original" {
		t.Fatalf("existing blob was overwritten: %q", got)
	}
	if n := countFiles(t, store.Dir()); n != 2 {
		t.Fatalf("expected 2 files in blob dir, got %d", n)
	}
}

func TestDiskStore_PutGivesUpWhenEveryNameIsTaken(t *testing.T) {
	store := newTestDiskStore(t)

	if err := os.WriteFile(filepath.Join(store.Dir(), "gallery-1-1.png"), []byte("original"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	store.filename = sequence("gallery-1-1.png")

	if _, err := store.Put("a.png", "image/png", []byte("newcomer")); err == nil {
		t.Fatal("expected error when no free name is found, got nil")
	}
	if n := countFiles(t, store.Dir()); n != 1 {
		t.Fatalf("expected only the existing blob to remain, got %d files", n)
	}
}

func TestIsAllowedMimeType(t *testing.T) {
	allowed := []string{"image/jpeg", "image/jpg", "image/png", "image/webp", "IMAGE/PNG", "image/jpeg; charset=binary"}
	for _, m := range allowed {
		if !IsAllowedMimeType(m) {
			t.Errorf("IsAllowedMimeType(%q) = false, want true", m)
		}
	}
	rejected := []string{"", "text/plain", "image/gif", "image/svg+xml", "application/octet-stream"}
	for _, m := range rejected {
		if IsAllowedMimeType(m) {
			t.Errorf("IsAllowedMimeType(%q) = true, want false", m)
		}
	}
}
