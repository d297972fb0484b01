package database

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestJSONStore(t *testing.T) *JSONFileStore {
	t.Helper()

	store, err := NewJSONFileStore(filepath.Join(t.TempDir(), "data", "gallery.json"))
	if err != nil {
		t.Fatalf("NewJSONFileStore error: %v", err)
	}
	return store
}

func TestJSONFileStore_RequiresPath(t *testing.T) {
	if _, err := NewJSONFileStore(""); err == nil {
		t.Fatal("expected error for empty path, got nil")
	}
}

func TestJSONFileStore_InitializesMissingDocument(t *testing.T) {
	store := newTestJSONStore(t)

	snapshot := store.Load()
	if snapshot.Status != LoadInitialized {
		t.Fatalf("expected initialized status, got %s (err=%v)", snapshot.Status, snapshot.Err)
	}
	if snapshot.Records == nil || len(snapshot.Records) != 0 {
		t.Fatalf("expected empty non-nil records, got %#v", snapshot.Records)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("expected document to be created: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Fatalf("expected empty JSON array, got %q", string(data))
	}

	// Second load reads the created document
	if got := store.Load().Status; got != LoadOK {
		t.Fatalf("expected ok status on second load, got %s", got)
	}
}

func TestJSONFileStore_SaveAndLoad(t *testing.T) {
	store := newTestJSONStore(t)

	want := testRecords()
	if err := store.Save(want); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	snapshot := store.Load()
	if snapshot.Status != LoadOK {
		t.Fatalf("expected ok status, got %s (err=%v)", snapshot.Status, snapshot.Err)
	}
	if len(snapshot.Records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(snapshot.Records))
	}
	for i := range want {
		if snapshot.Records[i] != want[i] {
			t.Errorf("record[%d] = %+v, want %+v", i, snapshot.Records[i], want[i])
		}
	}

	if _, err := os.Stat(store.Path() + ".part"); !os.IsNotExist(err) {
		t.Errorf("expected temporary file to be gone, stat err = %v", err)
	}
}

func TestJSONFileStore_DocumentIsPrettyPrintedWithExpectedKeys(t *testing.T) {
	store := newTestJSONStore(t)

	if err := store.Save(testRecords()[:1]); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if !strings.Contains(string(data), "\n  {\n    \"id\": \"c\",") {
		t.Fatalf("expected 2-space indented document, got:\n%s", string(data))
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}
	for _, key := range []string{"id", "src", "alt", "category", "createdAt"} {
		if _, ok := raw[0][key]; !ok {
			t.Errorf("expected key %q in persisted record, got %v", key, raw[0])
		}
	}
}

func TestJSONFileStore_CorruptDocumentIsUnreadable(t *testing.T) {
	store := newTestJSONStore(t)

	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	snapshot := store.Load()
	if snapshot.Status != LoadUnreadable {
		t.Fatalf("expected unreadable status, got %s", snapshot.Status)
	}
	if snapshot.Err == nil {
		t.Fatal("expected error on unreadable snapshot")
	}
	if snapshot.Records == nil || len(snapshot.Records) != 0 {
		t.Fatalf("expected empty non-nil records, got %#v", snapshot.Records)
	}

	// The corrupt document is left alone so it can be inspected
	data, _ := os.ReadFile(store.Path())
	if string(data) != "{not json" {
		t.Fatalf("expected corrupt document to be untouched, got %q", string(data))
	}
}

func TestJSONFileStore_SaveFailureKeepsPreviousDocument(t *testing.T) {
	store := newTestJSONStore(t)

	if err := store.Save(testRecords()); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	// A directory in place of the temporary file makes the write fail
	if err := os.Mkdir(store.Path()+".part", 0o755); err != nil {
		t.Fatalf("Mkdir error: %v", err)
	}
	if err := store.Save(nil); err == nil {
		t.Fatal("expected Save to fail, got nil")
	}

	if got := len(store.Load().Records); got != 3 {
		t.Fatalf("expected previous document with 3 records, got %d", got)
	}
}

func TestJSONFileStore_Ping(t *testing.T) {
	store := newTestJSONStore(t)
	if err := store.Ping(); err != nil {
		t.Fatalf("expected ping to succeed, got %v", err)
	}

	if err := os.RemoveAll(filepath.Dir(store.Path())); err != nil {
		t.Fatalf("RemoveAll error: %v", err)
	}
	if err := store.Ping(); err == nil {
		t.Fatal("expected ping to fail once the data directory is gone, got nil")
	}
}
