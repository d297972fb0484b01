package database

// MetadataStore persists the gallery index as a single document.
//
// Load never fails outright: read and parse errors are reported through
// Snapshot.Status and Snapshot.Err with an empty index. Save overwrites the
// whole document and returns an error instead of panicking so callers can
// roll back work that depended on it.
//
// Implementations do not lock across Load and Save; callers that need
// read-modify-write atomicity must serialize it themselves.
//
// Ping reports whether the backing storage is currently reachable.
type MetadataStore interface {
	Load() Snapshot
	Save(records []ImageRecord) error
	Ping() error
	Close() error
}
