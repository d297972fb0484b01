package database

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the gallery index as rows of a single table. The position
// column preserves the document order; Save rewrites every row in one transaction.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(connectionString string) (*SQLiteStore, error) {
	if connectionString == "" {
		return nil, errors.New("sqlite metadata store requires a connection string")
	}

	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS gallery_images (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		src TEXT NOT NULL,
		alt TEXT NOT NULL,
		category TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`)
	return err
}

func (s *SQLiteStore) Load() Snapshot {
	rows, err := s.db.Query("SELECT id, src, alt, category, created_at FROM gallery_images ORDER BY position ASC")
	if err != nil {
		return unreadableSnapshot(fmt.Errorf("failed to query gallery images: %w", err))
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as the snapshot already reflects read failures
	}()

	records := []ImageRecord{}
	for rows.Next() {
		var record ImageRecord
		if err := rows.Scan(&record.ID, &record.Src, &record.Alt, &record.Category, &record.CreatedAt); err != nil {
			return unreadableSnapshot(fmt.Errorf("failed to scan gallery image: %w", err))
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return unreadableSnapshot(fmt.Errorf("failed to iterate gallery images: %w", err))
	}
	return okSnapshot(records)
}

func (s *SQLiteStore) Save(records []ImageRecord) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec("DELETE FROM gallery_images"); err != nil {
		return fmt.Errorf("failed to clear gallery images: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO gallery_images (id, position, src, alt, category, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i, record := range records {
		if _, err = stmt.Exec(record.ID, i, record.Src, record.Alt, record.Category, record.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert image %s: %w", record.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit gallery images: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("sqlite unreachable: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
