package database

import (
	"encoding/json"
	"fmt"
)

// LoadStatus describes how a Snapshot was obtained.
type LoadStatus int

const (
	// LoadOK means an existing document was read and parsed.
	LoadOK LoadStatus = iota
	// LoadInitialized means no document existed and an empty one was created.
	LoadInitialized
	// LoadUnreadable means the document could not be read or parsed. Records is empty.
	LoadUnreadable
)

func (s LoadStatus) String() string {
	switch s {
	case LoadOK:
		return "ok"
	case LoadInitialized:
		return "initialized"
	case LoadUnreadable:
		return "unreadable"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

// Snapshot is the result of loading the gallery index.
// Records is never nil, so callers can treat every snapshot as a valid (possibly empty) index.
type Snapshot struct {
	Records []ImageRecord
	Status  LoadStatus
	Err     error
}

func okSnapshot(records []ImageRecord) Snapshot {
	return Snapshot{Records: records, Status: LoadOK}
}

func initializedSnapshot() Snapshot {
	return Snapshot{Records: []ImageRecord{}, Status: LoadInitialized}
}

func unreadableSnapshot(err error) Snapshot {
	return Snapshot{Records: []ImageRecord{}, Status: LoadUnreadable, Err: err}
}

// encodeIndex renders the index as a pretty-printed JSON array.
func encodeIndex(records []ImageRecord) ([]byte, error) {
	if records == nil {
		records = []ImageRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode gallery index: %w", err)
	}
	return data, nil
}

func decodeIndex(data []byte) ([]ImageRecord, error) {
	var records []ImageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode gallery index: %w", err)
	}
	if records == nil {
		records = []ImageRecord{}
	}
	return records, nil
}
