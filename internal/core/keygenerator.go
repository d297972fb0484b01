package core

import (
	"github.com/google/uuid"
)

// generateID returns a time-ordered UUIDv7, so ids sort in creation order as plain strings.
func generateID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
