// Package uuid generates crawl job identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator implements crawl.IDGenerator with time-ordered UUIDv7 strings,
// so a roster sorted by id roughly follows creation order.
type Generator struct{}

// New creates a Generator.
func New() Generator {
	return Generator{}
}

// NewID returns a fresh UUIDv7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate crawl id: %w", err)
	}
	return id.String(), nil
}
