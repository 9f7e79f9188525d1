// Package catalog provides the weighted car catalog and random selection.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Catalog errors.
var (
	// ErrUnavailable is returned when the catalog source is missing or malformed.
	ErrUnavailable = errors.New("catalog unavailable")
	// ErrInvalidCatalog is returned when the catalog is empty or no item can be selected.
	ErrInvalidCatalog = errors.New("invalid catalog: no selectable items")
)

// Item is a single guessable car. Name is unique within the catalog.
type Item struct {
	Name   string  `json:"name"`
	Image  string  `json:"image"`
	Weight float64 `json:"chance"`
}

// Store supplies the current catalog. Read-only to the game core.
type Store interface {
	Load(ctx context.Context) ([]Item, error)
}

// FileStore loads the catalog from a JSON file on every call,
// so catalog edits take effect without a restart.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore reading from the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and decodes the catalog file.
// Returns ErrUnavailable if the file is missing or malformed.
func (s *FileStore) Load(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, s.path, err)
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, s.path, err)
	}

	return items, nil
}

// Validate checks that the catalog can produce a round.
// Returns ErrInvalidCatalog if it is empty or carries no positive weight.
func Validate(items []Item) error {
	if len(items) == 0 {
		return ErrInvalidCatalog
	}
	for _, item := range items {
		if item.Weight > 0 {
			return nil
		}
	}
	return ErrInvalidCatalog
}
