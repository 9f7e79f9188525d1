package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "car_list.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileStoreLoad(t *testing.T) {
	path := writeCatalogFile(t, `[
		{"name": "Red Car", "image": "red_car.jpg", "chance": 5},
		{"name": "Golden Car", "image": "golden_car.jpg", "chance": 0.5}
	]`)

	store := NewFileStore(path)
	items, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Red Car", items[0].Name)
	assert.Equal(t, "red_car.jpg", items[0].Image)
	assert.Equal(t, 5.0, items[0].Weight)
	assert.Equal(t, 0.5, items[1].Weight)
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFileStoreLoadMalformed(t *testing.T) {
	path := writeCatalogFile(t, `{"not": "a list"}`)
	store := NewFileStore(path)
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFileStoreLoadPicksUpEdits(t *testing.T) {
	path := writeCatalogFile(t, `[{"name": "Red Car", "image": "red_car.jpg", "chance": 1}]`)
	store := NewFileStore(path)

	items, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)

	// Edits are visible on the next Load; no restart needed
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name": "Red Car", "image": "red_car.jpg", "chance": 1},
		{"name": "Blue Car", "image": "blue_car.jpg", "chance": 2}
	]`), 0o644))

	items, err = store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestFileStoreLoadCancelledContext(t *testing.T) {
	path := writeCatalogFile(t, `[{"name": "Red Car", "image": "red_car.jpg", "chance": 1}]`)
	store := NewFileStore(path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		items   []Item
		wantErr error
	}{
		{"valid", []Item{{Name: "Red Car", Weight: 1}}, nil},
		{"empty", nil, ErrInvalidCatalog},
		{"all zero weight", []Item{{Name: "Red Car", Weight: 0}}, ErrInvalidCatalog},
		{"negative weights only", []Item{{Name: "Red Car", Weight: -1}}, ErrInvalidCatalog},
		{"mixed weights", []Item{{Name: "Red Car", Weight: 0}, {Name: "Blue Car", Weight: 2}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.items)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
