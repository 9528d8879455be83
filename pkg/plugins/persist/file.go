package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileBackend stores one JSON file per store under a directory. Writes
// go through a temp file and rename so readers never see a torn
// snapshot.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persist: create dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Load implements Backend.
func (b *FileBackend) Load(_ context.Context, storeID string) ([]byte, error) {
	raw, err := os.ReadFile(b.path(storeID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: read %q: %w", storeID, err)
	}
	return raw, nil
}

// Store implements Backend.
func (b *FileBackend) Store(_ context.Context, storeID string, state []byte) error {
	path := b.path(storeID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, state, 0o644); err != nil {
		return fmt.Errorf("persist: write %q: %w", storeID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("persist: rename %q: %w", storeID, err)
	}
	return nil
}

func (b *FileBackend) path(storeID string) string {
	// Store ids may contain separators; keep the layout flat.
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(storeID)
	return filepath.Join(b.dir, name+".json")
}
