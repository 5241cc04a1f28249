// Package storage defines persistence contracts for penalty tables.
package storage

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/louisbranch/respawn-penalty/internal/penalty"
)

// Store persists whole penalty tables keyed by campaign save name.
type Store interface {
	// Load returns the table stored for a save. When nothing usable is
	// stored the error wraps penalty.ErrNoState.
	Load(ctx context.Context, saveName string) (penalty.Table, error)
	// Save replaces everything stored for a save with table.
	Save(ctx context.Context, saveName string, table penalty.Table) error
	Close() error
}

// Lister is implemented by stores that can enumerate their saves.
type Lister interface {
	Saves(ctx context.Context) ([]string, error)
}

// SaveName derives the storage key from a campaign save path: its base name
// without extension.
func SaveName(savePath string) string {
	base := filepath.Base(strings.TrimSpace(savePath))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
