// Package xmlfile stores each campaign's penalty table as an XML document
// named after the save file.
package xmlfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/respawn-penalty/internal/penalty"
)

// Extension is appended to the save name to form the document file name.
const Extension = ".xml"

// Store keeps one document per save inside a data directory.
type Store struct {
	dir string
}

// Open returns a store rooted at dir, creating it when missing.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	cleanDir := filepath.Clean(dir)
	if err := os.MkdirAll(cleanDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: cleanDir}, nil
}

// Path returns the document path for a save.
func (s *Store) Path(saveName string) string {
	return filepath.Join(s.dir, saveName+Extension)
}

// Load reads the document for a save.
func (s *Store) Load(ctx context.Context, saveName string) (penalty.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateSaveName(saveName); err != nil {
		return nil, err
	}
	return penalty.ReadDocumentFile(s.Path(saveName))
}

// Save overwrites the document for a save.
func (s *Store) Save(ctx context.Context, saveName string, table penalty.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSaveName(saveName); err != nil {
		return err
	}
	return penalty.WriteDocumentFile(s.Path(saveName), table)
}

// Saves returns the names of every stored save in ascending order.
func (s *Store) Saves(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Extension {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), Extension))
	}
	return names, nil
}

// Close is a no-op; documents are not held open.
func (s *Store) Close() error {
	return nil
}

func validateSaveName(saveName string) error {
	if strings.TrimSpace(saveName) == "" {
		return fmt.Errorf("save name is required")
	}
	if strings.ContainsAny(saveName, `/\`) || saveName == ".." {
		return fmt.Errorf("save name %q must not contain path separators", saveName)
	}
	return nil
}
