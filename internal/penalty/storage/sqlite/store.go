// Package sqlite provides a SQLite-backed penalty table store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/louisbranch/respawn-penalty/internal/penalty"
	"github.com/louisbranch/respawn-penalty/internal/penalty/storage/sqlite/migrations"
	apperrors "github.com/louisbranch/respawn-penalty/internal/platform/errors"
	"github.com/louisbranch/respawn-penalty/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// FileName is the database file created inside a data directory.
const FileName = "penalty.db"

// Store persists penalty tables in SQLite, one row per character skill.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite penalty store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// OpenDir opens the store file inside dir.
func OpenDir(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	return Open(filepath.Join(dir, FileName))
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Load returns the table stored for a save.
func (s *Store) Load(ctx context.Context, saveName string) (penalty.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	saveName = strings.TrimSpace(saveName)
	if saveName == "" {
		return nil, fmt.Errorf("save name is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT character_id, skill_id, level
		   FROM predeath_levels
		  WHERE save_name = ?`,
		saveName,
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSaveDataRead, "query predeath levels", err)
	}
	defer rows.Close()

	table := penalty.Table{}
	for rows.Next() {
		var (
			characterID int64
			skillID     string
			level       float64
		)
		if err := rows.Scan(&characterID, &skillID, &level); err != nil {
			return nil, apperrors.WrapWithMetadata(
				apperrors.CodeSaveDataCorrupt,
				"scan predeath level",
				map[string]string{"save": saveName},
				err,
			)
		}
		if !penalty.FiniteLevel(level) {
			return nil, apperrors.WrapWithMetadata(
				apperrors.CodeSaveDataCorrupt,
				fmt.Sprintf("predeath level for %q is not finite", skillID),
				map[string]string{"save": saveName, "attribute": skillID},
				nil,
			)
		}
		id := penalty.CharacterID(characterID)
		record, ok := table[id]
		if !ok {
			record = penalty.Record{}
			table[id] = record
		}
		record[penalty.NormalizeSkillID(skillID)] = level
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSaveDataRead, "iterate predeath levels", err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: save %q has no rows", penalty.ErrNoState, saveName)
	}
	return table, nil
}

// Save replaces every row stored for a save in one transaction.
func (s *Store) Save(ctx context.Context, saveName string, table penalty.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	saveName = strings.TrimSpace(saveName)
	if saveName == "" {
		return fmt.Errorf("save name is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSaveDataWrite, "begin save transaction", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM predeath_levels WHERE save_name = ?`, saveName); err != nil {
		_ = tx.Rollback()
		return apperrors.Wrap(apperrors.CodeSaveDataWrite, "clear predeath levels", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO predeath_levels (
		   save_name,
		   character_id,
		   skill_id,
		   level
		 ) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return apperrors.Wrap(apperrors.CodeSaveDataWrite, "prepare predeath insert", err)
	}
	defer stmt.Close()

	for _, id := range table.Characters() {
		record := table[id]
		for _, skill := range record.Skills() {
			if _, err := stmt.ExecContext(ctx, saveName, int64(id), skill.String(), record[skill]); err != nil {
				_ = tx.Rollback()
				return apperrors.Wrap(apperrors.CodeSaveDataWrite, "insert predeath level", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.CodeSaveDataWrite, "commit save transaction", err)
	}
	return nil
}

// Saves lists every save name with stored rows, in ascending order.
func (s *Store) Saves(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT DISTINCT save_name FROM predeath_levels ORDER BY save_name`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSaveDataRead, "list saves", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeSaveDataRead, "scan save name", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
