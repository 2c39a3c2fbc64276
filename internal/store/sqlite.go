package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/disruption-desk/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps :memory: databases coherent and
	// serializes writers for the file case.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SetSessionValue inserts or replaces a session value.
func (s *SQLiteStore) SetSessionValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO session_values (key, value, updated_at)
		VALUES (?, ?, ?)`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("setting session value %s: %w", key, err)
	}
	return nil
}

// GetSessionValue returns the value stored under key, or ErrNotFound.
func (s *SQLiteStore) GetSessionValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		"SELECT value FROM session_values WHERE key = ?", key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("session value %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting session value %s: %w", key, err)
	}
	return value, nil
}

// DeleteSessionValue removes a session value. Missing keys are ignored.
func (s *SQLiteStore) DeleteSessionValue(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM session_values WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("deleting session value %s: %w", key, err)
	}
	return nil
}

// RecordExport inserts an export history row.
// If the record has no ID, a new UUID is generated.
func (s *SQLiteStore) RecordExport(ctx context.Context, rec ExportRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	createdAt := rec.CreatedAt.Time
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exports (id, format, path, ticket_count, operator_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Format, rec.Path, rec.TicketCount, rec.OperatorID,
		createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording export %s: %w", rec.ID, err)
	}
	return nil
}

// ListExports returns the most recent exports, newest first.
func (s *SQLiteStore) ListExports(ctx context.Context, limit int) ([]ExportRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, format, path, ticket_count, operator_id, created_at
		FROM exports ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying exports: %w", err)
	}
	defer rows.Close()

	var records []ExportRecord
	for rows.Next() {
		rec, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// scanExport scans an export row from a sqlx.Rows result set.
func scanExport(rows *sqlx.Rows) (ExportRecord, error) {
	var (
		rec       ExportRecord
		createdAt time.Time
	)

	err := rows.Scan(
		&rec.ID, &rec.Format, &rec.Path, &rec.TicketCount,
		&rec.OperatorID, &createdAt,
	)
	if err != nil {
		return ExportRecord{}, fmt.Errorf("scanning export row: %w", err)
	}

	rec.CreatedAt = model.NewTimestamp(createdAt)
	return rec, nil
}
