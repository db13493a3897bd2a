package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	annotation_id TEXT NOT NULL,
	action        TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_log_annotation ON audit_log (annotation_id);
`

// SQLiteSink persists audit records to a local SQLite database.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the audit database at path. Avoid
// ":memory:": database/sql pools connections and each pooled connection
// would see its own empty in-memory database.
func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: create schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Write implements Sink.
func (s *SQLiteSink) Write(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, user_id, annotation_id, action, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(),
		rec.UserID,
		rec.AnnotationID,
		rec.Action,
		rec.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	)
	if err != nil {
		return fmt.Errorf("audit: insert record: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// CountByAnnotation returns how many records exist for an annotation.
// Intended for tests and operational inspection.
func (s *SQLiteSink) CountByAnnotation(ctx context.Context, annotationID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_log WHERE annotation_id = ?`, annotationID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("audit: count records: %w", err)
	}
	return n, nil
}
