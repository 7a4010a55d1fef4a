package blob

import (
	"context"
	"database/sql"
	"errors"
	"time"

	perr "ngmeta/internal/platform/errors"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	key          TEXT PRIMARY KEY,
	content      BLOB NOT NULL,
	content_type TEXT NOT NULL,
	updated_at   TEXT NOT NULL
)`

// SQLite keeps every document as one row; handy for single-host deployments
type SQLite struct {
	Addr
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dsn and ensures the table exists
func NewSQLite(ctx context.Context, addr Addr, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "open sqlite %s", dsn)
	}
	// one writer; readers share the same connection so :memory: databases stay coherent
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{`PRAGMA busy_timeout = 5000`, sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "init sqlite %s", dsn)
		}
	}
	return &SQLite{Addr: addr, db: db}, nil
}

// Load selects the row for uri
func (s *SQLite) Load(ctx context.Context, uri string) ([]byte, bool, error) {
	key, err := s.Key(uri)
	if err != nil {
		return nil, false, err
	}
	var b []byte
	err = s.db.QueryRowContext(ctx, `SELECT content FROM documents WHERE key = ?`, key).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, perr.Wrapf(err, perr.ErrorCodeStorage, "sqlite load %s", key)
	}
	return b, true, nil
}

// Save upserts the row for uri
func (s *SQLite) Save(ctx context.Context, contentType, uri string, content []byte) error {
	key, err := s.Key(uri)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO documents (key, content, content_type, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET content = excluded.content, content_type = excluded.content_type, updated_at = excluded.updated_at`,
		key, content, contentType, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "sqlite save %s", key)
	}
	return nil
}

// List returns keys starting with prefix in sorted order
func (s *SQLite) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM documents WHERE substr(key, 1, length(?)) = ? ORDER BY key`, prefix, prefix)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "sqlite list %s", prefix)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "sqlite list %s", prefix)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *SQLite) Close() error { return s.db.Close() }
