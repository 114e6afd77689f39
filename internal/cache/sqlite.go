package cache

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reasoning_cache (
	cache_key TEXT PRIMARY KEY,
	reasoning TEXT NOT NULL,
	metadata  TEXT,
	cached_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT cache_key, reasoning, metadata, cached_at FROM reasoning_cache WHERE cache_key = ?`,
		key,
	)

	var e Entry
	var metadata sql.NullString
	err := row.Scan(&e.Key, &e.Reasoning, &metadata, &e.CachedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get entry")
	}
	e.Metadata = metadata.String
	return &e, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, reasoning, metadata string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reasoning_cache (cache_key, reasoning, metadata) VALUES (?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		   reasoning = excluded.reasoning,
		   metadata  = excluded.metadata,
		   cached_at = datetime('now')`,
		key, reasoning, nullable(metadata),
	)
	return eris.Wrap(err, "sqlite: set entry")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
