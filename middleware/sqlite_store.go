package middleware

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a Store backed by a local SQLite database, for caches that
// should survive process restarts.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path and ensures the
// cache table exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	schema := `CREATE TABLE IF NOT EXISTS llm_cache (
		key TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Get implements Store.Get. Expired rows are deleted on read.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	query, args, err := sq.Select("content", "expires_at").
		From("llm_cache").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return "", false, err
	}

	var content string
	var expiresAt int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&content, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache read failed: %w", err)
	}

	if s.now().Unix() > expiresAt {
		del, delArgs, err := sq.Delete("llm_cache").Where(sq.Eq{"key": key}).ToSql()
		if err == nil {
			_, _ = s.db.ExecContext(ctx, del, delArgs...)
		}
		return "", false, nil
	}
	return content, true, nil
}

// Set implements Store.Set.
func (s *SQLiteStore) Set(ctx context.Context, key, content string, ttl time.Duration) error {
	query, args, err := sq.Insert("llm_cache").
		Columns("key", "content", "expires_at").
		Values(key, content, s.now().Add(ttl).Unix()).
		ToSql()
	if err != nil {
		return err
	}
	// squirrel has no upsert support for sqlite
	query = strings.Replace(query, "INSERT", "INSERT OR REPLACE", 1)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

// Purge deletes all expired rows.
func (s *SQLiteStore) Purge(ctx context.Context) error {
	query, args, err := sq.Delete("llm_cache").
		Where(sq.Lt{"expires_at": s.now().Unix()}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
