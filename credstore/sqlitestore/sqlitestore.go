// Package sqlitestore persists the credential store in a local SQLite file so a
// session survives process restarts on one device.
package sqlitestore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/jrsteele09/crec-session/credstore"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

const upsert = `INSERT INTO kv (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`

var _ credstore.Backend = (*Backend)(nil)

type Backend struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite file at path.
func Open(ctx context.Context, path string) (*Backend, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.Wrap(err, "[sqlitestore.Open] mkdir")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.Open] sql.Open")
	}
	// One writer keeps SQLite from returning SQLITE_BUSY inside this process
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "[sqlitestore.Open] %s", stmt)
		}
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := b.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "[sqlitestore.Get]")
	}
	return value, true, nil
}

func (b *Backend) SetMany(ctx context.Context, entries map[string]string) error {
	return b.inTx(ctx, func(tx *sql.Tx) error {
		for k, v := range entries {
			if _, err := tx.ExecContext(ctx, upsert, k, v); err != nil {
				return errors.Wrapf(err, "[sqlitestore.SetMany] %s", k)
			}
		}
		return nil
	})
}

func (b *Backend) SetIfPresent(ctx context.Context, guard string, entries map[string]string) (bool, error) {
	written := false
	err := b.inTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM kv WHERE key = ?", guard).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "[sqlitestore.SetIfPresent] %s", guard)
		}
		for k, v := range entries {
			if _, err := tx.ExecContext(ctx, upsert, k, v); err != nil {
				return errors.Wrapf(err, "[sqlitestore.SetIfPresent] %s", k)
			}
		}
		written = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return written, nil
}

func (b *Backend) Delete(ctx context.Context, keys ...string) error {
	return b.inTx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", k); err != nil {
				return errors.Wrapf(err, "[sqlitestore.Delete] %s", k)
			}
		}
		return nil
	})
}

func (b *Backend) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "[sqlitestore] begin")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "[sqlitestore] commit")
}

func (b *Backend) Close() error {
	return b.db.Close()
}
