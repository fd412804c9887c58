// Package sqlite implements store.Store on an embedded SQLite database using
// the ncruces driver. Each store transaction is a SQL transaction over a
// single kv table, so a transition's writes reach disk together or not at all.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/kitties/internal/log"
	"github.com/zjrosen/kitties/internal/store"
)

// DB is a SQLite-backed store.Store.
type DB struct {
	conn *sql.DB
	path string
}

// Ensure DB implements store.Store.
var _ store.Store = (*DB)(nil)

// NewDB opens (creating if needed) the database at path, enables WAL mode and
// applies pending migrations. The parent directory is created with 0700.
func NewDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Transitions read before they write, so take the write lock at BEGIN:
	// a second writer then waits out busy_timeout instead of failing on its
	// first write.
	dsn := "file:" + path + "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=synchronous(normal)"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	log.Info(log.CatDB, "ledger database ready", "path", path)
	return &DB{conn: conn, path: path}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Begin opens an immediate SQL transaction, waiting up to the busy timeout
// while another connection or process holds the write lock.
func (db *DB) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx   *sql.Tx
	done bool
}

func (t *sqlTx) Get(key string) ([]byte, bool, error) {
	if t.done {
		return nil, false, store.ErrTxDone
	}
	var value []byte
	err := t.tx.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, true, nil
}

func (t *sqlTx) Put(key string, value []byte) error {
	if t.done {
		return store.ErrTxDone
	}
	_, err := t.tx.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (t *sqlTx) Commit() error {
	if t.done {
		return store.ErrTxDone
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		log.ErrorErr(log.CatDB, "commit failed", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *sqlTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}
