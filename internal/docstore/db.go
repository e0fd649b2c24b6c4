// Package docstore provides the document-store contract named in spec.md:
// typed collection accessors over composite ids, with a transactional
// read-modify-write primitive for the claim and counter operations. It is
// backed by SQLite the way the teacher's pkg/database package wraps
// database/sql, generalized from per-entity tables to a single
// collection+id+json document layout so every entity in spec.md §3 can
// share one store without a bespoke table per type.
package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Config controls the underlying SQLite connection.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB wraps *sql.DB with the schema and transaction helpers every collection
// accessor builds on.
type DB struct {
	sqlDB  *sql.DB
	logger *zap.Logger
}

// Open opens the SQLite-backed document store and ensures its schema exists.
func Open(cfg Config, logger *zap.Logger) (*DB, error) {
	// _txlock=immediate makes every sql.Tx a SQLite "BEGIN IMMEDIATE",
	// taking the write lock up front so concurrent claim/counter
	// transactions serialize instead of racing on a read-then-write gap.
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", cfg.Path)

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{sqlDB: sqlDB, logger: logger}
	if err := db.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	logger.Info("document store ready", zap.String("path", cfg.Path))
	return db, nil
}

func (db *DB) ensureSchema() error {
	_, err := db.sqlDB.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			data       TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (collection, id)
		);
		CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
	`)
	return err
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	db.logger.Info("closing document store")
	return db.sqlDB.Close()
}

// WithTx runs fn inside a SQLite write transaction taken with BEGIN
// IMMEDIATE, so that concurrent callers (the job claim, the counter
// increment) serialize through SQLite's database-level write lock instead
// of racing on a read-then-write gap. This is the transactional
// read-modify-write primitive spec.md §4.3 and §4.9 require.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
