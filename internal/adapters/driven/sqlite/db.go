package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// DB wraps a single-connection sql.DB on a SQLite file
type DB struct {
	*sql.DB
}

// Config holds database configuration
type Config struct {
	// Path of the database file, or MemoryPath
	Path string

	// BusyTimeoutMS is how long a writer waits on a locked database
	BusyTimeoutMS int
}

// DefaultConfig returns defaults for a file database
func DefaultConfig(path string) Config {
	return Config{Path: path, BusyTimeoutMS: 5000}
}

// Open opens the database, applies pragmas and the schema.
//
// The pool is limited to one connection: SQLite serializes writers anyway,
// and an in-memory database only exists on the connection that made it.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: empty database path")
	}
	if cfg.Path != MemoryPath {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	sqlDB, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeoutMS),
		"PRAGMA foreign_keys = ON",
	}
	if cfg.Path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := sqlDB.ExecContext(ctx, p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	db := &DB{DB: sqlDB}
	if err := db.InitSchema(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// InitSchema creates missing tables and indexes
func (db *DB) InitSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Ping checks if the database is usable
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Transaction runs fn in a transaction, committing only if fn succeeds
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
