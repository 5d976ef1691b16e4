package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nijaru/yt-digest/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
    video_id TEXT PRIMARY KEY,
    language TEXT NOT NULL DEFAULT '',
    text TEXT NOT NULL,
    source TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS digests (
    id TEXT PRIMARY KEY,
    video_id TEXT NOT NULL,
    user_id TEXT NOT NULL DEFAULT '',
    mode TEXT NOT NULL,
    model TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_digests_video ON digests(video_id, created_at);
`

type DBConfig struct {
	MaxRetries         int
	RetryDelay         time.Duration
	QueryTimeout       time.Duration
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

func DefaultDBConfig() DBConfig {
	return DBConfig{
		MaxRetries:         3,
		RetryDelay:         time.Second,
		QueryTimeout:       30 * time.Second,
		MaxConnections:     10,
		MaxIdleConnections: 5,
		ConnMaxLifetime:    time.Hour,
	}
}

// DB is an open database with its prepared statements.
type DB struct {
	conn       *sql.DB
	statements *PreparedStatements
	config     DBConfig
}

// Open creates the database file if needed, applies the schema and prepares
// statements.
func Open(ctx context.Context, dbPath string, config DBConfig) (*DB, error) {
	const op = "sqlite.Open"

	conn, err := InitDB(dbPath)
	if err != nil {
		return nil, err
	}
	ConfigureDB(conn, config)

	stmts := &PreparedStatements{}
	if err := stmts.Prepare(ctx, conn); err != nil {
		stmts.Close()
		conn.Close()
		return nil, err
	}

	if err := conn.PingContext(ctx); err != nil {
		stmts.Close()
		conn.Close()
		return nil, errors.Internal(op, err, "failed to connect to database")
	}

	return &DB{conn: conn, statements: stmts, config: config}, nil
}

func (db *DB) Close() error {
	stmtErr := db.statements.Close()
	if err := db.conn.Close(); err != nil {
		return err
	}
	return stmtErr
}

func ConfigureDB(db *sql.DB, config DBConfig) {
	db.SetMaxOpenConns(config.MaxConnections)
	db.SetMaxIdleConns(config.MaxIdleConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
}

func InitDB(dbPath string) (*sql.DB, error) {
	const op = "sqlite.InitDB"

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Internal(op, err, "failed to create database directory")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Internal(op, err, "failed to open database")
	}

	if err := configurePragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := execSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func configurePragmas(db *sql.DB) error {
	const op = "sqlite.configurePragmas"

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA cache_size = -2000", // 2MB
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Internal(op, err, fmt.Sprintf("failed to set pragma: %s", pragma))
		}
	}

	return nil
}

func execSchema(db *sql.DB) error {
	const op = "sqlite.execSchema"

	tx, err := db.Begin()
	if err != nil {
		return errors.Internal(op, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return errors.Internal(op, err, fmt.Sprintf("failed to execute schema statement: %s", stmt))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Internal(op, err, "failed to commit schema transaction")
	}

	return nil
}

// withRetry retries fn while SQLite reports lock contention.
func (db *DB) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, db.config.QueryTimeout)
	defer cancel()

	var lastErr error
	for i := 0; i < max(db.config.MaxRetries, 1); i++ {
		if err := ctx.Err(); err != nil {
			return errors.Internal(op, err, "context cancelled")
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !isLockError(lastErr) {
			return errors.Internal(op, lastErr, "query failed")
		}

		select {
		case <-ctx.Done():
		case <-time.After(db.config.RetryDelay * time.Duration(i+1)):
		}
	}
	return errors.Internal(op, lastErr, "max retries exceeded")
}

func isLockError(err error) bool {
	return strings.Contains(err.Error(), "database is locked") ||
		strings.Contains(err.Error(), "busy")
}
