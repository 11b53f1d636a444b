// Package sqlite implements the ReportStore port on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	writerConns = 1
	readerConns = 4
)

// basePragmas apply to every connection. journal_mode(WAL) is added for file
// databases only, in-memory databases do not support it.
var basePragmas = []string{
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"cache_size(-64000)",
}

// DB holds the report database as a single-connection writer pool and a
// small reader pool.
type DB struct {
	Writer *sql.DB
	Reader *sql.DB
	path   string
}

// NewDB opens the report database file at dbPath in WAL mode.
func NewDB(ctx context.Context, dbPath string) (*DB, error) {
	return openDB(ctx, fileDSN(dbPath), dbPath)
}

func fileDSN(path string) string {
	return buildDSN(path, append([]string{"journal_mode(WAL)"}, basePragmas...), "")
}

// memoryDSN names a shared-cache in-memory database so the writer and
// reader pools see the same data.
func memoryDSN(name string) string {
	return buildDSN(name, basePragmas, "mode=memory&cache=shared")
}

func buildDSN(name string, pragmas []string, params string) string {
	parts := make([]string, 0, len(pragmas)+1)
	if params != "" {
		parts = append(parts, params)
	}
	for _, p := range pragmas {
		parts = append(parts, "_pragma="+p)
	}
	return "file:" + name + "?" + strings.Join(parts, "&")
}

func openDB(ctx context.Context, dsn, path string) (*DB, error) {
	writer, err := openPool(ctx, dsn, writerConns)
	if err != nil {
		return nil, fmt.Errorf("open report db writer %s: %w", path, err)
	}

	reader, err := openPool(ctx, dsn, readerConns)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open report db reader %s: %w", path, err)
	}

	return &DB{Writer: writer, Reader: reader, path: path}, nil
}

func openPool(ctx context.Context, dsn string, maxOpen int) (*sql.DB, error) {
	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(maxOpen)

	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes both pools and returns the first error.
func (db *DB) Close() error {
	var firstErr error

	if err := db.Reader.Close(); err != nil {
		firstErr = fmt.Errorf("close reader: %w", err)
	}

	if err := db.Writer.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close writer: %w", err)
	}

	return firstErr
}
