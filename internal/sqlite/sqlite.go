// Package sqlite owns the SQLite connection pools, the declarative schema migration and the movement fixtures.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	_ "embed"
)

//go:embed schema.sql
var schemaDefinition string

//go:embed fixtures.sql
var fixtures string

// Database holds one writer connection and a pool of readers against the same file.
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger
}

const maxReadConns = 10

// NewDatabase connects to the database at url, migrates it to schema.sql and applies the movement fixtures.
//
// SQLite allows a single writer, so writes go through a pool of one connection while reads use their own pool.
// The url is a file path or ":memory:" for an ephemeral database that is private to the returned Database.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(url, logger)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err = db.migrateTo(ctx, schemaDefinition); err != nil {
		return nil, errors.Join(fmt.Errorf("migrate: %w", err), db.Close())
	}

	start := time.Now()
	if _, err = db.ReadWrite.ExecContext(ctx, fixtures); err != nil {
		return nil, errors.Join(fmt.Errorf("apply fixtures: %w", err), db.Close())
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "applied fixtures", slog.Duration("duration", time.Since(start)))

	go db.startDatabaseOptimizer(ctx)

	return db, nil
}

//nolint:gochecknoglobals // the driver may only be registered once per process.
var registerDriverOnce sync.Once

const optimizedDriver = "sqlite3_repcoach"

func registerOptimizedDriver() {
	sql.Register(optimizedDriver, &sqlite3.SQLiteDriver{
		Extensions: nil,
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// Temporary tables in memory and memory-mapped pages cut down on syscalls.
			if _, err := conn.Exec("PRAGMA temp_store = memory; PRAGMA mmap_size = 268435456;", nil); err != nil {
				return fmt.Errorf("exec connection pragmas: %w", err)
			}
			return nil
		},
	})
}

// dsnOptions are documented at https://pkg.go.dev/github.com/mattn/go-sqlite3#SQLiteDriver.Open.
func dsnOptions() string {
	return strings.Join([]string{
		"_loc=auto",
		"_defer_foreign_keys=1",
		"_journal_mode=wal",
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
	}, "&")
}

func connect(url string, logger *slog.Logger) (*Database, error) {
	// Both pools must see the same in-memory database, which requires a named shared-cache database. A random name
	// keeps parallel tests isolated.
	memoryOptions := ""
	if strings.Contains(url, ":memory:") {
		url = rand.Text()
		memoryOptions = "&mode=memory&cache=shared"
	}

	registerDriverOnce.Do(registerOptimizedDriver)

	readWriteDSN := fmt.Sprintf("file:%s?mode=rwc&_txlock=immediate&%s%s", url, dsnOptions(), memoryOptions)
	readWriteDB, err := sql.Open(optimizedDriver, readWriteDSN)
	if err != nil {
		return nil, fmt.Errorf("open read-write database: %w", err)
	}
	readWriteDB.SetMaxOpenConns(1)
	readWriteDB.SetMaxIdleConns(1)
	readWriteDB.SetConnMaxLifetime(time.Hour)
	readWriteDB.SetConnMaxIdleTime(time.Hour)
	// sql.DB connects lazily. Pinging creates the database file before the read-only pool tries to open it.
	if err = readWriteDB.Ping(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping read-write database: %w", err), readWriteDB.Close())
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, "opened database", slog.String("sqlDsn", readWriteDSN))

	// mode=memory overrides mode=ro for in-memory databases, _query_only keeps the pool read-only regardless.
	readOnlyDSN := fmt.Sprintf("file:%s?mode=ro&_txlock=deferred&_query_only=true&%s%s", url, dsnOptions(), memoryOptions)
	readOnlyDB, err := sql.Open(optimizedDriver, readOnlyDSN)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open read-only database: %w", err), readWriteDB.Close())
	}
	readOnlyDB.SetMaxOpenConns(maxReadConns)
	readOnlyDB.SetMaxIdleConns(maxReadConns)
	readOnlyDB.SetConnMaxLifetime(time.Hour)
	readOnlyDB.SetConnMaxIdleTime(time.Hour)

	return &Database{
		ReadWrite: readWriteDB,
		ReadOnly:  readOnlyDB,
		logger:    logger,
	}, nil
}

// Close closes both connection pools.
func (db *Database) Close() error {
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}

// InTx runs fn inside a write transaction and commits when fn returns nil.
func (db *Database) InTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback transaction: %w", rollbackErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
