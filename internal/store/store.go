// Package store owns the single in-memory relational database and the
// on-disk file that mirrors it.
//
// The database lives entirely in memory; after every mutating statement the
// whole image is serialized to disk, so a call that returns successfully is
// durable. Every write therefore costs O(database size) on the disk path,
// which is acceptable for a single-process, low-write-volume deployment.
// There is no write-ahead log and no partial write.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/carrelhq/carrel/internal/apperr"
)

// Result reports the outcome of a mutating statement.
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Store is the handle every component goes through to reach the database.
// It is the only owner of the backing file; no other component performs
// file I/O on it.
type Store struct {
	path string
	db   *sqlx.DB
	drv  *sqlite3.SQLiteDriver

	mu     sync.Mutex
	conn   *sqlite3.SQLiteConn
	closed bool
}

var memSeq uint64

// memConnector opens the shared in-memory database and captures the raw
// SQLite connection so the store can drive the online backup API.
type memConnector struct {
	store *Store
	dsn   string
}

func (c *memConnector) Connect(_ context.Context) (driver.Conn, error) {
	conn, err := c.store.drv.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	sc, ok := conn.(*sqlite3.SQLiteConn)
	if !ok {
		conn.Close()
		return nil, errors.New("store: unexpected driver connection type")
	}
	c.store.mu.Lock()
	c.store.conn = sc
	c.store.mu.Unlock()
	return conn, nil
}

func (c *memConnector) Driver() driver.Driver { return c.store.drv }

// Open loads the database file at path into memory, or creates an empty
// store with the initial schema on first run. Existing stores are migrated
// before Open returns. Open fails if the file exists but cannot be read as
// a valid database image.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	s := &Store{
		path: path,
		drv:  &sqlite3.SQLiteDriver{},
	}

	// Shared-cache named memory database: the image survives as long as at
	// least one connection stays open, and the pool below keeps exactly one.
	dsn := fmt.Sprintf("file:carrelmem%d?mode=memory&cache=shared", atomic.AddUint64(&memSeq, 1))
	sqlDB := sql.OpenDB(&memConnector{store: s, dsn: dsn})
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	s.db = sqlx.NewDb(sqlDB, "sqlite3")

	if _, err := os.Stat(path); err == nil {
		if err := s.loadSnapshot(); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("load database file %s: %w", path, err)
		}
		s.runMigrations()
	} else if os.IsNotExist(err) {
		if err := s.applyInitialSchema(); err != nil {
			s.db.Close()
			return nil, err
		}
		if err := s.snapshot(); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("write initial snapshot: %w", err)
		}
	} else {
		s.db.Close()
		return nil, fmt.Errorf("stat database file: %w", err)
	}

	log.Printf("store initialized at %s", path)
	return s, nil
}

// QueryOne executes a read returning at most one row into dest. It reports
// false without error when no row matched.
func (s *Store) QueryOne(dest any, query string, args ...any) (bool, error) {
	err := s.db.Get(dest, query, normalizeArgs(args)...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		log.Printf("store: query failed: %v (%s)", err, query)
		return false, &apperr.StoreError{Statement: query, Err: err}
	}
	return true, nil
}

// QueryMany executes a read returning an ordered sequence of rows into
// dest, which must be a pointer to a slice.
func (s *Store) QueryMany(dest any, query string, args ...any) error {
	if err := s.db.Select(dest, query, normalizeArgs(args)...); err != nil {
		log.Printf("store: query failed: %v (%s)", err, query)
		return &apperr.StoreError{Statement: query, Err: err}
	}
	return nil
}

// Execute runs a mutating statement and then snapshots the whole store to
// disk. It returns only after the snapshot is durable.
func (s *Store) Execute(query string, args ...any) (Result, error) {
	res, err := s.exec(query, args...)
	if err != nil {
		return Result{}, err
	}
	if err := s.snapshot(); err != nil {
		log.Printf("store: snapshot failed: %v", err)
		return Result{}, &apperr.StoreError{Statement: query, Err: err}
	}
	return res, nil
}

// exec runs a statement without snapshotting. The migration runner uses it
// to persist once at the end of a run instead of per statement.
func (s *Store) exec(query string, args ...any) (Result, error) {
	res, err := s.db.Exec(query, normalizeArgs(args)...)
	if err != nil {
		log.Printf("store: statement failed: %v (%s)", err, query)
		return Result{}, &apperr.StoreError{Statement: query, Err: err}
	}
	affected, _ := res.RowsAffected()
	lastID, _ := res.LastInsertId()
	return Result{RowsAffected: affected, LastInsertID: lastID}, nil
}

// Ping verifies that the in-memory database is reachable.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// Close snapshots the store one last time and releases the connection.
// Further calls are no-ops; the captured connection must never be touched
// after the pool has freed it.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.snapshot(); err != nil {
		log.Printf("store: final snapshot failed: %v", err)
	}

	s.mu.Lock()
	s.conn = nil
	s.mu.Unlock()
	return s.db.Close()
}

// snapshot serializes the full in-memory database to a temp file and
// renames it over the previous image.
func (s *Store) snapshot() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return errors.New("store: no live connection")
	}

	tmp := s.path + ".tmp"
	_ = os.Remove(tmp)

	raw, err := s.drv.Open(tmp)
	if err != nil {
		return fmt.Errorf("open snapshot file: %w", err)
	}
	dest := raw.(*sqlite3.SQLiteConn)

	if err := copyDatabase(dest, s.conn); err != nil {
		dest.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := dest.Close(); err != nil {
		return fmt.Errorf("close snapshot file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// loadSnapshot reads the on-disk image into the in-memory database.
func (s *Store) loadSnapshot() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.drv.Open(fmt.Sprintf("file:%s?mode=ro", s.path))
	if err != nil {
		return fmt.Errorf("open database file: %w", err)
	}
	src := raw.(*sqlite3.SQLiteConn)
	defer src.Close()

	return copyDatabase(s.conn, src)
}

// copyDatabase copies the main database from src into dest using the SQLite
// online backup API.
func copyDatabase(dest, src *sqlite3.SQLiteConn) error {
	bk, err := dest.Backup("main", src, "main")
	if err != nil {
		return fmt.Errorf("start backup: %w", err)
	}
	if _, err := bk.Step(-1); err != nil {
		_ = bk.Finish()
		return fmt.Errorf("copy database: %w", err)
	}
	return bk.Finish()
}

// normalizeArgs maps untyped and typed nil pointers to SQL NULL so that
// optional fields bind cleanly.
func normalizeArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if a == nil {
			continue
		}
		v := reflect.ValueOf(a)
		if v.Kind() == reflect.Ptr && v.IsNil() {
			continue
		}
		out[i] = a
	}
	return out
}
