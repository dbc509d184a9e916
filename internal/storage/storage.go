package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const (
	driverName = "sqlite3"
	dbFileName = "leadboard.db"
)

// Observer is notified after every write attempt against the store.
type Observer interface {
	ObserveWrite(op string, err error)
}

// Store wraps the SQLite database and exposes higher-level helpers.
type Store struct {
	db       *sql.DB
	path     string
	hub      *hub
	observer Observer
	log      zerolog.Logger
}

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidStage indicates a stage outside the fixed funnel.
	ErrInvalidStage = errors.New("invalid stage")
	// ErrUnknownField indicates a patch key the store does not recognise.
	ErrUnknownField = errors.New("unknown field")
)

// Open bootstraps the SQLite store inside dir, or the default data
// directory when dir is empty.
func Open(ctx context.Context, dir string) (*Store, error) {
	path, err := resolveDBPath(dir)
	if err != nil {
		return nil, err
	}
	return OpenPath(ctx, path)
}

// OpenPath bootstraps the SQLite store at an explicit file path.
func OpenPath(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps PRAGMAs and writes serialised
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	store := &Store{db: db, path: path, hub: newHub(), log: zerolog.Nop()}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// SetObserver installs a write observer. Passing nil removes it.
func (s *Store) SetObserver(o Observer) {
	s.observer = o
}

// SetLogger replaces the store's logger.
func (s *Store) SetLogger(logger zerolog.Logger) {
	s.log = logger
}

// Path reports the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close releases DB resources and ends every open subscription.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.hub.closeAll()
	return s.db.Close()
}

// DefaultDataDir returns the per-user directory holding the database,
// session and log files.
func DefaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		base = os.Getenv("HOME")
		if base == "" {
			return "", fmt.Errorf("cannot resolve data dir: %w", err)
		}
	}
	return filepath.Join(base, "leadboard"), nil
}

func resolveDBPath(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		def, err := DefaultDataDir()
		if err != nil {
			return "", err
		}
		dir = def
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create db dir: %w", err)
	}
	return filepath.Join(dir, dbFileName), nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            email TEXT NOT NULL UNIQUE COLLATE NOCASE,
            password_hash TEXT NOT NULL,
            display_name TEXT,
            created_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS accounts (
            id TEXT PRIMARY KEY,
            owner_id TEXT NOT NULL,
            company_name TEXT NOT NULL,
            services_needed TEXT,
            industry TEXT,
            website TEXT,
            company_size TEXT,
            lead_source TEXT,
            contact_name TEXT,
            contact_title TEXT,
            contact_email TEXT,
            contact_phone TEXT,
            stage TEXT NOT NULL,
            value TEXT NOT NULL DEFAULT '0',
            monthly_value TEXT NOT NULL DEFAULT '0',
            deal_score INTEGER NOT NULL DEFAULT 50,
            expected_close_date TEXT,
            next_follow_up_date TEXT,
            notes TEXT NOT NULL DEFAULT '[]',
            lost_reason TEXT,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL,
            FOREIGN KEY(owner_id) REFERENCES users(id) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS accounts_owner_idx ON accounts(owner_id);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migrations: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

func (s *Store) observe(op string, err error) {
	if s.observer != nil {
		s.observer.ObserveWrite(op, err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullStringToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func nullString(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
