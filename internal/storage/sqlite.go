package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding prediction records of one variant.
// Rows are read and written through GORM; every call opens its own session
// bound to the caller's context.
type Store struct {
	db      *sql.DB
	orm     *gorm.DB
	variant string
}

// Option configures Open.
type Option func(*options)

type options struct {
	logger gormlogger.Interface
}

// WithLogger sets the GORM logger. The default discards all output.
func WithLogger(l gormlogger.Interface) Option {
	return func(o *options) { o.logger = l }
}

// Open opens (or creates) the SQLite database at path and applies the
// variant's pending migrations before returning. Pass ":memory:" for an
// in-memory database (used by tests).
func Open(dbPath, variant string, opts ...Option) (*Store, error) {
	o := options{logger: gormlogger.Discard}
	for _, opt := range opts {
		opt(&o)
	}

	if variant != VariantSentiment && variant != VariantEmotions {
		return nil, fmt.Errorf("unknown variant %q", variant)
	}

	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db, variant: variant}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	orm, err := gorm.Open(&sqlite.Dialector{Conn: db}, &gorm.Config{Logger: o.logger})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening orm session: %w", err)
	}
	s.orm = orm

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Variant reports which record type this store holds.
func (s *Store) Variant() string {
	return s.variant
}

// migrate applies the embedded SQL files for the store's variant that have
// not been recorded in schema_version yet. A database already initialised
// for the other variant is rejected.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		variant TEXT NOT NULL,
		version INTEGER NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (variant, version)
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var foreign int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE variant <> ?", s.variant).Scan(&foreign); err != nil {
		return fmt.Errorf("checking store variant: %w", err)
	}
	if foreign > 0 {
		return fmt.Errorf("%w: database was initialised for another variant than %q", ErrVariantMismatch, s.variant)
	}

	dir := path.Join("migrations", s.variant)
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE variant = ? AND version = ?", s.variant, version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile(path.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (variant, version) VALUES (?, ?)", s.variant, version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the applied migration versions of the store's
// variant in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version WHERE variant = ? ORDER BY version ASC", s.variant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Sentiment (single label) ---

// CreateSentiment inserts rec in its own transaction and sets rec.ID.
func (s *Store) CreateSentiment(ctx context.Context, rec *SentimentRecord) error {
	if err := s.require(VariantSentiment); err != nil {
		return err
	}
	return insert(ctx, s.orm, rec)
}

// GetSentiment returns the record with the given id or ErrNotFound.
func (s *Store) GetSentiment(ctx context.Context, id int64) (SentimentRecord, error) {
	if err := s.require(VariantSentiment); err != nil {
		return SentimentRecord{}, err
	}
	return first[SentimentRecord](ctx, s.orm, id)
}

// --- Emotions (multi label) ---

// CreateEmotion inserts rec in its own transaction and sets rec.ID.
func (s *Store) CreateEmotion(ctx context.Context, rec *EmotionRecord) error {
	if err := s.require(VariantEmotions); err != nil {
		return err
	}
	return insert(ctx, s.orm, rec)
}

// GetEmotion returns the record with the given id or ErrNotFound.
func (s *Store) GetEmotion(ctx context.Context, id int64) (EmotionRecord, error) {
	if err := s.require(VariantEmotions); err != nil {
		return EmotionRecord{}, err
	}
	return first[EmotionRecord](ctx, s.orm, id)
}

func (s *Store) require(variant string) error {
	if s.variant != variant {
		return fmt.Errorf("%w: store holds %q records, not %q", ErrVariantMismatch, s.variant, variant)
	}
	return nil
}

func insert[T any](ctx context.Context, db *gorm.DB, rec *T) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
}

func first[T any](ctx context.Context, db *gorm.DB, id int64) (T, error) {
	var rec T
	err := db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, ErrNotFound
	}
	return rec, err
}
