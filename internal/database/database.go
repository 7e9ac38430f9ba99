package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"leekwars-tracker/internal/constants"
	"leekwars-tracker/internal/db"
	"leekwars-tracker/internal/domain"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

var (
	ErrLocked         = fmt.Errorf("store is locked by another writer: %w", domain.ErrIO)
	ErrOutdatedSchema = fmt.Errorf("store schema is outdated, open it for writing to upgrade: %w", domain.ErrIntegrity)
)

// Store is one leek's fight history database. A writable Store holds an
// exclusive lock on <path>.lock until Close.
type Store struct {
	DB       *sql.DB
	Queries  *db.Queries
	LeekID   int64
	Path     string
	ReadOnly bool

	// Upgraded is set when Open converted an older layout. The derived
	// opponent_stats rows must be rebuilt before they are read.
	Upgraded bool

	lock   *flock.Flock
	logger zerolog.Logger
}

func StorePath(dir string, leekID int64) string {
	return filepath.Join(dir, fmt.Sprintf("fight_history_%d.db", leekID))
}

// Open opens (creating if needed) the store at path for writing and brings
// its schema up to date.
func Open(ctx context.Context, path string, leekID int64, logger zerolog.Logger) (*Store, error) {
	if leekID <= 0 {
		return nil, fmt.Errorf("invalid leek id %d: %w", leekID, domain.ErrValidation)
	}
	logger = logger.With().Int64("leek_id", leekID).Str("path", path).Logger()
	logger.Info().Msg("opening store")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w: %w", domain.ErrIO, err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock store: %w: %w", domain.ErrIO, err)
	}
	if !locked {
		logger.Warn().Msg("store is locked by another process")
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	sqlDB, err := sql.Open("sqlite3", dsn(path, false))
	if err != nil {
		_ = lock.Unlock()
		logger.Error().Err(err).Msg("failed to open store")
		return nil, fmt.Errorf("failed to open store: %w: %w", domain.ErrIO, err)
	}
	configurePool(sqlDB)

	s := &Store{
		DB:      sqlDB,
		Queries: db.New(sqlDB),
		LeekID:  leekID,
		Path:    path,
		lock:    lock,
		logger:  logger,
	}
	if err := s.prepare(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to prepare store")
		_ = s.Close()
		return nil, fmt.Errorf("failed to prepare store %s: %w: %w", path, domain.ErrIO, err)
	}

	logger.Info().Bool("upgraded", s.Upgraded).Msg("store ready")
	return s, nil
}

// OpenReadOnly opens an existing store without taking the writer lock and
// without touching its schema. A missing file is ErrNotFound.
func OpenReadOnly(ctx context.Context, path string, leekID int64, logger zerolog.Logger) (*Store, error) {
	logger = logger.With().Int64("leek_id", leekID).Str("path", path).Logger()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no store for leek %d at %s: %w", leekID, path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat store: %w: %w", domain.ErrIO, err)
	}

	sqlDB, err := sql.Open("sqlite3", dsn(path, true))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w: %w", domain.ErrIO, err)
	}
	configurePool(sqlDB)

	s := &Store{
		DB:       sqlDB,
		Queries:  db.New(sqlDB),
		LeekID:   leekID,
		Path:     path,
		ReadOnly: true,
		logger:   logger,
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to open store: %w: %w", domain.ErrIO, err)
	}
	if err := applyPragmas(ctx, sqlDB, readOnlyPragmas, logger); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to configure store: %w: %w", domain.ErrIO, err)
	}

	current, err := schemaIsCurrent(ctx, sqlDB)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to inspect store: %w: %w", domain.ErrIO, err)
	}
	if !current {
		_ = s.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrOutdatedSchema)
	}

	logger.Debug().Msg("store opened read-only")
	return s, nil
}

func (s *Store) Close() error {
	var errs []error
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("failed to release store lock: %w", err))
		}
	}
	s.logger.Debug().Msg("store closed")
	return errors.Join(errs...)
}

func (s *Store) prepare(ctx context.Context) error {
	if err := s.DB.PingContext(ctx); err != nil {
		return err
	}
	if err := applyPragmas(ctx, s.DB, writerPragmas, s.logger); err != nil {
		return fmt.Errorf("failed to optimize SQLite: %w", err)
	}
	if err := setAsideLegacyTables(ctx, s.DB, s.logger); err != nil {
		return err
	}
	// migrations index columns an existing table may lack
	added, err := addMissingColumns(ctx, s.DB, s.logger)
	if err != nil {
		return err
	}
	if err := runMigrations(ctx, s.DB, s.logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	imported, err := importLegacyTables(ctx, s.DB, s.LeekID, s.logger)
	if err != nil {
		return err
	}
	s.Upgraded = imported || added
	return nil
}

func dsn(path string, readOnly bool) string {
	params := url.Values{}
	params.Set("_busy_timeout", strconv.FormatInt(constants.DBBusyTimeout.Milliseconds(), 10))
	params.Set("_foreign_keys", "on")
	if readOnly {
		params.Set("mode", "ro")
	} else {
		params.Set("_locking_mode", "EXCLUSIVE")
		params.Set("_txlock", "immediate")
	}
	return "file:" + escapePath(path) + "?" + params.Encode()
}

// escapePath percent-encodes each segment so '?', '#' and '%' in a path
// survive the sqlite URI parser.
func escapePath(path string) string {
	segments := strings.Split(filepath.ToSlash(path), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func configurePool(sqlDB *sql.DB) {
	sqlDB.SetMaxOpenConns(constants.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(constants.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(constants.DBConnMaxLifetime)
}

func runMigrations(ctx context.Context, sqlDB *sql.DB, logger zerolog.Logger) error {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	// a provider instead of the package-level goose state, stores are
	// migrated concurrently by migrate --all
	provider, err := goose.NewProvider(goose.DialectSQLite3, sqlDB, migrations)
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}
	for _, r := range results {
		logger.Debug().
			Int64("version", r.Source.Version).
			Str("file", filepath.Base(r.Source.Path)).
			Dur("duration", r.Duration).
			Msg("migration applied")
	}

	logger.Info().Int("applied", len(results)).Msg("migrations completed successfully")
	return nil
}

type pragma struct {
	name  string
	value string
}

var writerPragmas = []pragma{
	{"journal_mode", "DELETE"},
	{"synchronous", "FULL"},
	{"cache_size", "-16000"},
	{"foreign_keys", "ON"},
	{"temp_store", "MEMORY"},
}

var readOnlyPragmas = []pragma{
	{"cache_size", "-16000"},
	{"temp_store", "MEMORY"},
	{"query_only", "ON"},
}

func applyPragmas(ctx context.Context, sqlDB *sql.DB, pragmas []pragma, logger zerolog.Logger) error {
	for _, p := range pragmas {
		query := fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)
		if _, err := sqlDB.ExecContext(ctx, query); err != nil {
			logger.Warn().
				Err(err).
				Str("pragma", p.name).
				Str("value", p.value).
				Msg("failed to set pragma")
			return fmt.Errorf("failed to set PRAGMA %s: %w", p.name, err)
		}
		logger.Debug().
			Str("pragma", p.name).
			Str("value", p.value).
			Msg("SQLite pragma set")
	}
	return nil
}
