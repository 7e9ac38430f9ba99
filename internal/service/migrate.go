package service

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"leekwars-tracker/internal/config"
	"leekwars-tracker/internal/constants"
	"leekwars-tracker/internal/domain"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	legacyPrefix = "opponent_tracker_"
	legacySuffix = ".json"
	backupSuffix = ".backup"
)

func LegacyPath(dir string, leekID int64) string {
	return filepath.Join(dir, fmt.Sprintf("%s%d%s", legacyPrefix, leekID, legacySuffix))
}

type MigrationResult struct {
	LeekID     int64  `json:"leek_id"`
	SourcePath string `json:"source_path"`
	BackupPath string `json:"backup_path,omitempty"`
	Opponents  int    `json:"opponents"`
	StatsRows  int    `json:"stats_rows"`
	// Warning is set when the data was committed but the source file could
	// not be renamed.
	Warning string `json:"warning,omitempty"`
}

type legacyEntry struct {
	Name        string  `json:"name"`
	Level       *int64  `json:"level"`
	Wins        int64   `json:"wins"`
	Losses      int64   `json:"losses"`
	Draws       int64   `json:"draws"`
	FirstFought *string `json:"first_fought"`
	LastFought  *string `json:"last_fought"`
}

type MigrationService struct {
	history *HistoryService
	dataDir string
	logger  zerolog.Logger
}

func NewMigrationService(cfg *config.Config, history *HistoryService, logger zerolog.Logger) *MigrationService {
	return &MigrationService{history: history, dataDir: cfg.DataDir, logger: logger}
}

// ParseLegacy reads an opponent tracker file. Both the current layout (an
// object with an "opponents" map) and the older bare map are accepted.
// Status and win rate fields are ignored.
func ParseLegacy(data []byte, leekID int64) ([]domain.LegacyBaseline, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid tracker file: %w: %w", domain.ErrValidation, err)
	}
	entries := root
	if raw, ok := root["opponents"]; ok && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		entries = nil
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("invalid opponents map: %w: %w", domain.ErrValidation, err)
		}
	}

	baselines := make([]domain.LegacyBaseline, 0, len(entries))
	for key, raw := range entries {
		b, err := parseLegacyEntry(key, raw)
		if err != nil {
			return nil, err
		}
		b.LeekID = leekID
		baselines = append(baselines, b)
	}
	slices.SortFunc(baselines, func(a, b domain.LegacyBaseline) int {
		return cmp.Compare(a.OpponentID, b.OpponentID)
	})
	return baselines, nil
}

func parseLegacyEntry(key string, raw json.RawMessage) (domain.LegacyBaseline, error) {
	var b domain.LegacyBaseline

	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil || id <= 0 {
		return b, fmt.Errorf("opponent key %q is not an id: %w", key, domain.ErrValidation)
	}
	var e legacyEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return b, fmt.Errorf("opponent %d: %w: %w", id, domain.ErrValidation, err)
	}
	if e.Wins < 0 || e.Losses < 0 || e.Draws < 0 {
		return b, fmt.Errorf("opponent %d: negative counters: %w", id, domain.ErrValidation)
	}

	b.OpponentID = id
	b.OpponentName = e.Name
	if b.OpponentName == "" {
		b.OpponentName = fmt.Sprintf("Opponent_%d", id)
	}
	if e.Level != nil && *e.Level > 0 {
		b.OpponentLevel = e.Level
	}
	b.Wins, b.Losses, b.Draws = e.Wins, e.Losses, e.Draws

	if b.FirstFought, err = parseOptionalTime(e.FirstFought); err != nil {
		return b, fmt.Errorf("opponent %d first_fought: %w", id, err)
	}
	if b.LastFought, err = parseOptionalTime(e.LastFought); err != nil {
		return b, fmt.Errorf("opponent %d last_fought: %w", id, err)
	}
	if b.FirstFought != nil && b.LastFought != nil && b.FirstFought.After(*b.LastFought) {
		return b, fmt.Errorf("opponent %d: first_fought is after last_fought: %w", id, domain.ErrValidation)
	}
	return b, nil
}

func parseOptionalTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := domain.ParseTimestamp(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Migrate imports the tracker file at path into the open store and renames
// the file to <path>.backup. Re-running with the same content changes
// nothing.
func (s *MigrationService) Migrate(ctx context.Context, sess *Session, path string) (*MigrationResult, error) {
	logger := s.logger.With().Int64("leek_id", sess.LeekID()).Str("source", path).Logger()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("tracker file %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tracker file %s: %w: %w", path, domain.ErrIO, err)
	}

	baselines, err := ParseLegacy(data, sess.LeekID())
	if err != nil {
		return nil, fmt.Errorf("tracker file %s: %w", path, err)
	}
	migratedAt := time.Now().UTC()
	for i := range baselines {
		baselines[i].SourcePath = path
		baselines[i].MigratedAt = migratedAt
	}

	rows, err := sess.Opponents.ReplaceBaselines(ctx, sess.LeekID(), baselines)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
	}

	result := &MigrationResult{
		LeekID:     sess.LeekID(),
		SourcePath: path,
		Opponents:  len(baselines),
		StatsRows:  rows,
	}
	backup := strings.TrimSuffix(path, backupSuffix) + backupSuffix
	if backup == path {
		logger.Info().Msg("source is already a backup, leaving it in place")
	} else if err := os.Rename(path, backup); err != nil {
		result.Warning = fmt.Sprintf("migration committed but %s could not be renamed: %v", path, err)
		logger.Warn().Err(err).Msg("failed to back up tracker file")
	} else {
		result.BackupPath = backup
	}

	logger.Info().
		Int("opponents", result.Opponents).
		Int("stats_rows", result.StatsRows).
		Str("backup", result.BackupPath).
		Msg("tracker file migrated")
	return result, nil
}

// MigrateLeek opens the leek's store, migrates path into it and closes it.
// An empty path means the tracker file of the leek in the data directory.
func (s *MigrationService) MigrateLeek(ctx context.Context, leekID int64, path string) (*MigrationResult, error) {
	if path == "" {
		path = LegacyPath(s.dataDir, leekID)
	}
	sess, err := s.history.Open(ctx, leekID)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	return s.Migrate(ctx, sess, path)
}

// MigrateAll migrates every opponent_tracker_<leek_id>.json in dir, each
// into its own store. A failing file does not stop the others; their
// errors are joined.
func (s *MigrationService) MigrateAll(ctx context.Context, dir string) ([]*MigrationResult, error) {
	paths, err := filepath.Glob(filepath.Join(dir, legacyPrefix+"*"+legacySuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to list tracker files: %w: %w", domain.ErrIO, err)
	}
	slices.Sort(paths)
	s.logger.Info().Str("dir", dir).Int("files", len(paths)).Msg("migrating tracker files")

	results := make([]*MigrationResult, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.MigrateConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), legacyPrefix), legacySuffix)
			leekID, err := strconv.ParseInt(name, 10, 64)
			if err != nil || leekID <= 0 {
				errs[i] = fmt.Errorf("tracker file %s has no leek id: %w", path, domain.ErrValidation)
				return nil
			}
			results[i], errs[i] = s.MigrateLeek(gctx, leekID, path)
			if errs[i] != nil {
				s.logger.Error().Err(errs[i]).Str("source", path).Msg("migration failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	return slices.DeleteFunc(results, func(r *MigrationResult) bool { return r == nil }), errors.Join(errs...)
}
