package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"leekwars-tracker/internal/api"
	"leekwars-tracker/internal/arena"
	"leekwars-tracker/internal/config"
	"leekwars-tracker/internal/constants"
	"leekwars-tracker/internal/domain"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrFightUnfinished = fmt.Errorf("fight is not finished: %w", domain.ErrIO)

// FightDownloader is the part of the arena client the fetcher uses.
type FightDownloader interface {
	GetFight(ctx context.Context, fightID int64) (json.RawMessage, error)
	GetFightLogs(ctx context.Context, fightID int64) (json.RawMessage, error)
}

var _ FightDownloader = (*api.ArenaClient)(nil)

type FetchResult struct {
	FightID  int64                `json:"fight_id"`
	DataPath string               `json:"data_path"`
	LogsPath string               `json:"logs_path,omitempty"`
	Outcome  domain.RecordOutcome `json:"-"`
}

type FetchService struct {
	client      FightDownloader
	ingest      *IngestService
	logsDir     string
	maxAttempts int
	retryDelay  time.Duration
	logger      zerolog.Logger
}

func NewFetchService(cfg *config.Config, client *api.ArenaClient, ingest *IngestService, logger zerolog.Logger) *FetchService {
	return NewFetchServiceWith(client, ingest, cfg.FightLogsDir, constants.FetchRetryDelay, logger)
}

func NewFetchServiceWith(client FightDownloader, ingest *IngestService, logsDir string, retryDelay time.Duration, logger zerolog.Logger) *FetchService {
	return &FetchService{
		client:      client,
		ingest:      ingest,
		logsDir:     logsDir,
		maxAttempts: constants.FetchMaxAttempts,
		retryDelay:  retryDelay,
		logger:      logger,
	}
}

// LeekDir is where payloads of a leek are saved.
func (s *FetchService) LeekDir(leekID int64) string {
	return filepath.Join(s.logsDir, strconv.FormatInt(leekID, 10))
}

// Fetch downloads a fight and its logs into the leek's payload directory and
// records it in sess. Downloads are retried while the arena still reports
// the fight as running.
func (s *FetchService) Fetch(ctx context.Context, sess *Session, fightID int64) (*FetchResult, error) {
	logger := s.logger.With().Int64("leek_id", sess.LeekID()).Int64("fight_id", fightID).Logger()

	var data, logs json.RawMessage
	for attempt := 1; ; attempt++ {
		var err error
		data, logs, err = s.download(ctx, fightID)
		if err != nil {
			return nil, err
		}
		if finished(data) {
			break
		}
		if attempt >= s.maxAttempts {
			return nil, fmt.Errorf("fight %d after %d attempts: %w", fightID, attempt, ErrFightUnfinished)
		}
		logger.Debug().Int("attempt", attempt).Msg("fight still running, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}

	dir := s.LeekDir(sess.LeekID())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w: %w", dir, domain.ErrIO, err)
	}
	result := &FetchResult{
		FightID:  fightID,
		DataPath: filepath.Join(dir, arena.DataFileName(fightID)),
	}
	if err := writeFileAtomic(result.DataPath, data); err != nil {
		return nil, err
	}
	if logs != nil {
		result.LogsPath = filepath.Join(dir, arena.LogsFileName(fightID))
		if err := writeFileAtomic(result.LogsPath, logs); err != nil {
			return nil, err
		}
	}

	outcome, err := s.ingest.IngestPayload(ctx, sess, fightID, data, logs, time.Now())
	if err != nil {
		return result, err
	}
	result.Outcome = outcome

	logger.Info().
		Str("data", result.DataPath).
		Bool("logs", result.LogsPath != "").
		Bool("new", outcome == domain.RecordInserted).
		Msg("fight fetched")
	return result, nil
}

// FetchAll fetches each fight in turn. Failures are joined; the fights that
// succeeded are returned alongside.
func (s *FetchService) FetchAll(ctx context.Context, sess *Session, fightIDs []int64) ([]*FetchResult, error) {
	var results []*FetchResult
	var errs []error
	for _, id := range fightIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		r, err := s.Fetch(ctx, sess, id)
		if err != nil {
			s.logger.Error().Err(err).Int64("fight_id", id).Msg("fetch failed")
			errs = append(errs, err)
			continue
		}
		results = append(results, r)
	}
	return results, errors.Join(errs...)
}

// download gets the fight and its logs concurrently. Missing logs are not an
// error.
func (s *FetchService) download(ctx context.Context, fightID int64) (json.RawMessage, json.RawMessage, error) {
	var data, logs json.RawMessage

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = s.client.GetFight(gctx, fightID)
		return err
	})
	g.Go(func() error {
		var err error
		logs, err = s.client.GetFightLogs(gctx, fightID)
		if errors.Is(err, domain.ErrNotFound) {
			logs = nil
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return data, logs, nil
}

// finished reports whether the arena has settled the fight. A running fight
// has winner -1 and may not list its rosters yet.
func finished(data json.RawMessage) bool {
	f, err := arena.DecodeFight(data)
	if err != nil {
		return false
	}
	return f.Winner != nil && *f.Winner != arena.WinnerUnfinished
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w: %w", path, domain.ErrIO, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w: %w", path, domain.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w: %w", path, domain.ErrIO, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w: %w", path, domain.ErrIO, err)
	}
	return nil
}
