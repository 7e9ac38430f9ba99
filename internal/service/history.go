package service

import (
	"context"
	"errors"
	"fmt"
	"leekwars-tracker/internal/config"
	"leekwars-tracker/internal/database"
	"leekwars-tracker/internal/domain"
	"leekwars-tracker/internal/repository"
	"leekwars-tracker/internal/stats"

	"github.com/rs/zerolog"
)

// Session is one open store together with the repositories bound to it.
type Session struct {
	Store *database.Store
	*repository.Repositories
}

func (s *Session) LeekID() int64 {
	return s.Store.LeekID
}

func (s *Session) Close() error {
	return s.Store.Close()
}

type HistoryService struct {
	dataDir string
	logger  zerolog.Logger
}

func NewHistoryService(cfg *config.Config, logger zerolog.Logger) *HistoryService {
	return &HistoryService{dataDir: cfg.DataDir, logger: logger}
}

func (s *HistoryService) StorePath(leekID int64) string {
	return database.StorePath(s.dataDir, leekID)
}

// Open opens the leek's store for writing. A store converted from an older
// layout has its opponent_stats rebuilt before it is handed out.
func (s *HistoryService) Open(ctx context.Context, leekID int64) (*Session, error) {
	return s.open(ctx, s.StorePath(leekID), leekID)
}

func (s *HistoryService) open(ctx context.Context, path string, leekID int64) (*Session, error) {
	store, err := database.Open(ctx, path, leekID, s.logger)
	if err != nil {
		return nil, err
	}
	sess := &Session{Store: store, Repositories: repository.ForStore(store, s.logger)}

	if store.Upgraded {
		s.logger.Info().Int64("leek_id", leekID).Msg("store upgraded, rebuilding opponent stats")
		if _, err := sess.Opponents.Rebuild(ctx, leekID); err != nil {
			sess.Close()
			return nil, fmt.Errorf("failed to rebuild upgraded store: %w", err)
		}
	}
	return sess, nil
}

// OpenForRead opens the leek's store without taking the writer lock. A store
// in an older layout is upgraded through a writable open first.
func (s *HistoryService) OpenForRead(ctx context.Context, leekID int64) (*Session, error) {
	path := s.StorePath(leekID)
	store, err := database.OpenReadOnly(ctx, path, leekID, s.logger)
	if errors.Is(err, database.ErrOutdatedSchema) {
		s.logger.Info().Int64("leek_id", leekID).Msg("store layout is outdated, upgrading")
		return s.open(ctx, path, leekID)
	}
	if err != nil {
		return nil, err
	}
	return &Session{Store: store, Repositories: repository.ForStore(store, s.logger)}, nil
}

func (s *HistoryService) RecordFight(ctx context.Context, sess *Session, f *domain.FightRecord) (domain.RecordOutcome, error) {
	if f.LeekID == 0 {
		f.LeekID = sess.LeekID()
	}
	if f.LeekID != sess.LeekID() {
		return 0, fmt.Errorf("fight %d belongs to leek %d, store is for leek %d: %w",
			f.FightID, f.LeekID, sess.LeekID(), domain.ErrValidation)
	}
	return sess.Fights.Record(ctx, f)
}

func (s *HistoryService) Rebuild(ctx context.Context, sess *Session) (int, error) {
	return sess.Opponents.Rebuild(ctx, sess.LeekID())
}

// OpponentDifficulty scores an opponent from 0 to 100. Opponents never
// fought score the neutral value.
func (s *HistoryService) OpponentDifficulty(ctx context.Context, sess *Session, opponentID int64) (int, error) {
	o, err := sess.Opponents.Get(ctx, sess.LeekID(), opponentID)
	if errors.Is(err, domain.ErrNotFound) {
		return stats.Difficulty(0, 0), nil
	}
	if err != nil {
		return 0, err
	}
	return stats.Difficulty(o.WinRate, o.TotalFights), nil
}

// Verify lists every broken store invariant. An empty result means the
// store is consistent.
func (s *HistoryService) Verify(ctx context.Context, sess *Session) ([]domain.Violation, error) {
	violations, err := sess.Opponents.Verify(ctx, sess.LeekID())
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		s.logger.Warn().
			Int64("leek_id", sess.LeekID()).
			Int("violations", len(violations)).
			Msg("store invariants violated")
	}
	return violations, nil
}
