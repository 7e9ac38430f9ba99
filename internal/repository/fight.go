package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"leekwars-tracker/internal/db"
	"leekwars-tracker/internal/domain"
	"leekwars-tracker/internal/stats"
	"time"

	"github.com/rs/zerolog"
)

type FightRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewFightRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *FightRepository {
	return &FightRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// Record inserts one fight and folds it into the pair's aggregate in a
// single transaction. A fight_id already present for the same leek is
// skipped without any change.
func (r *FightRepository) Record(ctx context.Context, f *domain.FightRecord) (domain.RecordOutcome, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	f.Timestamp = f.Timestamp.UTC().Truncate(time.Second)

	outcome, err := r.record(ctx, f)
	if err != nil {
		if domain.KindOf(err) == domain.KindOther {
			err = fmt.Errorf("%w: %w", domain.ErrIO, err)
		}
		r.logger.Error().Err(err).Int64("fight_id", f.FightID).Msg("failed to record fight")
		return 0, fmt.Errorf("failed to record fight %d: %w", f.FightID, err)
	}
	return outcome, nil
}

func (r *FightRepository) record(ctx context.Context, f *domain.FightRecord) (domain.RecordOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	owner, err := qtx.GetFightOwner(ctx, f.FightID)
	switch {
	case err == nil && owner != f.LeekID:
		return 0, fmt.Errorf("fight already recorded for leek %d: %w", owner, domain.ErrIntegrity)
	case err == nil:
		r.logger.Debug().Int64("fight_id", f.FightID).Msg("fight already recorded, skipping")
		return domain.RecordSkipped, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("failed to look up fight: %w", err)
	}

	stamp := domain.FormatTimestamp(f.Timestamp)
	if err := qtx.EnsureLeek(ctx, db.EnsureLeekParams{LeekID: f.LeekID, LastUpdated: &stamp}); err != nil {
		return 0, fmt.Errorf("failed to ensure leek: %w", err)
	}

	if err := qtx.InsertFight(ctx, db.InsertFightParams{
		FightID:        f.FightID,
		LeekID:         f.LeekID,
		OpponentID:     f.OpponentID,
		OpponentName:   f.OpponentName,
		OpponentLevel:  f.OpponentLevel,
		Result:         f.Result.String(),
		Duration:       f.Duration,
		ActionsCount:   f.ActionsCount,
		OperationsUsed: f.OperationsUsed,
		FightUrl:       f.FightURL,
		Timestamp:      stamp,
	}); err != nil {
		return 0, fmt.Errorf("failed to insert fight: %w", err)
	}

	current, err := qtx.GetOpponentStats(ctx, db.GetOpponentStatsParams{
		LeekID:     f.LeekID,
		OpponentID: f.OpponentID,
	})
	var s domain.OpponentStats
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s = domain.OpponentStats{LeekID: f.LeekID, OpponentID: f.OpponentID}
	case err != nil:
		return 0, fmt.Errorf("failed to get opponent stats: %w", err)
	default:
		if s, err = toOpponentStats(current); err != nil {
			return 0, fmt.Errorf("%w: %w", domain.ErrIntegrity, err)
		}
	}

	// name and level follow the most recent fight, the higher fight_id on a tie
	latest, err := qtx.GetLatestOpponentFight(ctx, db.GetLatestOpponentFightParams{
		LeekID:     f.LeekID,
		OpponentID: f.OpponentID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get latest fight: %w", err)
	}
	latestAt, err := domain.ParseTimestamp(latest.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrIntegrity, err)
	}
	if s.LastFought == nil || !latestAt.Before(*s.LastFought) {
		s.OpponentName = latest.OpponentName
		s.OpponentLevel = latest.OpponentLevel
	}
	stats.Apply(&s, f.Result)
	s.FirstFought = earlier(s.FirstFought, &f.Timestamp)
	s.LastFought = later(s.LastFought, &f.Timestamp)

	if err := qtx.UpsertOpponentStats(ctx, upsertParams(&s)); err != nil {
		return 0, fmt.Errorf("failed to upsert opponent stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	r.logger.Debug().
		Int64("fight_id", f.FightID).
		Int64("opponent_id", f.OpponentID).
		Str("result", f.Result.String()).
		Str("status", string(s.Status)).
		Msg("fight recorded")
	return domain.RecordInserted, nil
}

// Recent returns up to limit fights, newest first.
func (r *FightRepository) Recent(ctx context.Context, leekID int64, limit int) ([]domain.FightRecord, error) {
	rows, err := r.queries.ListRecentFights(ctx, db.ListRecentFightsParams{
		LeekID: leekID,
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent fights: %w", err)
	}
	return toFightRecords(rows)
}

// All returns every fight of the leek ordered by fight_id.
func (r *FightRepository) All(ctx context.Context, leekID int64) ([]domain.FightRecord, error) {
	rows, err := r.queries.ListFightsByLeek(ctx, leekID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fights: %w", err)
	}
	return toFightRecords(rows)
}

// RecentResults returns the outcomes of the last limit fights against one
// opponent, newest first.
func (r *FightRepository) RecentResults(ctx context.Context, leekID, opponentID int64, limit int) ([]domain.Result, error) {
	rows, err := r.queries.ListRecentResultsForOpponent(ctx, db.ListRecentResultsForOpponentParams{
		LeekID:     leekID,
		OpponentID: opponentID,
		Limit:      int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent results: %w", err)
	}

	results := make([]domain.Result, 0, len(rows))
	for _, row := range rows {
		res, err := domain.ParseResult(row)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}
