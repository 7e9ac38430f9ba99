package repository

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"leekwars-tracker/internal/db"
	"leekwars-tracker/internal/domain"
	"leekwars-tracker/internal/stats"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type OpponentStatsRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewOpponentStatsRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *OpponentStatsRepository {
	return &OpponentStatsRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *OpponentStatsRepository) Get(ctx context.Context, leekID, opponentID int64) (*domain.OpponentStats, error) {
	row, err := r.queries.GetOpponentStats(ctx, db.GetOpponentStatsParams{
		LeekID:     leekID,
		OpponentID: opponentID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("opponent %d: %w", opponentID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get opponent stats: %w", err)
	}
	s, err := toOpponentStats(row)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns every tracked opponent, best win rate first.
func (r *OpponentStatsRepository) List(ctx context.Context, leekID int64) ([]domain.OpponentStats, error) {
	rows, err := r.queries.ListOpponentStats(ctx, leekID)
	if err != nil {
		return nil, fmt.Errorf("failed to list opponent stats: %w", err)
	}
	return toOpponentStatsList(rows)
}

func (r *OpponentStatsRepository) ListByStatus(ctx context.Context, leekID int64, status domain.Status) ([]domain.OpponentStats, error) {
	rows, err := r.queries.ListOpponentStatsByStatus(ctx, db.ListOpponentStatsByStatusParams{
		LeekID: leekID,
		Status: string(status),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list opponents with status %s: %w", status, err)
	}
	return toOpponentStatsList(rows)
}

func (r *OpponentStatsRepository) Top(ctx context.Context, leekID int64, limit int) ([]domain.OpponentStats, error) {
	rows, err := r.queries.ListTopOpponents(ctx, db.ListTopOpponentsParams{
		LeekID: leekID,
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list top opponents: %w", err)
	}
	return toOpponentStatsList(rows)
}

func (r *OpponentStatsRepository) Best(ctx context.Context, leekID, minFights int64, minWinRate float64) ([]domain.OpponentStats, error) {
	rows, err := r.queries.ListBestMatchups(ctx, db.ListBestMatchupsParams{
		LeekID:     leekID,
		MinFights:  minFights,
		MinWinRate: minWinRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list best matchups: %w", err)
	}
	return toOpponentStatsList(rows)
}

func (r *OpponentStatsRepository) Worst(ctx context.Context, leekID, minFights int64, maxWinRate float64) ([]domain.OpponentStats, error) {
	rows, err := r.queries.ListWorstMatchups(ctx, db.ListWorstMatchupsParams{
		LeekID:     leekID,
		MinFights:  minFights,
		MaxWinRate: maxWinRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list worst matchups: %w", err)
	}
	return toOpponentStatsList(rows)
}

// Global sums the per-opponent aggregates of a leek.
func (r *OpponentStatsRepository) Global(ctx context.Context, leekID int64) (*domain.GlobalStats, error) {
	row, err := r.queries.GetGlobalStats(ctx, leekID)
	if err != nil {
		return nil, fmt.Errorf("failed to get global stats: %w", err)
	}
	total := row.Wins + row.Losses + row.Draws
	return &domain.GlobalStats{
		LeekID:           leekID,
		TotalFights:      total,
		Wins:             row.Wins,
		Losses:           row.Losses,
		Draws:            row.Draws,
		WinRate:          stats.WinRate(row.Wins, total),
		OpponentsTracked: row.OpponentsTracked,
		Beatable:         row.Beatable,
		Dangerous:        row.Dangerous,
	}, nil
}

func (r *OpponentStatsRepository) Baselines(ctx context.Context, leekID int64) ([]domain.LegacyBaseline, error) {
	rows, err := r.queries.ListLegacyBaselines(ctx, leekID)
	if err != nil {
		return nil, fmt.Errorf("failed to list legacy baselines: %w", err)
	}
	baselines := make([]domain.LegacyBaseline, 0, len(rows))
	for _, row := range rows {
		b, err := toLegacyBaseline(row)
		if err != nil {
			return nil, err
		}
		baselines = append(baselines, b)
	}
	return baselines, nil
}

// Rebuild recomputes every opponent_stats row of the leek from the legacy
// baseline and fight_history. It returns the number of rows written.
func (r *OpponentStatsRepository) Rebuild(ctx context.Context, leekID int64) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w: %w", domain.ErrIO, err)
	}
	defer tx.Rollback()

	n, err := rebuild(ctx, r.queries.WithTx(tx), leekID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rebuild: %w: %w", domain.ErrIO, err)
	}

	r.logger.Info().Int64("leek_id", leekID).Int("opponents", n).Msg("opponent stats rebuilt")
	return n, nil
}

// ReplaceBaselines stores migrated aggregates and rebuilds the leek's
// opponent_stats in the same transaction. Re-importing the same baselines
// leaves the store unchanged.
func (r *OpponentStatsRepository) ReplaceBaselines(ctx context.Context, leekID int64, baselines []domain.LegacyBaseline) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w: %w", domain.ErrIO, err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	now := domain.FormatTimestamp(time.Now())
	if err := qtx.EnsureLeek(ctx, db.EnsureLeekParams{LeekID: leekID, LastUpdated: &now}); err != nil {
		return 0, fmt.Errorf("failed to ensure leek: %w: %w", domain.ErrIO, err)
	}

	rows, err := qtx.ListLegacyBaselines(ctx, leekID)
	if err != nil {
		return 0, fmt.Errorf("failed to list legacy baselines: %w: %w", domain.ErrIO, err)
	}
	existing := make(map[int64]db.LegacyOpponentStat, len(rows))
	for _, row := range rows {
		existing[row.OpponentID] = row
	}

	for _, b := range baselines {
		migratedAt := b.MigratedAt
		if migratedAt.IsZero() {
			migratedAt = time.Now()
		}
		params := db.UpsertLegacyBaselineParams{
			LeekID:        leekID,
			OpponentID:    b.OpponentID,
			OpponentName:  b.OpponentName,
			OpponentLevel: b.OpponentLevel,
			Wins:          b.Wins,
			Losses:        b.Losses,
			Draws:         b.Draws,
			FirstFought:   formatTimePtr(b.FirstFought),
			LastFought:    formatTimePtr(b.LastFought),
			SourcePath:    b.SourcePath,
			MigratedAt:    domain.FormatTimestamp(migratedAt),
		}
		if prev, ok := existing[b.OpponentID]; ok && sameBaseline(prev, params) {
			continue
		}
		if err := qtx.UpsertLegacyBaseline(ctx, params); err != nil {
			return 0, fmt.Errorf("failed to store baseline for opponent %d: %w: %w", b.OpponentID, domain.ErrIO, err)
		}
	}

	n, err := rebuild(ctx, qtx, leekID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit baselines: %w: %w", domain.ErrIO, err)
	}

	r.logger.Info().
		Int64("leek_id", leekID).
		Int("baselines", len(baselines)).
		Int("opponents", n).
		Msg("legacy baselines stored")
	return n, nil
}

// sameBaseline ignores where and when a baseline was imported.
func sameBaseline(prev db.LegacyOpponentStat, next db.UpsertLegacyBaselineParams) bool {
	return prev.OpponentName == next.OpponentName &&
		equalPtr(prev.OpponentLevel, next.OpponentLevel) &&
		prev.Wins == next.Wins &&
		prev.Losses == next.Losses &&
		prev.Draws == next.Draws &&
		equalPtr(prev.FirstFought, next.FirstFought) &&
		equalPtr(prev.LastFought, next.LastFought)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// expected derives the opponent_stats rows that the baseline and fight
// history of a leek imply, keyed by opponent id.
func expected(ctx context.Context, q *db.Queries, leekID int64) (map[int64]*domain.OpponentStats, error) {
	baselines, err := q.ListLegacyBaselines(ctx, leekID)
	if err != nil {
		return nil, fmt.Errorf("failed to list legacy baselines: %w: %w", domain.ErrIO, err)
	}
	aggregates, err := q.AggregateFightsByOpponent(ctx, leekID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate fights: %w: %w", domain.ErrIO, err)
	}

	merged := make(map[int64]*domain.OpponentStats, len(aggregates)+len(baselines))
	for _, row := range baselines {
		b, err := toLegacyBaseline(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIntegrity, err)
		}
		merged[b.OpponentID] = &domain.OpponentStats{
			LeekID:        leekID,
			OpponentID:    b.OpponentID,
			OpponentName:  b.OpponentName,
			OpponentLevel: b.OpponentLevel,
			Wins:          b.Wins,
			Losses:        b.Losses,
			Draws:         b.Draws,
			FirstFought:   b.FirstFought,
			LastFought:    b.LastFought,
		}
	}

	for _, a := range aggregates {
		first, err := domain.ParseTimestamp(a.FirstFought)
		if err != nil {
			return nil, fmt.Errorf("opponent %d: %w: %w", a.OpponentID, domain.ErrIntegrity, err)
		}
		last, err := domain.ParseTimestamp(a.LastFought)
		if err != nil {
			return nil, fmt.Errorf("opponent %d: %w: %w", a.OpponentID, domain.ErrIntegrity, err)
		}

		s, ok := merged[a.OpponentID]
		if !ok {
			s = &domain.OpponentStats{LeekID: leekID, OpponentID: a.OpponentID}
			merged[a.OpponentID] = s
		}
		if s.LastFought == nil || !last.Before(*s.LastFought) {
			s.OpponentName = a.OpponentName
			s.OpponentLevel = a.OpponentLevel
		}
		s.Wins += a.Wins
		s.Losses += a.Losses
		s.Draws += a.Draws
		s.FirstFought = earlier(s.FirstFought, &first)
		s.LastFought = later(s.LastFought, &last)
	}

	for id, s := range merged {
		stats.Recompute(s)
		if s.TotalFights == 0 {
			delete(merged, id)
		}
	}
	return merged, nil
}

func rebuild(ctx context.Context, q *db.Queries, leekID int64) (int, error) {
	merged, err := expected(ctx, q, leekID)
	if err != nil {
		return 0, err
	}

	if err := q.DeleteOpponentStatsByLeek(ctx, leekID); err != nil {
		return 0, fmt.Errorf("failed to clear opponent stats: %w: %w", domain.ErrIO, err)
	}

	ids := make([]int64, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if err := q.UpsertOpponentStats(ctx, upsertParams(merged[id])); err != nil {
			return 0, fmt.Errorf("failed to write stats for opponent %d: %w: %w", id, domain.ErrIO, err)
		}
	}
	return len(ids), nil
}

// Verify checks every stored aggregate against the derived fields and
// against what the baseline and fight history imply.
func (r *OpponentStatsRepository) Verify(ctx context.Context, leekID int64) ([]domain.Violation, error) {
	rows, err := r.queries.ListOpponentStats(ctx, leekID)
	if err != nil {
		return nil, fmt.Errorf("failed to list opponent stats: %w: %w", domain.ErrIO, err)
	}
	want, err := expected(ctx, r.queries, leekID)
	if err != nil {
		return nil, err
	}

	var violations []domain.Violation
	add := func(id int64, rule, format string, args ...any) {
		violations = append(violations, domain.Violation{
			OpponentID: id,
			Rule:       rule,
			Detail:     fmt.Sprintf(format, args...),
		})
	}

	seen := make(map[int64]bool, len(rows))
	for _, row := range rows {
		id := row.OpponentID
		seen[id] = true

		if total := row.Wins + row.Losses + row.Draws; row.TotalFights != total {
			add(id, "total", "total_fights %d, wins+losses+draws %d", row.TotalFights, total)
		}
		if wr := stats.WinRate(row.Wins, row.TotalFights); math.Abs(row.WinRate-wr) > 1e-9 {
			add(id, "win_rate", "stored %.6f, expected %.6f", row.WinRate, wr)
		}
		if status := stats.Classify(row.WinRate, row.TotalFights); row.Status != string(status) {
			add(id, "status", "stored %q, expected %q", row.Status, status)
		}
		if row.FirstFought != nil && row.LastFought != nil && *row.FirstFought > *row.LastFought {
			add(id, "chronology", "first_fought %s after last_fought %s", *row.FirstFought, *row.LastFought)
		}

		w, ok := want[id]
		if !ok {
			add(id, "history", "no fights or baseline behind %d recorded fights", row.TotalFights)
			continue
		}
		if row.Wins != w.Wins || row.Losses != w.Losses || row.Draws != w.Draws {
			add(id, "history", "stored %d/%d/%d, history %d/%d/%d",
				row.Wins, row.Losses, row.Draws, w.Wins, w.Losses, w.Draws)
		}
	}

	for id, w := range want {
		if !seen[id] {
			add(id, "history", "missing aggregate for %d recorded fights", w.TotalFights)
		}
	}

	slices.SortFunc(violations, func(a, b domain.Violation) int {
		return cmp.Or(cmp.Compare(a.OpponentID, b.OpponentID), strings.Compare(a.Rule, b.Rule))
	})

	r.logger.Info().Int64("leek_id", leekID).Int("violations", len(violations)).Msg("store verified")
	return violations, nil
}
