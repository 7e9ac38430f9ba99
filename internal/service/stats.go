package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"leekwars-tracker/internal/constants"
	"leekwars-tracker/internal/domain"
	"leekwars-tracker/internal/stats"
	"strconv"

	"github.com/rs/zerolog"
)

type Strategy string

const (
	StrategySafe       Strategy = "safe"
	StrategySmart      Strategy = "smart"
	StrategyAggressive Strategy = "aggressive"
	StrategyAdaptive   Strategy = "adaptive"
	StrategyConfident  Strategy = "confident"
	StrategyRandom     Strategy = "random"
)

var Strategies = []Strategy{
	StrategySafe, StrategySmart, StrategyAggressive,
	StrategyAdaptive, StrategyConfident, StrategyRandom,
}

func ParseStrategy(s string) (Strategy, error) {
	for _, strategy := range Strategies {
		if string(strategy) == s {
			return strategy, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q: %w", s, domain.ErrValidation)
}

// OpponentDetail is an opponent aggregate with its derived scores.
type OpponentDetail struct {
	domain.OpponentStats
	Difficulty int         `json:"difficulty"`
	Trend      stats.Trend `json:"trend"`
}

type StatsService struct {
	logger zerolog.Logger
}

func NewStatsService(logger zerolog.Logger) *StatsService {
	return &StatsService{logger: logger}
}

func (s *StatsService) Global(ctx context.Context, sess *Session) (*domain.GlobalStats, error) {
	return sess.Opponents.Global(ctx, sess.LeekID())
}

func (s *StatsService) RecentFights(ctx context.Context, sess *Session, limit int) ([]domain.FightRecord, error) {
	if limit <= 0 {
		limit = constants.DefaultRecentLimit
	}
	return sess.Fights.Recent(ctx, sess.LeekID(), limit)
}

func (s *StatsService) TopOpponents(ctx context.Context, sess *Session, limit int) ([]domain.OpponentStats, error) {
	if limit <= 0 {
		limit = constants.DefaultTopLimit
	}
	return sess.Opponents.Top(ctx, sess.LeekID(), limit)
}

func (s *StatsService) BestMatchups(ctx context.Context, sess *Session, minFights int64, minWinRate float64) ([]domain.OpponentStats, error) {
	return sess.Opponents.Best(ctx, sess.LeekID(), minFights, minWinRate)
}

func (s *StatsService) WorstMatchups(ctx context.Context, sess *Session, minFights int64, maxWinRate float64) ([]domain.OpponentStats, error) {
	return sess.Opponents.Worst(ctx, sess.LeekID(), minFights, maxWinRate)
}

// Opponents lists every tracked opponent, or only those with status when it
// is not empty.
func (s *StatsService) Opponents(ctx context.Context, sess *Session, status domain.Status) ([]domain.OpponentStats, error) {
	if status == "" {
		return sess.Opponents.List(ctx, sess.LeekID())
	}
	return sess.Opponents.ListByStatus(ctx, sess.LeekID(), status)
}

func (s *StatsService) Opponent(ctx context.Context, sess *Session, opponentID int64) (*OpponentDetail, error) {
	o, err := sess.Opponents.Get(ctx, sess.LeekID(), opponentID)
	if err != nil {
		return nil, err
	}
	recent, err := sess.Fights.RecentResults(ctx, sess.LeekID(), opponentID, constants.TrendWindow)
	if err != nil {
		return nil, err
	}
	return &OpponentDetail{
		OpponentStats: *o,
		Difficulty:    stats.Difficulty(o.WinRate, o.TotalFights),
		Trend:         stats.ComputeTrend(recent, o.WinRate),
	}, nil
}

// PreferredOpponents filters and orders candidate opponent ids for the next
// fights. Candidates are bucketed by status; the strategy decides which
// buckets are kept. Order within a bucket follows candidates.
func (s *StatsService) PreferredOpponents(ctx context.Context, sess *Session, candidates []int64, strategy Strategy) ([]int64, error) {
	candidates = unique(candidates)
	if strategy == StrategyRandom {
		return candidates, nil
	}

	all, err := sess.Opponents.List(ctx, sess.LeekID())
	if err != nil {
		return nil, err
	}
	known := make(map[int64]domain.OpponentStats, len(all))
	for _, o := range all {
		known[o.OpponentID] = o
	}

	var beatable, unknown, even, dangerous, confident []int64
	for _, id := range candidates {
		o, ok := known[id]
		switch {
		case !ok || o.Status == domain.StatusUnknown:
			unknown = append(unknown, id)
		case o.Status == domain.StatusBeatable:
			beatable = append(beatable, id)
			if o.TotalFights >= stats.ConfidentFights {
				confident = append(confident, id)
			}
		case o.Status == domain.StatusDangerous:
			dangerous = append(dangerous, id)
		default:
			even = append(even, id)
		}
	}

	smart := concat(beatable, unknown, half(even))
	switch strategy {
	case StrategySafe:
		return concat(beatable, unknown), nil
	case StrategyAggressive:
		return concat(beatable, unknown, even, dangerous), nil
	case StrategyConfident:
		if len(confident) > 0 {
			return confident, nil
		}
		return concat(beatable, unknown), nil
	case StrategyAdaptive:
		recent, err := sess.Fights.Recent(ctx, sess.LeekID(), constants.TrendWindow)
		if err != nil {
			return nil, err
		}
		if len(recent) < stats.ConfidentFights {
			return smart, nil
		}
		var wins int64
		for _, f := range recent {
			if f.Result == domain.ResultWin {
				wins++
			}
		}
		switch wr := stats.WinRate(wins, int64(len(recent))); {
		case wr >= stats.BeatableWinRate:
			return concat(beatable, unknown, even, half(dangerous)), nil
		case wr <= stats.DangerousWinRate:
			return concat(beatable, half(unknown)), nil
		}
		return smart, nil
	}
	return smart, nil
}

func unique(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func half(ids []int64) []int64 {
	return ids[:len(ids)/2]
}

func concat(groups ...[]int64) []int64 {
	out := []int64{}
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var csvHeader = []string{
	"fight_id", "leek_id", "opponent_id", "opponent_name", "opponent_level",
	"result", "duration", "actions_count", "operations_used", "fight_url", "timestamp",
}

// ExportCSV writes the fight history ordered by fight id and returns the
// number of fights written.
func (s *StatsService) ExportCSV(ctx context.Context, sess *Session, w io.Writer) (int, error) {
	fights, err := sess.Fights.All(ctx, sess.LeekID())
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("failed to write csv header: %w: %w", domain.ErrIO, err)
	}
	for _, f := range fights {
		if err := cw.Write([]string{
			strconv.FormatInt(f.FightID, 10),
			strconv.FormatInt(f.LeekID, 10),
			strconv.FormatInt(f.OpponentID, 10),
			f.OpponentName,
			optional(f.OpponentLevel),
			f.Result.String(),
			optional(f.Duration),
			optional(f.ActionsCount),
			optional(f.OperationsUsed),
			f.FightURL,
			domain.FormatTimestamp(f.Timestamp),
		}); err != nil {
			return 0, fmt.Errorf("failed to write fight %d: %w: %w", f.FightID, domain.ErrIO, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush csv: %w: %w", domain.ErrIO, err)
	}

	s.logger.Info().Int64("leek_id", sess.LeekID()).Int("fights", len(fights)).Msg("fight history exported")
	return len(fights), nil
}

func optional(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
