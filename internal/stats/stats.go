// Package stats holds the pure functions behind opponent aggregates: win
// rate, status classification, difficulty and recent trend.
package stats

import (
	"leekwars-tracker/internal/domain"
	"math"
)

const (
	// MinFightsForStatus is the smallest sample that gets a non-unknown status.
	MinFightsForStatus = 3
	BeatableWinRate    = 0.70
	DangerousWinRate   = 0.30

	// ConfidentFights is the sample size at which difficulty stops being
	// pulled toward NeutralDifficulty.
	ConfidentFights   = 5
	NeutralDifficulty = 50

	TrendMargin = 0.10
)

func WinRate(wins, total int64) float64 {
	if total <= 0 {
		return 0.0
	}
	return float64(wins) / float64(total)
}

func Classify(winRate float64, total int64) domain.Status {
	switch {
	case total < MinFightsForStatus:
		return domain.StatusUnknown
	case winRate >= BeatableWinRate:
		return domain.StatusBeatable
	case winRate <= DangerousWinRate:
		return domain.StatusDangerous
	default:
		return domain.StatusEven
	}
}

// Difficulty scores an opponent from 0 (always beaten) to 100 (never beaten).
//
//	confidence = min(total, 5) / 5
//	raw        = (1 - winRate) * 100
//	difficulty = round(50 + (raw - 50) * confidence)
//
// With no fights the score is 50; from five fights on it equals raw.
func Difficulty(winRate float64, total int64) int {
	if total <= 0 {
		return NeutralDifficulty
	}
	winRate = math.Max(0, math.Min(1, winRate))
	confidence := float64(min(total, ConfidentFights)) / ConfidentFights
	raw := (1 - winRate) * 100
	score := int(math.Round(NeutralDifficulty + (raw-NeutralDifficulty)*confidence))
	return max(0, min(100, score))
}

// Recompute derives total, win rate and status from the counters.
func Recompute(s *domain.OpponentStats) {
	s.TotalFights = s.Wins + s.Losses + s.Draws
	s.WinRate = WinRate(s.Wins, s.TotalFights)
	s.Status = Classify(s.WinRate, s.TotalFights)
}

// Apply adds one fight outcome to an aggregate and refreshes derived fields.
func Apply(s *domain.OpponentStats, r domain.Result) {
	switch r {
	case domain.ResultWin:
		s.Wins++
	case domain.ResultLoss:
		s.Losses++
	case domain.ResultDraw:
		s.Draws++
	}
	Recompute(s)
}

type TrendLabel string

const (
	TrendInsufficient TrendLabel = "insufficient"
	TrendImproving    TrendLabel = "improving"
	TrendDeclining    TrendLabel = "declining"
	TrendStable       TrendLabel = "stable"
)

type Trend struct {
	RecentFights  int             `json:"recent_fights"`
	RecentWinRate float64         `json:"recent_win_rate"`
	Label         TrendLabel      `json:"label"`
	Results       []domain.Result `json:"-"`
}

// ComputeTrend compares the win rate over recent (newest first) with the
// overall win rate of the pair.
func ComputeTrend(recent []domain.Result, overall float64) Trend {
	t := Trend{RecentFights: len(recent), Results: recent, Label: TrendInsufficient}
	if len(recent) == 0 {
		return t
	}
	var wins int64
	for _, r := range recent {
		if r == domain.ResultWin {
			wins++
		}
	}
	t.RecentWinRate = WinRate(wins, int64(len(recent)))
	if len(recent) < MinFightsForStatus {
		return t
	}
	switch {
	case t.RecentWinRate >= overall+TrendMargin:
		t.Label = TrendImproving
	case t.RecentWinRate <= overall-TrendMargin:
		t.Label = TrendDeclining
	default:
		t.Label = TrendStable
	}
	return t
}
