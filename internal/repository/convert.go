package repository

import (
	"fmt"
	"leekwars-tracker/internal/db"
	"leekwars-tracker/internal/domain"
	"time"
)

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := domain.FormatTimestamp(*t)
	return &s
}

func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := domain.ParseTimestamp(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func toFightRecord(row db.FightHistory) (domain.FightRecord, error) {
	result, err := domain.ParseResult(row.Result)
	if err != nil {
		return domain.FightRecord{}, fmt.Errorf("fight %d: %w", row.FightID, err)
	}
	ts, err := domain.ParseTimestamp(row.Timestamp)
	if err != nil {
		return domain.FightRecord{}, fmt.Errorf("fight %d: %w", row.FightID, err)
	}
	return domain.FightRecord{
		FightID:        row.FightID,
		LeekID:         row.LeekID,
		OpponentID:     row.OpponentID,
		OpponentName:   row.OpponentName,
		OpponentLevel:  row.OpponentLevel,
		Result:         result,
		Duration:       row.Duration,
		ActionsCount:   row.ActionsCount,
		OperationsUsed: row.OperationsUsed,
		FightURL:       row.FightUrl,
		Timestamp:      ts,
	}, nil
}

func toFightRecords(rows []db.FightHistory) ([]domain.FightRecord, error) {
	fights := make([]domain.FightRecord, 0, len(rows))
	for _, row := range rows {
		f, err := toFightRecord(row)
		if err != nil {
			return nil, err
		}
		fights = append(fights, f)
	}
	return fights, nil
}

func toOpponentStats(row db.OpponentStat) (domain.OpponentStats, error) {
	status, err := domain.ParseStatus(row.Status)
	if err != nil {
		return domain.OpponentStats{}, fmt.Errorf("opponent %d: %w", row.OpponentID, err)
	}
	first, err := parseTimePtr(row.FirstFought)
	if err != nil {
		return domain.OpponentStats{}, fmt.Errorf("opponent %d: %w", row.OpponentID, err)
	}
	last, err := parseTimePtr(row.LastFought)
	if err != nil {
		return domain.OpponentStats{}, fmt.Errorf("opponent %d: %w", row.OpponentID, err)
	}
	return domain.OpponentStats{
		LeekID:        row.LeekID,
		OpponentID:    row.OpponentID,
		OpponentName:  row.OpponentName,
		OpponentLevel: row.OpponentLevel,
		Wins:          row.Wins,
		Losses:        row.Losses,
		Draws:         row.Draws,
		TotalFights:   row.TotalFights,
		WinRate:       row.WinRate,
		Status:        status,
		FirstFought:   first,
		LastFought:    last,
	}, nil
}

func toOpponentStatsList(rows []db.OpponentStat) ([]domain.OpponentStats, error) {
	list := make([]domain.OpponentStats, 0, len(rows))
	for _, row := range rows {
		s, err := toOpponentStats(row)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

func upsertParams(s *domain.OpponentStats) db.UpsertOpponentStatsParams {
	return db.UpsertOpponentStatsParams{
		LeekID:        s.LeekID,
		OpponentID:    s.OpponentID,
		OpponentName:  s.OpponentName,
		OpponentLevel: s.OpponentLevel,
		Wins:          s.Wins,
		Losses:        s.Losses,
		Draws:         s.Draws,
		TotalFights:   s.TotalFights,
		WinRate:       s.WinRate,
		Status:        string(s.Status),
		FirstFought:   formatTimePtr(s.FirstFought),
		LastFought:    formatTimePtr(s.LastFought),
	}
}

func toLegacyBaseline(row db.LegacyOpponentStat) (domain.LegacyBaseline, error) {
	first, err := parseTimePtr(row.FirstFought)
	if err != nil {
		return domain.LegacyBaseline{}, fmt.Errorf("baseline %d: %w", row.OpponentID, err)
	}
	last, err := parseTimePtr(row.LastFought)
	if err != nil {
		return domain.LegacyBaseline{}, fmt.Errorf("baseline %d: %w", row.OpponentID, err)
	}
	migratedAt, err := domain.ParseTimestamp(row.MigratedAt)
	if err != nil {
		return domain.LegacyBaseline{}, fmt.Errorf("baseline %d: %w", row.OpponentID, err)
	}
	return domain.LegacyBaseline{
		LeekID:        row.LeekID,
		OpponentID:    row.OpponentID,
		OpponentName:  row.OpponentName,
		OpponentLevel: row.OpponentLevel,
		Wins:          row.Wins,
		Losses:        row.Losses,
		Draws:         row.Draws,
		FirstFought:   first,
		LastFought:    last,
		SourcePath:    row.SourcePath,
		MigratedAt:    migratedAt,
	}, nil
}

// earlier returns the earlier of two optional times.
func earlier(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Before(*a):
		return b
	default:
		return a
	}
}

func later(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}
