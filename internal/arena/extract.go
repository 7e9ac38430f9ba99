package arena

import (
	"fmt"
	"leekwars-tracker/internal/domain"
	"time"
)

const FightURLFormat = "https://leekwars.com/fight/%d"

var ErrLeekNotInRoster = fmt.Errorf("leek not in fight roster: %w", domain.ErrCorruptPayload)

// Outcome is the part of a fight the history keeps, seen from one leek.
type Outcome struct {
	Leek     Leek
	Team     int
	Opponent Leek
	Result   domain.Result

	Duration       *int64
	ActionsCount   *int64
	OperationsUsed *int64

	// Date is nil when the payload carries no timestamp.
	Date *time.Time
}

// Extract resolves the fight from leekID's side. logs may be nil.
func Extract(f *Fight, logs *Logs, leekID int64) (*Outcome, error) {
	team, self, ok := locate(f, leekID)
	if !ok {
		return nil, fmt.Errorf("leek %d: %w", leekID, ErrLeekNotInRoster)
	}

	other := 3 - team
	opponents := f.Roster(other)
	if len(opponents) == 0 || opponents[0].ID <= 0 {
		return nil, corrupt("fight %d has no opponent for leek %d", f.ID, leekID)
	}

	o := &Outcome{
		Leek:           self,
		Team:           team,
		Opponent:       opponents[0],
		Result:         result(f, team),
		OperationsUsed: f.Operations(team),
	}

	switch {
	case f.Duration != nil:
		o.Duration = f.Duration
	case logs != nil && logs.MaxTurn != nil:
		o.Duration = logs.MaxTurn
	}

	switch {
	case logs != nil:
		o.ActionsCount = domain.Int64Ptr(logs.Entries)
	case f.Actions != nil:
		o.ActionsCount = f.Actions
	}

	if f.Date != nil && *f.Date > 0 {
		date := time.Unix(*f.Date, 0).UTC()
		o.Date = &date
	}
	return o, nil
}

func locate(f *Fight, leekID int64) (int, Leek, bool) {
	for _, team := range []int{1, 2} {
		for _, l := range f.Roster(team) {
			if l.ID == leekID {
				return team, l, true
			}
		}
	}
	return 0, Leek{}, false
}

// result prefers the explicit winner and falls back to comparing which
// teams still have a living leek.
func result(f *Fight, team int) domain.Result {
	if f.Winner != nil && *f.Winner != WinnerUnfinished {
		switch *f.Winner {
		case team:
			return domain.ResultWin
		case WinnerDraw:
			return domain.ResultDraw
		default:
			return domain.ResultLoss
		}
	}

	ours := alive(f.Roster(team))
	theirs := alive(f.Roster(3 - team))
	switch {
	case ours == theirs:
		return domain.ResultDraw
	case ours:
		return domain.ResultWin
	default:
		return domain.ResultLoss
	}
}

func alive(roster []Leek) bool {
	for _, l := range roster {
		if !l.Dead {
			return true
		}
	}
	return false
}

// Record builds the history row for the outcome. fallback is used when the
// payload has no date.
func (o *Outcome) Record(fightID, leekID int64, fallback time.Time) *domain.FightRecord {
	ts := fallback
	if o.Date != nil {
		ts = *o.Date
	}
	return &domain.FightRecord{
		FightID:        fightID,
		LeekID:         leekID,
		OpponentID:     o.Opponent.ID,
		OpponentName:   o.Opponent.Name,
		OpponentLevel:  o.Opponent.Level,
		Result:         o.Result,
		Duration:       o.Duration,
		ActionsCount:   o.ActionsCount,
		OperationsUsed: o.OperationsUsed,
		FightURL:       fmt.Sprintf(FightURLFormat, fightID),
		Timestamp:      ts.UTC().Truncate(time.Second),
	}
}
