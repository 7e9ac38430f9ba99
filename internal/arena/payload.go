// Package arena decodes the fight payloads saved from the LeekWars arena
// and reduces them to the fields the fight history needs.
package arena

import (
	"bytes"
	"encoding/json"
	"fmt"
	"leekwars-tracker/internal/domain"
	"strconv"
)

type Leek struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Level *int64 `json:"level"`
	Dead  bool   `json:"dead"`
}

// Fight is a decoded fight payload. Rosters, winner and report fields are
// found either at the top level or under "report".
type Fight struct {
	ID       int64
	Date     *int64
	Winner   *int
	Leeks1   []Leek
	Leeks2   []Leek
	Duration *int64
	Actions  *int64

	ops map[string]json.RawMessage
}

const (
	WinnerDraw       = 0
	WinnerUnfinished = -1
)

type rawFight struct {
	ID       int64                      `json:"id"`
	Date     *int64                     `json:"date"`
	Winner   *int                       `json:"winner"`
	Leeks1   []Leek                     `json:"leeks1"`
	Leeks2   []Leek                     `json:"leeks2"`
	Duration *int64                     `json:"duration"`
	Report   json.RawMessage            `json:"report"`
	Data     *rawData                   `json:"data"`
	Ops      map[string]json.RawMessage `json:"ops"`
}

type rawData struct {
	Ops     map[string]json.RawMessage `json:"ops"`
	Actions []json.RawMessage          `json:"actions"`
}

type rawReport struct {
	Winner   *int              `json:"winner"`
	Leeks1   []Leek            `json:"leeks1"`
	Leeks2   []Leek            `json:"leeks2"`
	Duration *int64            `json:"duration"`
	Actions  []json.RawMessage `json:"actions"`
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), domain.ErrCorruptPayload)
}

// DecodeFight parses a <fight_id>_data.json body.
func DecodeFight(data []byte) (*Fight, error) {
	var raw rawFight
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, corrupt("invalid fight payload: %v", err)
	}

	f := &Fight{
		ID:     raw.ID,
		Date:   raw.Date,
		Winner: raw.Winner,
		Leeks1: raw.Leeks1,
		Leeks2: raw.Leeks2,
	}
	if raw.Duration != nil && *raw.Duration > 0 {
		f.Duration = raw.Duration
	}

	report, err := decodeReport(raw.Report)
	if err != nil {
		return nil, err
	}
	if report != nil {
		if f.Winner == nil {
			f.Winner = report.Winner
		}
		f.Leeks1 = mergeRoster(f.Leeks1, report.Leeks1)
		f.Leeks2 = mergeRoster(f.Leeks2, report.Leeks2)
		if f.Duration == nil && report.Duration != nil && *report.Duration > 0 {
			f.Duration = report.Duration
		}
		if report.Actions != nil {
			f.Actions = domain.Int64Ptr(int64(len(report.Actions)))
		}
	}

	if raw.Data != nil {
		f.ops = raw.Data.Ops
		if f.Actions == nil && raw.Data.Actions != nil {
			f.Actions = domain.Int64Ptr(int64(len(raw.Data.Actions)))
		}
	}
	if f.ops == nil {
		f.ops = raw.Ops
	}

	if len(f.Leeks1) == 0 && len(f.Leeks2) == 0 {
		return nil, corrupt("fight payload has no rosters")
	}
	return f, nil
}

// mergeRoster prefers the report roster, which is the one carrying the dead
// flags. Names and levels missing there are taken from the top-level roster.
func mergeRoster(top, report []Leek) []Leek {
	if len(report) == 0 {
		return top
	}
	merged := make([]Leek, len(report))
	copy(merged, report)
	for i := range merged {
		for _, t := range top {
			if t.ID != merged[i].ID {
				continue
			}
			if merged[i].Name == "" {
				merged[i].Name = t.Name
			}
			if merged[i].Level == nil {
				merged[i].Level = t.Level
			}
			break
		}
	}
	return merged
}

// decodeReport accepts a report object, a JSON string holding one, or a
// bare action list.
func decodeReport(raw json.RawMessage) (*rawReport, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '"':
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, corrupt("invalid report string: %v", err)
		}
		report, err := decodeReport(json.RawMessage(inner))
		if err != nil {
			// free-form text instead of an encoded report
			return nil, nil
		}
		return report, nil
	case '{':
		var report rawReport
		if err := json.Unmarshal(trimmed, &report); err != nil {
			return nil, corrupt("invalid report: %v", err)
		}
		return &report, nil
	case '[':
		var actions []json.RawMessage
		if err := json.Unmarshal(trimmed, &actions); err != nil {
			return nil, corrupt("invalid report actions: %v", err)
		}
		return &rawReport{Actions: actions}, nil
	}
	return nil, nil
}

// Operations returns the compute counter of a team (1 or 2), stored under
// the key of its zero-based position. Absent or non-numeric counters are nil.
func (f *Fight) Operations(team int) *int64 {
	raw, ok := f.ops[strconv.Itoa(team-1)]
	if !ok {
		return nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	return &n
}

func (f *Fight) Roster(team int) []Leek {
	if team == 1 {
		return f.Leeks1
	}
	return f.Leeks2
}

// Logs summarises a <fight_id>_logs.json body.
type Logs struct {
	Entries int64
	MaxTurn *int64
}

// DecodeLogs accepts a flat list of [leek_id, type, message, turn, ...]
// entries, or any nesting of objects and lists around such entries. Objects
// carrying a numeric "turn" also count toward MaxTurn.
func DecodeLogs(data []byte) (*Logs, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, corrupt("invalid fight logs: %v", err)
	}
	logs := &Logs{}
	logs.collect(root)
	return logs, nil
}

func (l *Logs) collect(v any) {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if entry, ok := e.([]any); ok && isLogEntry(entry) {
				l.Entries++
				if len(entry) >= 4 {
					l.observeTurn(entry[3])
				}
				continue
			}
			l.collect(e)
		}
	case map[string]any:
		if turn, ok := t["turn"]; ok {
			l.observeTurn(turn)
		}
		for _, e := range t {
			l.collect(e)
		}
	}
}

// isLogEntry matches [leek_id, type, ...] tuples.
func isLogEntry(entry []any) bool {
	if len(entry) < 3 {
		return false
	}
	_, ok := entry[0].(float64)
	return ok
}

func (l *Logs) observeTurn(v any) {
	turn, ok := v.(float64)
	if !ok || turn < 0 || turn != float64(int64(turn)) {
		return
	}
	if l.MaxTurn == nil || int64(turn) > *l.MaxTurn {
		l.MaxTurn = domain.Int64Ptr(int64(turn))
	}
}
