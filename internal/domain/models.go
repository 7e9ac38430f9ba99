package domain

import (
	"fmt"
	"time"
)

// TimestampLayout is the on-disk form of every timestamp column. It sorts
// lexically in chronological order.
const TimestampLayout = "2006-01-02T15:04:05"

type Result int

const (
	ResultUnknown Result = iota
	ResultWin
	ResultLoss
	ResultDraw
)

func (r Result) String() string {
	switch r {
	case ResultWin:
		return "WIN"
	case ResultLoss:
		return "LOSS"
	case ResultDraw:
		return "DRAW"
	default:
		return "UNKNOWN"
	}
}

func (r Result) Valid() bool {
	return r == ResultWin || r == ResultLoss || r == ResultDraw
}

func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Result) UnmarshalText(text []byte) error {
	parsed, err := ParseResult(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func ParseResult(s string) (Result, error) {
	switch s {
	case "WIN":
		return ResultWin, nil
	case "LOSS":
		return ResultLoss, nil
	case "DRAW":
		return ResultDraw, nil
	}
	return ResultUnknown, fmt.Errorf("unknown result %q: %w", s, ErrValidation)
}

type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusBeatable  Status = "beatable"
	StatusDangerous Status = "dangerous"
	StatusEven      Status = "even"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusUnknown, StatusBeatable, StatusDangerous, StatusEven:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q: %w", s, ErrValidation)
}

type LeekInfo struct {
	LeekID      int64     `json:"leek_id"`
	Name        string    `json:"leek_name"`
	Level       *int64    `json:"leek_level"`
	LastUpdated time.Time `json:"last_updated"`
}

type FightRecord struct {
	FightID        int64     `json:"fight_id"`
	LeekID         int64     `json:"leek_id"`
	OpponentID     int64     `json:"opponent_id"`
	OpponentName   string    `json:"opponent_name"`
	OpponentLevel  *int64    `json:"opponent_level"`
	Result         Result    `json:"result"`
	Duration       *int64    `json:"duration"` // turns
	ActionsCount   *int64    `json:"actions_count"`
	OperationsUsed *int64    `json:"operations_used"`
	FightURL       string    `json:"fight_url"`
	Timestamp      time.Time `json:"timestamp"`
}

// Validate checks the fields record_fight cannot do without.
func (f *FightRecord) Validate() error {
	if f.FightID <= 0 {
		return fmt.Errorf("fight_id is required: %w", ErrValidation)
	}
	if f.LeekID <= 0 {
		return fmt.Errorf("fight %d: leek_id is required: %w", f.FightID, ErrValidation)
	}
	if f.OpponentID <= 0 {
		return fmt.Errorf("fight %d: opponent_id is required: %w", f.FightID, ErrValidation)
	}
	if !f.Result.Valid() {
		return fmt.Errorf("fight %d: result must be WIN, LOSS or DRAW: %w", f.FightID, ErrValidation)
	}
	return nil
}

type OpponentStats struct {
	LeekID        int64      `json:"leek_id"`
	OpponentID    int64      `json:"opponent_id"`
	OpponentName  string     `json:"opponent_name"`
	OpponentLevel *int64     `json:"opponent_level"`
	Wins          int64      `json:"wins"`
	Losses        int64      `json:"losses"`
	Draws         int64      `json:"draws"`
	TotalFights   int64      `json:"total_fights"`
	WinRate       float64    `json:"win_rate"`
	Status        Status     `json:"status"`
	FirstFought   *time.Time `json:"first_fought"`
	LastFought    *time.Time `json:"last_fought"`
}

// LegacyBaseline is the pre-aggregated record imported from an opponent
// tracker file. Per-fight history behind it is lost.
type LegacyBaseline struct {
	LeekID        int64
	OpponentID    int64
	OpponentName  string
	OpponentLevel *int64
	Wins          int64
	Losses        int64
	Draws         int64
	FirstFought   *time.Time
	LastFought    *time.Time
	SourcePath    string
	MigratedAt    time.Time
}

type GlobalStats struct {
	LeekID           int64   `json:"leek_id"`
	TotalFights      int64   `json:"total_fights"`
	Wins             int64   `json:"wins"`
	Losses           int64   `json:"losses"`
	Draws            int64   `json:"draws"`
	WinRate          float64 `json:"win_rate"`
	OpponentsTracked int64   `json:"opponents_tracked"`
	Beatable         int64   `json:"beatable"`
	Dangerous        int64   `json:"dangerous"`
}

type BatchSummary struct {
	Ingested              int `json:"ingested"`
	SkippedAlreadyPresent int `json:"skipped_already_present"`
	SkippedMalformed      int `json:"skipped_malformed"`
	Errors                int `json:"errors"`
}

func (b BatchSummary) Total() int {
	return b.Ingested + b.SkippedAlreadyPresent + b.SkippedMalformed + b.Errors
}

type RecordOutcome int

const (
	RecordInserted RecordOutcome = iota + 1
	RecordSkipped
)

// Violation describes one broken store invariant.
type Violation struct {
	OpponentID int64  `json:"opponent_id"`
	Rule       string `json:"rule"`
	Detail     string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("opponent %d: %s: %s", v.OpponentID, v.Rule, v.Detail)
}

func Int64Ptr(v int64) *int64 {
	return &v
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02",
}

// ParseTimestamp accepts the store layout and the ISO-8601 variants written
// by older trackers. Results are UTC with second precision.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, ErrValidation)
}
