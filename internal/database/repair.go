package database

import (
	"context"
	"database/sql"
	"fmt"
	"leekwars-tracker/internal/db"
	"leekwars-tracker/internal/domain"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Stores written by the first tracker have no leek_id column, a single
// column key on opponent_stats and TIMESTAMP typed columns. Those tables are
// renamed aside before migrations run and copied into the current layout
// afterwards.

var coreTables = []string{"leek_info", "fight_history", "opponent_stats"}

type columnDef struct {
	name string
	ddl  string
}

var optionalColumns = []struct {
	table   string
	columns []columnDef
}{
	{"leek_info", []columnDef{
		{"leek_level", "INTEGER"},
		{"last_updated", "TEXT"},
	}},
	{"fight_history", []columnDef{
		{"opponent_level", "INTEGER"},
		{"duration", "INTEGER"},
		{"actions_count", "INTEGER"},
		{"operations_used", "INTEGER"},
		{"fight_url", "TEXT NOT NULL DEFAULT ''"},
	}},
	{"opponent_stats", []columnDef{
		{"opponent_level", "INTEGER"},
		{"draws", "INTEGER NOT NULL DEFAULT 0"},
		{"total_fights", "INTEGER NOT NULL DEFAULT 0"},
		{"win_rate", "REAL NOT NULL DEFAULT 0.0"},
		{"status", "TEXT NOT NULL DEFAULT 'unknown'"},
		{"first_fought", "TEXT"},
		{"last_fought", "TEXT"},
	}},
}

func legacyName(table string) string {
	return table + "_v0"
}

func isLegacyLayout(table string, cols map[string]string) bool {
	if table != "leek_info" {
		if _, ok := cols["leek_id"]; !ok {
			return true
		}
	}
	for _, declared := range cols {
		switch strings.ToUpper(declared) {
		case "TIMESTAMP", "DATETIME", "DATE":
			return true
		}
	}
	return false
}

// tableColumns maps column name to declared type. An absent table yields an
// empty map.
func tableColumns(ctx context.Context, q db.DBTX, table string) (map[string]string, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]string)
	for rows.Next() {
		var (
			cid      int
			name     string
			declared string
			notNull  int
			dflt     any
			pk       int
		)
		if err := rows.Scan(&cid, &name, &declared, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info for %s: %w", table, err)
		}
		cols[name] = declared
	}
	return cols, rows.Err()
}

func tableExists(ctx context.Context, q db.DBTX, table string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up table %s: %w", table, err)
	}
	return n > 0, nil
}

func schemaIsCurrent(ctx context.Context, q db.DBTX) (bool, error) {
	for _, table := range coreTables {
		cols, err := tableColumns(ctx, q, table)
		if err != nil {
			return false, err
		}
		if len(cols) == 0 || isLegacyLayout(table, cols) {
			return false, nil
		}
	}
	for _, t := range optionalColumns {
		cols, err := tableColumns(ctx, q, t.table)
		if err != nil {
			return false, err
		}
		for _, c := range t.columns {
			if _, ok := cols[c.name]; !ok {
				return false, nil
			}
		}
	}
	return tableExists(ctx, q, "legacy_opponent_stats")
}

func setAsideLegacyTables(ctx context.Context, sqlDB *sql.DB, logger zerolog.Logger) error {
	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var renamed []string
	for _, table := range coreTables {
		cols, err := tableColumns(ctx, tx, table)
		if err != nil {
			return err
		}
		if len(cols) == 0 || !isLegacyLayout(table, cols) {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", table, legacyName(table))
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to set aside table %s: %w", table, err)
		}
		renamed = append(renamed, table)
	}
	if len(renamed) == 0 {
		return nil
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	logger.Info().Strs("tables", renamed).Msg("found tables with an older layout")
	return nil
}

// column returns alias.name when the legacy table has the column, fallback
// otherwise.
func column(cols map[string]string, alias, name, fallback string) string {
	if _, ok := cols[name]; !ok {
		return fallback
	}
	if alias == "" {
		return name
	}
	return alias + "." + name
}

func isoTimestamp(expr string) string {
	return "strftime('%Y-%m-%dT%H:%M:%S', " + expr + ")"
}

// importLegacyTables copies set-aside tables into the current layout and
// drops them. Opponent aggregates in excess of the imported fights become
// the legacy baseline, so a rebuild reproduces the old totals.
func importLegacyTables(ctx context.Context, sqlDB *sql.DB, leekID int64, logger zerolog.Logger) (bool, error) {
	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	present := make(map[string]map[string]string)
	for _, table := range coreTables {
		cols, err := tableColumns(ctx, tx, legacyName(table))
		if err != nil {
			return false, err
		}
		if len(cols) > 0 {
			present[table] = cols
		}
	}
	if len(present) == 0 {
		return false, nil
	}

	now := domain.FormatTimestamp(time.Now())

	if cols, ok := present["leek_info"]; ok {
		query := fmt.Sprintf(`INSERT OR IGNORE INTO leek_info (leek_id, leek_name, leek_level, last_updated)
SELECT leek_id, COALESCE(%s, ''), %s, %s
FROM leek_info_v0
WHERE leek_id IS NOT NULL`,
			column(cols, "", "leek_name", "''"),
			column(cols, "", "leek_level", "NULL"),
			isoTimestamp(column(cols, "", "last_updated", "NULL")),
		)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return false, fmt.Errorf("failed to import leek_info: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO leek_info (leek_id, leek_name, last_updated) VALUES (?, '', ?)",
		leekID, now); err != nil {
		return false, fmt.Errorf("failed to ensure leek row: %w", err)
	}

	if cols, ok := present["fight_history"]; ok {
		var total int64
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM fight_history_v0").Scan(&total); err != nil {
			return false, fmt.Errorf("failed to count legacy fights: %w", err)
		}

		query := fmt.Sprintf(`INSERT OR IGNORE INTO fight_history (
    fight_id, leek_id, opponent_id, opponent_name, opponent_level, result,
    duration, actions_count, operations_used, fight_url, timestamp
)
SELECT fight_id, ?, opponent_id, COALESCE(%s, ''), %s, UPPER(result),
       %s, %s, %s, COALESCE(%s, ''), COALESCE(%s, ?)
FROM fight_history_v0
WHERE fight_id IS NOT NULL AND opponent_id IS NOT NULL
  AND UPPER(result) IN ('WIN', 'LOSS', 'DRAW')`,
			column(cols, "", "opponent_name", "''"),
			column(cols, "", "opponent_level", "NULL"),
			column(cols, "", "duration", "NULL"),
			column(cols, "", "actions_count", "NULL"),
			column(cols, "", "operations_used", "NULL"),
			column(cols, "", "fight_url", "''"),
			isoTimestamp(column(cols, "", "timestamp", "NULL")),
		)
		res, err := tx.ExecContext(ctx, query, leekID, now)
		if err != nil {
			return false, fmt.Errorf("failed to import fight_history: %w", err)
		}
		copied, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to import fight_history: %w", err)
		}
		if dropped := total - copied; dropped > 0 {
			logger.Warn().
				Int64("dropped", dropped).
				Int64("imported", copied).
				Msg("legacy fights without a usable result were not imported")
		}
	}

	if cols, ok := present["opponent_stats"]; ok {
		query := fmt.Sprintf(`INSERT OR REPLACE INTO legacy_opponent_stats (
    leek_id, opponent_id, opponent_name, opponent_level, wins, losses, draws,
    first_fought, last_fought, source_path, migrated_at
)
SELECT ?, o.opponent_id, COALESCE(%s, ''), %s,
       MAX(COALESCE(%s, 0) - COALESCE(f.wins, 0), 0),
       MAX(COALESCE(%s, 0) - COALESCE(f.losses, 0), 0),
       MAX(COALESCE(%s, 0) - COALESCE(f.draws, 0), 0),
       %s, %s, ?, ?
FROM opponent_stats_v0 o
LEFT JOIN (
    SELECT opponent_id,
           SUM(result = 'WIN') AS wins,
           SUM(result = 'LOSS') AS losses,
           SUM(result = 'DRAW') AS draws
    FROM fight_history
    WHERE leek_id = ?
    GROUP BY opponent_id
) f ON f.opponent_id = o.opponent_id
WHERE o.opponent_id IS NOT NULL`,
			column(cols, "o", "opponent_name", "''"),
			column(cols, "o", "opponent_level", "NULL"),
			column(cols, "o", "wins", "0"),
			column(cols, "o", "losses", "0"),
			column(cols, "o", "draws", "0"),
			isoTimestamp(column(cols, "o", "first_fought", "NULL")),
			isoTimestamp(column(cols, "o", "last_fought", "NULL")),
		)
		if _, err := tx.ExecContext(ctx, query, leekID, "opponent_stats_v0", now, leekID); err != nil {
			return false, fmt.Errorf("failed to import opponent_stats: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM legacy_opponent_stats WHERE leek_id = ? AND wins + losses + draws = 0",
			leekID); err != nil {
			return false, fmt.Errorf("failed to prune empty baselines: %w", err)
		}
	}

	for table := range present {
		if _, err := tx.ExecContext(ctx, "DROP TABLE "+legacyName(table)); err != nil {
			return false, fmt.Errorf("failed to drop %s: %w", legacyName(table), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}

	logger.Info().Int("tables", len(present)).Msg("imported tables from an older layout")
	return true, nil
}

// addMissingColumns adds nullable or defaulted columns a current-layout
// table may lack. Tables that do not exist yet are left to the migrations.
// It reports whether opponent_stats changed, in which case
// derived fields need recomputing.
func addMissingColumns(ctx context.Context, sqlDB *sql.DB, logger zerolog.Logger) (bool, error) {
	statsChanged := false
	for _, t := range optionalColumns {
		cols, err := tableColumns(ctx, sqlDB, t.table)
		if err != nil {
			return false, err
		}
		if len(cols) == 0 {
			continue
		}
		for _, c := range t.columns {
			if _, ok := cols[c.name]; ok {
				continue
			}
			query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", t.table, c.name, c.ddl)
			if _, err := sqlDB.ExecContext(ctx, query); err != nil {
				return false, fmt.Errorf("failed to add column %s.%s: %w", t.table, c.name, err)
			}
			logger.Info().Str("table", t.table).Str("column", c.name).Msg("added missing column")
			if t.table == "opponent_stats" {
				statsChanged = true
			}
		}
	}
	return statsChanged, nil
}
