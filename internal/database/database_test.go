package database_test

import (
	"context"
	"database/sql"
	"leekwars-tracker/internal/database"
	"leekwars-tracker/internal/domain"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leekID = 12345

func openStore(t *testing.T, path string) *database.Store {
	t.Helper()
	store, err := database.Open(context.Background(), path, leekID, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func countRows(t *testing.T, sqlDB *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, sqlDB.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestStorePath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "fight_history_12345.db"), database.StorePath("data", 12345))
}

func TestOpen_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fight_history_12345.db")
	store := openStore(t, path)

	assert.False(t, store.Upgraded)
	assert.False(t, store.ReadOnly)
	for _, table := range []string{"leek_info", "fight_history", "opponent_stats", "legacy_opponent_stats"} {
		assert.Zero(t, countRows(t, store.DB, table), table)
	}

	var indexes int
	require.NoError(t, store.DB.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name LIKE 'idx_%'").Scan(&indexes))
	assert.Equal(t, 3, indexes)
}

func TestOpen_InvalidLeekID(t *testing.T) {
	_, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "x.db"), 0, zerolog.Nop())
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestOpen_SecondWriterIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fight_history_12345.db")
	store := openStore(t, path)

	_, err := database.Open(context.Background(), path, leekID, zerolog.Nop())
	require.ErrorIs(t, err, database.ErrLocked)
	assert.ErrorIs(t, err, domain.ErrIO)

	require.NoError(t, store.Close())
	again, err := database.Open(context.Background(), path, leekID, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestOpen_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fight_history_12345.db")
	store := openStore(t, path)
	_, err := store.DB.Exec("INSERT INTO leek_info (leek_id, leek_name) VALUES (?, 'Leeky')", leekID)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := openStore(t, path)
	assert.False(t, reopened.Upgraded)
	assert.Equal(t, 1, countRows(t, reopened.DB, "leek_info"))
}

func TestOpenReadOnly(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing store is not found", func(t *testing.T) {
		_, err := database.OpenReadOnly(context.Background(), filepath.Join(dir, "absent.db"), leekID, zerolog.Nop())
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("existing store rejects writes", func(t *testing.T) {
		path := filepath.Join(dir, "fight_history_12345.db")
		require.NoError(t, openStore(t, path).Close())

		store, err := database.OpenReadOnly(context.Background(), path, leekID, zerolog.Nop())
		require.NoError(t, err)
		defer store.Close()

		assert.True(t, store.ReadOnly)
		_, err = store.DB.Exec("INSERT INTO leek_info (leek_id) VALUES (1)")
		assert.Error(t, err)
	})

	t.Run("older layout is reported", func(t *testing.T) {
		path := filepath.Join(dir, "fight_history_777.db")
		createFirstGenerationStore(t, path)

		_, err := database.OpenReadOnly(context.Background(), path, 777, zerolog.Nop())
		require.ErrorIs(t, err, database.ErrOutdatedSchema)
		assert.ErrorIs(t, err, domain.ErrIntegrity)
	})
}

func createFirstGenerationStore(t *testing.T, path string) {
	t.Helper()
	conn, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer conn.Close()

	stmts := []string{
		`CREATE TABLE leek_info (
			leek_id INTEGER PRIMARY KEY,
			leek_name TEXT,
			leek_level INTEGER,
			last_updated TIMESTAMP
		)`,
		`CREATE TABLE fight_history (
			fight_id INTEGER PRIMARY KEY,
			opponent_id INTEGER,
			opponent_name TEXT,
			opponent_level INTEGER,
			result TEXT,
			duration INTEGER,
			actions_count INTEGER,
			fight_url TEXT,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE opponent_stats (
			opponent_id INTEGER PRIMARY KEY,
			opponent_name TEXT,
			opponent_level INTEGER,
			wins INTEGER DEFAULT 0,
			losses INTEGER DEFAULT 0,
			draws INTEGER DEFAULT 0,
			total_fights INTEGER DEFAULT 0,
			win_rate REAL DEFAULT 0.0,
			last_fought TIMESTAMP,
			last_updated TIMESTAMP
		)`,
		`CREATE INDEX idx_opponent_id ON fight_history(opponent_id)`,
		`CREATE INDEX idx_result ON fight_history(result)`,
		`INSERT INTO leek_info VALUES (777, 'Poireau', 120, '2024-01-03 08:00:00')`,
		`INSERT INTO fight_history VALUES
			(1, 42, 'Bob', 10, 'WIN', 12, 30, 'https://leekwars.com/fight/1', '2024-01-01 10:00:00.123456'),
			(2, 42, 'Bob', 11, 'LOSS', 20, 41, 'https://leekwars.com/fight/2', '2024-01-02 10:00:00'),
			(3, 43, 'Zed', 5, 'pending', NULL, NULL, '', '2024-01-02 11:00:00')`,
		`INSERT INTO opponent_stats VALUES
			(42, 'Bob', 11, 5, 2, 0, 7, 0.71, '2024-01-02 10:00:00', '2024-01-02 10:00:00'),
			(44, 'Old', 3, 1, 0, 0, 1, 1.0, '2023-06-01 00:00:00', '2023-06-01 00:00:00')`,
	}
	for _, stmt := range stmts {
		_, err := conn.Exec(stmt)
		require.NoError(t, err)
	}
}

func TestOpen_UpgradesFirstGenerationStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fight_history_777.db")
	createFirstGenerationStore(t, path)

	store, err := database.Open(context.Background(), path, 777, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	assert.True(t, store.Upgraded)
	assert.Equal(t, 2, countRows(t, store.DB, "fight_history"))

	var (
		owner int64
		ts    string
	)
	require.NoError(t, store.DB.QueryRow(
		"SELECT leek_id, timestamp FROM fight_history WHERE fight_id = 1").Scan(&owner, &ts))
	assert.Equal(t, int64(777), owner)
	assert.Equal(t, "2024-01-01T10:00:00", ts)

	leek, err := store.Queries.GetLeek(context.Background(), 777)
	require.NoError(t, err)
	assert.Equal(t, "Poireau", leek.LeekName)
	require.NotNil(t, leek.LastUpdated)
	assert.Equal(t, "2024-01-03T08:00:00", *leek.LastUpdated)

	baselines, err := store.Queries.ListLegacyBaselines(context.Background(), 777)
	require.NoError(t, err)
	require.Len(t, baselines, 2)

	assert.Equal(t, int64(42), baselines[0].OpponentID)
	assert.Equal(t, int64(4), baselines[0].Wins)
	assert.Equal(t, int64(1), baselines[0].Losses)
	assert.Equal(t, int64(0), baselines[0].Draws)

	assert.Equal(t, int64(44), baselines[1].OpponentID)
	assert.Equal(t, int64(1), baselines[1].Wins)
	require.NotNil(t, baselines[1].LastFought)
	assert.Equal(t, "2023-06-01T00:00:00", *baselines[1].LastFought)

	for _, table := range []string{"leek_info_v0", "fight_history_v0", "opponent_stats_v0"} {
		var n int
		require.NoError(t, store.DB.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE name = ?", table).Scan(&n))
		assert.Zero(t, n, table)
	}

	require.NoError(t, store.Close())
	reopened, err := database.Open(context.Background(), path, 777, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()
	assert.False(t, reopened.Upgraded)
}

func columnNames(t *testing.T, sqlDB *sql.DB, table string) []string {
	t.Helper()
	rows, err := sqlDB.Query("SELECT name FROM pragma_table_info(?)", table)
	require.NoError(t, err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestOpen_AddsMissingColumns(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, path string)
	}{
		{
			name: "store created before migrations were tracked",
			setup: func(t *testing.T, path string) {
				conn, err := sql.Open("sqlite3", path)
				require.NoError(t, err)
				defer conn.Close()
				_, err = conn.Exec(`CREATE TABLE opponent_stats (
					leek_id INTEGER NOT NULL,
					opponent_id INTEGER NOT NULL,
					opponent_name TEXT NOT NULL DEFAULT '',
					wins INTEGER NOT NULL DEFAULT 0,
					losses INTEGER NOT NULL DEFAULT 0,
					PRIMARY KEY (leek_id, opponent_id)
				)`)
				require.NoError(t, err)
				_, err = conn.Exec(`INSERT INTO opponent_stats VALUES (12345, 9, 'Rex', 3, 1)`)
				require.NoError(t, err)
			},
		},
		{
			name: "migrated store missing columns",
			setup: func(t *testing.T, path string) {
				require.NoError(t, openStore(t, path).Close())
				conn, err := sql.Open("sqlite3", path)
				require.NoError(t, err)
				defer conn.Close()
				for _, stmt := range []string{
					"ALTER TABLE opponent_stats DROP COLUMN status",
					"ALTER TABLE opponent_stats DROP COLUMN first_fought",
					"ALTER TABLE fight_history DROP COLUMN operations_used",
				} {
					_, err := conn.Exec(stmt)
					require.NoError(t, err, stmt)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "fight_history_12345.db")
			tt.setup(t, path)

			_, err := database.OpenReadOnly(context.Background(), path, leekID, zerolog.Nop())
			require.ErrorIs(t, err, database.ErrOutdatedSchema)

			store, err := database.Open(context.Background(), path, leekID, zerolog.Nop())
			require.NoError(t, err)
			defer store.Close()

			assert.True(t, store.Upgraded)
			assert.Subset(t, columnNames(t, store.DB, "opponent_stats"),
				[]string{"draws", "total_fights", "win_rate", "status", "first_fought", "last_fought"})
			assert.Contains(t, columnNames(t, store.DB, "fight_history"), "operations_used")

			var indexes int
			require.NoError(t, store.DB.QueryRow(
				"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name LIKE 'idx_%'").Scan(&indexes))
			assert.Equal(t, 3, indexes)
		})
	}
}

func TestOpen_PathWithURIReservedCharacters(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs?mode=memory#1 %20")
	path := filepath.Join(dir, "fight_history_12345.db")

	store := openStore(t, path)
	_, err := store.DB.Exec("INSERT INTO leek_info (leek_id, leek_name) VALUES (?, 'Leeky')", leekID)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	require.FileExists(t, path)
	reopened, err := database.OpenReadOnly(context.Background(), path, leekID, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, 1, countRows(t, reopened.DB, "leek_info"))
}
