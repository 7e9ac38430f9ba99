package arena_test

import (
	"leekwars-tracker/internal/arena"
	"leekwars-tracker/internal/domain"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topLevelPayload = `{
	"id": 501,
	"date": 1704067200,
	"winner": 2,
	"leeks1": [{"id": 77, "name": "Tomato", "level": 88, "dead": true}],
	"leeks2": [{"id": 12345, "name": "Poireau", "level": 90, "dead": false}],
	"report": {"duration": 14, "actions": [[0], [1], [2]]},
	"data": {"ops": {"0": 4200000, "1": 6100000}}
}`

const nestedPayload = `{
	"id": 502,
	"report": "{\"winner\": 0, \"leeks1\": [{\"id\": 12345, \"name\": \"Poireau\", \"dead\": false}], \"leeks2\": [{\"id\": 78, \"name\": \"Carrot\", \"level\": 91, \"dead\": false}]}",
	"ops": {"0": 1500}
}`

func decode(t *testing.T, body string) *arena.Fight {
	t.Helper()
	f, err := arena.DecodeFight([]byte(body))
	require.NoError(t, err)
	return f
}

func TestDecodeFight_Shapes(t *testing.T) {
	t.Run("top level rosters", func(t *testing.T) {
		f := decode(t, topLevelPayload)
		assert.Equal(t, int64(501), f.ID)
		require.NotNil(t, f.Winner)
		assert.Equal(t, 2, *f.Winner)
		assert.Len(t, f.Leeks1, 1)
		assert.Equal(t, domain.Int64Ptr(14), f.Duration)
		assert.Equal(t, domain.Int64Ptr(3), f.Actions)
		assert.Equal(t, domain.Int64Ptr(4200000), f.Operations(1))
		assert.Equal(t, domain.Int64Ptr(6100000), f.Operations(2))
	})

	t.Run("rosters inside an encoded report", func(t *testing.T) {
		f := decode(t, nestedPayload)
		require.NotNil(t, f.Winner)
		assert.Equal(t, arena.WinnerDraw, *f.Winner)
		assert.Equal(t, int64(12345), f.Leeks1[0].ID)
		assert.Equal(t, "Carrot", f.Leeks2[0].Name)
		assert.Nil(t, f.Duration)
		assert.Nil(t, f.Actions)
		assert.Equal(t, domain.Int64Ptr(1500), f.Operations(1))
		assert.Nil(t, f.Operations(2))
	})

	t.Run("report as action list", func(t *testing.T) {
		f := decode(t, `{"leeks1": [{"id": 1}], "leeks2": [{"id": 2}], "report": [[1, 2], [3, 4]]}`)
		assert.Equal(t, domain.Int64Ptr(2), f.Actions)
	})

	t.Run("non numeric ops are absent", func(t *testing.T) {
		f := decode(t, `{"leeks1": [{"id": 1}], "leeks2": [{"id": 2}], "data": {"ops": {"0": [[1, "x"]]}}}`)
		assert.Nil(t, f.Operations(1))
	})
}

func TestDecodeFight_Corrupt(t *testing.T) {
	for name, body := range map[string]string{
		"not json":        `{"id": `,
		"no rosters":      `{"id": 1, "winner": 1}`,
		"bad report":      `{"leeks1": [{"id": 1}], "report": {"duration": "long"}}`,
		"roster not list": `{"leeks1": {"id": 1}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := arena.DecodeFight([]byte(body))
			require.ErrorIs(t, err, domain.ErrCorruptPayload)
		})
	}
}

func TestDecodeLogs(t *testing.T) {
	t.Run("flat entries", func(t *testing.T) {
		logs, err := arena.DecodeLogs([]byte(`[
			[12345, 1, "hello", 1],
			[12345, 2, "warn", 4],
			[12345, 1, "no turn"]
		]`))
		require.NoError(t, err)
		assert.Equal(t, int64(3), logs.Entries)
		assert.Equal(t, domain.Int64Ptr(4), logs.MaxTurn)
	})

	t.Run("entries grouped by farmer", func(t *testing.T) {
		logs, err := arena.DecodeLogs([]byte(`{
			"3021": {"12": [[12345, 1, "a", 2], [12345, 1, "b", 9]]},
			"4410": {"15": [[78, 3, "c", 7]]}
		}`))
		require.NoError(t, err)
		assert.Equal(t, int64(3), logs.Entries)
		assert.Equal(t, domain.Int64Ptr(9), logs.MaxTurn)
	})

	t.Run("no turns", func(t *testing.T) {
		logs, err := arena.DecodeLogs([]byte(`[]`))
		require.NoError(t, err)
		assert.Zero(t, logs.Entries)
		assert.Nil(t, logs.MaxTurn)
	})

	t.Run("corrupt", func(t *testing.T) {
		_, err := arena.DecodeLogs([]byte(`[[1, 2`))
		require.ErrorIs(t, err, domain.ErrCorruptPayload)
	})
}

func TestExtract(t *testing.T) {
	t.Run("explicit winner", func(t *testing.T) {
		o, err := arena.Extract(decode(t, topLevelPayload), nil, 12345)
		require.NoError(t, err)
		assert.Equal(t, 2, o.Team)
		assert.Equal(t, domain.ResultWin, o.Result)
		assert.Equal(t, int64(77), o.Opponent.ID)
		assert.Equal(t, "Poireau", o.Leek.Name)
		assert.Equal(t, domain.Int64Ptr(6100000), o.OperationsUsed)
		assert.Equal(t, domain.Int64Ptr(14), o.Duration)
		assert.Equal(t, domain.Int64Ptr(3), o.ActionsCount)
		require.NotNil(t, o.Date)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *o.Date)

		lost, err := arena.Extract(decode(t, topLevelPayload), nil, 77)
		require.NoError(t, err)
		assert.Equal(t, domain.ResultLoss, lost.Result)
	})

	t.Run("explicit draw", func(t *testing.T) {
		o, err := arena.Extract(decode(t, nestedPayload), nil, 12345)
		require.NoError(t, err)
		assert.Equal(t, domain.ResultDraw, o.Result)
		assert.Nil(t, o.Date)
	})

	t.Run("survival decides without a winner", func(t *testing.T) {
		cases := []struct {
			name     string
			body     string
			expected domain.Result
		}{
			{"other team dead", `{"leeks1": [{"id": 5, "dead": false}], "leeks2": [{"id": 6, "dead": true}]}`, domain.ResultWin},
			{"own team dead", `{"winner": -1, "leeks1": [{"id": 5, "dead": true}], "leeks2": [{"id": 6, "dead": false}]}`, domain.ResultLoss},
			{"both alive", `{"leeks1": [{"id": 5}], "leeks2": [{"id": 6}]}`, domain.ResultDraw},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				o, err := arena.Extract(decode(t, tc.body), nil, 5)
				require.NoError(t, err)
				assert.Equal(t, tc.expected, o.Result)
			})
		}
	})

	t.Run("survival flags come from the report roster", func(t *testing.T) {
		f := decode(t, `{
			"id": 503,
			"winner": -1,
			"leeks1": [{"id": 5, "name": "Poireau", "level": 120}],
			"leeks2": [{"id": 6, "name": "Rex", "level": 100}],
			"report": {"leeks1": [{"id": 5, "dead": false}], "leeks2": [{"id": 6, "dead": true}]}
		}`)
		o, err := arena.Extract(f, nil, 5)
		require.NoError(t, err)
		assert.Equal(t, domain.ResultWin, o.Result)
		assert.Equal(t, "Poireau", o.Leek.Name)
		assert.Equal(t, "Rex", o.Opponent.Name)
		assert.Equal(t, domain.Int64Ptr(100), o.Opponent.Level)
		assert.True(t, o.Opponent.Dead)
	})

	t.Run("duration and actions from logs", func(t *testing.T) {
		logs := &arena.Logs{Entries: 40, MaxTurn: domain.Int64Ptr(17)}
		o, err := arena.Extract(decode(t, nestedPayload), logs, 12345)
		require.NoError(t, err)
		assert.Equal(t, domain.Int64Ptr(17), o.Duration)
		assert.Equal(t, domain.Int64Ptr(40), o.ActionsCount)

		explicit, err := arena.Extract(decode(t, topLevelPayload), logs, 12345)
		require.NoError(t, err)
		assert.Equal(t, domain.Int64Ptr(14), explicit.Duration)
		assert.Equal(t, domain.Int64Ptr(40), explicit.ActionsCount)
	})

	t.Run("leek missing from roster", func(t *testing.T) {
		_, err := arena.Extract(decode(t, topLevelPayload), nil, 999)
		require.ErrorIs(t, err, arena.ErrLeekNotInRoster)
		assert.ErrorIs(t, err, domain.ErrCorruptPayload)
	})

	t.Run("no opponent", func(t *testing.T) {
		_, err := arena.Extract(decode(t, `{"leeks1": [{"id": 5}], "leeks2": []}`), nil, 5)
		require.ErrorIs(t, err, domain.ErrCorruptPayload)
	})
}

func TestOutcomeRecord(t *testing.T) {
	o, err := arena.Extract(decode(t, nestedPayload), nil, 12345)
	require.NoError(t, err)

	fallback := time.Date(2024, 3, 2, 10, 11, 12, 999, time.UTC)
	rec := o.Record(502, 12345, fallback)

	assert.Equal(t, int64(502), rec.FightID)
	assert.Equal(t, int64(78), rec.OpponentID)
	assert.Equal(t, "Carrot", rec.OpponentName)
	assert.Equal(t, domain.Int64Ptr(91), rec.OpponentLevel)
	assert.Equal(t, "https://leekwars.com/fight/502", rec.FightURL)
	assert.Equal(t, fallback.Truncate(time.Second), rec.Timestamp)
	assert.NoError(t, rec.Validate())
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "502_data.json"), nestedPayload)
	writeFile(t, filepath.Join(dir, "501_data.json"), topLevelPayload)
	writeFile(t, filepath.Join(dir, "501_logs.json"), `[[12345, 1, "x", 3]]`)
	writeFile(t, filepath.Join(dir, "600_logs.json"), `[]`)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "abc_data.json"), "{}")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "700_data.json"), 0o755))

	entries, n, err := arena.Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list := slices.Collect(entries)
	require.Len(t, list, 2)
	assert.Equal(t, int64(501), list[0].FightID)
	assert.Equal(t, filepath.Join(dir, "501_logs.json"), list[0].LogsPath)
	assert.Equal(t, int64(502), list[1].FightID)
	assert.Empty(t, list[1].LogsPath)

	p, err := list[0].Load()
	require.NoError(t, err)
	require.NotNil(t, p.Logs)
	assert.Equal(t, int64(1), p.Logs.Entries)
	assert.NoError(t, p.LogsErr)
	assert.False(t, p.ModTime.IsZero())
}

func TestScan_MissingDirectory(t *testing.T) {
	_, _, err := arena.Scan(filepath.Join(t.TempDir(), "absent"))
	require.ErrorIs(t, err, domain.ErrIO)
}

func TestEntryLoad_Problems(t *testing.T) {
	dir := t.TempDir()

	t.Run("mismatched fight id", func(t *testing.T) {
		writeFile(t, filepath.Join(dir, "900_data.json"), topLevelPayload)
		_, err := arena.Entry{FightID: 900, DataPath: filepath.Join(dir, "900_data.json")}.Load()
		require.ErrorIs(t, err, domain.ErrCorruptPayload)
	})

	t.Run("bad logs do not reject the fight", func(t *testing.T) {
		writeFile(t, filepath.Join(dir, "501_data.json"), topLevelPayload)
		writeFile(t, filepath.Join(dir, "501_logs.json"), "[[")
		p, err := arena.Entry{
			FightID:  501,
			DataPath: filepath.Join(dir, "501_data.json"),
			LogsPath: filepath.Join(dir, "501_logs.json"),
		}.Load()
		require.NoError(t, err)
		assert.Nil(t, p.Logs)
		assert.ErrorIs(t, p.LogsErr, domain.ErrCorruptPayload)
	})
}
