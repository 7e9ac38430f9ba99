package service_test

import (
	"context"
	"fmt"
	"leekwars-tracker/internal/config"
	"leekwars-tracker/internal/domain"
	"leekwars-tracker/internal/service"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leekID = 12345

type env struct {
	t   *testing.T
	ctx context.Context
	cfg *config.Config

	history   *service.HistoryService
	ingest    *service.IngestService
	migration *service.MigrationService
	stats     *service.StatsService

	sess   *service.Session
	nextID int64
	clock  time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := &config.Config{DataDir: t.TempDir(), FightLogsDir: t.TempDir()}
	logger := zerolog.Nop()
	history := service.NewHistoryService(cfg, logger)
	return &env{
		t:         t,
		ctx:       context.Background(),
		cfg:       cfg,
		history:   history,
		ingest:    service.NewIngestService(history, logger),
		migration: service.NewMigrationService(cfg, history, logger),
		stats:     service.NewStatsService(logger),
		nextID:    1000,
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// session opens the leek's store for writing on first use. It stays open
// until the test ends.
func (e *env) session() *service.Session {
	e.t.Helper()
	if e.sess == nil {
		sess, err := e.history.Open(e.ctx, leekID)
		require.NoError(e.t, err)
		e.t.Cleanup(func() { _ = sess.Close() })
		e.sess = sess
	}
	return e.sess
}

func (e *env) closeSession() {
	e.t.Helper()
	if e.sess != nil {
		require.NoError(e.t, e.sess.Close())
		e.sess = nil
	}
}

// play records one fight per letter of results (W, L or D) against the
// opponent, one hour apart.
func (e *env) play(opponentID int64, results string) {
	e.t.Helper()
	for _, c := range results {
		r, err := domain.ParseResult(map[rune]string{'W': "WIN", 'L': "LOSS", 'D': "DRAW"}[c])
		require.NoError(e.t, err)
		e.nextID++
		e.clock = e.clock.Add(time.Hour)
		outcome, err := e.history.RecordFight(e.ctx, e.session(), &domain.FightRecord{
			FightID:      e.nextID,
			OpponentID:   opponentID,
			OpponentName: fmt.Sprintf("Opp%d", opponentID),
			Result:       r,
			FightURL:     fmt.Sprintf("https://leekwars.com/fight/%d", e.nextID),
			Timestamp:    e.clock,
		})
		require.NoError(e.t, err)
		require.Equal(e.t, domain.RecordInserted, outcome)
	}
}

func (e *env) opponent(opponentID int64) *domain.OpponentStats {
	e.t.Helper()
	o, err := e.session().Opponents.Get(e.ctx, leekID, opponentID)
	require.NoError(e.t, err)
	return o
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestOpenForRead_MissingStore(t *testing.T) {
	e := newEnv(t)
	_, err := e.history.OpenForRead(e.ctx, leekID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpenForRead_SeesWrittenData(t *testing.T) {
	e := newEnv(t)
	e.play(9, "WWL")
	e.closeSession()

	sess, err := e.history.OpenForRead(e.ctx, leekID)
	require.NoError(t, err)
	defer sess.Close()

	assert.True(t, sess.Store.ReadOnly)
	global, err := e.stats.Global(e.ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, int64(3), global.TotalFights)
	assert.Equal(t, int64(1), global.OpponentsTracked)
}

func TestRecordFight_RejectsOtherLeek(t *testing.T) {
	e := newEnv(t)
	_, err := e.history.RecordFight(e.ctx, e.session(), &domain.FightRecord{
		FightID:    1,
		LeekID:     leekID + 1,
		OpponentID: 9,
		Result:     domain.ResultWin,
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	fights, err := e.session().Fights.All(e.ctx, leekID)
	require.NoError(t, err)
	assert.Empty(t, fights)
}

func TestOpponentDifficulty(t *testing.T) {
	e := newEnv(t)
	e.play(9, "WWWWW")
	e.play(10, "LLLLL")
	e.play(11, "WL")

	for opponentID, expected := range map[int64]int{
		9:  0,
		10: 100,
		11: 50,
		99: 50,
	} {
		d, err := e.history.OpponentDifficulty(e.ctx, e.session(), opponentID)
		require.NoError(t, err)
		assert.Equal(t, expected, d, "opponent %d", opponentID)
	}
}

func TestRebuildAndVerify(t *testing.T) {
	e := newEnv(t)
	e.play(9, "WWL")
	e.play(10, "D")

	before := e.opponent(9)
	n, err := e.history.Rebuild(e.ctx, e.session())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, before, e.opponent(9))

	violations, err := e.history.Verify(e.ctx, e.session())
	require.NoError(t, err)
	assert.Empty(t, violations)

	_, err = e.session().Store.DB.ExecContext(e.ctx,
		`UPDATE opponent_stats SET wins = wins + 1 WHERE opponent_id = 9`)
	require.NoError(t, err)

	violations, err = e.history.Verify(e.ctx, e.session())
	require.NoError(t, err)
	require.NotEmpty(t, violations)
	assert.Equal(t, int64(9), violations[0].OpponentID)

	_, err = e.history.Rebuild(e.ctx, e.session())
	require.NoError(t, err)
	violations, err = e.history.Verify(e.ctx, e.session())
	require.NoError(t, err)
	assert.Empty(t, violations)
}
