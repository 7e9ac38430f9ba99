package service_test

import (
	"bytes"
	"leekwars-tracker/internal/domain"
	"leekwars-tracker/internal/service"
	"leekwars-tracker/internal/stats"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedPool gives one opponent per bucket:
//
//	10 beatable (3 fights), 11 beatable (5 fights), 12 dangerous,
//	13 and 14 even, 15 unknown (1 fight)
func seedPool(e *env) {
	e.play(10, "WWW")
	e.play(11, "WWWWW")
	e.play(12, "LLL")
	e.play(13, "WLW")
	e.play(14, "WLWL")
	e.play(15, "W")
}

func TestStats_EmptyStore(t *testing.T) {
	e := newEnv(t)
	sess := e.session()

	global, err := e.stats.Global(e.ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, &domain.GlobalStats{LeekID: leekID}, global)

	recent, err := e.stats.RecentFights(e.ctx, sess, 5)
	require.NoError(t, err)
	assert.Empty(t, recent)

	top, err := e.stats.TopOpponents(e.ctx, sess, 5)
	require.NoError(t, err)
	assert.Empty(t, top)

	opponents, err := e.stats.Opponents(e.ctx, sess, domain.StatusBeatable)
	require.NoError(t, err)
	assert.Empty(t, opponents)
}

func TestStats_Queries(t *testing.T) {
	e := newEnv(t)
	seedPool(e)
	sess := e.session()

	recent, err := e.stats.RecentFights(e.ctx, sess, 0)
	require.NoError(t, err)
	require.Len(t, recent, 10)
	assert.Equal(t, int64(1019), recent[0].FightID)

	top, err := e.stats.TopOpponents(e.ctx, sess, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(11), top[0].OpponentID)
	assert.Equal(t, int64(14), top[1].OpponentID)

	best, err := e.stats.BestMatchups(e.ctx, sess, 3, 0.6)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 10, 13}, opponentIDs(best))

	worst, err := e.stats.WorstMatchups(e.ctx, sess, 3, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []int64{12, 14}, opponentIDs(worst))

	dangerous, err := e.stats.Opponents(e.ctx, sess, domain.StatusDangerous)
	require.NoError(t, err)
	assert.Equal(t, []int64{12}, opponentIDs(dangerous))

	all, err := e.stats.Opponents(e.ctx, sess, "")
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func opponentIDs(list []domain.OpponentStats) []int64 {
	out := make([]int64, 0, len(list))
	for _, o := range list {
		out = append(out, o.OpponentID)
	}
	return out
}

func TestStats_OpponentDetail(t *testing.T) {
	e := newEnv(t)
	seedPool(e)

	detail, err := e.stats.Opponent(e.ctx, e.session(), 13)
	require.NoError(t, err)
	assert.Equal(t, int64(3), detail.TotalFights)
	assert.Equal(t, 40, detail.Difficulty)
	assert.Equal(t, 3, detail.Trend.RecentFights)
	assert.Equal(t, stats.TrendStable, detail.Trend.Label)
	assert.Equal(t, []domain.Result{domain.ResultWin, domain.ResultLoss, domain.ResultWin}, detail.Trend.Results)

	_, err = e.stats.Opponent(e.ctx, e.session(), 99)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPreferredOpponents(t *testing.T) {
	e := newEnv(t)
	seedPool(e)
	candidates := []int64{12, 13, 99, 10, 14, 11, 15, 10}

	tests := []struct {
		strategy service.Strategy
		expected []int64
	}{
		{service.StrategyRandom, []int64{12, 13, 99, 10, 14, 11, 15}},
		{service.StrategySafe, []int64{10, 11, 99, 15}},
		{service.StrategySmart, []int64{10, 11, 99, 15, 13}},
		{service.StrategyAggressive, []int64{10, 11, 99, 15, 13, 14, 12}},
		{service.StrategyConfident, []int64{11}},
		// the last ten fights are a 50% run, so adaptive plays it smart
		{service.StrategyAdaptive, []int64{10, 11, 99, 15, 13}},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			got, err := e.stats.PreferredOpponents(e.ctx, e.session(), candidates, tt.strategy)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPreferredOpponents_AdaptiveOnStreaks(t *testing.T) {
	t.Run("winning streak accepts half the dangerous", func(t *testing.T) {
		e := newEnv(t)
		e.play(20, "LLL")
		e.play(21, "LLL")
		e.play(22, "WWWWWWWWWW")

		got, err := e.stats.PreferredOpponents(e.ctx, e.session(), []int64{20, 21, 22, 30}, service.StrategyAdaptive)
		require.NoError(t, err)
		assert.Equal(t, []int64{22, 30, 20}, got)
	})

	t.Run("losing streak keeps half the unknown", func(t *testing.T) {
		e := newEnv(t)
		e.play(20, "WWW")
		e.play(21, "LLLLLLLLLL")

		got, err := e.stats.PreferredOpponents(e.ctx, e.session(), []int64{30, 31, 20, 21}, service.StrategyAdaptive)
		require.NoError(t, err)
		assert.Equal(t, []int64{20, 30}, got)
	})

	t.Run("confident falls back without a sure opponent", func(t *testing.T) {
		e := newEnv(t)
		e.play(20, "WWW")

		got, err := e.stats.PreferredOpponents(e.ctx, e.session(), []int64{30, 20}, service.StrategyConfident)
		require.NoError(t, err)
		assert.Equal(t, []int64{20, 30}, got)
	})
}

func TestParseStrategy(t *testing.T) {
	s, err := service.ParseStrategy("aggressive")
	require.NoError(t, err)
	assert.Equal(t, service.StrategyAggressive, s)

	_, err = service.ParseStrategy("reckless")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestExportCSV(t *testing.T) {
	e := newEnv(t)
	e.play(9, "WL")
	e.play(10, "D")

	var buf bytes.Buffer
	n, err := e.stats.ExportCSV(e.ctx, e.session(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "fight_id,leek_id,opponent_id,opponent_name,opponent_level,result,duration,actions_count,operations_used,fight_url,timestamp", lines[0])
	assert.Equal(t, "1001,12345,9,Opp9,,WIN,,,,https://leekwars.com/fight/1001,2024-01-01T01:00:00", lines[1])
	assert.True(t, strings.HasPrefix(lines[3], "1003,12345,10,Opp10,,DRAW,"))
}
