package server_test

import (
	"context"
	"encoding/json"
	"leekwars-tracker/internal/config"
	"leekwars-tracker/internal/domain"
	"leekwars-tracker/internal/server"
	"leekwars-tracker/internal/service"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leekID = 12345

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zerolog.Nop()
	cfg := &config.Config{DataDir: t.TempDir(), CORSOrigins: []string{"*"}}
	history := service.NewHistoryService(cfg, logger)

	ctx := context.Background()
	sess, err := history.Open(ctx, leekID)
	require.NoError(t, err)
	defer sess.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	results := []domain.Result{domain.ResultWin, domain.ResultWin, domain.ResultWin, domain.ResultLoss}
	for i, result := range results {
		_, err := history.RecordFight(ctx, sess, &domain.FightRecord{
			FightID:      int64(100 + i),
			OpponentID:   9,
			OpponentName: "Rex",
			Result:       result,
			Timestamp:    base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	stats := server.NewStatsServer(history, service.NewStatsService(logger), logger)
	return server.NewRouter(stats, cfg, logger)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_Stats(t *testing.T) {
	h := newRouter(t)

	rec := get(t, h, "/api/v1/leeks/12345/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var global domain.GlobalStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &global))
	assert.Equal(t, int64(4), global.TotalFights)
	assert.Equal(t, int64(3), global.Wins)
	assert.Equal(t, int64(1), global.OpponentsTracked)
	assert.Equal(t, int64(1), global.Beatable)
}

func TestRouter_Fights(t *testing.T) {
	h := newRouter(t)

	rec := get(t, h, "/api/v1/leeks/12345/fights/recent?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var fights []struct {
		FightID int64  `json:"fight_id"`
		Result  string `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fights))
	require.Len(t, fights, 2)
	assert.Equal(t, int64(103), fights[0].FightID)
	assert.Equal(t, "LOSS", fights[0].Result)
}

func TestRouter_Opponent(t *testing.T) {
	h := newRouter(t)

	rec := get(t, h, "/api/v1/leeks/12345/opponents/9")
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		OpponentID int64   `json:"opponent_id"`
		Status     string  `json:"status"`
		WinRate    float64 `json:"win_rate"`
		Difficulty int     `json:"difficulty"`
		Trend      struct {
			Label string `json:"label"`
		} `json:"trend"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, int64(9), detail.OpponentID)
	assert.Equal(t, "beatable", detail.Status)
	assert.InDelta(t, 0.75, detail.WinRate, 1e-9)
	assert.Equal(t, 30, detail.Difficulty)
	assert.Equal(t, "stable", detail.Trend.Label)

	rec = get(t, h, "/api/v1/leeks/12345/opponents?status=beatable")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"opponent_id":9`)
}

func TestRouter_Errors(t *testing.T) {
	h := newRouter(t)

	tests := []struct {
		path   string
		status int
		kind   string
	}{
		{"/api/v1/leeks/777/stats", http.StatusNotFound, "not_found"},
		{"/api/v1/leeks/abc/stats", http.StatusBadRequest, "validation"},
		{"/api/v1/leeks/12345/opponents/99", http.StatusNotFound, "not_found"},
		{"/api/v1/leeks/12345/opponents?status=scary", http.StatusBadRequest, "validation"},
		{"/api/v1/leeks/12345/opponents/best?min_win_rate=2", http.StatusBadRequest, "validation"},
		{"/api/v1/leeks/12345/fights/recent?limit=-1", http.StatusBadRequest, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path)
			assert.Equal(t, tt.status, rec.Code)

			var body struct {
				Error     string `json:"error"`
				Kind      string `json:"kind"`
				RequestID string `json:"request_id"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.kind, body.Kind)
			assert.NotEmpty(t, body.Error)
			assert.NotEmpty(t, body.RequestID)
			assert.Equal(t, rec.Header().Get("X-Request-ID"), body.RequestID)
		})
	}
}

func TestRouter_Health(t *testing.T) {
	rec := get(t, newRouter(t), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
