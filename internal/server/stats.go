package server

import (
	"encoding/json"
	"leekwars-tracker/internal/constants"
	"leekwars-tracker/internal/domain"
	"leekwars-tracker/internal/middleware"
	"leekwars-tracker/internal/service"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// StatsServer serves the read-only query surface of every leek store in the
// data directory. Each request opens the store without the writer lock.
type StatsServer struct {
	history *service.HistoryService
	stats   *service.StatsService
	logger  zerolog.Logger
}

func NewStatsServer(history *service.HistoryService, stats *service.StatsService, logger zerolog.Logger) *StatsServer {
	return &StatsServer{history: history, stats: stats, logger: logger}
}

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *StatsServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindValidation:
		status = http.StatusBadRequest
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		Kind:      string(kind),
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &paramError{name: name}
	}
	return id, nil
}

type paramError struct {
	name string
}

func (e *paramError) Error() string {
	return "invalid " + e.name
}

func (e *paramError) Unwrap() error {
	return domain.ErrValidation
}

func queryInt(r *http.Request, name string, fallback int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, &paramError{name: name}
	}
	return v, nil
}

func queryFloat(r *http.Request, name string, fallback float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 1 {
		return 0, &paramError{name: name}
	}
	return v, nil
}

// withSession opens the store of the {leekID} in the path for the duration
// of fn and writes whatever fn returns.
func (s *StatsServer) withSession(fn func(r *http.Request, sess *service.Session) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leekID, err := pathID(r, "leekID")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		sess, err := s.history.OpenForRead(r.Context(), leekID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		defer sess.Close()

		resp, err := fn(r, sess)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *StatsServer) Global(r *http.Request, sess *service.Session) (any, error) {
	return s.stats.Global(r.Context(), sess)
}

func (s *StatsServer) Recent(r *http.Request, sess *service.Session) (any, error) {
	limit, err := queryInt(r, "limit", constants.DefaultRecentLimit)
	if err != nil {
		return nil, err
	}
	return s.stats.RecentFights(r.Context(), sess, int(limit))
}

func (s *StatsServer) Top(r *http.Request, sess *service.Session) (any, error) {
	limit, err := queryInt(r, "limit", constants.DefaultTopLimit)
	if err != nil {
		return nil, err
	}
	return s.stats.TopOpponents(r.Context(), sess, int(limit))
}

func (s *StatsServer) Best(r *http.Request, sess *service.Session) (any, error) {
	minFights, err := queryInt(r, "min_fights", constants.DefaultBestMinFights)
	if err != nil {
		return nil, err
	}
	minWinRate, err := queryFloat(r, "min_win_rate", constants.DefaultBestMinWinRate)
	if err != nil {
		return nil, err
	}
	return s.stats.BestMatchups(r.Context(), sess, minFights, minWinRate)
}

func (s *StatsServer) Worst(r *http.Request, sess *service.Session) (any, error) {
	minFights, err := queryInt(r, "min_fights", constants.DefaultWorstMinFights)
	if err != nil {
		return nil, err
	}
	maxWinRate, err := queryFloat(r, "max_win_rate", constants.DefaultWorstMaxWinRate)
	if err != nil {
		return nil, err
	}
	return s.stats.WorstMatchups(r.Context(), sess, minFights, maxWinRate)
}

func (s *StatsServer) Opponents(r *http.Request, sess *service.Session) (any, error) {
	var status domain.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		var err error
		if status, err = domain.ParseStatus(raw); err != nil {
			return nil, err
		}
	}
	return s.stats.Opponents(r.Context(), sess, status)
}

func (s *StatsServer) Opponent(r *http.Request, sess *service.Session) (any, error) {
	opponentID, err := pathID(r, "opponentID")
	if err != nil {
		return nil, err
	}
	return s.stats.Opponent(r.Context(), sess, opponentID)
}
