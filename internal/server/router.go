package server

import (
	"leekwars-tracker/internal/config"
	"leekwars-tracker/internal/middleware"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func NewRouter(stats *StatsServer, cfg *config.Config, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID(logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1/leeks/{leekID}", func(r chi.Router) {
		r.Get("/stats", stats.withSession(stats.Global))
		r.Get("/fights/recent", stats.withSession(stats.Recent))
		r.Get("/opponents", stats.withSession(stats.Opponents))
		r.Get("/opponents/top", stats.withSession(stats.Top))
		r.Get("/opponents/best", stats.withSession(stats.Best))
		r.Get("/opponents/worst", stats.withSession(stats.Worst))
		r.Get("/opponents/{opponentID}", stats.withSession(stats.Opponent))
	})

	return r
}
