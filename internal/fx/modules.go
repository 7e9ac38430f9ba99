package fx

import (
	"leekwars-tracker/internal/api"
	"leekwars-tracker/internal/config"
	"leekwars-tracker/internal/logger"
	"leekwars-tracker/internal/server"
	"leekwars-tracker/internal/service"

	"go.uber.org/fx"
)

// Module wires everything except the per-leek stores, which commands open
// through HistoryService.
var Module = fx.Options(
	logger.Module,
	config.Module,
	// api client
	fx.Provide(api.NewArenaClient),
	// svc
	fx.Provide(service.NewHistoryService),
	fx.Provide(service.NewIngestService),
	fx.Provide(service.NewMigrationService),
	fx.Provide(service.NewStatsService),
	fx.Provide(service.NewFetchService),
	// server
	fx.Provide(server.NewStatsServer),
	fx.Provide(server.NewRouter),
)
