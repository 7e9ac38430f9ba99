package repository

import (
	"leekwars-tracker/internal/database"

	"github.com/rs/zerolog"
)

// Repositories groups the repositories bound to one open store.
type Repositories struct {
	Leeks     *LeekRepository
	Fights    *FightRepository
	Opponents *OpponentStatsRepository
}

func ForStore(store *database.Store, logger zerolog.Logger) *Repositories {
	logger = logger.With().Int64("leek_id", store.LeekID).Logger()
	return &Repositories{
		Leeks:     NewLeekRepository(store.DB, store.Queries, logger),
		Fights:    NewFightRepository(store.DB, store.Queries, logger),
		Opponents: NewOpponentStatsRepository(store.DB, store.Queries, logger),
	}
}
