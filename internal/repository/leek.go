package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"leekwars-tracker/internal/db"
	"leekwars-tracker/internal/domain"
	"time"

	"github.com/rs/zerolog"
)

type LeekRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewLeekRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *LeekRepository {
	return &LeekRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *LeekRepository) Get(ctx context.Context, leekID int64) (*domain.LeekInfo, error) {
	row, err := r.queries.GetLeek(ctx, leekID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("leek %d: %w", leekID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leek %d: %w", leekID, err)
	}

	leek := &domain.LeekInfo{
		LeekID: row.LeekID,
		Name:   row.LeekName,
		Level:  row.LeekLevel,
	}
	if updated, err := parseTimePtr(row.LastUpdated); err == nil && updated != nil {
		leek.LastUpdated = *updated
	}
	return leek, nil
}

// Upsert records the leek's observed name and level.
func (r *LeekRepository) Upsert(ctx context.Context, leek *domain.LeekInfo) error {
	updated := leek.LastUpdated
	if updated.IsZero() {
		updated = time.Now()
	}
	stamp := domain.FormatTimestamp(updated)

	r.logger.Debug().
		Int64("leek_id", leek.LeekID).
		Str("name", leek.Name).
		Msg("upserting leek")

	if err := r.queries.UpsertLeek(ctx, db.UpsertLeekParams{
		LeekID:      leek.LeekID,
		LeekName:    leek.Name,
		LeekLevel:   leek.Level,
		LastUpdated: &stamp,
	}); err != nil {
		return fmt.Errorf("failed to upsert leek %d: %w: %w", leek.LeekID, domain.ErrIO, err)
	}
	return nil
}
