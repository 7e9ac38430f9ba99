package service

import (
	"context"
	"errors"
	"fmt"
	"leekwars-tracker/internal/arena"
	"leekwars-tracker/internal/constants"
	"leekwars-tracker/internal/domain"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type IngestService struct {
	history *HistoryService
	logger  zerolog.Logger
}

func NewIngestService(history *HistoryService, logger zerolog.Logger) *IngestService {
	return &IngestService{history: history, logger: logger}
}

// observedLeek is the freshest roster entry of the store's own leek.
type observedLeek struct {
	leek arena.Leek
	at   time.Time
}

func (o *observedLeek) observe(l arena.Leek, at time.Time) {
	if l.Name == "" || at.Before(o.at) {
		return
	}
	o.leek = l
	o.at = at
}

// IngestDirectory records every <fight_id>_data.json payload in dir. Corrupt
// payloads and rejected records are counted and skipped; a store failure
// aborts the batch. The summary is valid even when an error is returned.
func (s *IngestService) IngestDirectory(ctx context.Context, sess *Session, dir string) (domain.BatchSummary, error) {
	var summary domain.BatchSummary

	batchID, err := gonanoid.New(constants.BatchIDLength)
	if err != nil {
		return summary, fmt.Errorf("failed to generate batch id: %w", err)
	}
	logger := s.logger.With().
		Str("batch_id", batchID).
		Int64("leek_id", sess.LeekID()).
		Str("dir", dir).
		Logger()

	entries, n, err := arena.Scan(dir)
	if err != nil {
		logger.Error().Err(err).Msg("failed to scan payload directory")
		return summary, err
	}
	logger.Info().Int("payloads", n).Msg("ingesting fight payloads")

	var seen observedLeek
	for entry := range entries {
		if err := ctx.Err(); err != nil {
			logger.Warn().Interface("summary", summary).Msg("ingest interrupted")
			s.updateLeek(context.WithoutCancel(ctx), sess, seen, logger)
			return summary, fmt.Errorf("ingest interrupted after %d payloads: %w", summary.Total(), err)
		}

		p, err := entry.Load()
		if err != nil {
			summary.SkippedMalformed++
			logger.Warn().Err(err).Int64("fight_id", entry.FightID).Msg("skipping malformed payload")
			continue
		}
		if p.LogsErr != nil {
			logger.Warn().Err(p.LogsErr).Int64("fight_id", entry.FightID).Msg("ignoring unreadable fight logs")
		}

		outcome, err := s.record(ctx, sess, entry.FightID, p.Fight, p.Logs, p.ModTime, &seen)
		switch kind := domain.KindOf(err); {
		case err == nil && outcome == domain.RecordInserted:
			summary.Ingested++
		case err == nil:
			summary.SkippedAlreadyPresent++
		case kind == domain.KindCorrupt:
			summary.SkippedMalformed++
			logger.Warn().Err(err).Int64("fight_id", entry.FightID).Msg("skipping malformed payload")
		case kind == domain.KindValidation || kind == domain.KindIntegrity:
			summary.Errors++
			logger.Warn().Err(err).Int64("fight_id", entry.FightID).Msg("fight rejected")
		default:
			summary.Errors++
			logger.Error().Err(err).Int64("fight_id", entry.FightID).Interface("summary", summary).Msg("aborting batch")
			return summary, err
		}
	}

	s.updateLeek(ctx, sess, seen, logger)
	logger.Info().
		Int("ingested", summary.Ingested).
		Int("skipped_already_present", summary.SkippedAlreadyPresent).
		Int("skipped_malformed", summary.SkippedMalformed).
		Int("errors", summary.Errors).
		Msg("batch complete")
	return summary, nil
}

// IngestPayload records a single fight from in-memory bodies. logsBody may
// be nil. fallback stamps the fight when the payload carries no date.
func (s *IngestService) IngestPayload(ctx context.Context, sess *Session, fightID int64, dataBody, logsBody []byte, fallback time.Time) (domain.RecordOutcome, error) {
	fight, err := arena.DecodeFight(dataBody)
	if err != nil {
		return 0, fmt.Errorf("fight %d: %w", fightID, err)
	}
	var logs *arena.Logs
	if logsBody != nil {
		if logs, err = arena.DecodeLogs(logsBody); err != nil {
			s.logger.Warn().Err(err).Int64("fight_id", fightID).Msg("ignoring unreadable fight logs")
		}
	}

	var seen observedLeek
	outcome, err := s.record(ctx, sess, fightID, fight, logs, fallback, &seen)
	if err != nil {
		return 0, err
	}
	s.updateLeek(ctx, sess, seen, s.logger)
	return outcome, nil
}

func (s *IngestService) record(ctx context.Context, sess *Session, fightID int64, fight *arena.Fight, logs *arena.Logs, fallback time.Time, seen *observedLeek) (domain.RecordOutcome, error) {
	o, err := arena.Extract(fight, logs, sess.LeekID())
	if err != nil {
		return 0, fmt.Errorf("fight %d: %w", fightID, err)
	}
	rec := o.Record(fightID, sess.LeekID(), fallback)
	seen.observe(o.Leek, rec.Timestamp)
	return s.history.RecordFight(ctx, sess, rec)
}

func (s *IngestService) updateLeek(ctx context.Context, sess *Session, seen observedLeek, logger zerolog.Logger) {
	if seen.leek.Name == "" {
		return
	}
	current, err := sess.Leeks.Get(ctx, sess.LeekID())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn().Err(err).Msg("failed to read leek info")
		return
	}
	if current != nil && current.Name == seen.leek.Name && equalLevel(current.Level, seen.leek.Level) {
		return
	}
	if err := sess.Leeks.Upsert(ctx, &domain.LeekInfo{
		LeekID: sess.LeekID(),
		Name:   seen.leek.Name,
		Level:  seen.leek.Level,
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to update leek info")
	}
}

func equalLevel(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
