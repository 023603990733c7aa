// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package ingest accepts interaction events from the HTTP API and the
// NATS consumer, appends them to the event ledger, folds them into the
// per-user predictor statistics and schedules the debounced preference
// recompute.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/predict"
)

// EventStore is the ledger and stats persistence the service writes to.
type EventStore interface {
	AppendEvents(ctx context.Context, events []models.InteractionEvent) error
	UserStats(ctx context.Context, userID string) (*models.UserStats, error)
	PutUserStats(ctx context.Context, stats *models.UserStats) error
}

// RecomputeScheduler requests a debounced preference recompute.
type RecomputeScheduler interface {
	Schedule(userID string)
}

// IncomingEvent is the wire form of one interaction event as submitted
// by clients or published on the event subject.
type IncomingEvent struct {
	UserID     string    `json:"user_id" validate:"required,max=128"`
	ArticleID  string    `json:"article_id" validate:"required,max=128"`
	CategoryID string    `json:"category_id" validate:"required,max=128"`
	Type       string    `json:"type" validate:"required"`
	Title      string    `json:"title,omitempty" validate:"max=512"`
	Vector     []float32 `json:"vector,omitempty" validate:"max=1024"`
	DurationMS int64     `json:"duration_ms,omitempty" validate:"min=0"`
	OccurredAt time.Time `json:"occurred_at,omitempty"`
}

// RejectedEvent reports one event that failed validation, by its index
// in the submitted batch.
type RejectedEvent struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BatchResult summarizes one ingested batch.
type BatchResult struct {
	Accepted int             `json:"accepted"`
	Rejected []RejectedEvent `json:"rejected,omitempty"`
}

// Service validates and persists interaction batches. Valid events are
// accepted even when the same batch carries invalid ones.
type Service struct {
	store     EventStore
	scheduler RecomputeScheduler
	validate  *validator.Validate
	logger    zerolog.Logger

	// statsMu serializes read-modify-write cycles on per-user stats.
	statsMu sync.Mutex
}

// NewService creates an ingestion service. scheduler may be nil, in
// which case recomputes are left to the lazy path.
func NewService(store EventStore, scheduler RecomputeScheduler, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		scheduler: scheduler,
		validate:  validator.New(),
		logger:    logger.With().Str("component", "ingest").Logger(),
	}
}

// HandleBatch validates, persists and accounts one batch of events.
// transport labels the ingest path ("http" or "nats") for metrics.
func (s *Service) HandleBatch(ctx context.Context, batch []IncomingEvent, transport string) (*BatchResult, error) {
	if len(batch) == 0 {
		return &BatchResult{}, nil
	}
	metrics.IngestBatchSize.Observe(float64(len(batch)))

	result := &BatchResult{}
	accepted := make([]models.InteractionEvent, 0, len(batch))
	for i := range batch {
		event, err := s.convert(&batch[i])
		if err != nil {
			metrics.EventsRejected.WithLabelValues(rejectReason(err)).Inc()
			result.Rejected = append(result.Rejected, RejectedEvent{Index: i, Reason: err.Error()})
			continue
		}
		accepted = append(accepted, event)
	}
	if len(accepted) == 0 {
		return result, nil
	}

	if err := s.store.AppendEvents(ctx, accepted); err != nil {
		return nil, fmt.Errorf("append events: %w", err)
	}
	result.Accepted = len(accepted)

	byUser := make(map[string][]models.InteractionEvent)
	for _, e := range accepted {
		byUser[e.UserID] = append(byUser[e.UserID], e)
		metrics.EventsIngested.WithLabelValues(e.Type.String(), transport).Inc()
	}
	for userID, events := range byUser {
		if err := s.updateStats(ctx, userID, events); err != nil {
			// Stats are advisory: the ledger already holds the events
			// and the next successful batch repairs the counters drift.
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("stats update failed")
		}
		if s.scheduler != nil {
			s.scheduler.Schedule(userID)
		}
	}
	return result, nil
}

func (s *Service) convert(in *IncomingEvent) (models.InteractionEvent, error) {
	if err := s.validate.Struct(in); err != nil {
		return models.InteractionEvent{}, fmt.Errorf("validate: %w", err)
	}
	typ, err := models.ParseInteractionType(in.Type)
	if err != nil {
		return models.InteractionEvent{}, err
	}
	event, err := models.NewInteractionEvent(in.UserID, in.ArticleID, in.CategoryID, typ,
		time.Duration(in.DurationMS)*time.Millisecond, in.OccurredAt)
	if err != nil {
		return models.InteractionEvent{}, err
	}
	event.ID = uuid.New().String()
	event.Title = in.Title
	event.Vector = in.Vector
	return event, nil
}

func (s *Service) updateStats(ctx context.Context, userID string, events []models.InteractionEvent) error {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	stats, err := s.store.UserStats(ctx, userID)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	predict.UpdateStats(stats, events)
	if err := s.store.PutUserStats(ctx, stats); err != nil {
		return fmt.Errorf("store stats: %w", err)
	}
	return nil
}

func rejectReason(err error) string {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		return "validation"
	}
	return "malformed"
}
