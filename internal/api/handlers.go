// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package api provides the chi-based HTTP surface: feed retrieval,
// preference inspection, interaction ingestion, runtime config and
// health.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/feed"
	"github.com/tomtom215/folio/internal/ingest"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/storage"
)

// FeedProvider serves assembled feed pages.
type FeedProvider interface {
	GetFeed(ctx context.Context, userID string, limit, offset int) (*feed.Page, error)
	Config() config.FeedConfig
	UpdateConfig(cfg config.FeedConfig)
}

// PreferenceReader exposes a user's stored preference profile.
type PreferenceReader interface {
	Preferences(ctx context.Context, userID string) ([]models.UserCategoryPreference, error)
	PreferenceMetadata(ctx context.Context, userID string) (*storage.PreferenceMeta, error)
}

// Ingestor accepts interaction batches.
type Ingestor interface {
	HandleBatch(ctx context.Context, batch []ingest.IncomingEvent, transport string) (*ingest.BatchResult, error)
}

// HealthChecker reports one component's availability.
type HealthChecker func(ctx context.Context) error

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	feed     FeedProvider
	prefs    PreferenceReader
	ingestor Ingestor
	cfg      *config.Config
	checks   map[string]HealthChecker

	requestTimeout time.Duration
	maxBatchSize   int
}

// NewHandler creates the API handler set. checks maps component names
// to health probes and may be nil.
func NewHandler(feedEngine FeedProvider, prefs PreferenceReader, ingestor Ingestor, cfg *config.Config, checks map[string]HealthChecker) *Handler {
	return &Handler{
		feed:           feedEngine,
		prefs:          prefs,
		ingestor:       ingestor,
		cfg:            cfg,
		checks:         checks,
		requestTimeout: 10 * time.Second,
		maxBatchSize:   1000,
	}
}

// GetFeed handles GET /api/v1/users/{userID}/feed.
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, r, http.StatusBadRequest, "INVALID_USER_ID", "User ID is required", nil)
		return
	}

	limit, err := queryInt(r, "limit", h.feed.Config().DefaultLimit)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_LIMIT", "Limit must be an integer", err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_OFFSET", "Offset must be an integer", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	page, err := h.feed.GetFeed(ctx, userID, limit, offset)
	switch {
	case errors.Is(err, feed.ErrInvalidLimit):
		respondError(w, r, http.StatusBadRequest, "INVALID_LIMIT", "Limit out of range", err)
		return
	case errors.Is(err, feed.ErrInvalidOffset):
		respondError(w, r, http.StatusBadRequest, "INVALID_OFFSET", "Offset out of range", err)
		return
	case errors.Is(err, feed.ErrNoContent):
		respondError(w, r, http.StatusNotFound, "NO_CONTENT", "No articles available", nil)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, "FEED_ERROR", "Failed to assemble feed", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, page, started)
}

// preferenceProfile is the GET preferences payload.
type preferenceProfile struct {
	UserID      string                          `json:"user_id"`
	ComputedAt  *time.Time                      `json:"computed_at,omitempty"`
	Preferences []models.UserCategoryPreference `json:"preferences"`
}

// GetPreferences handles GET /api/v1/users/{userID}/preferences.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, r, http.StatusBadRequest, "INVALID_USER_ID", "User ID is required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	prefs, err := h.prefs.Preferences(ctx, userID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "PREFERENCES_ERROR", "Failed to load preferences", err)
		return
	}

	profile := preferenceProfile{UserID: userID, Preferences: prefs}
	if meta, err := h.prefs.PreferenceMetadata(ctx, userID); err == nil {
		profile.ComputedAt = &meta.ComputedAt
	} else if !errors.Is(err, storage.ErrNotFound) {
		respondError(w, r, http.StatusInternalServerError, "PREFERENCES_ERROR", "Failed to load preference metadata", err)
		return
	}
	if profile.Preferences == nil {
		profile.Preferences = []models.UserCategoryPreference{}
	}

	respondSuccess(w, r, http.StatusOK, profile, started)
}

// PostInteractions handles POST /api/v1/interactions. The body is a
// JSON array of events; valid events in a partially invalid batch are
// still accepted.
func (h *Handler) PostInteractions(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var batch []ingest.IncomingEvent
	if err := decodeJSONBody(r, &batch); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_BODY", "Body must be a JSON array of interaction events", err)
		return
	}
	if len(batch) > h.maxBatchSize {
		respondError(w, r, http.StatusRequestEntityTooLarge, "BATCH_TOO_LARGE", "Too many events in one batch", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	result, err := h.ingestor.HandleBatch(ctx, batch, "http")
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "INGEST_ERROR", "Failed to persist events", err)
		return
	}

	status := http.StatusAccepted
	if result.Accepted == 0 && len(result.Rejected) > 0 {
		status = http.StatusBadRequest
	}
	respondSuccess(w, r, status, result, started)
}
