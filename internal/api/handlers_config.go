// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/folio/internal/logging"
)

// maxBodyBytes bounds request bodies; interaction vectors dominate.
const maxBodyBytes = 4 << 20

func decodeJSONBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// GetConfig handles GET /api/v1/config. Secrets never live in the
// config struct, so the whole tree is safe to expose to operators.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	snapshot := *h.cfg
	snapshot.Feed = h.feed.Config()

	respondSuccess(w, r, http.StatusOK, snapshot, started)
}

// PutFeedConfig handles PUT /api/v1/config/feed: it retunes the live
// feed engine. The update is validated inside a full config so cross-
// section invariants still hold, and is not persisted across restarts.
func (h *Handler) PutFeedConfig(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	updated := h.feed.Config()
	if err := decodeJSONBody(r, &updated); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_BODY", "Body must be a feed config object", err)
		return
	}

	candidate := *h.cfg
	candidate.Feed = updated
	if err := candidate.Validate(); err != nil {
		respondError(w, r, http.StatusUnprocessableEntity, "INVALID_CONFIG", "Feed config failed validation", err)
		return
	}

	h.feed.UpdateConfig(updated)
	logging.Ctx(r.Context()).Info().Msg("feed config updated at runtime")

	respondSuccess(w, r, http.StatusOK, updated, started)
}
