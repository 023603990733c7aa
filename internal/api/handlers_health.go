// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"context"
	"net/http"
	"time"
)

// healthStatus is the health endpoint payload.
type healthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// Health handles GET /api/v1/health. Each registered component probe
// runs with a short timeout; any failure degrades the overall status
// but the endpoint itself stays 200 unless every component is down.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	status := healthStatus{Status: "ok", Components: make(map[string]string, len(h.checks))}
	failed := 0
	for name, check := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		if err := check(ctx); err != nil {
			status.Components[name] = "down: " + err.Error()
			failed++
		} else {
			status.Components[name] = "up"
		}
		cancel()
	}

	code := http.StatusOK
	switch {
	case failed == 0:
	case failed < len(h.checks):
		status.Status = "degraded"
	default:
		status.Status = "down"
		code = http.StatusServiceUnavailable
	}

	respondSuccess(w, r, code, status, started)
}

// HealthLive handles GET /api/v1/health/live, a trivial liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, healthStatus{Status: "ok"}, time.Now())
}
