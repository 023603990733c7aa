// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/feed"
	"github.com/tomtom215/folio/internal/ingest"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/storage"
)

type stubFeed struct {
	page *feed.Page
	err  error
	cfg  config.FeedConfig

	updated *config.FeedConfig
}

func (s *stubFeed) GetFeed(_ context.Context, _ string, _, _ int) (*feed.Page, error) {
	return s.page, s.err
}

func (s *stubFeed) Config() config.FeedConfig {
	return s.cfg
}

func (s *stubFeed) UpdateConfig(cfg config.FeedConfig) {
	s.updated = &cfg
}

type stubPrefs struct {
	prefs []models.UserCategoryPreference
	meta  *storage.PreferenceMeta
}

func (s *stubPrefs) Preferences(context.Context, string) ([]models.UserCategoryPreference, error) {
	return s.prefs, nil
}

func (s *stubPrefs) PreferenceMetadata(context.Context, string) (*storage.PreferenceMeta, error) {
	if s.meta == nil {
		return nil, storage.ErrNotFound
	}
	return s.meta, nil
}

type stubIngestor struct {
	result *ingest.BatchResult
	err    error
	got    []ingest.IncomingEvent
}

func (s *stubIngestor) HandleBatch(_ context.Context, batch []ingest.IncomingEvent, _ string) (*ingest.BatchResult, error) {
	s.got = batch
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &ingest.BatchResult{Accepted: len(batch)}, nil
}

func newTestRouter(f *stubFeed, p *stubPrefs, i *stubIngestor) http.Handler {
	cfg := config.Default()
	if f.cfg.MaxLimit == 0 {
		f.cfg = cfg.Feed
	}
	h := NewHandler(f, p, i, cfg, map[string]HealthChecker{
		"store": func(context.Context) error { return nil },
	})
	return NewRouter(h, cfg.Server)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	return resp
}

func TestGetFeedEndpoint(t *testing.T) {
	t.Parallel()

	item := models.ArticleCandidate{ArticleRef: models.ArticleRef{ID: "a1", CategoryID: "football"}}
	item.Tag(models.SourceExploitation)
	f := &stubFeed{page: &feed.Page{Items: []models.ArticleCandidate{item}, Total: 1, Generated: time.Now()}}
	router := newTestRouter(f, &stubPrefs{}, &stubIngestor{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/u1/feed?limit=10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	if resp.Status != "success" {
		t.Errorf("status = %q, want success", resp.Status)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestGetFeedEndpointErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		feedErr  error
		target   string
		wantCode int
		wantErr  string
	}{
		{"invalid limit", feed.ErrInvalidLimit, "/api/v1/users/u1/feed", http.StatusBadRequest, "INVALID_LIMIT"},
		{"invalid offset", feed.ErrInvalidOffset, "/api/v1/users/u1/feed", http.StatusBadRequest, "INVALID_OFFSET"},
		{"no content", feed.ErrNoContent, "/api/v1/users/u1/feed", http.StatusNotFound, "NO_CONTENT"},
		{"malformed limit param", nil, "/api/v1/users/u1/feed?limit=abc", http.StatusBadRequest, "INVALID_LIMIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := newTestRouter(&stubFeed{err: tt.feedErr}, &stubPrefs{}, &stubIngestor{})
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			resp := decodeEnvelope(t, rec)
			if resp.Error == nil || resp.Error.Code != tt.wantErr {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantErr)
			}
		})
	}
}

func TestGetPreferencesEndpoint(t *testing.T) {
	t.Parallel()

	now := time.Now()
	p := &stubPrefs{
		prefs: []models.UserCategoryPreference{
			{UserID: "u1", CategoryID: "football", Score: 0.7},
		},
		meta: &storage.PreferenceMeta{UserID: "u1", ComputedAt: now, Categories: 1},
	}
	router := newTestRouter(&stubFeed{}, p, &stubIngestor{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/u1/preferences", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	data, _ := json.Marshal(resp.Data)
	var profile preferenceProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if len(profile.Preferences) != 1 || profile.Preferences[0].CategoryID != "football" {
		t.Errorf("profile = %+v", profile)
	}
	if profile.ComputedAt == nil {
		t.Error("expected computed_at from metadata")
	}
}

func TestGetPreferencesEmptyProfile(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubFeed{}, &stubPrefs{}, &stubIngestor{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/nobody/preferences", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for unknown user", rec.Code)
	}
}

func TestPostInteractionsEndpoint(t *testing.T) {
	t.Parallel()

	ing := &stubIngestor{}
	router := newTestRouter(&stubFeed{}, &stubPrefs{}, ing)

	body, _ := json.Marshal([]ingest.IncomingEvent{
		{UserID: "u1", ArticleID: "a1", CategoryID: "football", Type: "click"},
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/interactions", bytes.NewReader(body)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
	}
	if len(ing.got) != 1 {
		t.Errorf("ingestor received %d events, want 1", len(ing.got))
	}
}

func TestPostInteractionsMalformedBody(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubFeed{}, &stubPrefs{}, &stubIngestor{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/interactions", bytes.NewReader([]byte("nope"))))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPostInteractionsAllRejected(t *testing.T) {
	t.Parallel()

	ing := &stubIngestor{result: &ingest.BatchResult{Rejected: []ingest.RejectedEvent{{Index: 0, Reason: "bad"}}}}
	router := newTestRouter(&stubFeed{}, &stubPrefs{}, ing)

	body, _ := json.Marshal([]ingest.IncomingEvent{{UserID: "u1"}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/interactions", bytes.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 when every event is rejected", rec.Code)
	}
}

func TestPutFeedConfigEndpoint(t *testing.T) {
	t.Parallel()

	f := &stubFeed{cfg: config.Default().Feed}
	router := newTestRouter(f, &stubPrefs{}, &stubIngestor{})

	update := f.cfg
	update.DefaultLimit = 30
	body, _ := json.Marshal(update)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/config/feed", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if f.updated == nil || f.updated.DefaultLimit != 30 {
		t.Errorf("engine config not updated: %+v", f.updated)
	}
}

func TestPutFeedConfigRejectsInvalid(t *testing.T) {
	t.Parallel()

	f := &stubFeed{cfg: config.Default().Feed}
	router := newTestRouter(f, &stubPrefs{}, &stubIngestor{})

	update := f.cfg
	update.Assembly.ExploitRatio = 3.0
	body, _ := json.Marshal(update)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/config/feed", bytes.NewReader(body)))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if f.updated != nil {
		t.Error("invalid config must not reach the engine")
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubFeed{}, &stubPrefs{}, &stubIngestor{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubFeed{}, &stubPrefs{}, &stubIngestor{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
