// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/models"
)

func respond(t *testing.T, w http.ResponseWriter, data interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": data}); err != nil {
		t.Errorf("encoding response: %v", err)
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.ContentConfig{
		BaseURL:            srv.URL,
		Timeout:            2 * time.Second,
		BreakerMaxFailures: 100,
		BreakerCooldown:    time.Minute,
	}, zerolog.Nop())
}

func TestArticlesByCategories(t *testing.T) {
	t.Parallel()

	var gotQuery string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/articles" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("categories")
		respond(t, w, []models.ArticleRef{
			{ID: "a1", CategoryID: "football", Title: "Match report"},
		})
	}))

	refs, err := client.ArticlesByCategories(context.Background(), []string{"football", "tennis"}, time.Now().Add(-72*time.Hour), 50)
	if err != nil {
		t.Fatalf("ArticlesByCategories() error: %v", err)
	}
	if len(refs) != 1 || refs[0].ID != "a1" {
		t.Errorf("unexpected refs: %v", refs)
	}
	if gotQuery != "football,tennis" {
		t.Errorf("categories param = %q, want %q", gotQuery, "football,tennis")
	}
}

func TestSimilarArticlesSendsVector(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/articles/similar" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req similarRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if len(req.Vector) != 3 || req.Limit != 10 {
			t.Errorf("unexpected request body: %+v", req)
		}
		respond(t, w, []models.ArticleRef{{ID: "sim1", Similarity: 0.91}})
	}))

	refs, err := client.SimilarArticles(context.Background(), []float32{0.1, 0.2, 0.3}, nil, 10)
	if err != nil {
		t.Fatalf("SimilarArticles() error: %v", err)
	}
	if len(refs) != 1 || refs[0].Similarity != 0.91 {
		t.Errorf("unexpected refs: %v", refs)
	}
}

func TestCategories(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, []models.CategoryNode{
			{ID: "sports", Level: 1},
			{ID: "football", ParentID: "sports", Level: 2},
		})
	}))

	nodes, err := client.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories() error: %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("got %d nodes, want 2", len(nodes))
	}
}

func TestUpstreamErrorSurfaces(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	if _, err := client.Trending(context.Background(), 10); err == nil {
		t.Error("expected error from 500 response")
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.ContentConfig{
		BaseURL:            srv.URL,
		Timeout:            time.Second,
		BreakerMaxFailures: 2,
		BreakerCooldown:    time.Minute,
	}, zerolog.Nop())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = client.Trending(ctx, 10)
	}

	_, err := client.Trending(ctx, 10)
	if err == nil || !isBreakerError(err) {
		t.Errorf("expected breaker-open rejection, got %v", err)
	}
}
