// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(config.StorageConfig{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing store: %v", err)
		}
	})
	return s
}

func testEvent(userID, articleID string, typ models.InteractionType, at time.Time) models.InteractionEvent {
	return models.InteractionEvent{
		ID:         articleID + "-" + typ.String(),
		UserID:     userID,
		ArticleID:  articleID,
		CategoryID: "football",
		Title:      "Test article",
		Type:       typ,
		OccurredAt: at,
	}
}

func TestAppendAndReadEvents(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	events := []models.InteractionEvent{
		testEvent("u1", "a1", models.InteractionView, now.Add(-2*time.Hour)),
		testEvent("u1", "a2", models.InteractionClick, now.Add(-time.Hour)),
		testEvent("u2", "a3", models.InteractionView, now),
	}
	if err := s.AppendEvents(ctx, events); err != nil {
		t.Fatalf("AppendEvents() error: %v", err)
	}

	got, err := s.EventsSince(ctx, "u1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("EventsSince() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("EventsSince(u1) returned %d events, want 2", len(got))
	}
	// Chronological order.
	if !got[0].OccurredAt.Before(got[1].OccurredAt) {
		t.Error("events not in chronological order")
	}

	// Window boundary excludes older events.
	recent, err := s.EventsSince(ctx, "u1", now.Add(-90*time.Minute))
	if err != nil {
		t.Fatalf("EventsSince() error: %v", err)
	}
	if len(recent) != 1 || recent[0].ArticleID != "a2" {
		t.Errorf("windowed query returned %v, want only a2", recent)
	}
}

func TestClickedAndImpressionPools(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	events := []models.InteractionEvent{
		testEvent("u1", "a1", models.InteractionImpression, now.Add(-3*time.Hour)),
		testEvent("u1", "a2", models.InteractionImpression, now.Add(-2*time.Hour)),
		testEvent("u1", "a2", models.InteractionClick, now.Add(-time.Hour)),
	}
	if err := s.AppendEvents(ctx, events); err != nil {
		t.Fatalf("AppendEvents() error: %v", err)
	}

	clicked, err := s.ClickedArticleIDs(ctx, "u1")
	if err != nil {
		t.Fatalf("ClickedArticleIDs() error: %v", err)
	}
	if _, ok := clicked["a2"]; !ok {
		t.Error("a2 should be marked clicked")
	}
	if _, ok := clicked["a1"]; ok {
		t.Error("a1 was never clicked")
	}

	// The clicked article leaves the unclicked-impression pool.
	refs, err := s.UnclickedImpressions(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("UnclickedImpressions() error: %v", err)
	}
	if len(refs) != 1 || refs[0].ID != "a1" {
		t.Errorf("UnclickedImpressions() = %v, want only a1", refs)
	}
}

func TestImpressionAfterClickIgnored(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := []models.InteractionEvent{
		testEvent("u1", "a1", models.InteractionClick, now.Add(-time.Hour)),
	}
	if err := s.AppendEvents(ctx, first); err != nil {
		t.Fatalf("AppendEvents() error: %v", err)
	}
	second := []models.InteractionEvent{
		testEvent("u1", "a1", models.InteractionImpression, now),
	}
	if err := s.AppendEvents(ctx, second); err != nil {
		t.Fatalf("AppendEvents() error: %v", err)
	}

	refs, err := s.UnclickedImpressions(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("UnclickedImpressions() error: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("clicked article re-entered impression pool: %v", refs)
	}
}

func TestReplacePreferences(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	initial := []models.UserCategoryPreference{
		{UserID: "u1", CategoryID: "football", Score: 0.7},
		{UserID: "u1", CategoryID: "tennis", Score: 0.3},
	}
	if err := s.ReplacePreferences(ctx, "u1", initial); err != nil {
		t.Fatalf("ReplacePreferences() error: %v", err)
	}

	// A recompute where tennis decayed away entirely.
	replacement := []models.UserCategoryPreference{
		{UserID: "u1", CategoryID: "football", Score: 1.0},
	}
	if err := s.ReplacePreferences(ctx, "u1", replacement); err != nil {
		t.Fatalf("ReplacePreferences() error: %v", err)
	}

	prefs, err := s.Preferences(ctx, "u1")
	if err != nil {
		t.Fatalf("Preferences() error: %v", err)
	}
	if len(prefs) != 1 || prefs[0].CategoryID != "football" {
		t.Errorf("stale preference rows survived replacement: %v", prefs)
	}

	meta, err := s.PreferenceMetadata(ctx, "u1")
	if err != nil {
		t.Fatalf("PreferenceMetadata() error: %v", err)
	}
	if meta.Categories != 1 {
		t.Errorf("meta.Categories = %d, want 1", meta.Categories)
	}
}

func TestPreferenceMetadataNotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	_, err := s.PreferenceMetadata(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("PreferenceMetadata() error = %v, want ErrNotFound", err)
	}
}

func TestUserStatsRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	// Unknown user gets empty stats.
	stats, err := s.UserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("UserStats() error: %v", err)
	}
	if stats.LifetimeInteractions != 0 {
		t.Errorf("fresh stats LifetimeInteractions = %d, want 0", stats.LifetimeInteractions)
	}

	stats.LifetimeInteractions = 42
	stats.TriggerStats["urgency"] = models.TraitStats{Impressions: 10, Clicks: 3}
	stats.AddProfileVector([]float32{1, 2, 3})
	stats.AddProfileVector([]float32{3, 2, 1})
	if err := s.PutUserStats(ctx, stats); err != nil {
		t.Fatalf("PutUserStats() error: %v", err)
	}

	loaded, err := s.UserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("UserStats() reload error: %v", err)
	}
	if loaded.LifetimeInteractions != 42 {
		t.Errorf("LifetimeInteractions = %d, want 42", loaded.LifetimeInteractions)
	}
	if got := loaded.TriggerStats["urgency"].CTR(); got != 0.3 {
		t.Errorf("urgency CTR = %f, want 0.3", got)
	}
	vec := loaded.Vector()
	if len(vec) != 3 || vec[0] != 2 || vec[1] != 2 || vec[2] != 2 {
		t.Errorf("profile vector = %v, want [2 2 2]", vec)
	}
}
