// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package preference

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/taxonomy"
)

func testTree() *taxonomy.Tree {
	return taxonomy.Build([]models.CategoryNode{
		{ID: "sports", Level: 1, Name: "Sports"},
		{ID: "football", ParentID: "sports", Level: 2, Name: "Football"},
		{ID: "premier-league", ParentID: "football", Level: 3, Name: "Premier League"},
		{ID: "championship", ParentID: "football", Level: 3, Name: "Championship"},
		{ID: "tennis", ParentID: "sports", Level: 2, Name: "Tennis"},
		{ID: "tech", Level: 1, Name: "Technology"},
		{ID: "ai", ParentID: "tech", Level: 2, Name: "AI"},
	})
}

func testCfg() config.PreferenceConfig {
	return config.Default().Preference
}

func event(cat string, typ models.InteractionType, daysAgo float64, now time.Time) models.InteractionEvent {
	return models.InteractionEvent{
		ID:         "e",
		UserID:     "u1",
		ArticleID:  "a",
		CategoryID: cat,
		Type:       typ,
		OccurredAt: now.Add(-time.Duration(daysAgo * 24 * float64(time.Hour))),
	}
}

func scoreOf(prefs []models.UserCategoryPreference, cat string) (models.UserCategoryPreference, bool) {
	for _, p := range prefs {
		if p.CategoryID == cat {
			return p, true
		}
	}
	return models.UserCategoryPreference{}, false
}

func TestComputeDirectScoresSumToOne(t *testing.T) {
	t.Parallel()

	now := time.Now()
	events := []models.InteractionEvent{
		event("premier-league", models.InteractionClick, 1, now),
		event("championship", models.InteractionView, 3, now),
		event("tennis", models.InteractionLike, 10, now),
		event("ai", models.InteractionShare, 30, now),
	}

	prefs := Compute(events, testTree(), testCfg(), now, zerolog.Nop())

	var directSum float64
	for _, p := range prefs {
		if !p.Propagated {
			directSum += p.Score
		}
	}
	if math.Abs(directSum-1.0) > 1e-9 {
		t.Errorf("direct scores sum to %f, want 1.0", directSum)
	}
}

func TestComputeInteractionWeightOrdering(t *testing.T) {
	t.Parallel()

	now := time.Now()
	// Same category level, same age: only the type weight differs.
	events := []models.InteractionEvent{
		event("tennis", models.InteractionShare, 5, now),
		event("ai", models.InteractionImpression, 5, now),
	}

	prefs := Compute(events, testTree(), testCfg(), now, zerolog.Nop())

	share, _ := scoreOf(prefs, "tennis")
	impression, _ := scoreOf(prefs, "ai")
	if share.Score <= impression.Score {
		t.Errorf("share score %f should exceed impression score %f", share.Score, impression.Score)
	}
}

func TestComputeDeeperLevelsDecayFaster(t *testing.T) {
	t.Parallel()

	now := time.Now()
	// Identical interactions 30 days ago, one on a level-3 category
	// and one on level-1. The level-3 signal must have decayed more, so
	// the level-1 category ends up with the larger share.
	events := []models.InteractionEvent{
		event("premier-league", models.InteractionClick, 30, now),
		event("tech", models.InteractionClick, 30, now),
	}

	prefs := Compute(events, testTree(), testCfg(), now, zerolog.Nop())

	l3, _ := scoreOf(prefs, "premier-league")
	l1, _ := scoreOf(prefs, "tech")
	if l3.Score >= l1.Score {
		t.Errorf("level-3 score %f should decay below level-1 score %f at 30 days", l3.Score, l1.Score)
	}
}

func TestComputeDecayIsMonotonic(t *testing.T) {
	t.Parallel()

	now := time.Now()
	fresh := Compute([]models.InteractionEvent{
		event("tennis", models.InteractionClick, 1, now),
		event("ai", models.InteractionClick, 1, now),
	}, testTree(), testCfg(), now, zerolog.Nop())

	aged := Compute([]models.InteractionEvent{
		event("tennis", models.InteractionClick, 40, now),
		event("ai", models.InteractionClick, 1, now),
	}, testTree(), testCfg(), now, zerolog.Nop())

	freshTennis, _ := scoreOf(fresh, "tennis")
	agedTennis, _ := scoreOf(aged, "tennis")
	if agedTennis.Score >= freshTennis.Score {
		t.Errorf("aged signal score %f should fall below fresh score %f", agedTennis.Score, freshTennis.Score)
	}
}

func TestComputeNegativeFeedback(t *testing.T) {
	t.Parallel()

	now := time.Now()

	// Tennis racks up 20 impressions with zero clicks alongside one
	// view; ai only has the view. Compare against a run with the
	// penalty disabled to isolate its effect.
	events := []models.InteractionEvent{
		event("tennis", models.InteractionView, 2, now),
		event("ai", models.InteractionView, 2, now),
	}
	for i := 0; i < 20; i++ {
		events = append(events, event("tennis", models.InteractionImpression, 1, now))
	}

	penalized := Compute(events, testTree(), testCfg(), now, zerolog.Nop())

	noPenaltyCfg := testCfg()
	noPenaltyCfg.NegativeFeedback.MinImpressions = 1000
	unpenalized := Compute(events, testTree(), noPenaltyCfg, now, zerolog.Nop())

	got, _ := scoreOf(penalized, "tennis")
	want, _ := scoreOf(unpenalized, "tennis")

	if got.Score >= want.Score {
		t.Errorf("zero-CTR penalty should lower the relative score: %f vs %f", got.Score, want.Score)
	}
	if got.Score <= 0 {
		t.Errorf("penalized score must stay above zero, got %f", got.Score)
	}
	if got.ImpressionCount != 20 || got.ClickCount != 0 {
		t.Errorf("CTR counters = %d/%d, want 0/20", got.ClickCount, got.ImpressionCount)
	}
}

func TestComputeNegativeFeedbackNeedsMinImpressions(t *testing.T) {
	t.Parallel()

	now := time.Now()
	cfg := testCfg()

	// 5 impressions, zero clicks: below the 10-impression minimum, no
	// penalty applies.
	events := []models.InteractionEvent{
		event("tennis", models.InteractionView, 2, now),
		event("ai", models.InteractionView, 2, now),
	}
	for i := 0; i < 5; i++ {
		events = append(events, event("tennis", models.InteractionImpression, 1, now))
	}

	prefs := Compute(events, testTree(), cfg, now, zerolog.Nop())

	tennis, _ := scoreOf(prefs, "tennis")
	ai, _ := scoreOf(prefs, "ai")
	// The extra impressions carry small positive weight, so tennis
	// actually scores higher without a penalty.
	if tennis.Score <= ai.Score {
		t.Errorf("unpenalized category with extra impressions scored %f, expected above %f", tennis.Score, ai.Score)
	}
}

func TestComputePropagationCaps(t *testing.T) {
	t.Parallel()

	now := time.Now()
	events := []models.InteractionEvent{
		event("premier-league", models.InteractionClick, 1, now),
		event("championship", models.InteractionView, 1, now),
	}

	prefs := Compute(events, testTree(), testCfg(), now, zerolog.Nop())

	pl, _ := scoreOf(prefs, "premier-league")
	ch, _ := scoreOf(prefs, "championship")
	football, ok := scoreOf(prefs, "football")
	if !ok {
		t.Fatal("expected propagated score for football")
	}
	if !football.Propagated {
		t.Error("football score should be marked propagated")
	}

	avg := (pl.Score + ch.Score) / 2
	best := math.Max(pl.Score, ch.Score)
	want := math.Min(0.5*avg, 0.8*best)
	if math.Abs(football.Score-want) > 1e-9 {
		t.Errorf("football score = %f, want %f", football.Score, want)
	}
	if football.Score >= best {
		t.Error("parent score must never exceed its best child")
	}

	// Propagation continues to the level-1 grandparent.
	sports, ok := scoreOf(prefs, "sports")
	if !ok {
		t.Fatal("expected propagated score for sports")
	}
	if sports.Score >= football.Score {
		t.Errorf("grandparent score %f should not exceed its child %f", sports.Score, football.Score)
	}
}

func TestComputeDirectParentScoreWins(t *testing.T) {
	t.Parallel()

	now := time.Now()
	events := []models.InteractionEvent{
		event("premier-league", models.InteractionView, 1, now),
		event("football", models.InteractionShare, 1, now),
	}

	prefs := Compute(events, testTree(), testCfg(), now, zerolog.Nop())

	football, ok := scoreOf(prefs, "football")
	if !ok {
		t.Fatal("expected direct score for football")
	}
	if football.Propagated {
		t.Error("direct interaction on parent must not be overridden by propagation")
	}
}

func TestComputeUnknownCategorySkipped(t *testing.T) {
	t.Parallel()

	now := time.Now()
	events := []models.InteractionEvent{
		event("tennis", models.InteractionClick, 1, now),
		event("no-such-category", models.InteractionShare, 1, now),
	}

	prefs := Compute(events, testTree(), testCfg(), now, zerolog.Nop())

	if _, ok := scoreOf(prefs, "no-such-category"); ok {
		t.Error("unknown category must be excluded from the profile")
	}
	tennis, _ := scoreOf(prefs, "tennis")
	if math.Abs(tennis.Score-1.0) > 1e-9 {
		t.Errorf("remaining category should hold the full score, got %f", tennis.Score)
	}
}

func TestComputeEmptyInput(t *testing.T) {
	t.Parallel()

	if prefs := Compute(nil, testTree(), testCfg(), time.Now(), zerolog.Nop()); prefs != nil {
		t.Errorf("Compute(nil) = %v, want nil", prefs)
	}
}

type stubEvents struct {
	events []models.InteractionEvent
}

func (s *stubEvents) EventsSince(_ context.Context, _ string, _ time.Time) ([]models.InteractionEvent, error) {
	return s.events, nil
}

type stubStore struct {
	prefs []models.UserCategoryPreference
}

func (s *stubStore) ReplacePreferences(_ context.Context, _ string, prefs []models.UserCategoryPreference) error {
	s.prefs = prefs
	return nil
}

type stubTreeSource struct {
	tree *taxonomy.Tree
}

func (s *stubTreeSource) Tree(_ context.Context) (*taxonomy.Tree, error) {
	return s.tree, nil
}

func TestAggregatorRecompute(t *testing.T) {
	t.Parallel()

	now := time.Now()
	events := &stubEvents{events: []models.InteractionEvent{
		event("tennis", models.InteractionClick, 1, now),
		event("ai", models.InteractionView, 2, now),
	}}
	store := &stubStore{}

	agg := NewAggregator(events, store, &stubTreeSource{tree: testTree()}, testCfg(), zerolog.Nop())

	n, err := agg.Recompute(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Recompute() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Recompute() processed %d events, want 2", n)
	}
	if len(store.prefs) == 0 {
		t.Fatal("expected persisted preferences")
	}
}
