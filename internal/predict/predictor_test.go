// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package predict

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/models"
)

func testCfg() config.PredictorConfig {
	cfg := config.Default().Predictor
	cfg.Jitter = 0 // deterministic in tests
	return cfg
}

func TestTitleTraits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title string
		want  []string
	}{
		{"Breaking: storm hits coast", []string{TraitUrgency}},
		{"10 things to know today", []string{TraitNumeric}},
		{"Minister slams proposal in fiery exchange", []string{TraitControversy}},
		{"Exclusive: the untold story", []string{TraitExclusivity}},
		{"A quiet afternoon in the park", nil},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			t.Parallel()

			got := TitleTraits(tt.title)
			if len(got) != len(tt.want) {
				t.Fatalf("TitleTraits(%q) = %v, want %v", tt.title, got, tt.want)
			}
			gotSet := make(map[string]bool)
			for _, g := range got {
				gotSet[g] = true
			}
			for _, w := range tt.want {
				if !gotSet[w] {
					t.Errorf("TitleTraits(%q) missing %s", tt.title, w)
				}
			}
		})
	}
}

func TestTokenizeDropsStopwordsAndShortTokens(t *testing.T) {
	t.Parallel()

	got := Tokenize("The cat and the big-bad WOLF in 2024")
	want := map[string]bool{"cat": true, "big": true, "bad": true, "wolf": true, "2024": true}
	if len(got) != len(want) {
		t.Fatalf("Tokenize() = %v, want keys %v", got, want)
	}
	for _, tok := range got {
		if !want[tok] {
			t.Errorf("unexpected token %q", tok)
		}
	}
}

func TestCosine(t *testing.T) {
	t.Parallel()

	if got := Cosine([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors cosine = %f, want 1", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal vectors cosine = %f, want 0", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{-1, 0}); math.Abs(got+1) > 1e-9 {
		t.Errorf("opposite vectors cosine = %f, want -1", got)
	}
	if got := Cosine(nil, []float32{1}); got != 0 {
		t.Errorf("empty vector cosine = %f, want 0", got)
	}
	if got := Cosine([]float32{1, 2}, []float32{1}); got != 0 {
		t.Errorf("mismatched dims cosine = %f, want 0", got)
	}
}

func TestRerankNeutralWhenNotReady(t *testing.T) {
	t.Parallel()

	p := New(testCfg(), 1, zerolog.Nop())
	stats := models.NewUserStats("u1")
	stats.LifetimeInteractions = 10 // far below the 1000 gate

	candidates := []models.ArticleCandidate{
		{ArticleRef: models.ArticleRef{ID: "a"}, Score: 0.9},
		{ArticleRef: models.ArticleRef{ID: "b"}, Score: 0.5},
	}

	out := p.Rerank(candidates, stats, nil)

	// Order preserved, neutral scores attached.
	if out[0].ID != "a" || out[1].ID != "b" {
		t.Error("non-authoritative rerank must preserve order")
	}
	for _, c := range out {
		if c.Prediction == nil {
			t.Fatal("expected a prediction on every candidate")
		}
		if c.Prediction.Authoritative {
			t.Error("prediction should be non-authoritative below the gate")
		}
		if c.Prediction.Score != 0.5 {
			t.Errorf("neutral prediction = %f, want 0.5", c.Prediction.Score)
		}
	}
}

func readyStats() *models.UserStats {
	stats := models.NewUserStats("u1")
	stats.LifetimeInteractions = 5000
	return stats
}

func TestRerankOrdersByPrediction(t *testing.T) {
	t.Parallel()

	p := New(testCfg(), 1, zerolog.Nop())
	stats := readyStats()
	stats.AddProfileVector([]float32{1, 0})

	candidates := []models.ArticleCandidate{
		{ArticleRef: models.ArticleRef{ID: "far", Vector: []float32{0, 1}}},
		{ArticleRef: models.ArticleRef{ID: "near", Vector: []float32{1, 0}}},
	}

	out := p.Rerank(candidates, stats, nil)

	if out[0].ID != "near" {
		t.Errorf("expected profile-similar candidate first, got %s", out[0].ID)
	}
	if !out[0].Prediction.Authoritative {
		t.Error("prediction should be authoritative above the gate")
	}
	if out[0].Prediction.Score <= out[1].Prediction.Score {
		t.Error("similar candidate should have higher predicted probability")
	}
}

func TestTriggerMultiplierCapped(t *testing.T) {
	t.Parallel()

	p := New(testCfg(), 1, zerolog.Nop())
	stats := readyStats()
	// 50% CTR on urgency titles against a 5% baseline: raw 10x,
	// must clamp to 1.5.
	stats.TriggerStats[TraitUrgency] = models.TraitStats{Impressions: 100, Clicks: 50}

	mult := p.triggerMultiplier(stats, "Breaking update on the summit")
	if mult != 1.5 {
		t.Errorf("triggerMultiplier = %f, want capped 1.5", mult)
	}

	// Zero CTR floors rather than zeroing the probability.
	stats.TriggerStats[TraitUrgency] = models.TraitStats{Impressions: 100, Clicks: 0}
	mult = p.triggerMultiplier(stats, "Breaking update on the summit")
	if want := 1 / 1.5; math.Abs(mult-want) > 1e-9 {
		t.Errorf("zero-CTR multiplier = %f, want floor %f", mult, want)
	}
}

func TestTriggerMultiplierNeedsSample(t *testing.T) {
	t.Parallel()

	p := New(testCfg(), 1, zerolog.Nop())
	stats := readyStats()
	stats.TriggerStats[TraitUrgency] = models.TraitStats{Impressions: 3, Clicks: 3}

	if mult := p.triggerMultiplier(stats, "Breaking news"); mult != 1.0 {
		t.Errorf("under-sampled trait multiplier = %f, want neutral 1.0", mult)
	}
}

func TestKeywordBoostCapped(t *testing.T) {
	t.Parallel()

	cfg := testCfg()
	cfg.KeywordBoostPerMatch = 0.15
	p := New(cfg, 1, zerolog.Nop())
	stats := readyStats()
	stats.KeywordStats["quantum"] = models.TraitStats{Impressions: 50, Clicks: 20}
	stats.KeywordStats["chips"] = models.TraitStats{Impressions: 50, Clicks: 15}

	boost := p.keywordBoost(stats, "Quantum chips reach new milestone")
	if boost != cfg.KeywordBoostCap {
		t.Errorf("keywordBoost = %f, want capped %f", boost, cfg.KeywordBoostCap)
	}
}

func TestPredictionStaysInRange(t *testing.T) {
	t.Parallel()

	cfg := testCfg()
	cfg.Jitter = 0.025
	p := New(cfg, 7, zerolog.Nop())
	stats := readyStats()
	stats.AddProfileVector([]float32{1, 0})
	stats.TriggerStats[TraitUrgency] = models.TraitStats{Impressions: 100, Clicks: 60}

	candidates := []models.ArticleCandidate{
		{ArticleRef: models.ArticleRef{ID: "a", CategoryID: "tech", Title: "Breaking: huge advance", Vector: []float32{1, 0}}},
	}
	prefs := map[string]float64{"tech": 1.0}

	out := p.Rerank(candidates, stats, prefs)
	score := out[0].Prediction.Score
	if score < 0 || score > 1 {
		t.Errorf("prediction %f out of [0,1]", score)
	}
}

func TestUpdateStats(t *testing.T) {
	t.Parallel()

	stats := models.NewUserStats("u1")
	events := []models.InteractionEvent{
		{UserID: "u1", ArticleID: "a1", Title: "Breaking: 5 storms inbound", Type: models.InteractionImpression},
		{UserID: "u1", ArticleID: "a1", Title: "Breaking: 5 storms inbound", Type: models.InteractionClick, Vector: []float32{2, 4}},
		{UserID: "u1", ArticleID: "a2", Title: "Quiet gardens of the city", Type: models.InteractionImpression},
		{UserID: "u1", ArticleID: "a3", Type: models.InteractionView},
	}

	UpdateStats(stats, events)

	if stats.LifetimeInteractions != 4 {
		t.Errorf("LifetimeInteractions = %d, want 4", stats.LifetimeInteractions)
	}
	urgency := stats.TriggerStats[TraitUrgency]
	if urgency.Impressions != 1 || urgency.Clicks != 1 {
		t.Errorf("urgency stats = %+v, want 1 impression and 1 click", urgency)
	}
	if stats.ProfileCount != 1 {
		t.Errorf("ProfileCount = %d, want 1", stats.ProfileCount)
	}
	vec := stats.Vector()
	if len(vec) != 2 || vec[0] != 2 || vec[1] != 4 {
		t.Errorf("profile vector = %v, want [2 4]", vec)
	}
	if _, ok := stats.KeywordStats["storms"]; !ok {
		t.Error("expected keyword stats for 'storms'")
	}
}
