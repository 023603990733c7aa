// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package predict

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
)

// Predictor scores candidates with a personalized click probability.
// It never fails a request: when not ready or missing signals, it
// returns neutral non-authoritative predictions and leaves ordering
// untouched.
type Predictor struct {
	cfg    config.PredictorConfig
	logger zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a predictor. seed zero selects a time-based seed.
func New(cfg config.PredictorConfig, seed int64, logger zerolog.Logger) *Predictor {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Predictor{
		cfg:    cfg,
		logger: logger.With().Str("component", "predict").Logger(),
		rng:    rand.New(rand.NewSource(seed)), //nolint:gosec // jitter, not crypto
	}
}

// Ready reports whether the user has crossed the interaction-volume
// gate that makes predictions authoritative.
func (p *Predictor) Ready(stats *models.UserStats) bool {
	return p.cfg.Enabled && stats != nil && stats.LifetimeInteractions >= p.cfg.MinInteractions
}

// Rerank attaches click predictions to the candidates and, when the
// predictions are authoritative, reorders the list by predicted
// probability. Non-authoritative predictions are attached as neutral
// 0.5 and the incoming order is preserved.
func (p *Predictor) Rerank(candidates []models.ArticleCandidate, stats *models.UserStats, prefs map[string]float64) []models.ArticleCandidate {
	start := time.Now()

	if !p.Ready(stats) {
		for i := range candidates {
			candidates[i].Prediction = &models.ClickPrediction{
				ArticleID:     candidates[i].ID,
				Score:         0.5,
				Authoritative: false,
			}
		}
		metrics.PredictorRequests.WithLabelValues("neutral").Inc()
		return candidates
	}

	profile := stats.Vector()
	for i := range candidates {
		candidates[i].Prediction = p.predict(&candidates[i], stats, profile, prefs)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Prediction.Score > candidates[j].Prediction.Score
	})

	metrics.PredictorRequests.WithLabelValues("authoritative").Inc()
	metrics.PredictorDuration.Observe(time.Since(start).Seconds())
	return candidates
}

// predict computes one candidate's click probability:
//
//	p = (0.5 + simWeight x cosine) x triggerMult + keywordBoost + catWeight x prefScore + jitter
//
// clamped to [0, 1]. Missing signals contribute their neutral value
// instead of failing.
func (p *Predictor) predict(c *models.ArticleCandidate, stats *models.UserStats, profile []float32, prefs map[string]float64) *models.ClickPrediction {
	factors := make(map[string]float64, 4)

	similarity := 0.0
	if len(profile) > 0 && len(c.Vector) > 0 {
		similarity = Cosine(profile, c.Vector)
	}
	factors["similarity"] = similarity

	triggerMult := p.triggerMultiplier(stats, c.Title)
	factors["trigger_multiplier"] = triggerMult

	keywordBoost := p.keywordBoost(stats, c.Title)
	factors["keyword_boost"] = keywordBoost

	prefScore := prefs[c.CategoryID]
	factors["category_preference"] = prefScore

	score := (0.5 + p.cfg.SimilarityWeight*similarity) * triggerMult
	score += keywordBoost
	score += p.cfg.CategoryWeight * prefScore

	if p.cfg.Jitter > 0 {
		p.mu.Lock()
		score += p.rng.Float64() * p.cfg.Jitter
		p.mu.Unlock()
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return &models.ClickPrediction{
		ArticleID:     c.ID,
		Score:         score,
		Authoritative: true,
		Factors:       factors,
	}
}

// triggerMultiplier derives a multiplicative boost from the user's
// historical click rate on titles exhibiting each trait, relative to
// the baseline rate. Traits without enough sample are skipped; the
// combined multiplier is clamped to [1/cap, cap].
func (p *Predictor) triggerMultiplier(stats *models.UserStats, title string) float64 {
	mult := 1.0
	for _, trait := range TitleTraits(title) {
		ts, ok := stats.TriggerStats[trait]
		if !ok || ts.Impressions < p.cfg.MinTriggerImpressions {
			continue
		}
		mult *= ts.CTR() / p.cfg.BaselineCTR
	}
	if mult > p.cfg.TriggerCap {
		mult = p.cfg.TriggerCap
	}
	if floor := 1 / p.cfg.TriggerCap; mult < floor {
		mult = floor
	}
	return mult
}

// keywordBoost adds a small bonus per title keyword that sits in the
// user's top high-click-rate keyword list, capped.
func (p *Predictor) keywordBoost(stats *models.UserStats, title string) float64 {
	top := p.topKeywords(stats)
	if len(top) == 0 {
		return 0
	}

	boost := 0.0
	for _, kw := range Tokenize(title) {
		if _, ok := top[kw]; ok {
			boost += p.cfg.KeywordBoostPerMatch
		}
	}
	if boost > p.cfg.KeywordBoostCap {
		boost = p.cfg.KeywordBoostCap
	}
	return boost
}

// topKeywords selects the user's highest-CTR keywords with enough
// impressions to be meaningful.
func (p *Predictor) topKeywords(stats *models.UserStats) map[string]struct{} {
	type kwRate struct {
		kw  string
		ctr float64
	}
	var rates []kwRate
	for kw, ks := range stats.KeywordStats {
		if ks.Impressions < p.cfg.MinTriggerImpressions {
			continue
		}
		if ctr := ks.CTR(); ctr > p.cfg.BaselineCTR {
			rates = append(rates, kwRate{kw: kw, ctr: ctr})
		}
	}
	sort.Slice(rates, func(i, j int) bool {
		if rates[i].ctr != rates[j].ctr {
			return rates[i].ctr > rates[j].ctr
		}
		return rates[i].kw < rates[j].kw
	})
	if len(rates) > p.cfg.TopKeywords {
		rates = rates[:p.cfg.TopKeywords]
	}

	top := make(map[string]struct{}, len(rates))
	for _, r := range rates {
		top[r.kw] = struct{}{}
	}
	return top
}
