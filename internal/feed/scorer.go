// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package feed

import (
	"sort"
	"time"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/models"
)

// Scorer computes the composite relevance score: category preference,
// optional content similarity, and a step-function freshness signal.
type Scorer struct {
	cfg config.FeedConfig
}

// NewScorer creates a scorer.
func NewScorer(cfg config.FeedConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes composite scores in place and returns the candidates
// sorted by score, highest first. prefs maps category ID to the user's
// preference score; categories absent from it get the configured
// default so unseen categories stay eligible.
func (s *Scorer) Score(candidates []models.ArticleCandidate, prefs map[string]float64, now time.Time) []models.ArticleCandidate {
	w := s.cfg.Weights
	for i := range candidates {
		c := &candidates[i]

		catScore, ok := prefs[c.CategoryID]
		if !ok {
			catScore = w.DefaultCategoryScore
		}
		fresh := s.Freshness(now.Sub(c.PublishedAt))

		var score float64
		parts := map[string]float64{
			"category":  catScore,
			"freshness": fresh,
		}
		if c.Similarity > 0 {
			parts["similarity"] = c.Similarity
			score = w.Category*catScore + w.Similarity*c.Similarity + w.Freshness*fresh
		} else {
			score = w.CategoryOnly*catScore + w.FreshnessOnly*fresh
		}

		c.Score = score
		c.ScoreParts = parts
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// Freshness maps an article age to its step-function score: 1.0 for
// under an hour, decaying through the configured bands, down to the
// floor beyond the last band. Future publication dates count as fresh.
func (s *Scorer) Freshness(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	hours := age.Hours()
	for _, band := range s.cfg.FreshnessBands {
		if hours < band.MaxAgeHours {
			return band.Score
		}
	}
	return s.cfg.FreshnessFloor
}
