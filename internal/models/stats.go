// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package models

import "time"

// TraitStats accumulates impressions and clicks for one title trait or
// keyword, enough to derive a per-user click rate for it.
type TraitStats struct {
	Impressions int64 `json:"impressions"`
	Clicks      int64 `json:"clicks"`
}

// CTR returns the observed click-through rate, or 0 with no impressions.
func (t TraitStats) CTR() float64 {
	if t.Impressions == 0 {
		return 0
	}
	return float64(t.Clicks) / float64(t.Impressions)
}

// UserStats is the per-user learning state behind the click predictor:
// lifetime volume (the readiness gate), per-trait title statistics,
// keyword click rates and the running content-profile vector.
//
// The profile vector is kept as a running sum over clicked-article
// vectors so the average can be recomputed incrementally.
type UserStats struct {
	UserID string `json:"user_id"`

	// LifetimeInteractions counts every accepted event, ever. The
	// predictor becomes authoritative once this crosses its threshold.
	LifetimeInteractions int64 `json:"lifetime_interactions"`

	// TriggerStats tracks impressions/clicks per title trait
	// (urgency, numeric, controversy, exclusivity).
	TriggerStats map[string]TraitStats `json:"trigger_stats,omitempty"`

	// KeywordStats tracks impressions/clicks per title keyword.
	KeywordStats map[string]TraitStats `json:"keyword_stats,omitempty"`

	// ProfileSum and ProfileCount hold the running sum of clicked
	// article content vectors. Vector() returns their average.
	ProfileSum   []float32 `json:"profile_sum,omitempty"`
	ProfileCount int64     `json:"profile_count"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserStats returns empty stats for a user.
func NewUserStats(userID string) *UserStats {
	return &UserStats{
		UserID:       userID,
		TriggerStats: make(map[string]TraitStats),
		KeywordStats: make(map[string]TraitStats),
	}
}

// Vector returns the user's content-profile vector, the average of the
// content vectors of clicked articles, or nil when none exist.
func (s *UserStats) Vector() []float32 {
	if s.ProfileCount == 0 || len(s.ProfileSum) == 0 {
		return nil
	}
	avg := make([]float32, len(s.ProfileSum))
	n := float32(s.ProfileCount)
	for i, v := range s.ProfileSum {
		avg[i] = v / n
	}
	return avg
}

// AddProfileVector folds one clicked article's content vector into the
// running profile. Dimension mismatches reset the profile to the new
// vector's dimensionality rather than mixing incompatible spaces.
func (s *UserStats) AddProfileVector(vec []float32) {
	if len(vec) == 0 {
		return
	}
	if len(s.ProfileSum) != len(vec) {
		s.ProfileSum = make([]float32, len(vec))
		s.ProfileCount = 0
	}
	for i, v := range vec {
		s.ProfileSum[i] += v
	}
	s.ProfileCount++
}
