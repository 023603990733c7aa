// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package preference computes hierarchical user category preferences
// from the interaction ledger: type-weighted events with level-aware
// temporal decay, CTR-based negative feedback, relative normalization
// and dampened upward propagation through the taxonomy.
package preference

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/taxonomy"
)

// EventSource reads a user's ledger window.
type EventSource interface {
	EventsSince(ctx context.Context, userID string, since time.Time) ([]models.InteractionEvent, error)
}

// Store persists a recomputed preference profile.
type Store interface {
	ReplacePreferences(ctx context.Context, userID string, prefs []models.UserCategoryPreference) error
}

// TreeSource provides the current taxonomy snapshot.
type TreeSource interface {
	Tree(ctx context.Context) (*taxonomy.Tree, error)
}

// Aggregator recomputes a user's preference profile from scratch on
// each run. Recomputes for one user must be serialized by the caller
// (the scheduler guarantees this); different users are independent.
type Aggregator struct {
	events   EventSource
	store    Store
	taxonomy TreeSource
	cfg      config.PreferenceConfig
	logger   zerolog.Logger
}

// NewAggregator creates a preference aggregator.
func NewAggregator(events EventSource, store Store, tree TreeSource, cfg config.PreferenceConfig, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		events:   events,
		store:    store,
		taxonomy: tree,
		cfg:      cfg,
		logger:   logger.With().Str("component", "preference").Logger(),
	}
}

// Recompute rebuilds and persists the preference profile for one user.
// It returns the number of ledger events aggregated.
func (a *Aggregator) Recompute(ctx context.Context, userID string) (int, error) {
	start := time.Now()

	since := time.Now().AddDate(0, 0, -a.cfg.LookbackDays)
	events, err := a.events.EventsSince(ctx, userID, since)
	if err != nil {
		metrics.RecordRecompute(time.Since(start), 0, err)
		return 0, fmt.Errorf("reading ledger for %s: %w", userID, err)
	}

	tree, err := a.taxonomy.Tree(ctx)
	if err != nil {
		metrics.RecordRecompute(time.Since(start), 0, err)
		return 0, fmt.Errorf("loading taxonomy: %w", err)
	}

	prefs := Compute(events, tree, a.cfg, time.Now(), a.logger)

	if err := a.store.ReplacePreferences(ctx, userID, prefs); err != nil {
		metrics.RecordRecompute(time.Since(start), 0, err)
		return 0, fmt.Errorf("persisting preferences for %s: %w", userID, err)
	}

	metrics.RecordRecompute(time.Since(start), len(events), nil)
	a.logger.Debug().
		Str("user_id", userID).
		Int("events", len(events)).
		Int("categories", len(prefs)).
		Dur("took", time.Since(start)).
		Msg("preference profile recomputed")

	return len(events), nil
}

// categoryAccum collects per-category sums during aggregation.
type categoryAccum struct {
	decayedSum  float64
	clicks      int
	impressions int
}

// Compute aggregates events into a normalized preference profile. It
// is a pure function of its inputs, which keeps the scoring math
// directly testable.
//
// Stages, in order:
//  1. weight each event by type and decay it by elapsed days with the
//     half-life of its category's hierarchy level
//  2. apply CTR-based negative feedback to the decayed sums
//  3. normalize so direct scores across categories sum to 1.0
//  4. propagate dampened scores to ancestor categories
//
// Negative feedback runs before normalization so the persisted direct
// scores always sum to exactly 1.0.
func Compute(events []models.InteractionEvent, tree *taxonomy.Tree, cfg config.PreferenceConfig, now time.Time, logger zerolog.Logger) []models.UserCategoryPreference {
	if len(events) == 0 {
		return nil
	}
	userID := events[0].UserID

	accum := make(map[string]*categoryAccum)
	for i := range events {
		evt := &events[i]
		level := tree.Level(evt.CategoryID)
		if level == 0 {
			// Category unknown to the taxonomy (deleted, or excluded
			// by cycle detection); skip rather than corrupt the run.
			logger.Debug().
				Str("category_id", evt.CategoryID).
				Msg("event references unknown category, skipped")
			continue
		}

		weight := cfg.Weights.WeightFor(evt.Type.String())
		if weight <= 0 {
			continue
		}

		ageDays := now.Sub(evt.OccurredAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		halfLife := cfg.Decay.HalfLifeForLevel(level)
		decayed := weight * math.Exp(-math.Ln2*ageDays/halfLife)

		acc, ok := accum[evt.CategoryID]
		if !ok {
			acc = &categoryAccum{}
			accum[evt.CategoryID] = acc
		}
		acc.decayedSum += decayed
		switch evt.Type {
		case models.InteractionClick:
			acc.clicks++
		case models.InteractionImpression:
			acc.impressions++
		}
	}

	// Negative feedback before normalization.
	nf := cfg.NegativeFeedback
	for _, acc := range accum {
		if acc.impressions < nf.MinImpressions {
			continue
		}
		ctr := float64(acc.clicks) / float64(acc.impressions)
		if ctr >= nf.CTRThreshold {
			continue
		}
		// Zero CTR gets the maximum penalty, near-threshold the minimum.
		shortfall := (nf.CTRThreshold - ctr) / nf.CTRThreshold
		penalty := nf.MinPenalty + shortfall*(nf.MaxPenalty-nf.MinPenalty)
		acc.decayedSum *= 1 - penalty
		if acc.decayedSum < nf.ScoreFloor {
			acc.decayedSum = nf.ScoreFloor
		}
	}

	var total float64
	for id, acc := range accum {
		if acc.decayedSum < 0 || math.IsNaN(acc.decayedSum) {
			logger.Warn().
				Str("category_id", id).
				Float64("sum", acc.decayedSum).
				Msg("invalid decayed sum, category excluded")
			delete(accum, id)
			continue
		}
		total += acc.decayedSum
	}
	if total <= 0 {
		return nil
	}

	direct := make(map[string]*models.UserCategoryPreference, len(accum))
	for id, acc := range accum {
		direct[id] = &models.UserCategoryPreference{
			UserID:          userID,
			CategoryID:      id,
			Score:           acc.decayedSum / total,
			ClickCount:      acc.clicks,
			ImpressionCount: acc.impressions,
			LastUpdated:     now,
		}
	}

	propagated := propagate(direct, tree, cfg.Propagation, userID, now)

	out := make([]models.UserCategoryPreference, 0, len(direct)+len(propagated))
	for _, p := range direct {
		out = append(out, *p)
	}
	out = append(out, propagated...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// propagate computes dampened ancestor scores: each parent gets the
// lesser of (ChildAverageFactor x mean of child scores) and
// (TopChildFactor x best child score), so a parent never outranks its
// children. A direct score on the parent wins over a propagated one.
// Propagation happens bottom-up so level-1 scores can derive from
// propagated level-2 values.
func propagate(direct map[string]*models.UserCategoryPreference, tree *taxonomy.Tree, cfg config.PropagationConfig, userID string, now time.Time) []models.UserCategoryPreference {
	scores := make(map[string]float64, len(direct))
	for id, p := range direct {
		scores[id] = p.Score
	}

	// Parents of scored categories are propagation candidates unless
	// they already carry a direct score.
	parents := make(map[string]struct{})
	for id := range scores {
		if parent, ok := tree.Parent(id); ok {
			if _, isDirect := direct[parent.ID]; !isDirect {
				parents[parent.ID] = struct{}{}
			}
		}
	}

	var out []models.UserCategoryPreference
	for level := 2; level >= 1; level-- {
		for parentID := range parents {
			if tree.Level(parentID) != level {
				continue
			}
			var sum, best float64
			var n int
			for _, childID := range tree.Children(parentID) {
				score, ok := scores[childID]
				if !ok {
					continue
				}
				sum += score
				n++
				if score > best {
					best = score
				}
			}
			if n == 0 {
				continue
			}
			candidate := math.Min(cfg.ChildAverageFactor*(sum/float64(n)), cfg.TopChildFactor*best)
			if candidate <= 0 {
				continue
			}
			scores[parentID] = candidate
			out = append(out, models.UserCategoryPreference{
				UserID:      userID,
				CategoryID:  parentID,
				Score:       candidate,
				Propagated:  true,
				LastUpdated: now,
			})
			// Newly scored parents can in turn feed their own parent.
			if gp, ok := tree.Parent(parentID); ok {
				if _, isDirect := direct[gp.ID]; !isDirect {
					if _, already := scores[gp.ID]; !already {
						parents[gp.ID] = struct{}{}
					}
				}
			}
		}
	}
	return out
}
