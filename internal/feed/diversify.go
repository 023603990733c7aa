// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package feed

import (
	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
)

// Diversify walks the score-sorted candidates and defers any candidate
// whose category already occupies the configured maximum among the
// last Window accepted slots. Deferred candidates are re-tried after
// every acceptance and appended at the end if they never fit, so
// diversity never reduces supply.
func Diversify(candidates []models.ArticleCandidate, cfg config.DiversityConfig) []models.ArticleCandidate {
	if len(candidates) == 0 {
		return candidates
	}

	accepted := make([]models.ArticleCandidate, 0, len(candidates))
	var deferred []models.ArticleCandidate

	// The candidate itself completes a window of cfg.Window slots, so
	// only the last Window-1 accepted items count against it.
	fits := func(categoryID string) bool {
		count := 0
		start := len(accepted) - (cfg.Window - 1)
		if start < 0 {
			start = 0
		}
		for _, a := range accepted[start:] {
			if a.CategoryID == categoryID {
				count++
			}
		}
		return count < cfg.MaxPerCategory
	}

	tryDeferred := func() {
		for i := 0; i < len(deferred); {
			if fits(deferred[i].CategoryID) {
				accepted = append(accepted, deferred[i])
				deferred = append(deferred[:i], deferred[i+1:]...)
				i = 0 // window moved, re-scan from the front
				continue
			}
			i++
		}
	}

	for _, c := range candidates {
		if fits(c.CategoryID) {
			accepted = append(accepted, c)
			tryDeferred()
		} else {
			metrics.FeedDiversityDeferrals.Inc()
			deferred = append(deferred, c)
		}
	}

	// Whatever still cannot fit keeps its relative order at the tail.
	// When the remaining supply is all one category this tail exceeds
	// MaxPerCategory within a window: supply wins over diversity, a
	// short feed is worse than a monotonous tail.
	accepted = append(accepted, deferred...)
	return accepted
}
