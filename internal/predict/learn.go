// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package predict

import (
	"github.com/tomtom215/folio/internal/models"
)

// UpdateStats folds a batch of interaction events into a user's
// learning state: lifetime volume, title-trait and keyword CTR
// counters, and the running content-profile vector. Impression events
// count trait/keyword exposure; click-grade events count successes and
// grow the profile. The caller persists the mutated stats afterwards
// under the per-user write sequence.
func UpdateStats(stats *models.UserStats, events []models.InteractionEvent) {
	for i := range events {
		evt := &events[i]
		stats.LifetimeInteractions++

		isClick := evt.Type == models.InteractionClick ||
			evt.Type == models.InteractionLike ||
			evt.Type == models.InteractionShare ||
			evt.Type == models.InteractionBookmark

		if isClick && len(evt.Vector) > 0 {
			stats.AddProfileVector(evt.Vector)
		}

		if evt.Title == "" {
			continue
		}
		if evt.Type != models.InteractionImpression && !isClick {
			continue
		}

		for _, trait := range TitleTraits(evt.Title) {
			ts := stats.TriggerStats[trait]
			if isClick {
				ts.Clicks++
			} else {
				ts.Impressions++
			}
			stats.TriggerStats[trait] = ts
		}

		for _, kw := range Tokenize(evt.Title) {
			ks := stats.KeywordStats[kw]
			if isClick {
				ks.Clicks++
			} else {
				ks.Impressions++
			}
			stats.KeywordStats[kw] = ks
		}
	}
}
