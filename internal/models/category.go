// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package models

import "time"

// CategoryNode is a node in the category taxonomy. The taxonomy is a
// forest rooted at level-1 nodes; level(child) = level(parent)+1
// whenever ParentID is set. Nodes are read-only from this core's
// perspective.
type CategoryNode struct {
	// ID is the category identifier.
	ID string `json:"id"`

	// ParentID is the parent category, empty for level-1 roots.
	ParentID string `json:"parent_id,omitempty"`

	// Level is the hierarchy depth, 1 (broadest) to 3 (most specific).
	Level int `json:"level"`

	// Path is the slash-joined path from the root, e.g. "sports/ball-sports/football".
	Path string `json:"path,omitempty"`

	// Name is the display name.
	Name string `json:"name,omitempty"`
}

// UserCategoryPreference is a derived, recomputed per-user category
// score. Rows are replaced wholesale on each recompute, never hand-
// edited. For a fixed user the direct (non-propagated) scores sum to
// 1.0 within floating tolerance immediately after a full recompute.
type UserCategoryPreference struct {
	// UserID identifies the user.
	UserID string `json:"user_id"`

	// CategoryID identifies the category.
	CategoryID string `json:"category_id"`

	// Score is the normalized preference in [0, 1].
	Score float64 `json:"score"`

	// ClickCount is the number of clicks observed in the lookback window.
	ClickCount int `json:"click_count"`

	// ImpressionCount is the number of impressions observed in the window.
	ImpressionCount int `json:"impression_count"`

	// Propagated marks scores inferred from descendants rather than
	// observed directly.
	Propagated bool `json:"propagated,omitempty"`

	// LastUpdated is when the row was last recomputed.
	LastUpdated time.Time `json:"last_updated"`
}

// CTR returns the click-through rate for this category, or 0 when no
// impressions were observed.
func (p UserCategoryPreference) CTR() float64 {
	if p.ImpressionCount == 0 {
		return 0
	}
	return float64(p.ClickCount) / float64(p.ImpressionCount)
}
