// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package models

import "time"

// SourceTag identifies which feed-assembly channel produced a candidate.
type SourceTag int

const (
	// SourceExploitation marks high-score, preference-driven candidates.
	SourceExploitation SourceTag = iota
	// SourceExplorationSibling marks candidates from sibling categories.
	SourceExplorationSibling
	// SourceExplorationParent marks candidates from other children of a
	// preferred parent category.
	SourceExplorationParent
	// SourceExplorationTrending marks globally trending candidates from
	// categories the user has never touched.
	SourceExplorationTrending
	// SourceBreaking marks candidates placed in reserved breaking slots.
	SourceBreaking
	// SourceWildcard marks discovery candidates interleaved between
	// exploitation runs.
	SourceWildcard
	// SourceFallback marks candidates served from the degradation chain.
	SourceFallback
)

// String returns the wire name for the source tag.
func (s SourceTag) String() string {
	switch s {
	case SourceExploitation:
		return "exploitation"
	case SourceExplorationSibling:
		return "exploration_sibling"
	case SourceExplorationParent:
		return "exploration_parent"
	case SourceExplorationTrending:
		return "exploration_trending"
	case SourceBreaking:
		return "breaking"
	case SourceWildcard:
		return "wildcard"
	case SourceFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// IsExploration reports whether the tag belongs to the exploration side
// of the exploitation/exploration mix. Wildcards are exploration draws.
func (s SourceTag) IsExploration() bool {
	switch s {
	case SourceExplorationSibling, SourceExplorationParent, SourceExplorationTrending, SourceWildcard:
		return true
	default:
		return false
	}
}

// ArticleRef is a lightweight reference to an article returned by the
// upstream content store.
type ArticleRef struct {
	// ID is the article identifier.
	ID string `json:"id"`

	// CategoryID is the article's category.
	CategoryID string `json:"category_id"`

	// Title is the article title.
	Title string `json:"title"`

	// PublishedAt is the publication time.
	PublishedAt time.Time `json:"published_at"`

	// Vector is the content-similarity embedding, nil when absent.
	Vector []float32 `json:"-"`

	// Similarity is the cosine similarity to the user's profile vector
	// when the article came from a similarity query, 0 otherwise.
	Similarity float64 `json:"similarity,omitempty"`

	// Breaking marks articles explicitly flagged as urgent upstream.
	Breaking bool `json:"breaking,omitempty"`
}

// ArticleCandidate is a scored, tagged article produced for one feed
// request. Candidates are transient and never persisted.
type ArticleCandidate struct {
	ArticleRef

	// Source is the assembly channel that produced this candidate.
	Source SourceTag `json:"-"`

	// SourceName is the JSON form of Source (explanation metadata).
	SourceName string `json:"source"`

	// Score is the composite relevance score.
	Score float64 `json:"score"`

	// ScoreParts is the per-signal breakdown (explanation metadata).
	ScoreParts map[string]float64 `json:"score_parts,omitempty"`

	// Prediction is attached only when the click predictor re-ranked
	// the feed.
	Prediction *ClickPrediction `json:"prediction,omitempty"`
}

// Tag sets the source and keeps the serialized name in sync.
func (c *ArticleCandidate) Tag(s SourceTag) {
	c.Source = s
	c.SourceName = s.String()
}

// ClickPrediction is a transient click-probability estimate attached to
// a candidate during the optional re-rank stage.
type ClickPrediction struct {
	// ArticleID identifies the predicted article.
	ArticleID string `json:"article_id"`

	// Score is the predicted click probability in [0, 1].
	Score float64 `json:"score"`

	// Authoritative is false when the predictor was not ready or
	// required signals were missing and a neutral score was returned.
	Authoritative bool `json:"authoritative"`

	// Factors is the per-signal contribution breakdown.
	Factors map[string]float64 `json:"factors,omitempty"`
}
