// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package models

import (
	"fmt"
	"time"
)

// InteractionType classifies user-article interactions for implicit feedback.
// The set is closed: events carrying an unknown type are rejected at
// construction, never checked ad hoc downstream.
type InteractionType int

const (
	// InteractionImpression indicates the article appeared in the user's feed.
	InteractionImpression InteractionType = iota
	// InteractionScrollStop indicates the user paused scrolling on the article.
	InteractionScrollStop
	// InteractionView indicates the user opened the article.
	InteractionView
	// InteractionClick indicates the user clicked through to the article.
	InteractionClick
	// InteractionBookmark indicates the user bookmarked the article.
	InteractionBookmark
	// InteractionLike indicates the user liked the article.
	InteractionLike
	// InteractionShare indicates the user shared the article.
	InteractionShare
)

// String returns a human-readable name for the interaction type.
func (t InteractionType) String() string {
	switch t {
	case InteractionImpression:
		return "impression"
	case InteractionScrollStop:
		return "scroll_stop"
	case InteractionView:
		return "view"
	case InteractionClick:
		return "click"
	case InteractionBookmark:
		return "bookmark"
	case InteractionLike:
		return "like"
	case InteractionShare:
		return "share"
	default:
		return "unknown"
	}
}

// ParseInteractionType parses a wire-format interaction type name.
func ParseInteractionType(s string) (InteractionType, error) {
	switch s {
	case "impression":
		return InteractionImpression, nil
	case "scroll_stop":
		return InteractionScrollStop, nil
	case "view":
		return InteractionView, nil
	case "click":
		return InteractionClick, nil
	case "bookmark":
		return InteractionBookmark, nil
	case "like":
		return InteractionLike, nil
	case "share":
		return InteractionShare, nil
	default:
		return 0, fmt.Errorf("unknown interaction type %q", s)
	}
}

// IsPositive reports whether the interaction is a deliberate engagement
// signal rather than passive exposure.
func (t InteractionType) IsPositive() bool {
	switch t {
	case InteractionView, InteractionClick, InteractionBookmark, InteractionLike, InteractionShare:
		return true
	default:
		return false
	}
}

// InteractionEvent is a single immutable user-article interaction.
// Events are append-only and owned by the event ledger; the category is
// resolved upstream from the article before the event reaches this core.
type InteractionEvent struct {
	// ID is a unique event identifier.
	ID string `json:"id"`

	// UserID identifies the interacting user.
	UserID string `json:"user_id"`

	// ArticleID identifies the article the event refers to.
	ArticleID string `json:"article_id"`

	// CategoryID is the article's category, resolved by the ingestion layer.
	CategoryID string `json:"category_id"`

	// Title is the article title at interaction time, used for the
	// click predictor's title-trait statistics. Optional.
	Title string `json:"title,omitempty"`

	// Vector is the article's content vector at interaction time,
	// used to grow the user's content profile on click-grade events.
	// Optional; supplied by the ingestion layer.
	Vector []float32 `json:"vector,omitempty"`

	// Type classifies the interaction.
	Type InteractionType `json:"type"`

	// Duration is how long the user spent reading. Only valid for view
	// events; enforced by NewInteractionEvent.
	Duration time.Duration `json:"duration,omitempty"`

	// OccurredAt is when the interaction happened.
	OccurredAt time.Time `json:"occurred_at"`
}

// NewInteractionEvent constructs a validated interaction event.
// Duration may only be set for view events.
func NewInteractionEvent(userID, articleID, categoryID string, typ InteractionType, duration time.Duration, occurredAt time.Time) (InteractionEvent, error) {
	if userID == "" {
		return InteractionEvent{}, fmt.Errorf("interaction event: empty user id")
	}
	if articleID == "" {
		return InteractionEvent{}, fmt.Errorf("interaction event: empty article id")
	}
	if typ.String() == "unknown" {
		return InteractionEvent{}, fmt.Errorf("interaction event: invalid type %d", typ)
	}
	if duration != 0 && typ != InteractionView {
		return InteractionEvent{}, fmt.Errorf("interaction event: duration only valid for view events, got %s", typ)
	}
	if duration < 0 {
		return InteractionEvent{}, fmt.Errorf("interaction event: negative duration %s", duration)
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	return InteractionEvent{
		UserID:     userID,
		ArticleID:  articleID,
		CategoryID: categoryID,
		Type:       typ,
		Duration:   duration,
		OccurredAt: occurredAt,
	}, nil
}
