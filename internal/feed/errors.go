// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package feed implements the feed pipeline: candidate sourcing,
// composite scoring, diversity enforcement, exploitation/exploration
// assembly and the availability fallback chain.
package feed

import "errors"

var (
	// ErrNoContent means every source, including the full fallback
	// chain, came back empty. It is the only error GetFeed surfaces
	// for supply problems.
	ErrNoContent = errors.New("feed: no content available")

	// ErrInvalidLimit rejects out-of-range page sizes.
	ErrInvalidLimit = errors.New("feed: invalid limit")

	// ErrInvalidOffset rejects negative offsets.
	ErrInvalidOffset = errors.New("feed: invalid offset")
)
