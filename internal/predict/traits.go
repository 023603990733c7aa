// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package predict implements the per-user click-probability model: a
// base rate adjusted by content-profile similarity, learned
// title-trigger multipliers, keyword affinity and category preference.
// The model is gated behind an interaction-volume threshold; until a
// user crosses it, predictions are neutral and non-authoritative.
package predict

import (
	"math"
	"strings"
	"unicode"
)

// Title trait names tracked per user.
const (
	TraitUrgency     = "urgency"
	TraitNumeric     = "numeric"
	TraitControversy = "controversy"
	TraitExclusivity = "exclusivity"
)

var urgencyWords = map[string]struct{}{
	"breaking": {}, "urgent": {}, "live": {}, "now": {}, "alert": {},
	"just": {}, "developing": {}, "update": {},
}

var controversyWords = map[string]struct{}{
	"slams": {}, "blasts": {}, "row": {}, "fury": {}, "outrage": {},
	"scandal": {}, "controversy": {}, "clash": {}, "backlash": {},
	"feud": {},
}

var exclusivityWords = map[string]struct{}{
	"exclusive": {}, "revealed": {}, "inside": {}, "secret": {},
	"leaked": {}, "untold": {}, "confidential": {},
}

// stopwords excluded from keyword statistics.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "are": {}, "was": {}, "has": {}, "have": {}, "will": {},
	"his": {}, "her": {}, "its": {}, "their": {}, "after": {}, "over": {},
	"into": {}, "about": {}, "not": {}, "but": {}, "you": {}, "your": {},
	"what": {}, "how": {}, "why": {}, "when": {}, "who": {},
}

// Tokenize lowercases a title and splits it into keyword candidates,
// dropping stopwords and tokens shorter than three characters.
func Tokenize(title string) []string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// TitleTraits returns the trigger traits present in a title: urgency,
// numeric, controversy and exclusivity wording.
func TitleTraits(title string) []string {
	var traits []string
	seen := make(map[string]bool, 4)

	add := func(trait string) {
		if !seen[trait] {
			seen[trait] = true
			traits = append(traits, trait)
		}
	}

	for _, r := range title {
		if unicode.IsDigit(r) {
			add(TraitNumeric)
			break
		}
	}

	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if _, ok := urgencyWords[f]; ok {
			add(TraitUrgency)
		}
		if _, ok := controversyWords[f]; ok {
			add(TraitControversy)
		}
		if _, ok := exclusivityWords[f]; ok {
			add(TraitExclusivity)
		}
	}
	return traits
}

// Cosine returns the cosine similarity of two vectors, or 0 when
// either is empty or their dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
