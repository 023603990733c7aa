// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package feed

import (
	"math"
	"math/rand"
	"sort"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/models"
)

// Assembler merges the diversified exploitation list with the three
// exploration strategies at the configured ratio, pins breaking
// candidates to the leading slots, interleaves discovery wildcards,
// and applies the bounded partial shuffle.
type Assembler struct {
	cfg config.AssemblyConfig
}

// NewAssembler creates an assembler.
func NewAssembler(cfg config.AssemblyConfig) *Assembler {
	return &Assembler{cfg: cfg}
}

// explorationPool round-robins across the three strategies at their
// configured shares, draining whichever still has supply when the
// preferred one runs dry.
type explorationPool struct {
	siblings, parents, trending []models.ArticleCandidate
	weights                     [3]float64
	drawn                       [3]int
}

func newExplorationPool(s *sourced, cfg config.AssemblyConfig) *explorationPool {
	return &explorationPool{
		siblings: s.siblings,
		parents:  s.parents,
		trending: s.trending,
		weights:  [3]float64{cfg.SiblingShare, cfg.ParentShare, cfg.TrendingShare},
	}
}

// next pops the exploration candidate whose strategy is furthest
// behind its share. Returns false when all three pools are empty.
func (p *explorationPool) next() (models.ArticleCandidate, bool) {
	pools := [3]*[]models.ArticleCandidate{&p.siblings, &p.parents, &p.trending}

	best := -1
	bestDeficit := math.Inf(-1)
	total := p.drawn[0] + p.drawn[1] + p.drawn[2] + 1
	for i, pool := range pools {
		if len(*pool) == 0 {
			continue
		}
		deficit := p.weights[i]*float64(total) - float64(p.drawn[i])
		if deficit > bestDeficit {
			bestDeficit = deficit
			best = i
		}
	}
	if best < 0 {
		return models.ArticleCandidate{}, false
	}

	pool := pools[best]
	c := (*pool)[0]
	*pool = (*pool)[1:]
	p.drawn[best]++
	return c, true
}

// nextTrending pops a trending candidate specifically, for wildcard
// slots, falling back to any strategy when trending is empty.
func (p *explorationPool) nextTrending() (models.ArticleCandidate, bool) {
	if len(p.trending) > 0 {
		c := p.trending[0]
		p.trending = p.trending[1:]
		p.drawn[2]++
		return c, true
	}
	return p.next()
}

// Assemble builds the ordered feed of up to limit candidates from the
// sourced pools. exploitation must already be scored and diversified.
// The caller tops up any shortfall through the fallback chain.
func (a *Assembler) Assemble(exploitation []models.ArticleCandidate, src *sourced, limit int, rng *rand.Rand) []models.ArticleCandidate {
	if limit <= 0 {
		return nil
	}

	out := make([]models.ArticleCandidate, 0, limit)
	used := make(map[string]struct{}, limit)

	take := func(c models.ArticleCandidate) bool {
		if _, dup := used[c.ID]; dup {
			return false
		}
		used[c.ID] = struct{}{}
		out = append(out, c)
		return true
	}

	// A user with no history gets the recent fallback verbatim:
	// newest first, no breaking pin, no exploration mix, no shuffle.
	if src.coldStart {
		chron := make([]models.ArticleCandidate, len(exploitation))
		copy(chron, exploitation)
		sort.SliceStable(chron, func(i, j int) bool {
			return chron[i].PublishedAt.After(chron[j].PublishedAt)
		})
		for _, c := range chron {
			if len(out) >= limit {
				break
			}
			take(c)
		}
		return out
	}

	// Breaking slots first.
	breaking := 0
	for _, c := range src.breaking {
		if breaking >= a.cfg.BreakingSlots || len(out) >= limit {
			break
		}
		if take(c) {
			breaking++
		}
	}

	// Split the remaining budget at the exploitation ratio.
	remaining := limit - len(out)
	exploitBudget := int(math.Round(a.cfg.ExploitRatio * float64(remaining)))
	exploreBudget := remaining - exploitBudget

	pool := newExplorationPool(src, a.cfg)

	exploitTaken := 0
	exploitIdx := 0
	sinceWildcard := 0
	for len(out) < limit && (exploitTaken < exploitBudget || exploreBudget > 0) {
		// Interleave a discovery wildcard roughly every
		// WildcardInterval exploitation slots. The wildcard draws from
		// trending and counts against the exploration budget.
		if sinceWildcard >= a.cfg.WildcardInterval && exploreBudget > 0 {
			if c, ok := pool.nextTrending(); ok {
				c.Tag(models.SourceWildcard)
				if take(c) {
					exploreBudget--
					sinceWildcard = 0
					continue
				}
			}
			sinceWildcard = 0
		}

		if exploitTaken < exploitBudget && exploitIdx < len(exploitation) {
			if take(exploitation[exploitIdx]) {
				exploitTaken++
				sinceWildcard++
			}
			exploitIdx++
			continue
		}

		if exploreBudget > 0 {
			c, ok := pool.next()
			if !ok {
				// Exploration supply exhausted: reassign the budget to
				// exploitation rather than under-fill.
				exploitBudget += exploreBudget
				exploreBudget = 0
				continue
			}
			if take(c) {
				exploreBudget--
			}
			continue
		}

		if exploitIdx >= len(exploitation) {
			break
		}
	}

	// Exploitation exhausted but exploration still has supply: keep
	// filling rather than return short.
	for len(out) < limit {
		c, ok := pool.next()
		if !ok {
			break
		}
		take(c)
	}

	a.boundedShuffle(out, rng)
	return out
}

// boundedShuffle randomizes order only inside the configured middle
// window, leaving the breaking/high-confidence head and the tail
// stable.
func (a *Assembler) boundedShuffle(items []models.ArticleCandidate, rng *rand.Rand) {
	start := a.cfg.ShuffleStart
	end := a.cfg.ShuffleEnd
	if end > len(items) {
		end = len(items)
	}
	if start >= end {
		return
	}
	window := items[start:end]
	rng.Shuffle(len(window), func(i, j int) {
		window[i], window[j] = window[j], window[i]
	})
}
