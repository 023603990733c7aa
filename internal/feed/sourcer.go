// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package feed

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/taxonomy"
)

// ArticleSource queries the upstream content store. Implemented by
// the content client; mocked in tests.
type ArticleSource interface {
	ArticlesByCategories(ctx context.Context, categoryIDs []string, since time.Time, limit int) ([]models.ArticleRef, error)
	SimilarArticles(ctx context.Context, vector []float32, categoryIDs []string, limit int) ([]models.ArticleRef, error)
	Trending(ctx context.Context, limit int) ([]models.ArticleRef, error)
	Recent(ctx context.Context, since time.Time, limit int) ([]models.ArticleRef, error)
	Breaking(ctx context.Context, window time.Duration, limit int) ([]models.ArticleRef, error)
	PopularThisWeek(ctx context.Context, limit int) ([]models.ArticleRef, error)
}

// sourced holds the raw candidate slices one feed request works with.
type sourced struct {
	exploitation []models.ArticleCandidate
	breaking     []models.ArticleCandidate
	siblings     []models.ArticleCandidate
	parents      []models.ArticleCandidate
	trending     []models.ArticleCandidate
	coldStart    bool
}

// Sourcer produces candidates from the content store: the parallel
// affinity and similarity queries for exploitation, plus the three
// exploration strategies and the breaking pool. Every stage degrades
// to empty on timeout or upstream error; only the engine-level
// fallback chain decides whether the request can still be served.
type Sourcer struct {
	content ArticleSource
	cfg     config.FeedConfig
	logger  zerolog.Logger
}

// NewSourcer creates a candidate sourcer.
func NewSourcer(content ArticleSource, cfg config.FeedConfig, logger zerolog.Logger) *Sourcer {
	return &Sourcer{
		content: content,
		cfg:     cfg,
		logger:  logger.With().Str("component", "sourcer").Logger(),
	}
}

// userSignals is the per-user input to sourcing.
type userSignals struct {
	prefs   []models.UserCategoryPreference
	profile []float32
	clicked map[string]struct{}
}

// source runs all candidate queries. The independent stages run
// concurrently; each gets its own timeout so one slow upstream query
// cannot exhaust the request budget.
func (s *Sourcer) source(ctx context.Context, sig userSignals, tree *taxonomy.Tree) *sourced {
	out := &sourced{}

	topCats := topCategories(sig.prefs, s.cfg.TopCategories)
	touched := touchedCategories(sig.prefs)

	var wg sync.WaitGroup
	var mu sync.Mutex

	run := func(name string, fn func(context.Context) []models.ArticleCandidate, dst *[]models.ArticleCandidate) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stageCtx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
			defer cancel()
			cands := fn(stageCtx)
			metrics.FeedCandidates.WithLabelValues(name).Observe(float64(len(cands)))
			mu.Lock()
			*dst = append(*dst, cands...)
			mu.Unlock()
		}()
	}

	var affinity, similar []models.ArticleCandidate
	if len(topCats) > 0 {
		run("affinity", func(c context.Context) []models.ArticleCandidate {
			return s.affinityQuery(c, topCats, sig.clicked)
		}, &affinity)
	}
	if len(sig.profile) > 0 {
		run("similarity", func(c context.Context) []models.ArticleCandidate {
			return s.similarityQuery(c, sig.profile, sig.clicked)
		}, &similar)
	}
	run("breaking", func(c context.Context) []models.ArticleCandidate {
		return s.breakingQuery(c, sig.clicked)
	}, &out.breaking)
	run("sibling", func(c context.Context) []models.ArticleCandidate {
		return s.siblingQuery(c, topCats, touched, tree, sig.clicked)
	}, &out.siblings)
	run("parent", func(c context.Context) []models.ArticleCandidate {
		return s.parentQuery(c, sig.prefs, touched, tree, sig.clicked)
	}, &out.parents)
	run("trending", func(c context.Context) []models.ArticleCandidate {
		return s.trendingQuery(c, touched, sig.clicked)
	}, &out.trending)

	wg.Wait()

	// Merge with similarity-sourced candidates taking precedence on
	// duplicate article IDs: they carry the similarity signal.
	out.exploitation = mergeCandidates(similar, affinity)

	if len(topCats) == 0 && len(sig.profile) == 0 {
		// No interaction history at all: exploitation falls back to
		// recent articles across all categories so downstream stages
		// never starve.
		out.coldStart = true
		stageCtx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
		out.exploitation = s.recentQuery(stageCtx, sig.clicked)
		metrics.FeedCandidates.WithLabelValues("fallback").Observe(float64(len(out.exploitation)))
		metrics.FeedColdStarts.Inc()
	}

	return out
}

func (s *Sourcer) affinityQuery(ctx context.Context, topCats []string, clicked map[string]struct{}) []models.ArticleCandidate {
	refs, err := s.content.ArticlesByCategories(ctx, topCats, time.Now().Add(-s.cfg.CandidateWindow), s.cfg.CandidateLimit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("affinity query degraded to empty")
		return nil
	}
	return toCandidates(refs, models.SourceExploitation, "affinity", clicked)
}

func (s *Sourcer) similarityQuery(ctx context.Context, profile []float32, clicked map[string]struct{}) []models.ArticleCandidate {
	refs, err := s.content.SimilarArticles(ctx, profile, nil, s.cfg.CandidateLimit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("similarity query degraded to empty")
		return nil
	}
	return toCandidates(refs, models.SourceExploitation, "similarity", clicked)
}

func (s *Sourcer) breakingQuery(ctx context.Context, clicked map[string]struct{}) []models.ArticleCandidate {
	refs, err := s.content.Breaking(ctx, s.cfg.Assembly.BreakingWindow, s.cfg.Assembly.BreakingSlots*4)
	if err != nil {
		s.logger.Warn().Err(err).Msg("breaking query degraded to empty")
		return nil
	}
	// Explicitly flagged articles take the pinned slots ahead of ones
	// that qualify only by recency.
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].Breaking && !refs[j].Breaking
	})
	return toCandidates(refs, models.SourceBreaking, "breaking", clicked)
}

// siblingQuery sources articles from sibling categories (same parent,
// different child) of the user's top categories, skipping categories
// the user already has signal in.
func (s *Sourcer) siblingQuery(ctx context.Context, topCats []string, touched map[string]struct{}, tree *taxonomy.Tree, clicked map[string]struct{}) []models.ArticleCandidate {
	var catIDs []string
	seen := make(map[string]struct{})
	for _, cat := range topCats {
		for _, sib := range tree.Siblings(cat) {
			if _, has := touched[sib]; has {
				continue
			}
			if _, dup := seen[sib]; dup {
				continue
			}
			seen[sib] = struct{}{}
			catIDs = append(catIDs, sib)
		}
	}
	if len(catIDs) == 0 {
		return nil
	}

	refs, err := s.content.ArticlesByCategories(ctx, catIDs, time.Now().Add(-s.cfg.CandidateWindow), s.cfg.CandidateLimit/2)
	if err != nil {
		s.logger.Warn().Err(err).Msg("sibling query degraded to empty")
		return nil
	}
	return toCandidates(refs, models.SourceExplorationSibling, "sibling", clicked)
}

// parentQuery sources from the untouched children of parent categories
// the user holds a preference in (directly or propagated).
func (s *Sourcer) parentQuery(ctx context.Context, prefs []models.UserCategoryPreference, touched map[string]struct{}, tree *taxonomy.Tree, clicked map[string]struct{}) []models.ArticleCandidate {
	var catIDs []string
	seen := make(map[string]struct{})
	for _, p := range prefs {
		if tree.Level(p.CategoryID) >= 3 {
			continue
		}
		for _, child := range tree.Children(p.CategoryID) {
			if _, has := touched[child]; has {
				continue
			}
			if _, dup := seen[child]; dup {
				continue
			}
			seen[child] = struct{}{}
			catIDs = append(catIDs, child)
		}
	}
	if len(catIDs) == 0 {
		return nil
	}

	refs, err := s.content.ArticlesByCategories(ctx, catIDs, time.Now().Add(-s.cfg.CandidateWindow), s.cfg.CandidateLimit/2)
	if err != nil {
		s.logger.Warn().Err(err).Msg("parent query degraded to empty")
		return nil
	}
	return toCandidates(refs, models.SourceExplorationParent, "parent", clicked)
}

// trendingQuery sources globally trending articles from categories the
// user has never touched.
func (s *Sourcer) trendingQuery(ctx context.Context, touched map[string]struct{}, clicked map[string]struct{}) []models.ArticleCandidate {
	refs, err := s.content.Trending(ctx, s.cfg.CandidateLimit/2)
	if err != nil {
		s.logger.Warn().Err(err).Msg("trending query degraded to empty")
		return nil
	}

	var filtered []models.ArticleRef
	for _, ref := range refs {
		if _, has := touched[ref.CategoryID]; has {
			continue
		}
		filtered = append(filtered, ref)
	}
	return toCandidates(filtered, models.SourceExplorationTrending, "trending", clicked)
}

func (s *Sourcer) recentQuery(ctx context.Context, clicked map[string]struct{}) []models.ArticleCandidate {
	refs, err := s.content.Recent(ctx, time.Now().Add(-s.cfg.CandidateWindow), s.cfg.CandidateLimit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("recent fallback query degraded to empty")
		return nil
	}
	return toCandidates(refs, models.SourceFallback, "recent", clicked)
}

// toCandidates converts refs to candidates, excluding clicked articles.
func toCandidates(refs []models.ArticleRef, source models.SourceTag, name string, clicked map[string]struct{}) []models.ArticleCandidate {
	out := make([]models.ArticleCandidate, 0, len(refs))
	for _, ref := range refs {
		if _, has := clicked[ref.ID]; has {
			continue
		}
		c := models.ArticleCandidate{ArticleRef: ref, SourceName: name}
		c.Tag(source)
		out = append(out, c)
	}
	return out
}

// mergeCandidates deduplicates by article ID with earlier slices
// winning on conflicts.
func mergeCandidates(slices ...[]models.ArticleCandidate) []models.ArticleCandidate {
	seen := make(map[string]struct{})
	var out []models.ArticleCandidate
	for _, slice := range slices {
		for _, c := range slice {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// topCategories returns the IDs of the user's highest-scoring direct
// categories.
func topCategories(prefs []models.UserCategoryPreference, n int) []string {
	direct := make([]models.UserCategoryPreference, 0, len(prefs))
	for _, p := range prefs {
		if !p.Propagated {
			direct = append(direct, p)
		}
	}
	sort.Slice(direct, func(i, j int) bool {
		if direct[i].Score != direct[j].Score {
			return direct[i].Score > direct[j].Score
		}
		return direct[i].CategoryID < direct[j].CategoryID
	})
	if len(direct) > n {
		direct = direct[:n]
	}
	out := make([]string, len(direct))
	for i, p := range direct {
		out[i] = p.CategoryID
	}
	return out
}

// touchedCategories returns every category the user has any score in,
// direct or propagated.
func touchedCategories(prefs []models.UserCategoryPreference) map[string]struct{} {
	out := make(map[string]struct{}, len(prefs))
	for _, p := range prefs {
		out[p.CategoryID] = struct{}{}
	}
	return out
}
