// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package feed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/cache"
	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/storage"
	"github.com/tomtom215/folio/internal/taxonomy"
)

// UserData provides the per-user state a feed request reads.
type UserData interface {
	Preferences(ctx context.Context, userID string) ([]models.UserCategoryPreference, error)
	PreferenceMetadata(ctx context.Context, userID string) (*storage.PreferenceMeta, error)
	ClickedArticleIDs(ctx context.Context, userID string) (map[string]struct{}, error)
	UnclickedImpressions(ctx context.Context, userID string, limit int) ([]models.ArticleRef, error)
	UserStats(ctx context.Context, userID string) (*models.UserStats, error)
}

// Recomputer triggers a synchronous preference recompute, used for the
// lazy refresh of stale profiles before serving.
type Recomputer interface {
	Recompute(ctx context.Context, userID string) (int, error)
}

// Reranker attaches click predictions and optionally reorders.
type Reranker interface {
	Rerank(candidates []models.ArticleCandidate, stats *models.UserStats, prefs map[string]float64) []models.ArticleCandidate
}

// TreeSource provides the taxonomy snapshot.
type TreeSource interface {
	Tree(ctx context.Context) (*taxonomy.Tree, error)
}

// Page is one page of an assembled feed.
type Page struct {
	Items     []models.ArticleCandidate `json:"items"`
	Total     int                       `json:"total"`
	Offset    int                       `json:"offset"`
	ColdStart bool                      `json:"cold_start"`
	Generated time.Time                 `json:"generated"`
}

// cachedFeed is the full assembled list stored per user, sliced for
// pagination so successive pages stay consistent.
type cachedFeed struct {
	items     []models.ArticleCandidate
	coldStart bool
	generated time.Time
}

// Engine orchestrates one feed request: lazy profile refresh, parallel
// sourcing, scoring, diversification, assembly, fallback top-up and
// the optional click-prediction rerank. It holds no per-request
// mutable state beyond the response cache.
type Engine struct {
	sourcer    *Sourcer
	scorer     *Scorer
	assembler  *Assembler
	users      UserData
	content    ArticleSource
	taxonomy   TreeSource
	recomputer Recomputer
	reranker   Reranker
	cache      *cache.Cache
	cfg        config.FeedConfig
	staleAfter time.Duration
	logger     zerolog.Logger

	// mu guards the rng and the swappable pipeline stages so the
	// runtime config endpoint can retune a live engine.
	mu  sync.Mutex
	rng *rand.Rand
}

// Config returns the engine's current feed configuration.
func (e *Engine) Config() config.FeedConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// UpdateConfig swaps the feed configuration and rebuilds the pipeline
// stages that captured it. Cached feeds are dropped so the new tuning
// takes effect immediately. The caller validates cfg first.
func (e *Engine) UpdateConfig(cfg config.FeedConfig) {
	e.mu.Lock()
	e.cfg = cfg
	e.sourcer = NewSourcer(e.content, cfg, e.logger)
	e.scorer = NewScorer(cfg)
	e.assembler = NewAssembler(cfg.Assembly)
	e.mu.Unlock()
	e.cache.Clear()
}

// NewEngine wires the feed pipeline. recomputer and reranker may be
// nil; the corresponding stages are skipped.
func NewEngine(content ArticleSource, users UserData, tree TreeSource, recomputer Recomputer, reranker Reranker, cfg config.FeedConfig, staleAfter time.Duration, logger zerolog.Logger) *Engine {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log := logger.With().Str("component", "feed").Logger()
	return &Engine{
		sourcer:    NewSourcer(content, cfg, log),
		scorer:     NewScorer(cfg),
		assembler:  NewAssembler(cfg.Assembly),
		users:      users,
		content:    content,
		taxonomy:   tree,
		recomputer: recomputer,
		reranker:   reranker,
		cache:      cache.New(cfg.CacheTTL),
		cfg:        cfg,
		staleAfter: staleAfter,
		logger:     log,
		rng:        rand.New(rand.NewSource(seed)), //nolint:gosec // feed shuffle, not crypto
	}
}

// Close releases the engine's response cache.
func (e *Engine) Close() {
	stats := e.cache.GetStats()
	e.logger.Debug().
		Int64("hits", stats.Hits).
		Int64("misses", stats.Misses).
		Int64("evictions", stats.Evictions).
		Float64("hit_rate_pct", e.cache.HitRate()).
		Msg("feed cache closing")
	e.cache.Close()
}

// InvalidateUser drops a user's cached feed, called after a
// preference recompute so the next request reflects it.
func (e *Engine) InvalidateUser(userID string) {
	e.cache.Delete(feedCacheKey(userID))
}

func feedCacheKey(userID string) string {
	return "feed:" + userID
}

// GetFeed returns one page of the user's personalized feed. The full
// feed is assembled once per cache TTL; pages slice into it so
// pagination is stable. It returns ErrNoContent only when every
// source and fallback is empty.
func (e *Engine) GetFeed(ctx context.Context, userID string, limit, offset int) (*Page, error) {
	maxLimit := e.Config().MaxLimit
	if limit <= 0 || limit > maxLimit {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidLimit, limit, maxLimit)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOffset, offset)
	}

	start := time.Now()

	var feed *cachedFeed
	if cached, ok := e.cache.Get(feedCacheKey(userID)); ok {
		metrics.CacheHits.WithLabelValues("feed").Inc()
		feed = cached.(*cachedFeed)
	} else {
		metrics.CacheMisses.WithLabelValues("feed").Inc()
		built, err := e.build(ctx, userID)
		if err != nil {
			metrics.FeedRequestsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		feed = built
		e.cache.Set(feedCacheKey(userID), feed)
	}

	if len(feed.items) == 0 {
		metrics.FeedRequestsTotal.WithLabelValues("error").Inc()
		return nil, ErrNoContent
	}

	page := &Page{
		Total:     len(feed.items),
		Offset:    offset,
		ColdStart: feed.coldStart,
		Generated: feed.generated,
	}
	if offset < len(feed.items) {
		end := offset + limit
		if end > len(feed.items) {
			end = len(feed.items)
		}
		page.Items = feed.items[offset:end]
	}

	result := "ok"
	if feed.coldStart {
		result = "fallback"
	}
	metrics.FeedRequestsTotal.WithLabelValues(result).Inc()
	metrics.FeedAssemblyDuration.Observe(time.Since(start).Seconds())
	return page, nil
}

// build assembles the full feed for one user.
func (e *Engine) build(ctx context.Context, userID string) (*cachedFeed, error) {
	e.mu.Lock()
	cfg, sourcer, scorer := e.cfg, e.sourcer, e.scorer
	e.mu.Unlock()

	e.maybeRefreshProfile(ctx, userID)

	prefs, err := e.users.Preferences(ctx, userID)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", userID).Msg("preference read failed, treating as cold start")
		prefs = nil
	}

	stats, err := e.users.UserStats(ctx, userID)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", userID).Msg("stats read failed, predictor will be neutral")
		stats = nil
	}

	clicked, err := e.users.ClickedArticleIDs(ctx, userID)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", userID).Msg("clicked set read failed, serving without exclusions")
		clicked = map[string]struct{}{}
	}

	tree, err := e.taxonomy.Tree(ctx)
	if err != nil {
		// Without a taxonomy the exploration strategies cannot run,
		// but the feed still can.
		e.logger.Warn().Err(err).Msg("taxonomy unavailable, exploration disabled")
		tree = taxonomy.Build(nil)
	}

	sig := userSignals{prefs: prefs, clicked: clicked}
	if stats != nil {
		sig.profile = stats.Vector()
	}

	src := sourcer.source(ctx, sig, tree)

	prefMap := make(map[string]float64, len(prefs))
	for _, p := range prefs {
		prefMap[p.CategoryID] = p.Score
	}

	now := time.Now()
	exploitation := scorer.Score(src.exploitation, prefMap, now)
	exploitation = Diversify(exploitation, cfg.Diversity)

	e.mu.Lock()
	items := e.assembler.Assemble(exploitation, src, cfg.MaxLimit, e.rng)
	e.mu.Unlock()

	items = e.topUp(ctx, userID, items, clicked, cfg)

	if e.reranker != nil {
		items = e.rerankAfterBreaking(items, stats, prefMap)
	}

	return &cachedFeed{
		items:     items,
		coldStart: src.coldStart,
		generated: now,
	}, nil
}

// maybeRefreshProfile runs a synchronous recompute when the stored
// profile is missing or older than the staleness bound. Failures are
// logged and the stale profile keeps serving.
func (e *Engine) maybeRefreshProfile(ctx context.Context, userID string) {
	if e.recomputer == nil {
		return
	}

	meta, err := e.users.PreferenceMetadata(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// No profile yet; a recompute may create one if events exist.
	case err != nil:
		e.logger.Warn().Err(err).Str("user_id", userID).Msg("preference metadata read failed")
		return
	case time.Since(meta.ComputedAt) < e.staleAfter:
		return
	}

	if _, err := e.recomputer.Recompute(ctx, userID); err != nil {
		e.logger.Warn().Err(err).Str("user_id", userID).Msg("lazy profile refresh failed, serving stale profile")
	}
}

// topUp fills any shortfall through the fallback chain: unclicked
// impressions, then popular-this-week, then recent. The feed returns
// short only when all of them are dry.
func (e *Engine) topUp(ctx context.Context, userID string, items []models.ArticleCandidate, clicked map[string]struct{}, cfg config.FeedConfig) []models.ArticleCandidate {
	want := cfg.MaxLimit
	if len(items) >= want {
		return items
	}

	used := make(map[string]struct{}, len(items))
	for _, c := range items {
		used[c.ID] = struct{}{}
	}

	add := func(refs []models.ArticleRef) {
		for _, ref := range refs {
			if len(items) >= want {
				return
			}
			if _, dup := used[ref.ID]; dup {
				continue
			}
			if _, has := clicked[ref.ID]; has {
				continue
			}
			used[ref.ID] = struct{}{}
			c := models.ArticleCandidate{ArticleRef: ref}
			c.Tag(models.SourceFallback)
			items = append(items, c)
		}
	}

	stageCtx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()

	if refs, err := e.users.UnclickedImpressions(stageCtx, userID, want); err == nil {
		add(refs)
	}
	if len(items) < want {
		if refs, err := e.content.PopularThisWeek(stageCtx, want); err == nil {
			add(refs)
		}
	}
	if len(items) < want {
		if refs, err := e.content.Recent(stageCtx, time.Now().Add(-cfg.CandidateWindow), want); err == nil {
			add(refs)
		}
	}
	return items
}

// rerankAfterBreaking applies the click predictor to everything behind
// the pinned breaking head. Non-authoritative predictions leave the
// order untouched by contract.
func (e *Engine) rerankAfterBreaking(items []models.ArticleCandidate, stats *models.UserStats, prefs map[string]float64) []models.ArticleCandidate {
	head := 0
	for head < len(items) && items[head].Source == models.SourceBreaking {
		head++
	}
	if head >= len(items) {
		return items
	}
	reranked := e.reranker.Rerank(items[head:], stats, prefs)
	return append(items[:head], reranked...)
}
