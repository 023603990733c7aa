// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package config loads and validates Folio configuration via Koanf v2
// with layered sources: struct defaults, then an optional YAML file,
// then environment variables (highest priority, FOLIO_ prefix).
//
// Every heuristic constant of the personalization pipeline (interaction
// weights, per-level decay half-lives, negative-feedback thresholds,
// exploitation/exploration ratio, slotting, shuffle window, predictor
// factor weights) lives here so it is runtime-tunable rather than
// hardcoded inside the algorithms.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Folio server.
type Config struct {
	Server     ServerConfig     `koanf:"server" json:"server"`
	Logging    LoggingConfig    `koanf:"logging" json:"logging"`
	Storage    StorageConfig    `koanf:"storage" json:"storage"`
	Content    ContentConfig    `koanf:"content" json:"content"`
	Taxonomy   TaxonomyConfig   `koanf:"taxonomy" json:"taxonomy"`
	Preference PreferenceConfig `koanf:"preference" json:"preference"`
	Feed       FeedConfig       `koanf:"feed" json:"feed"`
	Predictor  PredictorConfig  `koanf:"predictor" json:"predictor"`
	Scheduler  SchedulerConfig  `koanf:"scheduler" json:"scheduler"`
	NATS       NATSConfig       `koanf:"nats" json:"nats"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host" json:"host"`
	Port            int           `koanf:"port" json:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`

	// CORSOrigins lists allowed CORS origins. "*" allows all.
	CORSOrigins []string `koanf:"cors_origins" json:"cors_origins"`

	// RateLimit is the per-IP request budget per minute. 0 disables.
	RateLimit int `koanf:"rate_limit" json:"rate_limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" json:"level"`
	Format string `koanf:"format" json:"format"`
	Caller bool   `koanf:"caller" json:"caller"`
}

// StorageConfig holds BadgerDB settings for preference and stats storage.
type StorageConfig struct {
	// Dir is the on-disk Badger directory.
	Dir string `koanf:"dir" json:"dir"`

	// InMemory runs Badger without disk persistence, for tests and
	// ephemeral deployments.
	InMemory bool `koanf:"in_memory" json:"in_memory"`

	// GCInterval is how often the value-log garbage collector runs.
	GCInterval time.Duration `koanf:"gc_interval" json:"gc_interval"`
}

// ContentConfig holds settings for the upstream content store client.
type ContentConfig struct {
	// BaseURL is the content service API root.
	BaseURL string `koanf:"base_url" json:"base_url"`

	// Timeout bounds every content store query.
	Timeout time.Duration `koanf:"timeout" json:"timeout"`

	// BreakerMaxFailures is the consecutive-failure count that trips
	// the circuit breaker.
	BreakerMaxFailures uint32 `koanf:"breaker_max_failures" json:"breaker_max_failures"`

	// BreakerCooldown is how long the breaker stays open before probing.
	BreakerCooldown time.Duration `koanf:"breaker_cooldown" json:"breaker_cooldown"`
}

// TaxonomyConfig holds the category taxonomy cache settings.
type TaxonomyConfig struct {
	// TTL is the read-through cache time-to-live. Staleness is
	// acceptable; the taxonomy changes rarely.
	TTL time.Duration `koanf:"ttl" json:"ttl"`
}

// InteractionWeights assigns a raw weight to each interaction type.
type InteractionWeights struct {
	Impression float64 `koanf:"impression" json:"impression"`
	ScrollStop float64 `koanf:"scroll_stop" json:"scroll_stop"`
	View       float64 `koanf:"view" json:"view"`
	Click      float64 `koanf:"click" json:"click"`
	Bookmark   float64 `koanf:"bookmark" json:"bookmark"`
	Like       float64 `koanf:"like" json:"like"`
	Share      float64 `koanf:"share" json:"share"`
}

// DecayConfig holds per-hierarchy-level exponential decay half-lives.
// Specific (level-3) categories decay fastest; broad (level-1) slowest.
type DecayConfig struct {
	Level1HalfLifeDays float64 `koanf:"level1_half_life_days" json:"level1_half_life_days"`
	Level2HalfLifeDays float64 `koanf:"level2_half_life_days" json:"level2_half_life_days"`
	Level3HalfLifeDays float64 `koanf:"level3_half_life_days" json:"level3_half_life_days"`
}

// HalfLifeForLevel returns the half-life in days for a hierarchy level.
// Unknown levels fall back to the most specific tier.
func (d DecayConfig) HalfLifeForLevel(level int) float64 {
	switch level {
	case 1:
		return d.Level1HalfLifeDays
	case 2:
		return d.Level2HalfLifeDays
	default:
		return d.Level3HalfLifeDays
	}
}

// NegativeFeedbackConfig penalizes categories the user sees but ignores.
type NegativeFeedbackConfig struct {
	// MinImpressions is the minimum impression count before a category
	// is eligible for a penalty.
	MinImpressions int `koanf:"min_impressions" json:"min_impressions"`

	// CTRThreshold is the click-through rate below which a penalty applies.
	CTRThreshold float64 `koanf:"ctr_threshold" json:"ctr_threshold"`

	// MinPenalty is the fraction removed at near-threshold CTR.
	MinPenalty float64 `koanf:"min_penalty" json:"min_penalty"`

	// MaxPenalty is the fraction removed at zero CTR.
	MaxPenalty float64 `koanf:"max_penalty" json:"max_penalty"`

	// ScoreFloor keeps penalized scores strictly above zero.
	ScoreFloor float64 `koanf:"score_floor" json:"score_floor"`
}

// PropagationConfig dampens ancestor score propagation. A parent's
// score never exceeds its children's: parent interest is inferred,
// not observed.
type PropagationConfig struct {
	// ChildAverageFactor scales the average of the children's scores.
	ChildAverageFactor float64 `koanf:"child_average_factor" json:"child_average_factor"`

	// TopChildFactor caps the parent at this fraction of the best child.
	TopChildFactor float64 `koanf:"top_child_factor" json:"top_child_factor"`
}

// PreferenceConfig holds the preference aggregator settings.
type PreferenceConfig struct {
	// LookbackDays bounds the event window used in a recompute.
	LookbackDays int `koanf:"lookback_days" json:"lookback_days"`

	Weights          InteractionWeights     `koanf:"weights" json:"weights"`
	Decay            DecayConfig            `koanf:"decay" json:"decay"`
	NegativeFeedback NegativeFeedbackConfig `koanf:"negative_feedback" json:"negative_feedback"`
	Propagation      PropagationConfig      `koanf:"propagation" json:"propagation"`

	// StaleAfter triggers a lazy recompute before serving a feed when
	// the stored preferences are older than this.
	StaleAfter time.Duration `koanf:"stale_after" json:"stale_after"`
}

// WeightFor returns the raw weight for an interaction type name.
func (w InteractionWeights) WeightFor(typ string) float64 {
	switch typ {
	case "impression":
		return w.Impression
	case "scroll_stop":
		return w.ScrollStop
	case "view":
		return w.View
	case "click":
		return w.Click
	case "bookmark":
		return w.Bookmark
	case "like":
		return w.Like
	case "share":
		return w.Share
	default:
		return 0
	}
}

// FreshnessBand maps a maximum article age to a freshness score.
type FreshnessBand struct {
	MaxAgeHours float64 `koanf:"max_age_hours" json:"max_age_hours"`
	Score       float64 `koanf:"score" json:"score"`
}

// ScoringWeights holds the composite relevance score weights.
type ScoringWeights struct {
	// Category/Similarity/Freshness apply when a similarity signal is present.
	Category   float64 `koanf:"category" json:"category"`
	Similarity float64 `koanf:"similarity" json:"similarity"`
	Freshness  float64 `koanf:"freshness" json:"freshness"`

	// CategoryOnly/FreshnessOnly apply when it is absent.
	CategoryOnly  float64 `koanf:"category_only" json:"category_only"`
	FreshnessOnly float64 `koanf:"freshness_only" json:"freshness_only"`

	// DefaultCategoryScore keeps unseen categories eligible instead of
	// scoring zero.
	DefaultCategoryScore float64 `koanf:"default_category_score" json:"default_category_score"`
}

// DiversityConfig caps consecutive same-category runs in the feed.
type DiversityConfig struct {
	// MaxPerCategory is the most slots one category may occupy within
	// the sliding window.
	MaxPerCategory int `koanf:"max_per_category" json:"max_per_category"`

	// Window is the number of trailing accepted slots inspected.
	Window int `koanf:"window" json:"window"`
}

// AssemblyConfig shapes the final feed mix.
type AssemblyConfig struct {
	// ExploitRatio is the exploitation share of the feed (0-1).
	ExploitRatio float64 `koanf:"exploit_ratio" json:"exploit_ratio"`

	// SiblingShare/ParentShare/TrendingShare split the exploration
	// budget across the three discovery strategies.
	SiblingShare  float64 `koanf:"sibling_share" json:"sibling_share"`
	ParentShare   float64 `koanf:"parent_share" json:"parent_share"`
	TrendingShare float64 `koanf:"trending_share" json:"trending_share"`

	// BreakingSlots reserves this many leading slots for breaking content.
	BreakingSlots int `koanf:"breaking_slots" json:"breaking_slots"`

	// BreakingWindow is how recent an article must be to qualify as
	// breaking without an explicit flag.
	BreakingWindow time.Duration `koanf:"breaking_window" json:"breaking_window"`

	// WildcardInterval interleaves one discovery wildcard after this
	// many exploitation slots.
	WildcardInterval int `koanf:"wildcard_interval" json:"wildcard_interval"`

	// ShuffleStart/ShuffleEnd bound the partial reshuffle window.
	// Positions outside [ShuffleStart, ShuffleEnd) keep their order.
	ShuffleStart int `koanf:"shuffle_start" json:"shuffle_start"`
	ShuffleEnd   int `koanf:"shuffle_end" json:"shuffle_end"`
}

// FeedConfig holds candidate sourcing, scoring and assembly settings.
type FeedConfig struct {
	// TopCategories is how many preferred categories feed the
	// category-affinity query.
	TopCategories int `koanf:"top_categories" json:"top_categories"`

	// CandidateWindow bounds how old sourced articles may be.
	CandidateWindow time.Duration `koanf:"candidate_window" json:"candidate_window"`

	// CandidateLimit caps each candidate query.
	CandidateLimit int `koanf:"candidate_limit" json:"candidate_limit"`

	// QueryTimeout bounds each external query stage; on timeout the
	// stage degrades to its fallback.
	QueryTimeout time.Duration `koanf:"query_timeout" json:"query_timeout"`

	// DefaultLimit/MaxLimit bound the requested feed size.
	DefaultLimit int `koanf:"default_limit" json:"default_limit"`
	MaxLimit     int `koanf:"max_limit" json:"max_limit"`

	Weights        ScoringWeights  `koanf:"weights" json:"weights"`
	FreshnessBands []FreshnessBand `koanf:"freshness_bands" json:"freshness_bands"`

	// FreshnessFloor is the score beyond the final band.
	FreshnessFloor float64 `koanf:"freshness_floor" json:"freshness_floor"`

	Diversity DiversityConfig `koanf:"diversity" json:"diversity"`
	Assembly  AssemblyConfig  `koanf:"assembly" json:"assembly"`

	// CacheTTL is the per-user feed response cache time-to-live.
	CacheTTL time.Duration `koanf:"cache_ttl" json:"cache_ttl"`

	// Seed is the random seed for the bounded shuffle. Zero selects a
	// time-based seed.
	Seed int64 `koanf:"seed" json:"seed"`
}

// PredictorConfig holds the click-probability predictor settings.
type PredictorConfig struct {
	// Enabled gates the whole re-rank stage.
	Enabled bool `koanf:"enabled" json:"enabled"`

	// MinInteractions is the lifetime interaction count a user needs
	// before the predictor is authoritative.
	MinInteractions int64 `koanf:"min_interactions" json:"min_interactions"`

	// SimilarityWeight scales the profile-vector cosine contribution.
	SimilarityWeight float64 `koanf:"similarity_weight" json:"similarity_weight"`

	// CategoryWeight scales the category-preference contribution.
	CategoryWeight float64 `koanf:"category_weight" json:"category_weight"`

	// TriggerCap bounds the multiplicative title-trigger boost.
	TriggerCap float64 `koanf:"trigger_cap" json:"trigger_cap"`

	// KeywordBoostCap bounds the additive keyword-affinity boost.
	KeywordBoostCap float64 `koanf:"keyword_boost_cap" json:"keyword_boost_cap"`

	// KeywordBoostPerMatch is the additive boost per matched keyword.
	KeywordBoostPerMatch float64 `koanf:"keyword_boost_per_match" json:"keyword_boost_per_match"`

	// Jitter is the maximum random perturbation applied to predictions
	// to avoid deterministic ties.
	Jitter float64 `koanf:"jitter" json:"jitter"`

	// BaselineCTR anchors per-trait multipliers.
	BaselineCTR float64 `koanf:"baseline_ctr" json:"baseline_ctr"`

	// MinTriggerImpressions is the minimum trait sample size before a
	// learned multiplier is trusted.
	MinTriggerImpressions int64 `koanf:"min_trigger_impressions" json:"min_trigger_impressions"`

	// TopKeywords is the size of the high-click-rate keyword list.
	TopKeywords int `koanf:"top_keywords" json:"top_keywords"`
}

// SchedulerConfig holds the debounced recompute scheduler settings.
type SchedulerConfig struct {
	// Debounce is the quiet period after the last event before a
	// user's recompute fires.
	Debounce time.Duration `koanf:"debounce" json:"debounce"`

	// RecomputeTimeout bounds a single recompute run.
	RecomputeTimeout time.Duration `koanf:"recompute_timeout" json:"recompute_timeout"`

	// RatePerSecond caps recompute starts across all users.
	RatePerSecond float64 `koanf:"rate_per_second" json:"rate_per_second"`

	// Burst is the rate limiter burst size.
	Burst int `koanf:"burst" json:"burst"`
}

// NATSConfig holds event-driven ingestion settings.
type NATSConfig struct {
	// Enabled turns the JetStream interaction consumer on.
	Enabled bool `koanf:"enabled" json:"enabled"`

	// URL is the NATS server URL, ignored when EmbeddedServer is set.
	URL string `koanf:"url" json:"url"`

	// EmbeddedServer runs an in-process NATS server with JetStream.
	EmbeddedServer bool `koanf:"embedded_server" json:"embedded_server"`

	// StoreDir is the embedded server's JetStream directory.
	StoreDir string `koanf:"store_dir" json:"store_dir"`

	// Subject is the interaction batch subject.
	Subject string `koanf:"subject" json:"subject"`

	// QueueGroup enables load balancing across instances.
	QueueGroup string `koanf:"queue_group" json:"queue_group"`

	// DurableName is the durable consumer prefix.
	DurableName string `koanf:"durable_name" json:"durable_name"`

	// SubscribersCount is the parallel subscriber count.
	SubscribersCount int `koanf:"subscribers_count" json:"subscribers_count"`

	// MaxMemory/MaxStore bound the embedded JetStream instance.
	MaxMemory int64 `koanf:"max_memory" json:"max_memory"`
	MaxStore  int64 `koanf:"max_store" json:"max_store"`
}

// Default returns a Config with production defaults. The numeric
// personalization constants here are tuning defaults, not fixed truths;
// all of them can be overridden at runtime.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8686,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit:       300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			Dir:        "/data/folio/badger",
			InMemory:   false,
			GCInterval: 10 * time.Minute,
		},
		Content: ContentConfig{
			BaseURL:            "http://localhost:8600",
			Timeout:            2 * time.Second,
			BreakerMaxFailures: 5,
			BreakerCooldown:    30 * time.Second,
		},
		Taxonomy: TaxonomyConfig{
			TTL: 5 * time.Minute,
		},
		Preference: PreferenceConfig{
			LookbackDays: 90,
			Weights: InteractionWeights{
				Impression: 0.2,
				ScrollStop: 1.0,
				View:       2.0,
				Click:      3.0,
				Bookmark:   3.5,
				Like:       4.0,
				Share:      5.0,
			},
			Decay: DecayConfig{
				Level1HalfLifeDays: 45,
				Level2HalfLifeDays: 21,
				Level3HalfLifeDays: 14,
			},
			NegativeFeedback: NegativeFeedbackConfig{
				MinImpressions: 10,
				CTRThreshold:   0.05,
				MinPenalty:     0.1,
				MaxPenalty:     0.5,
				ScoreFloor:     0.001,
			},
			Propagation: PropagationConfig{
				ChildAverageFactor: 0.5,
				TopChildFactor:     0.8,
			},
			StaleAfter: 6 * time.Hour,
		},
		Feed: FeedConfig{
			TopCategories:   5,
			CandidateWindow: 72 * time.Hour,
			CandidateLimit:  200,
			QueryTimeout:    2 * time.Second,
			DefaultLimit:    20,
			MaxLimit:        100,
			Weights: ScoringWeights{
				Category:             0.4,
				Similarity:           0.3,
				Freshness:            0.3,
				CategoryOnly:         0.6,
				FreshnessOnly:        0.4,
				DefaultCategoryScore: 0.3,
			},
			FreshnessBands: []FreshnessBand{
				{MaxAgeHours: 1, Score: 1.0},
				{MaxAgeHours: 3, Score: 0.95},
				{MaxAgeHours: 6, Score: 0.9},
				{MaxAgeHours: 12, Score: 0.8},
				{MaxAgeHours: 24, Score: 0.7},
				{MaxAgeHours: 48, Score: 0.5},
				{MaxAgeHours: 72, Score: 0.3},
			},
			FreshnessFloor: 0.1,
			Diversity: DiversityConfig{
				MaxPerCategory: 3,
				Window:         4,
			},
			Assembly: AssemblyConfig{
				ExploitRatio:     0.8,
				SiblingShare:     0.5,
				ParentShare:      0.3,
				TrendingShare:    0.2,
				BreakingSlots:    2,
				BreakingWindow:   2 * time.Hour,
				WildcardInterval: 7,
				ShuffleStart:     5,
				ShuffleEnd:       20,
			},
			CacheTTL: time.Minute,
			Seed:     0,
		},
		Predictor: PredictorConfig{
			Enabled:               true,
			MinInteractions:       1000,
			SimilarityWeight:      0.4,
			CategoryWeight:        0.15,
			TriggerCap:            1.5,
			KeywordBoostCap:       0.2,
			KeywordBoostPerMatch:  0.05,
			Jitter:                0.025,
			BaselineCTR:           0.05,
			MinTriggerImpressions: 20,
			TopKeywords:           20,
		},
		Scheduler: SchedulerConfig{
			Debounce:         30 * time.Second,
			RecomputeTimeout: 30 * time.Second,
			RatePerSecond:    20,
			Burst:            10,
		},
		NATS: NATSConfig{
			Enabled:          false,
			URL:              "nats://127.0.0.1:4222",
			EmbeddedServer:   false,
			StoreDir:         "/data/folio/nats",
			Subject:          "folio.interactions",
			QueueGroup:       "folio-ingest",
			DurableName:      "folio-ingest",
			SubscribersCount: 2,
			MaxMemory:        1 << 30,
			MaxStore:         4 << 30,
		},
	}
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}

	if c.Preference.LookbackDays < 1 {
		return fmt.Errorf("preference.lookback_days must be positive, got %d", c.Preference.LookbackDays)
	}
	d := c.Preference.Decay
	if d.Level1HalfLifeDays <= 0 || d.Level2HalfLifeDays <= 0 || d.Level3HalfLifeDays <= 0 {
		return fmt.Errorf("preference.decay half-lives must be positive")
	}
	if d.Level3HalfLifeDays > d.Level2HalfLifeDays || d.Level2HalfLifeDays > d.Level1HalfLifeDays {
		return fmt.Errorf("preference.decay half-lives must not increase with level depth: l1=%v l2=%v l3=%v",
			d.Level1HalfLifeDays, d.Level2HalfLifeDays, d.Level3HalfLifeDays)
	}
	nf := c.Preference.NegativeFeedback
	if nf.CTRThreshold <= 0 || nf.CTRThreshold >= 1 {
		return fmt.Errorf("preference.negative_feedback.ctr_threshold must be in (0, 1), got %f", nf.CTRThreshold)
	}
	if nf.MinPenalty < 0 || nf.MaxPenalty > 1 || nf.MinPenalty > nf.MaxPenalty {
		return fmt.Errorf("preference.negative_feedback penalties must satisfy 0 <= min <= max <= 1, got min=%f max=%f",
			nf.MinPenalty, nf.MaxPenalty)
	}
	if nf.ScoreFloor <= 0 {
		return fmt.Errorf("preference.negative_feedback.score_floor must be positive, got %f", nf.ScoreFloor)
	}
	p := c.Preference.Propagation
	if p.ChildAverageFactor <= 0 || p.ChildAverageFactor > 1 {
		return fmt.Errorf("preference.propagation.child_average_factor must be in (0, 1], got %f", p.ChildAverageFactor)
	}
	if p.TopChildFactor <= 0 || p.TopChildFactor > 1 {
		return fmt.Errorf("preference.propagation.top_child_factor must be in (0, 1], got %f", p.TopChildFactor)
	}

	if c.Feed.TopCategories < 1 {
		return fmt.Errorf("feed.top_categories must be positive, got %d", c.Feed.TopCategories)
	}
	if c.Feed.DefaultLimit < 1 || c.Feed.MaxLimit < c.Feed.DefaultLimit {
		return fmt.Errorf("feed limits must satisfy 1 <= default_limit <= max_limit, got default=%d max=%d",
			c.Feed.DefaultLimit, c.Feed.MaxLimit)
	}
	a := c.Feed.Assembly
	if a.ExploitRatio < 0 || a.ExploitRatio > 1 {
		return fmt.Errorf("feed.assembly.exploit_ratio must be in [0, 1], got %f", a.ExploitRatio)
	}
	shareSum := a.SiblingShare + a.ParentShare + a.TrendingShare
	if shareSum <= 0 {
		return fmt.Errorf("feed.assembly exploration shares must sum to a positive value")
	}
	if a.WildcardInterval < 1 {
		return fmt.Errorf("feed.assembly.wildcard_interval must be positive, got %d", a.WildcardInterval)
	}
	if a.ShuffleStart < 0 || a.ShuffleEnd < a.ShuffleStart {
		return fmt.Errorf("feed.assembly shuffle window must satisfy 0 <= start <= end, got start=%d end=%d",
			a.ShuffleStart, a.ShuffleEnd)
	}
	if a.ShuffleStart < a.BreakingSlots {
		return fmt.Errorf("feed.assembly.shuffle_start must be >= breaking_slots so pinned slots stay put, got start=%d slots=%d",
			a.ShuffleStart, a.BreakingSlots)
	}
	dv := c.Feed.Diversity
	if dv.MaxPerCategory < 1 || dv.Window < 1 {
		return fmt.Errorf("feed.diversity values must be positive, got max_per_category=%d window=%d",
			dv.MaxPerCategory, dv.Window)
	}
	for i, band := range c.Feed.FreshnessBands {
		if band.MaxAgeHours <= 0 || band.Score < 0 || band.Score > 1 {
			return fmt.Errorf("feed.freshness_bands[%d] invalid: max_age_hours=%f score=%f", i, band.MaxAgeHours, band.Score)
		}
		if i > 0 && band.MaxAgeHours <= c.Feed.FreshnessBands[i-1].MaxAgeHours {
			return fmt.Errorf("feed.freshness_bands must be ordered by increasing age")
		}
	}

	pr := c.Predictor
	if pr.MinInteractions < 0 {
		return fmt.Errorf("predictor.min_interactions must be non-negative, got %d", pr.MinInteractions)
	}
	if pr.TriggerCap < 1 {
		return fmt.Errorf("predictor.trigger_cap must be >= 1, got %f", pr.TriggerCap)
	}
	if pr.Jitter < 0 || pr.Jitter > 0.1 {
		return fmt.Errorf("predictor.jitter must be in [0, 0.1], got %f", pr.Jitter)
	}
	if pr.BaselineCTR <= 0 {
		return fmt.Errorf("predictor.baseline_ctr must be positive, got %f", pr.BaselineCTR)
	}

	if c.Scheduler.Debounce <= 0 {
		return fmt.Errorf("scheduler.debounce must be positive, got %v", c.Scheduler.Debounce)
	}
	if c.Scheduler.RecomputeTimeout <= 0 {
		return fmt.Errorf("scheduler.recompute_timeout must be positive, got %v", c.Scheduler.RecomputeTimeout)
	}

	return nil
}
