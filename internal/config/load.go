// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the environment variable prefix for overrides,
// e.g. FOLIO_SERVER_PORT=9090 sets server.port.
const envPrefix = "FOLIO_"

// defaultConfigPaths are searched in order when CONFIG_PATH is unset.
var defaultConfigPaths = []string{
	"folio.yaml",
	"config/folio.yaml",
	"/etc/folio/folio.yaml",
}

// Load builds the configuration from three layers, lowest priority
// first: struct defaults, an optional YAML file, then FOLIO_-prefixed
// environment variables.
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom is Load with an explicit config file path. An empty path
// skips the file layer.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// FOLIO_FEED_ASSEMBLY_EXPLOIT_RATIO -> feed.assembly.exploit_ratio.
	// Underscore-to-dot mapping is ambiguous for multi-word keys, so
	// the transform repairs the known two-word leaf names afterwards.
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		key = strings.ReplaceAll(key, "_", ".")
		return repairEnvKey(key)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// multiWordKeys are leaf and section names containing underscores that
// the naive underscore-to-dot env transform splits apart.
var multiWordKeys = []string{
	"read_timeout", "write_timeout", "shutdown_timeout", "cors_origins",
	"rate_limit", "in_memory", "gc_interval", "base_url",
	"breaker_max_failures", "breaker_cooldown", "lookback_days",
	"scroll_stop", "negative_feedback", "min_impressions",
	"ctr_threshold", "min_penalty", "max_penalty", "score_floor",
	"child_average_factor", "top_child_factor", "stale_after",
	"level1_half_life_days", "level2_half_life_days", "level3_half_life_days",
	"top_categories", "candidate_window", "candidate_limit",
	"query_timeout", "default_limit", "max_limit", "category_only",
	"freshness_only", "default_category_score", "freshness_bands",
	"max_age_hours", "freshness_floor", "max_per_category",
	"exploit_ratio", "sibling_share", "parent_share", "trending_share",
	"breaking_slots", "breaking_window", "wildcard_interval",
	"shuffle_start", "shuffle_end", "cache_ttl", "min_interactions",
	"similarity_weight", "category_weight", "trigger_cap",
	"keyword_boost_cap", "keyword_boost_per_match", "baseline_ctr",
	"min_trigger_impressions", "top_keywords", "recompute_timeout",
	"rate_per_second", "embedded_server", "store_dir", "queue_group",
	"durable_name", "subscribers_count", "max_memory", "max_store",
}

func repairEnvKey(key string) string {
	for _, mw := range multiWordKeys {
		dotted := strings.ReplaceAll(mw, "_", ".")
		if strings.HasSuffix(key, "."+dotted) {
			key = strings.TrimSuffix(key, "."+dotted) + "." + mw
		}
	}
	return key
}

// findConfigFile returns the path of the first config file found, or
// empty when none exists. CONFIG_PATH wins when set.
func findConfigFile() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
