// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package taxonomy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
)

// Provider fetches the raw category list from the upstream taxonomy
// source.
type Provider interface {
	Categories(ctx context.Context) ([]models.CategoryNode, error)
}

// Service is a read-through TTL cache over the taxonomy provider.
// Staleness within the TTL is acceptable; the taxonomy changes rarely.
// On refresh failure a previously cached tree keeps serving, no matter
// how old.
type Service struct {
	provider Provider
	ttl      time.Duration
	logger   zerolog.Logger

	mu        sync.Mutex
	tree      *Tree
	fetchedAt time.Time
}

// NewService creates the caching taxonomy service.
func NewService(provider Provider, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		ttl:      ttl,
		logger:   logger.With().Str("component", "taxonomy").Logger(),
	}
}

// Tree returns the current taxonomy snapshot, refreshing it when the
// TTL has elapsed. The first call must succeed against the provider;
// later calls degrade to the stale snapshot on refresh errors.
func (s *Service) Tree(ctx context.Context) (*Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree != nil && time.Since(s.fetchedAt) < s.ttl {
		metrics.TaxonomyCacheHits.Inc()
		return s.tree, nil
	}
	metrics.TaxonomyCacheMisses.Inc()

	nodes, err := s.provider.Categories(ctx)
	if err != nil {
		if s.tree != nil {
			s.logger.Warn().Err(err).
				Time("fetched_at", s.fetchedAt).
				Msg("taxonomy refresh failed, serving stale snapshot")
			return s.tree, nil
		}
		return nil, fmt.Errorf("fetching taxonomy: %w", err)
	}

	tree := Build(nodes)
	if len(tree.Excluded()) > 0 {
		for id, reason := range tree.Excluded() {
			s.logger.Warn().
				Str("category_id", id).
				Str("reason", reason).
				Msg("category excluded from taxonomy")
		}
	}
	metrics.TaxonomyCycleNodes.Set(float64(len(tree.Excluded())))

	s.tree = tree
	s.fetchedAt = time.Now()
	s.logger.Debug().
		Int("nodes", tree.Len()).
		Int("excluded", len(tree.Excluded())).
		Msg("taxonomy snapshot refreshed")

	return s.tree, nil
}

// Invalidate drops the cached snapshot so the next Tree call refetches.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}
