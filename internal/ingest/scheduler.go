// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/metrics"
)

// Recomputer runs one full preference recompute for a user.
type Recomputer interface {
	Recompute(ctx context.Context, userID string) (int, error)
}

// FeedInvalidator drops a user's cached feed after a recompute.
type FeedInvalidator interface {
	InvalidateUser(userID string)
}

// Scheduler debounces per-user recompute requests: every Schedule call
// within the debounce window resets the user's timer, so a burst of
// events triggers exactly one recompute once the user goes quiet. Due
// users drain through a single worker goroutine, which also gives
// single-flight per user, under a global rate limit.
//
// Scheduler implements suture.Service.
type Scheduler struct {
	recomputer  Recomputer
	invalidator FeedInvalidator
	cfg         config.SchedulerConfig
	limiter     *rate.Limiter
	logger      zerolog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	due     chan string
}

// NewScheduler creates a debounced recompute scheduler. invalidator
// may be nil.
func NewScheduler(recomputer Recomputer, invalidator FeedInvalidator, cfg config.SchedulerConfig, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		recomputer:  recomputer,
		invalidator: invalidator,
		cfg:         cfg,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		logger:      logger.With().Str("component", "scheduler").Logger(),
		pending:     make(map[string]*time.Timer),
		due:         make(chan string, 1024),
	}
}

// Schedule arms or resets the debounce timer for one user.
func (s *Scheduler) Schedule(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.pending[userID]; ok {
		timer.Reset(s.cfg.Debounce)
		metrics.SchedulerReschedules.Inc()
		return
	}
	s.pending[userID] = time.AfterFunc(s.cfg.Debounce, func() {
		s.fire(userID)
	})
	metrics.SchedulerPendingUsers.Set(float64(len(s.pending)))
}

func (s *Scheduler) fire(userID string) {
	s.mu.Lock()
	delete(s.pending, userID)
	metrics.SchedulerPendingUsers.Set(float64(len(s.pending)))
	s.mu.Unlock()

	// AfterFunc runs on its own goroutine, so blocking here when the
	// worker is behind is safe and applies natural backpressure.
	s.due <- userID
}

// Serve drains due users until the context is canceled.
func (s *Scheduler) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case userID := <-s.due:
			s.run(ctx, userID)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, userID string) {
	if !s.limiter.Allow() {
		metrics.SchedulerRateLimited.Inc()
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RecomputeTimeout)
	defer cancel()

	n, err := s.recomputer.Recompute(runCtx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("scheduled recompute failed")
		return
	}
	s.logger.Debug().Str("user_id", userID).Int("events", n).Msg("scheduled recompute done")

	if s.invalidator != nil {
		s.invalidator.InvalidateUser(userID)
	}
}

// Flush fires every pending user immediately, used in shutdown paths
// and tests.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	users := make([]string, 0, len(s.pending))
	for userID, timer := range s.pending {
		timer.Stop()
		users = append(users, userID)
	}
	s.pending = make(map[string]*time.Timer)
	metrics.SchedulerPendingUsers.Set(0)
	s.mu.Unlock()

	for _, userID := range users {
		s.due <- userID
	}
}
