// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package content

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
)

// Client is the circuit-breaker protected content store client. All
// feed stages query the upstream through it; when the breaker is open
// every call fails fast and the stage falls back.
//
// The breaker uses real time for its open/half-open transitions. Tests
// exercise the raw client through httptest instead of waiting out the
// breaker.
type Client struct {
	raw    *httpClient
	cb     *gobreaker.CircuitBreaker[interface{}]
	logger zerolog.Logger
}

const breakerName = "content-store"

// NewClient creates the protected content store client.
func NewClient(cfg config.ContentConfig, logger zerolog.Logger) *Client {
	log := logger.With().Str("component", "content").Logger()

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			log.Info().Str("from", fromStr).Str("to", toStr).Msg("content breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &Client{
		raw:    newHTTPClient(cfg),
		cb:     cb,
		logger: log,
	}
}

func (c *Client) execute(fn func() (interface{}, error)) (interface{}, error) {
	return c.cb.Execute(fn)
}

// isBreakerError reports whether the error means the call was rejected
// without reaching the upstream.
func isBreakerError(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func castRefs(result interface{}, err error) ([]models.ArticleRef, error) {
	if err != nil {
		return nil, err
	}
	refs, ok := result.([]models.ArticleRef)
	if !ok {
		return nil, errors.New("content: unexpected result type")
	}
	return refs, nil
}

// Categories fetches the category taxonomy.
func (c *Client) Categories(ctx context.Context) ([]models.CategoryNode, error) {
	var nodes []models.CategoryNode
	err := timedQuery("categories", func() error {
		result, err := c.execute(func() (interface{}, error) {
			return c.raw.categories(ctx)
		})
		if err != nil {
			return err
		}
		var ok bool
		nodes, ok = result.([]models.CategoryNode)
		if !ok {
			return errors.New("content: unexpected result type")
		}
		return nil
	})
	return nodes, err
}

// ArticlesByCategories returns recent articles in the given categories.
func (c *Client) ArticlesByCategories(ctx context.Context, categoryIDs []string, since time.Time, limit int) ([]models.ArticleRef, error) {
	var refs []models.ArticleRef
	err := timedQuery("by_category", func() error {
		var err error
		refs, err = castRefs(c.execute(func() (interface{}, error) {
			return c.raw.articlesByCategories(ctx, categoryIDs, since, limit)
		}))
		return err
	})
	return refs, err
}

// SimilarArticles returns articles nearest to the profile vector by
// cosine similarity, optionally restricted to categories.
func (c *Client) SimilarArticles(ctx context.Context, vector []float32, categoryIDs []string, limit int) ([]models.ArticleRef, error) {
	var refs []models.ArticleRef
	err := timedQuery("similar", func() error {
		var err error
		refs, err = castRefs(c.execute(func() (interface{}, error) {
			return c.raw.similarArticles(ctx, vector, categoryIDs, limit)
		}))
		return err
	})
	return refs, err
}

// Trending returns globally trending articles.
func (c *Client) Trending(ctx context.Context, limit int) ([]models.ArticleRef, error) {
	var refs []models.ArticleRef
	err := timedQuery("trending", func() error {
		var err error
		refs, err = castRefs(c.execute(func() (interface{}, error) {
			return c.raw.trending(ctx, limit)
		}))
		return err
	})
	return refs, err
}

// Recent returns the newest articles across all categories.
func (c *Client) Recent(ctx context.Context, since time.Time, limit int) ([]models.ArticleRef, error) {
	var refs []models.ArticleRef
	err := timedQuery("recent", func() error {
		var err error
		refs, err = castRefs(c.execute(func() (interface{}, error) {
			return c.raw.recent(ctx, since, limit)
		}))
		return err
	})
	return refs, err
}

// Breaking returns articles published within the window or explicitly
// flagged as breaking.
func (c *Client) Breaking(ctx context.Context, window time.Duration, limit int) ([]models.ArticleRef, error) {
	var refs []models.ArticleRef
	err := timedQuery("breaking", func() error {
		var err error
		refs, err = castRefs(c.execute(func() (interface{}, error) {
			return c.raw.breaking(ctx, window, limit)
		}))
		return err
	})
	return refs, err
}

// PopularThisWeek returns the most engaged articles of the last seven
// days, the terminal fallback source.
func (c *Client) PopularThisWeek(ctx context.Context, limit int) ([]models.ArticleRef, error) {
	var refs []models.ArticleRef
	err := timedQuery("popular", func() error {
		var err error
		refs, err = castRefs(c.execute(func() (interface{}, error) {
			return c.raw.popular(ctx, 7, limit)
		}))
		return err
	})
	return refs, err
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
