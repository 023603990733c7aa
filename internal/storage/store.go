// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package storage persists Folio's durable state in BadgerDB: the
// append-only interaction ledger, computed preference rows, and the
// per-user learning stats behind the click predictor.
//
// Key layout:
//
//	evt:<user>:<unix-nanos, zero-padded>:<event-id>  -> InteractionEvent JSON
//	clicked:<user>:<article-id>                      -> marker
//	imp:<user>:<article-id>                          -> ArticleRef JSON (unclicked impression pool)
//	pref:<user>:<category-id>                        -> UserCategoryPreference JSON
//	prefmeta:<user>                                  -> PreferenceMeta JSON
//	stats:<user>                                     -> UserStats JSON
package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/config"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store wraps BadgerDB with Folio's key layout.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
	done   chan struct{}
}

// Open opens (or creates) the BadgerDB store and starts the value-log
// garbage collection loop.
func Open(cfg config.StorageConfig, logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", cfg.Dir, err)
	}

	s := &Store{
		db:     db,
		logger: logger.With().Str("component", "storage").Logger(),
		done:   make(chan struct{}),
	}

	gcInterval := cfg.GCInterval
	if gcInterval <= 0 {
		gcInterval = 10 * time.Minute
	}
	if !cfg.InMemory {
		go s.gcLoop(gcInterval)
	}

	return s, nil
}

// Close stops the GC loop and closes the database.
func (s *Store) Close() error {
	close(s.done)
	return s.db.Close()
}

// gcLoop runs Badger value-log garbage collection periodically.
// ErrNoRewrite just means there was nothing to reclaim.
func (s *Store) gcLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn().Err(err).Msg("value log GC failed")
			}
		case <-s.done:
			return
		}
	}
}
