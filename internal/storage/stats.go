// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
)

const statsKeyPrefix = "stats:"

// UserStats loads a user's learning stats. A user with no history gets
// fresh empty stats, not an error.
func (s *Store) UserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	start := time.Now()
	stats, err := s.userStats(ctx, userID)
	metrics.RecordStorageOperation("get_stats", time.Since(start), err)
	return stats, err
}

func (s *Store) userStats(ctx context.Context, userID string) (*models.UserStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := models.NewUserStats(userID)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(statsKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, stats)
		})
	})
	if err != nil {
		return nil, err
	}
	if stats.TriggerStats == nil {
		stats.TriggerStats = make(map[string]models.TraitStats)
	}
	if stats.KeywordStats == nil {
		stats.KeywordStats = make(map[string]models.TraitStats)
	}
	return stats, nil
}

// PutUserStats persists a user's learning stats. Callers must hold the
// per-user write sequence; concurrent writers for the same user would
// lose updates.
func (s *Store) PutUserStats(ctx context.Context, stats *models.UserStats) error {
	start := time.Now()
	err := s.putUserStats(ctx, stats)
	metrics.RecordStorageOperation("put_stats", time.Since(start), err)
	return err
}

func (s *Store) putUserStats(ctx context.Context, stats *models.UserStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stats.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(statsKeyPrefix+stats.UserID), data)
	})
}
