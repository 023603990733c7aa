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

const (
	prefKeyPrefix     = "pref:"
	prefMetaKeyPrefix = "prefmeta:"
)

// PreferenceMeta records when a user's preference profile was last
// recomputed, for the staleness check before serving a feed.
type PreferenceMeta struct {
	UserID     string    `json:"user_id"`
	ComputedAt time.Time `json:"computed_at"`
	Categories int       `json:"categories"`
}

// ReplacePreferences atomically swaps a user's full preference profile
// for the freshly recomputed one. The old rows are removed first so
// categories that decayed to nothing disappear instead of lingering.
func (s *Store) ReplacePreferences(ctx context.Context, userID string, prefs []models.UserCategoryPreference) error {
	start := time.Now()
	err := s.replacePreferences(ctx, userID, prefs)
	metrics.RecordStorageOperation("replace_preferences", time.Since(start), err)
	return err
}

func (s *Store) replacePreferences(ctx context.Context, userID string, prefs []models.UserCategoryPreference) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		// Collect existing keys first; deleting while iterating is
		// not safe on the same iterator.
		var stale [][]byte
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		prefix := []byte(prefKeyPrefix + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete stale preference: %w", err)
			}
		}

		for i := range prefs {
			p := &prefs[i]
			data, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("marshal preference %s: %w", p.CategoryID, err)
			}
			key := []byte(prefKeyPrefix + userID + ":" + p.CategoryID)
			if err := txn.Set(key, data); err != nil {
				return fmt.Errorf("set preference %s: %w", p.CategoryID, err)
			}
		}

		meta := PreferenceMeta{
			UserID:     userID,
			ComputedAt: time.Now().UTC(),
			Categories: len(prefs),
		}
		metaData, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal preference meta: %w", err)
		}
		return txn.Set([]byte(prefMetaKeyPrefix+userID), metaData)
	})
}

// Preferences returns all stored preference rows for a user. An empty
// slice with no error means the user has no profile yet.
func (s *Store) Preferences(ctx context.Context, userID string) ([]models.UserCategoryPreference, error) {
	start := time.Now()
	prefs, err := s.preferences(ctx, userID)
	metrics.RecordStorageOperation("get_preferences", time.Since(start), err)
	return prefs, err
}

func (s *Store) preferences(ctx context.Context, userID string) ([]models.UserCategoryPreference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var prefs []models.UserCategoryPreference
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefKeyPrefix + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p models.UserCategoryPreference
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			})
			if err != nil {
				return fmt.Errorf("unmarshal preference: %w", err)
			}
			prefs = append(prefs, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

// PreferenceMetadata returns the recompute metadata for a user, or
// ErrNotFound when no recompute has ever run.
func (s *Store) PreferenceMetadata(ctx context.Context, userID string) (*PreferenceMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var meta PreferenceMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefMetaKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get preference meta: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}
