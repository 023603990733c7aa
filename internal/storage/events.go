// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
)

const (
	eventKeyPrefix      = "evt:"
	clickedKeyPrefix    = "clicked:"
	impressionKeyPrefix = "imp:"
)

func eventKey(userID string, occurredAt time.Time, eventID string) []byte {
	// Zero-padded nanos keep the ledger in chronological key order.
	return []byte(fmt.Sprintf("%s%s:%020d:%s", eventKeyPrefix, userID, occurredAt.UnixNano(), eventID))
}

// AppendEvents writes a batch of interaction events to the ledger.
// Events are immutable once written. Click events additionally mark
// the article as clicked (removing it from the unclicked-impression
// pool); impression events add the article to that pool unless a click
// is already recorded.
func (s *Store) AppendEvents(ctx context.Context, events []models.InteractionEvent) error {
	start := time.Now()
	err := s.appendEvents(ctx, events)
	metrics.RecordStorageOperation("append_events", time.Since(start), err)
	return err
}

func (s *Store) appendEvents(ctx context.Context, events []models.InteractionEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for i := range events {
			evt := &events[i]
			data, err := json.Marshal(evt)
			if err != nil {
				return fmt.Errorf("marshal event %s: %w", evt.ID, err)
			}
			if err := txn.Set(eventKey(evt.UserID, evt.OccurredAt, evt.ID), data); err != nil {
				return fmt.Errorf("set event %s: %w", evt.ID, err)
			}

			switch evt.Type {
			case models.InteractionClick, models.InteractionLike,
				models.InteractionShare, models.InteractionBookmark:
				clickedKey := []byte(clickedKeyPrefix + evt.UserID + ":" + evt.ArticleID)
				if err := txn.Set(clickedKey, []byte{1}); err != nil {
					return fmt.Errorf("set clicked marker: %w", err)
				}
				impKey := []byte(impressionKeyPrefix + evt.UserID + ":" + evt.ArticleID)
				if err := txn.Delete(impKey); err != nil {
					return fmt.Errorf("remove impression: %w", err)
				}
			case models.InteractionImpression:
				clickedKey := []byte(clickedKeyPrefix + evt.UserID + ":" + evt.ArticleID)
				if _, err := txn.Get(clickedKey); err == nil {
					continue
				}
				ref := models.ArticleRef{
					ID:          evt.ArticleID,
					CategoryID:  evt.CategoryID,
					Title:       evt.Title,
					PublishedAt: evt.OccurredAt,
				}
				refData, err := json.Marshal(ref)
				if err != nil {
					return fmt.Errorf("marshal impression ref: %w", err)
				}
				impKey := []byte(impressionKeyPrefix + evt.UserID + ":" + evt.ArticleID)
				if err := txn.Set(impKey, refData); err != nil {
					return fmt.Errorf("set impression ref: %w", err)
				}
			}
		}
		return nil
	})
}

// EventsSince returns a user's ledger events with OccurredAt >= since,
// in chronological order.
func (s *Store) EventsSince(ctx context.Context, userID string, since time.Time) ([]models.InteractionEvent, error) {
	start := time.Now()
	events, err := s.eventsSince(ctx, userID, since)
	metrics.RecordStorageOperation("events_since", time.Since(start), err)
	return events, err
}

func (s *Store) eventsSince(ctx context.Context, userID string, since time.Time) ([]models.InteractionEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var events []models.InteractionEvent
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(eventKeyPrefix + userID + ":")
		seek := []byte(fmt.Sprintf("%s%s:%020d:", eventKeyPrefix, userID, since.UnixNano()))
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var evt models.InteractionEvent
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &evt)
			})
			if err != nil {
				return fmt.Errorf("unmarshal event: %w", err)
			}
			events = append(events, evt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ClickedArticleIDs returns the set of article IDs the user has
// clicked (or engaged beyond a click), for exclusion during sourcing.
func (s *Store) ClickedArticleIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	start := time.Now()
	ids, err := s.clickedArticleIDs(ctx, userID)
	metrics.RecordStorageOperation("clicked_ids", time.Since(start), err)
	return ids, err
}

func (s *Store) clickedArticleIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make(map[string]struct{})
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(clickedKeyPrefix + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			ids[string(key[len(prefix):])] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// UnclickedImpressions returns up to limit articles the user has seen
// but never clicked, newest impression first is not guaranteed; order
// follows key order. Used as a late fallback source during assembly.
func (s *Store) UnclickedImpressions(ctx context.Context, userID string, limit int) ([]models.ArticleRef, error) {
	start := time.Now()
	refs, err := s.unclickedImpressions(ctx, userID, limit)
	metrics.RecordStorageOperation("unclicked_impressions", time.Since(start), err)
	return refs, err
}

func (s *Store) unclickedImpressions(ctx context.Context, userID string, limit int) ([]models.ArticleRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var refs []models.ArticleRef
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(impressionKeyPrefix + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(refs) < limit; it.Next() {
			var ref models.ArticleRef
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ref)
			})
			if err != nil {
				return fmt.Errorf("unmarshal impression ref: %w", err)
			}
			refs = append(refs, ref)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}
