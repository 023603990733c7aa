// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// blockingService runs until its context is canceled and counts starts.
type blockingService struct {
	name   string
	starts atomic.Int32
}

func (s *blockingService) Serve(ctx context.Context) error {
	s.starts.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func (s *blockingService) String() string { return s.name }

func TestNewTreeAppliesDefaults(t *testing.T) {
	t.Parallel()

	tree := NewTree(testLogger(), TreeConfig{})

	if tree.config.FailureThreshold != 5.0 {
		t.Errorf("FailureThreshold = %f, want 5.0", tree.config.FailureThreshold)
	}
	if tree.config.FailureDecay != 30.0 {
		t.Errorf("FailureDecay = %f, want 30.0", tree.config.FailureDecay)
	}
	if tree.config.FailureBackoff != 15*time.Second {
		t.Errorf("FailureBackoff = %v, want 15s", tree.config.FailureBackoff)
	}
	if tree.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", tree.config.ShutdownTimeout)
	}
}

func TestTreeLifecycle(t *testing.T) {
	t.Parallel()

	tree := NewTree(testLogger(), TreeConfig{
		FailureBackoff:  100 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})

	ingest := &blockingService{name: "mock-ingest"}
	api := &blockingService{name: "mock-api"}
	tree.AddIngestService(ingest)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for ingest.starts.Load() == 0 || api.starts.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("services did not start")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want nil or context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop after cancel")
	}
}

func TestTreeRestartsCrashedService(t *testing.T) {
	t.Parallel()

	tree := NewTree(testLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   50 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	var starts atomic.Int32
	crasher := serviceFunc(func(ctx context.Context) error {
		if starts.Add(1) == 1 {
			return errors.New("boom")
		}
		<-ctx.Done()
		return ctx.Err()
	})
	tree.AddIngestService(crasher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for starts.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("service restarted %d times, want >= 2 starts", starts.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-errCh
}

// serviceFunc adapts a function to suture.Service for tests.
type serviceFunc func(ctx context.Context) error

func (f serviceFunc) Serve(ctx context.Context) error { return f(ctx) }
