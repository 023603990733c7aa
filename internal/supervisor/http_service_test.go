// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type mockServer struct {
	serveErr      error
	shutdownErr   error
	started       chan struct{}
	stopCh        chan struct{}
	shutdownCalls atomic.Int32
}

func newMockServer() *mockServer {
	return &mockServer{
		started: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
}

func (m *mockServer) ListenAndServe() error {
	select {
	case m.started <- struct{}{}:
	default:
	}
	if m.serveErr != nil {
		return m.serveErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(ctx context.Context) error {
	m.shutdownCalls.Add(1)
	close(m.stopCh)
	return m.shutdownErr
}

func TestHTTPServiceImplementsSutureService(t *testing.T) {
	var _ suture.Service = (*HTTPService)(nil)
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	t.Parallel()

	srv := newMockServer()
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	select {
	case <-srv.started:
	case <-time.After(time.Second):
		t.Fatal("server did not start")
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if got := srv.shutdownCalls.Load(); got != 1 {
		t.Errorf("Shutdown called %d times, want 1", got)
	}
}

func TestHTTPServicePropagatesServeError(t *testing.T) {
	t.Parallel()

	srv := newMockServer()
	srv.serveErr = errors.New("bind: address already in use")
	svc := NewHTTPService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, srv.serveErr) {
		t.Errorf("Serve returned %v, want wrapped serve error", err)
	}
}

func TestHTTPServicePropagatesShutdownError(t *testing.T) {
	t.Parallel()

	srv := newMockServer()
	srv.shutdownErr = errors.New("connections still active")
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-errCh:
		if err == nil || !errors.Is(err, srv.shutdownErr) {
			t.Errorf("Serve returned %v, want wrapped shutdown error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}
