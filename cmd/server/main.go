// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package main is the entry point for the Folio server.
//
// Folio serves per-user ranked article feeds built from a hierarchical
// category preference model. The server initializes components in order:
//
//  1. Configuration: layered Koanf v2 (defaults, YAML file, FOLIO_* env)
//  2. Storage: BadgerDB for interaction events, preferences and stats
//  3. Content client: circuit-broken upstream article store
//  4. Taxonomy: cached category tree
//  5. Preference aggregator: decayed hierarchical recompute
//  6. Click predictor: optional gated rerank stage
//  7. Feed engine: sourcing, scoring, diversity, assembly, caching
//  8. Ingestion: HTTP batches plus optional NATS JetStream consumer
//  9. HTTP server: REST API under /api/v1 with Prometheus /metrics
//
// All long-running services (recompute scheduler, NATS consumer, HTTP
// server) run under a suture supervisor tree and restart on failure.
// SIGINT and SIGTERM trigger graceful shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/folio/internal/api"
	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/content"
	"github.com/tomtom215/folio/internal/feed"
	"github.com/tomtom215/folio/internal/ingest"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/predict"
	"github.com/tomtom215/folio/internal/preference"
	"github.com/tomtom215/folio/internal/storage"
	"github.com/tomtom215/folio/internal/supervisor"
	"github.com/tomtom215/folio/internal/taxonomy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logger := logging.Logger()

	logging.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Bool("nats", cfg.NATS.Enabled).
		Bool("predictor", cfg.Predictor.Enabled).
		Msg("Starting Folio")

	store, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		logging.Fatal().Err(err).Str("dir", cfg.Storage.Dir).Msg("Failed to open storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Warn().Err(err).Msg("Storage close failed")
		}
	}()

	contentClient := content.NewClient(cfg.Content, logger)
	taxonomySvc := taxonomy.NewService(contentClient, cfg.Taxonomy.TTL, logger)

	aggregator := preference.NewAggregator(store, store, taxonomySvc, cfg.Preference, logger)

	var reranker feed.Reranker
	if cfg.Predictor.Enabled {
		reranker = predict.New(cfg.Predictor, cfg.Feed.Seed, logger)
	}

	engine := feed.NewEngine(contentClient, store, taxonomySvc, aggregator,
		reranker, cfg.Feed, cfg.Preference.StaleAfter, logger)
	defer engine.Close()

	scheduler := ingest.NewScheduler(aggregator, engine, cfg.Scheduler, logger)
	ingestSvc := ingest.NewService(store, scheduler, logger)

	// Supervisor tree: suture events go through the zerolog-backed slog
	// adapter so all logs share one sink.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddIngestService(scheduler)

	checks := map[string]api.HealthChecker{
		"storage": func(ctx context.Context) error {
			_, err := store.Preferences(ctx, "healthcheck")
			return err
		},
		"taxonomy": func(ctx context.Context) error {
			_, err := taxonomySvc.Tree(ctx)
			return err
		},
		"content": func(ctx context.Context) error {
			_, err := contentClient.Categories(ctx)
			return err
		},
	}

	// NATS ingestion is optional; the HTTP batch endpoint always works.
	var embedded *ingest.EmbeddedServer
	natsCfg := cfg.NATS
	if natsCfg.Enabled {
		if natsCfg.EmbeddedServer {
			embedded, err = ingest.NewEmbeddedServer(natsCfg)
			if err != nil {
				logging.Fatal().Err(err).Msg("Failed to start embedded NATS server")
			}
			natsCfg.URL = embedded.ClientURL()
			logging.Info().Str("url", natsCfg.URL).Msg("Embedded NATS server running")
		}

		consumer, err := ingest.NewConsumer(natsCfg, ingestSvc, logger)
		if err != nil {
			logging.Fatal().Err(err).Str("url", natsCfg.URL).Msg("Failed to create NATS consumer")
		}
		tree.AddIngestService(consumer)

		checks["nats"] = func(ctx context.Context) error {
			if embedded != nil && !embedded.Running() {
				return fmt.Errorf("embedded nats server not running")
			}
			return nil
		}
		logging.Info().Str("subject", natsCfg.Subject).Msg("NATS interaction consumer enabled")
	}

	handler := api.NewHandler(engine, store, ingestSvc, cfg, checks)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler, cfg.Server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := tree.ServeBackground(ctx)
	logging.Info().Str("addr", server.Addr).Msg("Folio started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logging.Warn().Err(err).Msg("Supervisor tree stopped with error")
		}
	case err := <-errCh:
		logging.Error().Err(err).Msg("Supervisor tree terminated unexpectedly")
		os.Exit(1)
	}

	if embedded != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		if err := embedded.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("Embedded NATS shutdown failed")
		}
		stop()
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop in time")
		}
	}

	logging.Info().Msg("Folio stopped")
}
