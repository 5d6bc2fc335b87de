package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/parkwatch/lot-occupancy-service/internal/adapter/feed"
	"github.com/parkwatch/lot-occupancy-service/internal/adapter/geoloc"
	httpadapter "github.com/parkwatch/lot-occupancy-service/internal/adapter/http"
	"github.com/parkwatch/lot-occupancy-service/internal/adapter/upstream"
	"github.com/parkwatch/lot-occupancy-service/internal/config"
	"github.com/parkwatch/lot-occupancy-service/internal/observability"
	"github.com/parkwatch/lot-occupancy-service/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	lots, err := config.LoadLots(cfg.LotsFile)
	if err != nil {
		logger.Error("failed to load lots", "error", err)
		os.Exit(1)
	}

	// Location provider (optional collaborator; sessions degrade without it).
	var locator session.Locator
	if cfg.GeolocationURL != "" {
		locator = geoloc.NewClient(cfg.GeolocationURL, cfg.GeolocationTimeout, logger)
		logger.Info("geolocation enabled", "endpoint", cfg.GeolocationURL, "timeout", cfg.GeolocationTimeout)
	} else {
		locator = geoloc.Unsupported{}
		logger.Info("geolocation disabled")
	}

	// Snapshot feed (feature-flagged via FEED_ENABLED).
	var sink session.SnapshotSink
	var feedWriter *feed.Writer
	if cfg.FeedEnabled {
		feedWriter = feed.NewWriter(cfg.KafkaBrokers, cfg.KafkaFeedTopic, logger, metrics)
		sink = feedWriter
		logger.Info("snapshot feed enabled", "topic", cfg.KafkaFeedTopic)
	} else {
		logger.Info("snapshot feed disabled")
	}

	client := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, logger)

	manager := session.NewManager(lots, session.Deps{
		Locator:  locator,
		Upstream: client,
		Sink:     sink,
		Logger:   logger,
		Metrics:  metrics,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, manager, manager, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start lot sessions.
	manager.StartAll(ctx)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	manager.CloseAll()
	if feedWriter != nil {
		if err := feedWriter.Close(); err != nil {
			logger.Error("feed writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
