package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/sitewatch/internal/api"
	"github.com/your-org/sitewatch/internal/api/handlers"
	"github.com/your-org/sitewatch/internal/api/ws"
	"github.com/your-org/sitewatch/internal/config"
	"github.com/your-org/sitewatch/internal/models"
	"github.com/your-org/sitewatch/internal/observability"
	"github.com/your-org/sitewatch/internal/queue"
	"github.com/your-org/sitewatch/internal/storage"
	"github.com/your-org/sitewatch/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting sitewatch API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Relay classified events from the worker to connected WebSocket
	// clients. The worker already persisted them; this is broadcast only.
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeEvents(ctx, "api-events", func(ctx context.Context, msg jetstream.Msg) error {
		var event models.Event
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			return err
		}

		hub.BroadcastEvent(&dto.WSEvent{
			Type:     "event",
			CameraID: event.CameraID,
			Data:     handlers.EventResponse(&event),
		})
		return nil
	})
	if err != nil {
		slog.Warn("start event consumer", "error", err)
	}

	cameraDir := storage.NewCameraDirectory(db, 30*time.Second)

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:         cfg.Server.APIKey,
		DB:             db,
		MinIO:          minioStore,
		Producer:       producer,
		CameraDir:      cameraDir,
		Hub:            hub,
		EmbeddingDim:   cfg.Matching.EmbeddingDim,
		MatchThreshold: cfg.Matching.DistanceThreshold,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}
