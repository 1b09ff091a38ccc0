package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/sitewatch/internal/config"
	"github.com/your-org/sitewatch/internal/engine"
	"github.com/your-org/sitewatch/internal/models"
	"github.com/your-org/sitewatch/internal/notify"
	"github.com/your-org/sitewatch/internal/observability"
	"github.com/your-org/sitewatch/internal/queue"
	"github.com/your-org/sitewatch/internal/storage"
)

// pgSink adapts the Postgres store to the pipeline's persistence interface.
type pgSink struct {
	db *storage.PostgresStore
}

func (s *pgSink) SaveEvent(ctx context.Context, event *models.Event) error {
	return s.db.CreateEvent(ctx, event)
}

func (s *pgSink) UpsertAttendance(ctx context.Context, rec *models.AttendanceDayRecord) error {
	return s.db.UpsertAttendanceDay(ctx, rec)
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting sitewatch decision worker", "workers", cfg.Worker.Count)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO (snapshot retention pruning)
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Identity registry: initial load plus periodic refresh so directory
	// changes reach the matcher without a restart.
	registry := engine.NewRegistry()
	refreshRegistry := func() {
		refs, err := db.LoadIdentityRefs(ctx)
		if err != nil {
			slog.Error("load identity registry", "error", err)
			return
		}
		registry.Replace(refs)
		observability.RegistryIdentities.Set(float64(len(refs)))
	}
	refreshRegistry()
	slog.Info("identity registry loaded", "identities", registry.Len())

	go func() {
		ticker := time.NewTicker(cfg.Matching.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				refreshRegistry()
			}
		}
	}()

	loc, err := cfg.Attendance.Location()
	if err != nil {
		slog.Error("load attendance timezone", "error", err)
		os.Exit(1)
	}

	clock := engine.RealClock()
	dedup := engine.NewDeduper(cfg.Dedup.Retention, clock)
	aggregator := engine.NewDayAggregator(cfg.Attendance.MergeInterval, loc)

	// Reseed today's attendance so merge and new-day decisions survive a
	// restart.
	today := aggregator.DayOf(clock.Now())
	seedRecs, err := db.AttendanceDaysForDay(ctx, today)
	if err != nil {
		slog.Warn("seed attendance records", "error", err)
	} else {
		aggregator.Seed(seedRecs)
		slog.Info("attendance aggregator seeded", "day", today, "records", len(seedRecs))
	}

	pipeline := engine.NewPipeline(engine.PipelineOptions{
		Matcher:    engine.NewMatcher(registry, cfg.Matching.EmbeddingDim, cfg.Matching.DistanceThreshold),
		Classifier: engine.NewClassifier(engine.DefaultCriticalItem),
		Dedup:      dedup,
		Attendance: aggregator,
		Gate:       engine.NewGate(dedup, clock, cfg.Notify.RecencyWindow, cfg.Notify.DedupWindow),
		Cameras:    storage.NewCameraDirectory(db, 30*time.Second),
		Events:     &pgSink{db: db},
		Notifier:   notify.NewNATSSink(producer),
		Window:     cfg.Dedup.Window,
		Clock:      clock,
	})

	// Create NATS consumer
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	err = consumer.ConsumeDetections(ctx, "decision-workers", func(ctx context.Context, msg jetstream.Msg) error {
		var det models.Detection
		if err := json.Unmarshal(msg.Data(), &det); err != nil {
			slog.Error("unmarshal detection", "error", err)
			observability.DetectionsDropped.WithLabelValues("unmarshal").Inc()
			return nil // Don't retry on unmarshal errors
		}

		emitted, err := pipeline.Process(ctx, det)
		if err != nil {
			if errors.Is(err, engine.ErrInvalidEmbedding) {
				slog.Warn("dropping malformed detection", "camera_id", det.CameraID)
				observability.DetectionsDropped.WithLabelValues("invalid_embedding").Inc()
				return nil
			}
			return fmt.Errorf("process detection from %s: %w", det.CameraID, err)
		}

		// Fan surviving events out for the API's WebSocket relay.
		for i := range emitted {
			if err := producer.PublishEvent(ctx, emitted[i].Type, &emitted[i]); err != nil {
				slog.Error("publish event", "error", err, "type", emitted[i].Type)
			}
		}
		return nil
	}, cfg.Worker.Count)
	if err != nil {
		slog.Error("start detection consumer", "error", err)
		os.Exit(1)
	}

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		addr := fmt.Sprintf(":%d", cfg.Worker.MetricsPort)
		slog.Info("worker metrics listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	// Periodic dedup sweep
	go func() {
		ticker := time.NewTicker(cfg.Dedup.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				removed := dedup.Sweep()
				observability.SweepDuration.Observe(time.Since(start).Seconds())
				observability.DedupEntries.Set(float64(dedup.Len()))
				if removed > 0 {
					slog.Debug("dedup sweep", "removed", removed, "remaining", dedup.Len())
				}
			}
		}
	}()

	// Daily housekeeping: drop stale in-memory day records and prune old
	// snapshots from MinIO.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				day := aggregator.DayOf(clock.Now())
				if evicted := aggregator.EvictBefore(day); evicted > 0 {
					slog.Info("evicted finished attendance days", "count", evicted)
				}
				observability.AttendanceDayRecords.Set(float64(aggregator.Len()))

				cutoff := clock.Now().AddDate(0, 0, -30)
				if pruned, err := minioStore.PruneSnapshots(ctx, cutoff); err != nil {
					slog.Warn("prune snapshots", "error", err)
				} else if pruned > 0 {
					slog.Info("pruned old snapshots", "count", pruned)
				}
			}
		}
	}()

	// Periodically report queue depth
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				depth, err := producer.QueueDepth(ctx)
				if err == nil {
					observability.QueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("worker stopped")
}
