// Package main wires together the careers crawler service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/openroles/careers-crawler/internal/aggregator"
	"github.com/openroles/careers-crawler/internal/api"
	"github.com/openroles/careers-crawler/internal/clock/system"
	"github.com/openroles/careers-crawler/internal/config"
	collyfetcher "github.com/openroles/careers-crawler/internal/fetcher/colly"
	headlessfetcher "github.com/openroles/careers-crawler/internal/fetcher/headless"
	"github.com/openroles/careers-crawler/internal/gate"
	"github.com/openroles/careers-crawler/internal/id/uuid"
	"github.com/openroles/careers-crawler/internal/logging"
	"github.com/openroles/careers-crawler/internal/metrics"
	"github.com/openroles/careers-crawler/internal/notifier"
	lognotifier "github.com/openroles/careers-crawler/internal/notifier/log"
	pubsubnotifier "github.com/openroles/careers-crawler/internal/notifier/pubsub"
	"github.com/openroles/careers-crawler/internal/orchestrator"
	"github.com/openroles/careers-crawler/internal/salary"
	"github.com/openroles/careers-crawler/internal/scheduler"
	"github.com/openroles/careers-crawler/internal/selector"
	"github.com/openroles/careers-crawler/internal/storage/gcs"
	"github.com/openroles/careers-crawler/internal/storage/memory"
	"github.com/openroles/careers-crawler/internal/storage/postgres"
	"github.com/openroles/careers-crawler/internal/throttle"
	"github.com/openroles/careers-crawler/internal/title"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	runOnce := flag.Bool("once", false, "Run a single crawl and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New("careers-crawler", cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *runOnce); err != nil {
		logger.Error("service failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, runOnce bool) error {
	var (
		companyStore  aggregator.CompanyStore
		postingStore  aggregator.PostingStore
		selectorCache aggregator.SelectorCache
		errorLog      aggregator.ErrorLog
		throttleStore aggregator.ThrottleStore
	)
	if cfg.DB.DSN != "" {
		store, err := postgres.New(ctx, postgres.Config{
			DSN:             cfg.DB.DSN,
			MaxConns:        int32(cfg.DB.MaxConns),
			MinConns:        int32(cfg.DB.MinConns),
			MaxConnLifetime: time.Duration(cfg.DB.ConnLifetimeMin) * time.Minute,
		})
		if err != nil {
			return fmt.Errorf("init postgres: %w", err)
		}
		defer store.Close()
		companyStore = store
		postingStore = store
		selectorCache = store
		errorLog = store
		throttleStore = store
		logger.Info("using postgres stores")
	} else {
		companyStore = memory.NewCompanyStore()
		postingStore = memory.NewPostingStore()
		selectorCache = memory.NewSelectorCache()
		errorLog = memory.NewErrorLog()
		throttleStore = memory.NewThrottleStore()
		logger.Warn("db.dsn not set, using in-memory stores")
	}

	var blobs aggregator.BlobStore
	if cfg.Storage.GCSBucket != "" {
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("init gcs client: %w", err)
		}
		defer client.Close()
		blobs, err = gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return fmt.Errorf("init gcs blob store: %w", err)
		}
	} else if cfg.Crawler.SnapshotPages {
		blobs = memory.NewBlobStore()
	}

	var g *gate.Gate
	if cfg.Redis.URL != "" {
		backend, err := gate.NewRedisBackend(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("init redis gate backend: %w", err)
		}
		defer backend.Close()
		g = gate.New(backend, gate.Config{
			RateLimit:  cfg.Gate.RateLimit,
			RateWindow: time.Duration(cfg.Gate.RateWindowHours) * time.Hour,
			CacheTTL:   time.Duration(cfg.Gate.CacheTTLMinutes) * time.Minute,
		}, logger.Named("gate"))
	} else {
		logger.Warn("redis.url not set, query surface runs without cache or rate limit")
	}

	summaries := api.NewSummaryHolder()
	notifiers := []aggregator.Notifier{
		summaries,
		lognotifier.New(logger.Named("notifier")),
	}
	if cfg.PubSub.TopicName != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("init pubsub client: %w", err)
		}
		defer client.Close()
		notifiers = append(notifiers, pubsubnotifier.New(client.Topic(cfg.PubSub.TopicName)))
	}

	probeFetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Crawler.UserAgent,
		RespectRobots: cfg.Crawler.RespectRobots,
		Timeout:       cfg.HTTPTimeout(),
	})

	var headless aggregator.Fetcher
	var detector aggregator.HeadlessDetector
	if cfg.Headless.Enabled {
		headlessFetcher, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Crawler.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Warn("headless fetcher init failed, crawling without it", zap.Error(err))
		} else {
			defer headlessFetcher.Close()
			headless = headlessFetcher
			detector = headlessfetcher.NewDetector(cfg.Headless.MinBodyBytes)
		}
	}

	normalizer, err := title.NewNormalizer(cfg.Rules.Title)
	if err != nil {
		return fmt.Errorf("build title normalizer: %w", err)
	}
	clk := system.New()

	orch, err := orchestrator.New(
		orchestrator.Config{
			Workers:           cfg.Crawler.Workers,
			RequestsPerSecond: cfg.Crawler.RequestsPerSecond,
			SnapshotPages:     cfg.Crawler.SnapshotPages || cfg.Storage.GCSBucket != "",
		},
		orchestrator.Deps{
			Companies:  companyStore,
			Postings:   postingStore,
			Selectors:  selectorCache,
			Errors:     errorLog,
			Throttle:   throttle.New(throttleStore, clk, cfg.ThrottleInterval(), logger.Named("throttle")),
			Fetcher:    probeFetcher,
			Headless:   headless,
			Detector:   detector,
			Resolver:   selector.NewResolver(probeFetcher, cfg.Rules.Platforms, logger.Named("resolver")),
			Normalizer: normalizer,
			Estimator:  salary.NewEstimator(postingStore, logger.Named("estimator")),
			Blobs:      blobs,
			Notifier:   notifier.Fanout(notifiers...),
			Clock:      clk,
			IDs:        uuid.New(),
			Logger:     logger.Named("orchestrator"),
		},
	)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	if runOnce {
		summary, err := orch.Run(ctx)
		if err != nil {
			return fmt.Errorf("crawl run: %w", err)
		}
		logger.Info("crawl complete",
			zap.String("run_id", summary.RunID),
			zap.Int("total_jobs", summary.TotalJobs),
			zap.Int("error_count", summary.ErrorCount),
		)
		return nil
	}

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(orch, cfg.Scheduler.IntervalHours, logger.Named("scheduler"))
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	apiServer := api.NewServer(postingStore, g, summaries, orch, logger.Named("api"), api.Config{
		RequestTimeout: cfg.ServerTimeout(),
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
