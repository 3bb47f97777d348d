// Command docstream runs the judicial document extraction service: the HTTP
// API, the job orchestrator, and the progress event hub.
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

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lexharvest/docstream/internal/api"
	"github.com/lexharvest/docstream/internal/clock/system"
	"github.com/lexharvest/docstream/internal/config"
	collyextractor "github.com/lexharvest/docstream/internal/extractor/colly"
	"github.com/lexharvest/docstream/internal/extraction"
	iduuid "github.com/lexharvest/docstream/internal/id/uuid"
	"github.com/lexharvest/docstream/internal/logging"
	"github.com/lexharvest/docstream/internal/orchestrator"
	"github.com/lexharvest/docstream/internal/pipeline"
	"github.com/lexharvest/docstream/internal/progress"
	"github.com/lexharvest/docstream/internal/progress/sinks"
	pubsubpublisher "github.com/lexharvest/docstream/internal/publisher/pubsub"
	"github.com/lexharvest/docstream/internal/registry"
	"github.com/lexharvest/docstream/internal/retry"
	gcsstore "github.com/lexharvest/docstream/internal/storage/gcs"
	localstore "github.com/lexharvest/docstream/internal/storage/local"
	memorystore "github.com/lexharvest/docstream/internal/storage/memory"
	postgresstore "github.com/lexharvest/docstream/internal/storage/postgres"
	"github.com/lexharvest/docstream/internal/summarize"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	clk := system.Clock{}
	ids := iduuid.NewGenerator()

	fileStore, err := buildFileStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build file store: %w", err)
	}

	documentStore, historyStore, dbClose, err := buildDatabaseStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build database stores: %w", err)
	}
	defer dbClose()

	var summarizer extraction.Summarizer = summarize.Noop{}
	if cfg.Summarizer.Endpoint != "" {
		summarizer, err = summarize.NewHTTPClient(summarize.HTTPConfig{
			Endpoint: cfg.Summarizer.Endpoint,
			Timeout:  time.Duration(cfg.Summarizer.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("build summarizer: %w", err)
		}
	}

	notifier := progress.NewNotifier(64)
	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("build prometheus sink: %w", err)
	}
	hubSinks := []progress.Sink{notifier, sinks.NewLogSink(logger), promSink}

	if cfg.PubSub.Enabled {
		publisher, pubErr := pubsubpublisher.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if pubErr != nil {
			return fmt.Errorf("build pubsub publisher: %w", pubErr)
		}
		defer func() { _ = publisher.Close() }()
		hubSinks = append(hubSinks, sinks.NewPublisherSink(publisher, cfg.PubSub.TopicName, logger))
	}

	hub := progress.NewHub(progress.Config{Logger: logger}, hubSinks...)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hub.Close(closeCtx); err != nil {
			logger.Warn("progress hub close failed", zap.Error(err))
		}
	}()

	reg := registry.New(logger)
	if err := registerSources(reg, cfg.Sources); err != nil {
		return err
	}

	supervisor := retry.New(retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay(),
	}, hub, clk, logger)

	pipe := pipeline.New(documentStore, fileStore, summarizer, clk, pipeline.Config{
		SummaryThreshold: cfg.Pipeline.SummaryThreshold,
		SummaryMaxLength: cfg.Pipeline.SummaryMaxLength,
	}, logger)

	orch := orchestrator.New(orchestrator.Config{
		MaxConcurrentJobs:  cfg.Orchestrator.MaxConcurrentJobs,
		QueueDrainInterval: cfg.QueueDrainInterval(),
		ExtractionTimeout:  cfg.ExtractionTimeout(),
	}, reg, supervisor, pipe, historyStore, hub, clk, ids, logger)

	orchDone := make(chan struct{})
	go func() {
		defer close(orchDone)
		orch.Run(ctx)
	}()

	server := api.NewServer(orch, notifier, prometheus.DefaultGatherer, api.Config{}, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	<-orchDone
	return nil
}

func buildFileStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (extraction.FileStore, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		return gcsstore.New(ctx, gcsstore.Config{
			Bucket: cfg.Storage.GCSBucket,
			Prefix: cfg.Storage.Prefix,
		}, logger)
	case "memory":
		return memorystore.NewFileStore(), nil
	default:
		return localstore.New(localstore.Config{BaseDir: cfg.Storage.BaseDir})
	}
}

func buildDatabaseStores(ctx context.Context, cfg config.Config) (extraction.DocumentStore, extraction.HistoryStore, func(), error) {
	if cfg.DB.Provider == "postgres" {
		pool, err := postgresstore.NewPool(ctx, postgresstore.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		docs, err := postgresstore.NewDocumentStore(pool)
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		history, err := postgresstore.NewHistoryStore(pool)
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return docs, history, pool.Close, nil
	}
	return memorystore.NewDocumentStore(), memorystore.NewHistoryStore(), func() {}, nil
}

func registerSources(reg *registry.Registry, sources []config.SourceConfig) error {
	for _, src := range sources {
		ext, err := collyextractor.New(collyextractor.Config{
			BaseURL:       src.BaseURL,
			ItemSelector:  src.ItemSelector,
			TitleSelector: src.TitleSelector,
			LinkSelector:  src.LinkSelector,
			DateSelector:  src.DateSelector,
			UserAgent:     src.UserAgent,
			MaxDocuments:  src.MaxDocuments,
		})
		if err != nil {
			return fmt.Errorf("configure source %q: %w", src.ID, err)
		}
		reg.Register(src.ID, ext)
		if src.Enabled != nil && !*src.Enabled {
			reg.SetEnabled(src.ID, false)
		}
	}
	return nil
}
