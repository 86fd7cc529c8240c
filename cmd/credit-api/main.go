// cmd/credit-api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"credit-scoring/internal/api"
	"credit-scoring/internal/common/camunda"
	"credit-scoring/internal/common/config"
	"credit-scoring/internal/common/database"
	"credit-scoring/internal/common/logger"
	"credit-scoring/internal/common/metrics"
	"credit-scoring/internal/common/observability"
	"credit-scoring/internal/driftlog"
	"credit-scoring/internal/models"
	"credit-scoring/internal/scoring"
	"credit-scoring/internal/serving"
	"credit-scoring/internal/tracking"
	sa "credit-scoring/internal/workers/scoring/score-application"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if err := run(cfg, log); err != nil {
		zapLog.Fatal("credit-api stopped with error", zap.Error(err))
	}
	zapLog.Info("credit-api stopped gracefully")
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	rdb, es := driftClients(ctx, cfg, log)
	if rdb != nil {
		defer rdb.Close()
	}
	drift, err := driftlog.FromConfig(cfg.DriftLog, rdb, es, log)
	if err != nil {
		return err
	}

	classifier := serving.NewService(log)
	if store, err := tracking.Open(ctx, cfg); err != nil {
		log.Warn("tracking store unavailable, default classifier disabled", map[string]interface{}{"error": err})
	} else {
		defer store.Close()
		_ = classifier.Load(ctx, store, cfg.Training.Experiment)
	}

	modelInfo := models.ModelInfo{
		Type:      cfg.Scoring.ModelType,
		Version:   cfg.Scoring.ModelVersion,
		Threshold: cfg.Scoring.Threshold,
	}
	log.Info("model loaded", map[string]interface{}{
		"type":      modelInfo.Type,
		"version":   modelInfo.Version,
		"threshold": modelInfo.Threshold,
		"sinks":     drift.Sinks(),
	})

	srv := api.NewServer(api.Dependencies{
		Scorer:       scoring.New(cfg.Scoring.Threshold),
		Counter:      metrics.NewRequestCounter(),
		Drift:        drift,
		Classifier:   classifier,
		Model:        modelInfo,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Logger:       log,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	if cfg.Camunda.Enabled {
		client, err := camunda.Connect(ctx, camunda.ConfigFrom(cfg.Camunda), log)
		if err != nil {
			return err
		}
		defer client.Close()

		wcfg := sa.LoadConfig(cfg)
		w := client.StartWorker(sa.TaskType, cfg.Camunda.MaxJobsActive, wcfg.Timeout, sa.NewHandler(wcfg, obs, log), log)
		defer w.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", map[string]interface{}{"addr": httpServer.Addr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// driftClients connects the stores used by the redis and elasticsearch
// drift sinks. An unreachable store is only a warning; its writes fail and
// are counted like any other drift log failure.
func driftClients(ctx context.Context, cfg *config.Config, log logger.Logger) (*redis.Client, *elasticsearch.Client) {
	var (
		rdb *redis.Client
		es  *elasticsearch.Client
	)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if cfg.DriftLog.HasSink("redis") {
		rdb = database.NewRedis(cfg.Database.Redis)
		if err := database.PingRedis(pingCtx, rdb); err != nil {
			log.Warn("redis unreachable", map[string]interface{}{"error": err})
		}
	}
	if cfg.DriftLog.HasSink("elasticsearch") {
		client, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			log.Warn("elasticsearch client failed", map[string]interface{}{"error": err})
		} else {
			es = client
			if err := database.PingElasticsearch(pingCtx, es); err != nil {
				log.Warn("elasticsearch unreachable", map[string]interface{}{"error": err})
			}
		}
	}
	return rdb, es
}
