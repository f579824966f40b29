// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"exchange-matcher/internal/app"
	"exchange-matcher/internal/common/camunda"
	"exchange-matcher/internal/common/config"
	"exchange-matcher/internal/common/logger"
	"exchange-matcher/internal/common/observability"
	"exchange-matcher/internal/matching"

	bfm "exchange-matcher/internal/workers/matching/batch-find-matches"
	fm "exchange-matcher/internal/workers/matching/find-matches"
	ow "exchange-matcher/internal/workers/matching/optimize-weights"
	rmf "exchange-matcher/internal/workers/matching/record-match-feedback"
	rm "exchange-matcher/internal/workers/matching/rebuild-matches"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Options{Level: "info", Format: "console"})
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting worker manager", map[string]interface{}{
		"version":          cfg.App.Version,
		"environment":      cfg.App.Environment,
		"candidateBackend": cfg.Matching.CandidateBackend,
	})

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Backing services ---
	infra, err := app.Connect(ctx, cfg, app.ConnectOptions{
		Elasticsearch: cfg.Matching.CandidateBackend == config.BackendElasticsearch,
		Redis:         cfg.Database.Redis.Address != "",
		Attempts:      15,
	}, log)
	if err != nil {
		zapLog.Fatal("backing services unavailable", zap.Error(err))
	}
	defer infra.Close()

	// --- Zeebe client with retry ---
	var zeebe *camunda.Client
	err = app.RetryWithBackoff(ctx, func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	log.Info("Zeebe client connected", nil)

	// --- Matching engine ---
	notifier, closeNotifier, err := app.BuildNotifier(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("notification setup failed", zap.Error(err))
	}
	defer closeNotifier()

	deps := app.EngineDeps{DB: infra.DB, Notifier: notifier}
	if infra.Elastic != nil {
		deps.Elastic = infra.Elastic.Client
	}
	if infra.Redis != nil {
		deps.Redis = infra.Redis.Client
	}
	engine, err := app.BuildEngine(ctx, cfg, deps, log)
	if err != nil {
		zapLog.Fatal("engine setup failed", zap.Error(err))
	}

	// --- Workers ---
	var workers []*camunda.CamundaWorker
	start := func(taskType string, handler camunda.JobHandler) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if !wcfg.Enabled {
			log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
			return
		}
		w := camunda.NewWorker(zeebe.GetClient(), taskType, wcfg.MaxJobsActive,
			config.GetDuration(wcfg.Timeout), handler, log)
		w.Start()
		workers = append(workers, w)
	}
	timeout := func(taskType string, fallback time.Duration) time.Duration {
		if ms := config.GetWorkerConfig(cfg, taskType).Timeout; ms > 0 {
			return config.GetDuration(ms)
		}
		return fallback
	}

	fmCfg := fm.LoadConfig()
	fmCfg.Timeout = timeout(fm.TaskType, fmCfg.Timeout)
	fmCfg.DefaultLimit = cfg.Matching.DefaultLimit
	start(fm.TaskType, fm.NewHandler(fmCfg, engine, obs, log))

	bfmCfg := bfm.LoadConfig()
	bfmCfg.Timeout = timeout(bfm.TaskType, bfmCfg.Timeout)
	bfmCfg.DefaultLimit = cfg.Matching.DefaultLimit
	start(bfm.TaskType, bfm.NewHandler(bfmCfg, engine, obs, log))

	rmfCfg := rmf.LoadConfig()
	rmfCfg.Timeout = timeout(rmf.TaskType, rmfCfg.Timeout)
	start(rmf.TaskType, rmf.NewHandler(rmfCfg, engine, obs, log))

	owCfg := ow.LoadConfig()
	owCfg.Timeout = timeout(ow.TaskType, owCfg.Timeout)
	start(ow.TaskType, ow.NewHandler(owCfg, engine, obs, log))

	rmCfg := rm.LoadConfig()
	rmCfg.Timeout = timeout(rm.TaskType, rmCfg.Timeout)
	rmCfg.DefaultPageSize = cfg.Rebuild.PageSize
	rmCfg.Limit = cfg.Matching.DefaultLimit
	start(rm.TaskType, rm.NewHandler(rmCfg, engine, obs, log))

	log.Info("workers registered", map[string]interface{}{"count": len(workers)})

	// --- Background jobs ---
	go app.RunPeriodic(ctx, "weight-refresh", cfg.Matching.WeightsRefresh, func(ctx context.Context) error {
		_, err := engine.RefreshWeights(ctx)
		return err
	}, log)
	if cfg.Optimizer.Enabled {
		go app.RunPeriodic(ctx, "weight-optimizer", cfg.Optimizer.Interval, func(ctx context.Context) error {
			res, err := engine.Optimize(ctx)
			if err == nil && !res.Skipped {
				log.Info("scheduled optimization applied", map[string]interface{}{"weights": res.After.Map()})
			}
			return err
		}, log)
	}
	if cfg.Rebuild.Enabled {
		go app.RunPeriodic(ctx, "match-rebuild", cfg.Rebuild.Interval, func(ctx context.Context) error {
			_, err := engine.RebuildAll(ctx, cfg.Rebuild.PageSize, cfg.Matching.DefaultLimit)
			return err
		}, log)
	}

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           healthMux(zeebe, infra.Postgres.Ping, deps.Redis, engine),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err})
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("shutdown signal received, stopping workers", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("health/metrics server shutdown failed", map[string]interface{}{"error": err})
	}

	log.Info("worker manager stopped", nil)
}

func healthMux(zeebe *camunda.Client, pingDB func(context.Context) error, rdb redis.Cmdable, engine *matching.Engine) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "healthy"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		record := func(name string, err error) {
			if err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				return
			}
			checks[name] = "ok"
		}
		record("zeebe", zeebe.HealthCheck(ctx))
		record("postgres", pingDB(ctx))
		if rdb != nil {
			record("redis", rdb.Ping(ctx).Err())
		}

		state := "ready"
		if status != http.StatusOK {
			state = "not ready"
		}
		writeJSON(w, status, map[string]interface{}{"status": state, "checks": checks})
	})
	mux.HandleFunc("/weights", func(w http.ResponseWriter, r *http.Request) {
		ws := engine.Ranker().Weights()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"weights":       ws.Snapshot(),
			"lastOptimized": ws.LastOptimized(),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
