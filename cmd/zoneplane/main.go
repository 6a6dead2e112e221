package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/poyrazK/zoneplane/internal/adapters/api"
	"github.com/poyrazK/zoneplane/internal/adapters/bus"
	"github.com/poyrazK/zoneplane/internal/adapters/repository"
	"github.com/poyrazK/zoneplane/internal/coordination"
	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/services"
	"github.com/poyrazK/zoneplane/internal/infrastructure/config"
	"github.com/poyrazK/zoneplane/internal/tasks"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Warn("could not ping database", "error", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer redisClient.Close()

	repo := repository.NewPostgres(db, logger)
	msgBus := bus.NewRedisBus(redisClient, logger)
	worker := bus.NewWorker(msgBus, cfg.CallTimeout, logger)
	svc := services.NewService(repo, worker, services.Config{
		RefreshMin: cfg.RefreshMin,
		RefreshMax: cfg.RefreshMax,
	}, logger)
	engine := services.NewSerialEngine(repo, worker, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Inbound worker reports.
	consumer := bus.NewCentralConsumer(msgBus, svc, logger)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("central consumer stopped", "error", err)
		}
	}()

	// Periodic tasks, scoped to this instance's shard range.
	runner := tasks.NewRunner(buildTasks(cfg, repo, svc, engine, worker, logger), logger)
	runner.Start(ctx)
	defer runner.Stop()

	coordinator := coordination.NewRedisCoordinator(redisClient, cfg.GroupName, cfg.InstanceID, cfg.MemberTTL, logger)
	coordinator.OnChange(func(members []string) {
		ranges := coordination.Partition(members, domain.ShardSpace)
		shards, ok := ranges[coordinator.MemberID()]
		if !ok {
			return
		}
		runner.SetRange(shards)
		// Another member may have dropped mid-task; sweep the new range.
		if err := worker.RecoverShard(ctx, shards.Start, shards.End); err != nil {
			logger.Warn("failed to dispatch shard recovery", "error", err)
		}
	})
	if err := coordinator.Start(ctx); err != nil {
		logger.Error("failed to join coordination group", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := coordinator.Stop(shutdownCtx); err != nil {
			logger.Warn("failed to leave coordination group", "error", err)
		}
	}()

	go heartbeat(ctx, repo, cfg.InstanceID, logger)

	handler := api.NewHandler(svc, repo, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := &http.Server{Addr: cfg.APIAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http server shutdown failed", "error", err)
		}
	}()

	logger.Info("management api listening", "addr", cfg.APIAddr, "instance", cfg.InstanceID)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func buildTasks(cfg *config.Config, repo *repository.Postgres, svc *services.Service,
	engine *services.SerialEngine, worker *bus.Worker, logger *slog.Logger) []tasks.Task {
	var list []tasks.Task
	if cfg.IncrementSerial.Enabled {
		list = append(list, tasks.NewIncrementSerialTask(repo, engine,
			cfg.IncrementSerial.Interval, cfg.IncrementSerial.BatchSize, logger))
	}
	if cfg.DelayedNotify.Enabled {
		list = append(list, tasks.NewDelayedNotifyTask(repo, worker,
			cfg.DelayedNotify.Interval, cfg.DelayedNotify.BatchSize, logger))
	}
	if cfg.ZonePurge.Enabled {
		list = append(list, tasks.NewZonePurgeTask(svc, cfg.PurgeGrace,
			cfg.ZonePurge.Interval, cfg.ZonePurge.BatchSize, logger))
	}
	if cfg.SecondaryRefresh.Enabled {
		list = append(list, tasks.NewSecondaryRefreshTask(repo, worker,
			cfg.SecondaryRefresh.Interval, cfg.SecondaryRefresh.BatchSize, logger))
	}
	if cfg.ErrorRecovery.Enabled {
		list = append(list, tasks.NewErrorRecoveryTask(repo, worker,
			cfg.ErrorRecovery.Interval, cfg.StaleThreshold, cfg.ErrorRecovery.BatchSize, logger))
	}
	return list
}

// heartbeat keeps this instance's row in service_statuses fresh so
// operators can see which members are alive.
func heartbeat(ctx context.Context, repo *repository.Postgres, instanceID string, logger *slog.Logger) {
	hostname, _ := os.Hostname()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		report := func() {
			st := &domain.ServiceStatus{
				ID:            instanceID,
				ServiceName:   "zoneplane",
				Hostname:      hostname,
				Status:        "UP",
				HeartbeatedAt: time.Now().UTC(),
			}
			if err := repo.UpsertServiceStatus(ctx, st); err != nil {
				logger.Warn("failed to report service status", "error", err)
			}
		}
		report()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
