package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/audit"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/fields"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/handler"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/router"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/service"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	seedFields := flag.Bool("seed-fields", false, "replace the stored field map with compiler.fields before starting")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting brs query compiler",
		"port", cfg.Server.Port,
		"default_field", cfg.Compiler.DefaultField,
		"fields", len(cfg.Compiler.Fields),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, m)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()
	checker.Register("compiler", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp}
	})
	deps := service.Deps{Metrics: m}

	var db *postgres.Client
	if cfg.Postgres.Enabled {
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, using configured fields only", "error", err)
			db = nil
		} else {
			defer db.Close()
			store := fields.NewPostgresStore(db)
			if err := store.EnsureSchema(ctx); err != nil {
				slog.Warn("field schema setup failed", "error", err)
			} else if *seedFields {
				if err := store.Replace(ctx, fields.Map(cfg.Compiler.Fields)); err != nil {
					slog.Error("seeding field store failed", "error", err)
					os.Exit(1)
				}
				slog.Info("field store seeded", "fields", len(cfg.Compiler.Fields))
			}
			deps.Store = store
			checker.RegisterOptional("postgres", health.PingCheck(db.Ping))
			slog.Info("field store enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		}
	}

	var compileCache *cache.CompileCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis, "brs:")
		if err != nil {
			slog.Warn("redis unavailable, compile caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			compileCache, err = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			if err != nil {
				slog.Error("failed to create compile cache", "error", err)
				os.Exit(1)
			}
			defer compileCache.Close()
			deps.Cache = compileCache
			checker.RegisterOptional("redis", health.PingCheck(redisClient.Ping))
			slog.Info("compile cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := audit.NewAggregator()
	deps.Auditors = append(deps.Auditors, aggregator)
	if db != nil && cfg.Postgres.StatsSnapshotInterval > 0 {
		snapshots := audit.NewSnapshotStore(db)
		if err := snapshots.EnsureSchema(ctx); err != nil {
			slog.Warn("stats snapshot schema setup failed", "error", err)
		} else {
			if last, err := snapshots.LatestSnapshot(ctx); err == nil && last != nil {
				slog.Info("previous compile stats", "total_compiles", last.TotalCompiles, "rejected", last.Rejected)
			}
			snapshotsDone := make(chan struct{})
			go func() {
				defer close(snapshotsDone)
				audit.RunSnapshots(ctx, snapshots, aggregator, cfg.Postgres.StatsSnapshotInterval)
			}()
			defer func() { <-snapshotsDone }()
		}
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CompileEvents)
		defer producer.Close()
		collector := audit.NewCollector(producer, audit.Options{}, m)
		collector.Start(ctx)
		defer collector.Close()
		deps.Auditors = append(deps.Auditors, collector)
		slog.Info("compile audit enabled", "topic", cfg.Kafka.Topics.CompileEvents)
	}

	svc := service.New(service.Options{
		DefaultField:   cfg.Compiler.DefaultField,
		RawSuffix:      cfg.Compiler.RawSuffix,
		Fields:         fields.Map(cfg.Compiler.Fields),
		CompileTimeout: cfg.Compiler.CompileTimeout,
	}, deps)
	if cfg.Compiler.FieldsFromStore && deps.Store != nil {
		if _, err := svc.ReloadFields(ctx); err != nil {
			slog.Warn("initial field load failed, using configured fields", "error", err)
		}
	}

	opts := router.Options{
		RequestTimeout: cfg.Server.WriteTimeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
		SlowRequest:    cfg.Server.SlowRequest,
	}
	if cfg.Server.RateLimit > 0 {
		limiter := ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateWindow)
		go limiter.RunCleanup(ctx, 5*time.Minute)
		opts.Limiter = limiter
		opts.RetryAfterSeconds = int(cfg.Server.RateWindow.Seconds())
	}

	var cacheStats handler.CacheStats
	if compileCache != nil {
		cacheStats = compileCache
	}
	h := handler.New(svc, aggregator, cacheStats, cfg.Server.MaxBodyBytes)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.New(h, checker, m, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("brs query compiler listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("brs query compiler stopped")
}
