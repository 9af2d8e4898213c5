package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apihttp "service-cryptorates/internal/api/http"
	"service-cryptorates/internal/clients/binance"
	"service-cryptorates/internal/config"
	"service-cryptorates/internal/metrics"
	"service-cryptorates/internal/postgresql"
	"service-cryptorates/internal/service/ingest"
	ratessvc "service-cryptorates/internal/service/rates"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	// DB
	dbCtx, cancelDB := context.WithTimeout(ctx, 5*time.Second)
	defer cancelDB()

	pool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(dbCtx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	// storage + migrations
	storage := postgresql.NewRateStorage(pool)
	if err := postgresql.NewMigrations(pool).Setup(dbCtx); err != nil {
		return fmt.Errorf("ensure tables: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// upstream client + ingestion
	client := binance.New(cfg.BinanceURL, cfg.FetchTimeout, cfg.PingTimeout, log)
	ingestService := ingest.New(client, storage, m, log)

	// instant fetch
	if report, err := ingestService.Run(ctx, ingest.RunOptions{}); err != nil {
		log.Warn("initial ingestion failed", "error", err)
	} else {
		log.Info("rates updated", "run_at", report.RunAt, "saved", report.Saved)
	}

	// cron
	scheduler := cron.New(
		cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)),
	)

	g, gctx := errgroup.WithContext(ctx)

	_, err = scheduler.AddFunc(cfg.FetchCron, func() {
		if report, err := ingestService.Run(gctx, ingest.RunOptions{}); err != nil {
			log.Warn("scheduled ingestion failed", "error", err)
		} else {
			log.Info("rates updated", "run_at", report.RunAt, "saved", report.Saved)
		}
	})
	if err != nil {
		return fmt.Errorf("add cron func: %w", err)
	}

	// HTTP
	router := apihttp.NewRouter(apihttp.RouterConfig{
		Logger:     log,
		Metrics:    m,
		Gatherer:   registry,
		DB:         pool,
		Rates:      ratessvc.New(storage),
		Production: cfg.IsProduction,
	})

	g.Go(func() error {
		return runCron(gctx, scheduler)
	})

	g.Go(func() error {
		return serveHTTP(gctx, ":"+cfg.HTTPPort, router, log)
	})

	log.Info("running, stop with SIGINT/SIGTERM", "port", cfg.HTTPPort, "cron", cfg.FetchCron)
	return g.Wait()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func runCron(ctx context.Context, c *cron.Cron) error {
	c.Start()
	defer func() {
		stopCtx := c.Stop()
		<-stopCtx.Done()
	}()

	<-ctx.Done()
	return nil
}

func serveHTTP(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	log.Info("http listening", "addr", addr)
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
