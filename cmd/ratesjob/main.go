package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"service-cryptorates/internal"
	"service-cryptorates/internal/clients/binance"
	"service-cryptorates/internal/config"
	"service-cryptorates/internal/metrics"
	"service-cryptorates/internal/postgresql"
	"service-cryptorates/internal/service/ingest"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// ratesjob is the entry point a recurring external scheduler invokes.
// Exit code 0 means every attempted pair was fetched and persisted.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pairFlag := flag.String("pair", "", "ingest a single pair, e.g. EUR/BTC (default: all supported pairs)")
	dryRun := flag.Bool("dry-run", false, "fetch and report rates without persisting")
	cleanupDays := flag.Int("cleanup-days", 0, "delete samples older than this many days and exit")
	flag.Parse()

	if err := run(ctx, *pairFlag, *dryRun, *cleanupDays); err != nil {
		slog.Error("ratesjob failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, pairRaw string, dryRun bool, cleanupDays int) error {
	if cleanupDays < 0 {
		return fmt.Errorf("cleanup-days must be non-negative, got %d", cleanupDays)
	}

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

	storage := postgresql.NewRateStorage(pool)
	if err := postgresql.NewMigrations(pool).Setup(dbCtx); err != nil {
		return fmt.Errorf("ensure tables: %w", err)
	}

	if cleanupDays > 0 {
		deleted, err := storage.CleanupOldRates(ctx, cleanupDays)
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		log.Info("cleanup finished", "days_kept", cleanupDays, "deleted", deleted)
		return nil
	}

	opts := ingest.RunOptions{DryRun: dryRun}
	if pairRaw != "" {
		pair, err := internal.NewPair(pairRaw)
		if err != nil {
			return err
		}
		opts.Pair = &pair
	}

	client := binance.New(cfg.BinanceURL, cfg.FetchTimeout, cfg.PingTimeout, log)
	job := ingest.New(client, storage, metrics.New(prometheus.NewRegistry()), log)

	report, runErr := job.Run(ctx, opts)
	logReport(log, report)
	return runErr
}

func logReport(log *slog.Logger, report ingest.RunReport) {
	for _, pair := range internal.SupportedPairs() {
		if rate, ok := report.Rates[pair]; ok {
			log.Info("pair fetched", "pair", pair.String(), "rate", rate.String())
		}
		if err, ok := report.Failures[pair]; ok {
			log.Warn("pair failed", "pair", pair.String(), "error", err)
		}
	}
	log.Info("ingestion summary",
		"outcome", report.Outcome,
		"run_at", report.RunAt,
		"fetched", len(report.Rates),
		"failed", len(report.Failures),
		"saved", report.Saved,
		"dry_run", report.DryRun,
	)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
