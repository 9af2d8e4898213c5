package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"service-cryptorates/internal"
	"service-cryptorates/internal/metrics"

	"github.com/shopspring/decimal"
)

const (
	outcomeSuccess = "success"
	outcomePartial = "partial"
	outcomeFailed  = "failed"
)

type RateFetcher interface {
	FetchRate(ctx context.Context, pair internal.Pair) (decimal.Decimal, error)
	FetchAllRates(ctx context.Context) (internal.FetchResult, error)
	IsAvailable(ctx context.Context) bool
}

type SampleStorage interface {
	SaveSamples(ctx context.Context, samples []internal.RateSample) error
}

type Service struct {
	fetcher RateFetcher
	storage SampleStorage
	metrics *metrics.Metrics
	log     *slog.Logger
}

func New(fetcher RateFetcher, storage SampleStorage, m *metrics.Metrics, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{fetcher: fetcher, storage: storage, metrics: m, log: log}
}

type RunOptions struct {
	// Pair restricts the run to a single pair. Nil means all supported pairs.
	Pair *internal.Pair

	// DryRun fetches and reports but skips persistence.
	DryRun bool
}

type RunReport struct {
	RunAt    time.Time
	DryRun   bool
	Outcome  string
	Rates    map[internal.Pair]decimal.Decimal
	Failures map[internal.Pair]error
	Saved    int
}

// Run executes one ingestion pass. The returned error is nil only when
// every attempted pair was fetched and persisted; on partial failure the
// successful samples are still saved and the error names the failed pairs.
func (s *Service) Run(ctx context.Context, opts RunOptions) (RunReport, error) {
	start := time.Now()
	defer func() {
		s.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	}()

	report := RunReport{DryRun: opts.DryRun}

	// 1) Preflight: no writes if the upstream does not answer.
	if !s.fetcher.IsAvailable(ctx) {
		report.Outcome = outcomeFailed
		s.metrics.IngestRunsTotal.WithLabelValues(outcomeFailed).Inc()
		s.log.Error("ingestion aborted, upstream unavailable")
		return report, fmt.Errorf("%w: upstream did not answer ping", internal.ErrUnavailable)
	}

	// 2) One shared business timestamp for every sample of this run,
	// captured before fetching begins.
	report.RunAt = time.Now().UTC().Truncate(time.Second)

	// 3) Fetch.
	if opts.Pair != nil {
		report.Rates, report.Failures = s.fetchOne(ctx, *opts.Pair)
	} else {
		result, err := s.fetcher.FetchAllRates(ctx)
		report.Rates, report.Failures = result.Rates, result.Failures
		if err != nil {
			report.Outcome = outcomeFailed
			s.recordFetches(report)
			s.metrics.IngestRunsTotal.WithLabelValues(outcomeFailed).Inc()
			return report, fmt.Errorf("fetch all rates: %w", err)
		}
	}
	s.recordFetches(report)

	if len(report.Rates) == 0 {
		report.Outcome = outcomeFailed
		s.metrics.IngestRunsTotal.WithLabelValues(outcomeFailed).Inc()
		return report, failuresError(report.Failures)
	}

	// 4) Persist, one transaction for the whole run.
	samples := make([]internal.RateSample, 0, len(report.Rates))
	for _, pair := range internal.SupportedPairs() {
		rate, ok := report.Rates[pair]
		if !ok {
			continue
		}
		sample, err := internal.NewRateSample(pair, rate, report.RunAt)
		if err != nil {
			report.Outcome = outcomeFailed
			s.metrics.IngestRunsTotal.WithLabelValues(outcomeFailed).Inc()
			return report, fmt.Errorf("build sample %s: %w", pair, err)
		}
		samples = append(samples, sample)
	}

	if opts.DryRun {
		s.log.Info("dry run, skipping persist",
			"run_at", report.RunAt, "fetched", len(report.Rates), "failed", len(report.Failures))
	} else {
		if err := s.storage.SaveSamples(ctx, samples); err != nil {
			report.Outcome = outcomeFailed
			s.metrics.IngestRunsTotal.WithLabelValues(outcomeFailed).Inc()
			return report, fmt.Errorf("persist samples: %w", err)
		}
		report.Saved = len(samples)
		s.metrics.SamplesSavedTotal.Add(float64(report.Saved))
	}

	// 5) Report.
	if len(report.Failures) > 0 {
		report.Outcome = outcomePartial
		s.metrics.IngestRunsTotal.WithLabelValues(outcomePartial).Inc()
		s.log.Warn("ingestion run incomplete",
			"run_at", report.RunAt, "fetched", len(report.Rates),
			"failed", len(report.Failures), "saved", report.Saved, "dry_run", opts.DryRun)
		return report, failuresError(report.Failures)
	}

	report.Outcome = outcomeSuccess
	s.metrics.IngestRunsTotal.WithLabelValues(outcomeSuccess).Inc()
	s.log.Info("ingestion run finished",
		"run_at", report.RunAt, "fetched", len(report.Rates),
		"saved", report.Saved, "dry_run", opts.DryRun)
	return report, nil
}

func (s *Service) fetchOne(ctx context.Context, pair internal.Pair) (map[internal.Pair]decimal.Decimal, map[internal.Pair]error) {
	rates := make(map[internal.Pair]decimal.Decimal, 1)
	failures := make(map[internal.Pair]error)

	rate, err := s.fetcher.FetchRate(ctx, pair)
	if err != nil {
		failures[pair] = err
		s.log.Warn("fetch rate failed", "pair", pair.String(), "error", err)
		return rates, failures
	}

	rates[pair] = rate
	return rates, failures
}

func (s *Service) recordFetches(report RunReport) {
	for pair := range report.Rates {
		s.metrics.PairFetchesTotal.WithLabelValues(pair.String(), "ok").Inc()
	}
	for pair := range report.Failures {
		s.metrics.PairFetchesTotal.WithLabelValues(pair.String(), "error").Inc()
	}
}

func failuresError(failures map[internal.Pair]error) error {
	parts := make([]string, 0, len(failures))
	for _, pair := range internal.SupportedPairs() {
		if err, ok := failures[pair]; ok {
			parts = append(parts, fmt.Sprintf("%s: %v", pair, err))
		}
	}
	return fmt.Errorf("ingestion incomplete for %d pair(s): %s", len(failures), strings.Join(parts, "; "))
}
