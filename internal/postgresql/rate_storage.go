package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"service-cryptorates/internal"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type RateStorage struct {
	pgpool *pgxpool.Pool
}

func NewRateStorage(pgpool *pgxpool.Pool) *RateStorage {
	return &RateStorage{pgpool: pgpool}
}

func (s *RateStorage) SaveSample(ctx context.Context, sample internal.RateSample) error {
	_, err := s.pgpool.Exec(ctx, `
insert into rate_sample (pair, rate, timestamp, created_at)
values ($1, $2::numeric, $3, $4);
`, sample.Pair.String(), sample.Rate.String(), sample.Timestamp, sample.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sample %s@%s: %w", sample.Pair, sample.Timestamp.Format(time.RFC3339), err)
	}
	return nil
}

// SaveSamples writes all samples in one transaction so a run is either
// fully visible or not at all.
func (s *RateStorage) SaveSamples(ctx context.Context, samples []internal.RateSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.pgpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, sample := range samples {
		_, err := tx.Exec(ctx, `
insert into rate_sample (pair, rate, timestamp, created_at)
values ($1, $2::numeric, $3, $4);
`, sample.Pair.String(), sample.Rate.String(), sample.Timestamp, sample.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert sample %s@%s: %w", sample.Pair, sample.Timestamp.Format(time.RFC3339), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *RateStorage) FindLast24Hours(ctx context.Context, pair internal.Pair) ([]internal.RateSample, error) {
	from, to := internal.Last24HoursWindow(time.Now())

	rows, err := s.pgpool.Query(ctx, `
select pair, rate::text, timestamp, created_at
from rate_sample
where pair = $1 and timestamp >= $2 and timestamp <= $3
order by timestamp asc;
`, pair.String(), from, to)
	if err != nil {
		return nil, fmt.Errorf("query last 24h for %s: %w", pair, err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// FindByDay expands the calendar day to [00:00:00, next midnight) in UTC,
// the same convention the ingestion side stamps timestamps with.
func (s *RateStorage) FindByDay(ctx context.Context, pair internal.Pair, day internal.Date) ([]internal.RateSample, error) {
	from, to := day.Window()

	rows, err := s.pgpool.Query(ctx, `
select pair, rate::text, timestamp, created_at
from rate_sample
where pair = $1 and timestamp >= $2 and timestamp < $3
order by timestamp asc;
`, pair.String(), from, to)
	if err != nil {
		return nil, fmt.Errorf("query day %s for %s: %w", day, pair, err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

func (s *RateStorage) FindLatestByPair(ctx context.Context, pair internal.Pair) (internal.RateSample, error) {
	row := s.pgpool.QueryRow(ctx, `
select pair, rate::text, timestamp, created_at
from rate_sample
where pair = $1
order by timestamp desc
limit 1;
`, pair.String())

	sample, err := scanSample(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return internal.RateSample{}, fmt.Errorf("%w: no samples for pair %s", internal.ErrNotFound, pair)
		}
		return internal.RateSample{}, fmt.Errorf("query latest for %s: %w", pair, err)
	}
	return sample, nil
}

func (s *RateStorage) FindLatestAll(ctx context.Context) ([]internal.RateSample, error) {
	rows, err := s.pgpool.Query(ctx, `
select distinct on (pair)
  pair, rate::text, timestamp, created_at
from rate_sample
order by pair, timestamp desc;
`)
	if err != nil {
		return nil, fmt.Errorf("query latest rates: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

func (s *RateStorage) CleanupOldRates(ctx context.Context, daysToKeep int) (int64, error) {
	if daysToKeep <= 0 {
		return 0, fmt.Errorf("daysToKeep must be positive, got %d", daysToKeep)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -daysToKeep)

	tag, err := s.pgpool.Exec(ctx, `
delete from rate_sample
where timestamp < $1;
`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete samples older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func (s *RateStorage) GetStatistics(ctx context.Context, pair internal.Pair, from, to time.Time) (internal.RateStatistics, error) {
	var (
		stats   internal.RateStatistics
		minText *string
		maxText *string
		avgText *string
	)

	err := s.pgpool.QueryRow(ctx, `
select count(*), min(rate)::text, max(rate)::text, avg(rate)::text
from rate_sample
where pair = $1 and timestamp >= $2 and timestamp <= $3;
`, pair.String(), from, to).Scan(&stats.Count, &minText, &maxText, &avgText)
	if err != nil {
		return internal.RateStatistics{}, fmt.Errorf("query statistics for %s: %w", pair, err)
	}

	if stats.Min, err = parseNullDecimal(minText); err != nil {
		return internal.RateStatistics{}, fmt.Errorf("parse min for %s: %w", pair, err)
	}
	if stats.Max, err = parseNullDecimal(maxText); err != nil {
		return internal.RateStatistics{}, fmt.Errorf("parse max for %s: %w", pair, err)
	}
	if stats.Avg, err = parseNullDecimal(avgText); err != nil {
		return internal.RateStatistics{}, fmt.Errorf("parse avg for %s: %w", pair, err)
	}

	return stats, nil
}

func parseNullDecimal(text *string) (decimal.NullDecimal, error) {
	if text == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*text))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parse decimal %q: %w", *text, err)
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func scanSamples(rows pgx.Rows) ([]internal.RateSample, error) {
	var out []internal.RateSample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	return out, rows.Err()
}

func scanSample(row pgx.Row) (internal.RateSample, error) {
	var (
		sample   internal.RateSample
		pairRaw  string
		rateText string
	)

	if err := row.Scan(&pairRaw, &rateText, &sample.Timestamp, &sample.CreatedAt); err != nil {
		return internal.RateSample{}, err
	}

	pair, err := internal.NewPair(pairRaw)
	if err != nil {
		return internal.RateSample{}, fmt.Errorf("bad pair from db %q: %w", pairRaw, err)
	}
	sample.Pair = pair

	rateText = strings.TrimSpace(rateText)
	if rateText == "" {
		return internal.RateSample{}, fmt.Errorf("empty rate for %s", pair)
	}
	rate, err := decimal.NewFromString(rateText)
	if err != nil {
		return internal.RateSample{}, fmt.Errorf("parse rate %s=%q: %w", pair, rateText, err)
	}
	sample.Rate = rate

	sample.Timestamp = sample.Timestamp.UTC()
	sample.CreatedAt = sample.CreatedAt.UTC()

	return sample, nil
}
