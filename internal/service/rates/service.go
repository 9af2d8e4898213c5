package rates

import (
	"context"
	"fmt"
	"time"

	"service-cryptorates/internal"
)

const periodLast24Hours = "last-24h"

type Storage interface {
	FindLast24Hours(ctx context.Context, pair internal.Pair) ([]internal.RateSample, error)
	FindByDay(ctx context.Context, pair internal.Pair, day internal.Date) ([]internal.RateSample, error)
	FindLatestByPair(ctx context.Context, pair internal.Pair) (internal.RateSample, error)
	FindLatestAll(ctx context.Context) ([]internal.RateSample, error)
	GetStatistics(ctx context.Context, pair internal.Pair, from, to time.Time) (internal.RateStatistics, error)
}

type Service struct {
	st Storage
}

func New(st Storage) *Service { return &Service{st: st} }

// RatePoint is one sample at the JSON boundary. Rates are exact decimals
// internally and become floats only here.
type RatePoint struct {
	Rate         float64 `json:"rate"`
	Timestamp    int64   `json:"timestamp"`
	TimestampISO string  `json:"timestamp_iso"`
}

type PairRate struct {
	Pair         string  `json:"pair"`
	Rate         float64 `json:"rate"`
	Timestamp    int64   `json:"timestamp"`
	TimestampISO string  `json:"timestamp_iso"`
}

type Last24HoursRates struct {
	Pair   string      `json:"pair"`
	Period string      `json:"period"`
	Count  int         `json:"count"`
	Rates  []RatePoint `json:"rates"`
}

type DayRates struct {
	Pair  string      `json:"pair"`
	Date  string      `json:"date"`
	Count int         `json:"count"`
	Rates []RatePoint `json:"rates"`
}

type LatestRates struct {
	Count int        `json:"count"`
	Rates []PairRate `json:"rates"`
}

type SupportedPairs struct {
	SupportedPairs []string `json:"supported_pairs"`
	Count          int      `json:"count"`
}

type Statistics struct {
	Pair  string   `json:"pair"`
	From  string   `json:"from"`
	To    string   `json:"to"`
	Count int64    `json:"count"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
	Avg   *float64 `json:"avg,omitempty"`
}

func (s *Service) GetSupportedPairs() *SupportedPairs {
	pairs := internal.SupportedPairs()
	out := make([]string, len(pairs))
	for i, pair := range pairs {
		out[i] = pair.String()
	}
	return &SupportedPairs{SupportedPairs: out, Count: len(out)}
}

func (s *Service) GetLast24Hours(ctx context.Context, pairRaw string) (*Last24HoursRates, error) {
	pair, err := internal.NewPair(pairRaw)
	if err != nil {
		return nil, err
	}

	samples, err := s.st.FindLast24Hours(ctx, pair)
	if err != nil {
		return nil, fmt.Errorf("find last 24h %s: %w", pair, err)
	}

	return &Last24HoursRates{
		Pair:   pair.String(),
		Period: periodLast24Hours,
		Count:  len(samples),
		Rates:  toRatePoints(samples),
	}, nil
}

func (s *Service) GetByDay(ctx context.Context, pairRaw, dateRaw string) (*DayRates, error) {
	pair, err := internal.NewPair(pairRaw)
	if err != nil {
		return nil, err
	}

	day, err := internal.ParseDate(dateRaw)
	if err != nil {
		return nil, err
	}

	today := internal.DateOf(time.Now())
	if day.Time.After(today.Time) {
		return nil, fmt.Errorf("%w: date %s cannot be in the future", internal.ErrInvalidDate, day)
	}

	samples, err := s.st.FindByDay(ctx, pair, day)
	if err != nil {
		return nil, fmt.Errorf("find day %s %s: %w", day, pair, err)
	}

	return &DayRates{
		Pair:  pair.String(),
		Date:  day.String(),
		Count: len(samples),
		Rates: toRatePoints(samples),
	}, nil
}

func (s *Service) GetLatest(ctx context.Context, pairRaw string) (*PairRate, error) {
	pair, err := internal.NewPair(pairRaw)
	if err != nil {
		return nil, err
	}

	sample, err := s.st.FindLatestByPair(ctx, pair)
	if err != nil {
		return nil, err
	}

	out := toPairRate(sample)
	return &out, nil
}

// GetLatestAll returns the newest sample per supported pair. Pairs without
// any rows are omitted, not errored.
func (s *Service) GetLatestAll(ctx context.Context) (*LatestRates, error) {
	samples, err := s.st.FindLatestAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("find latest rates: %w", err)
	}

	out := make([]PairRate, len(samples))
	for i, sample := range samples {
		out[i] = toPairRate(sample)
	}
	return &LatestRates{Count: len(out), Rates: out}, nil
}

func (s *Service) GetStatistics(ctx context.Context, pairRaw, fromRaw, toRaw string) (*Statistics, error) {
	pair, err := internal.NewPair(pairRaw)
	if err != nil {
		return nil, err
	}

	fromDay, err := internal.ParseDate(fromRaw)
	if err != nil {
		return nil, err
	}
	toDay, err := internal.ParseDate(toRaw)
	if err != nil {
		return nil, err
	}
	if fromDay.Time.After(toDay.Time) {
		return nil, fmt.Errorf("%w: from %s is after to %s", internal.ErrValidation, fromDay, toDay)
	}

	from, _ := fromDay.Window()
	_, end := toDay.Window()
	// samples are stamped at whole seconds, so the inclusive end of the
	// last day is one second before the next midnight
	to := end.Add(-time.Second)

	stats, err := s.st.GetStatistics(ctx, pair, from, to)
	if err != nil {
		return nil, fmt.Errorf("statistics %s [%s, %s]: %w", pair, fromDay, toDay, err)
	}

	out := &Statistics{
		Pair:  pair.String(),
		From:  fromDay.String(),
		To:    toDay.String(),
		Count: stats.Count,
	}
	if stats.Min.Valid {
		v := stats.Min.Decimal.InexactFloat64()
		out.Min = &v
	}
	if stats.Max.Valid {
		v := stats.Max.Decimal.InexactFloat64()
		out.Max = &v
	}
	if stats.Avg.Valid {
		v := stats.Avg.Decimal.InexactFloat64()
		out.Avg = &v
	}
	return out, nil
}

func toRatePoints(samples []internal.RateSample) []RatePoint {
	out := make([]RatePoint, len(samples))
	for i, sample := range samples {
		out[i] = RatePoint{
			Rate:         sample.Rate.InexactFloat64(),
			Timestamp:    sample.Timestamp.Unix(),
			TimestampISO: sample.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	return out
}

func toPairRate(sample internal.RateSample) PairRate {
	return PairRate{
		Pair:         sample.Pair.String(),
		Rate:         sample.Rate.InexactFloat64(),
		Timestamp:    sample.Timestamp.Unix(),
		TimestampISO: sample.Timestamp.UTC().Format(time.RFC3339),
	}
}
