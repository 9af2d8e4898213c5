package internal

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RateSample is one persisted observation of a pair's rate. Timestamp is the
// business instant of the quote (one ingestion run shares a single value
// across pairs); CreatedAt is when the row was built, never touched again.
type RateSample struct {
	Pair      Pair
	Rate      decimal.Decimal
	Timestamp time.Time
	CreatedAt time.Time
}

// NewRateSample stamps CreatedAt and normalizes both instants to whole UTC
// seconds so values survive the numeric/timestamptz round trip unchanged.
func NewRateSample(pair Pair, rate decimal.Decimal, timestamp time.Time) (RateSample, error) {
	if !pair.IsSupported() {
		return RateSample{}, fmt.Errorf("%w: %q", ErrUnsupportedPair, string(pair))
	}
	if rate.Sign() <= 0 {
		return RateSample{}, fmt.Errorf("%w: rate must be positive, got %s", ErrInvalidPrice, rate)
	}
	if timestamp.IsZero() {
		return RateSample{}, fmt.Errorf("timestamp is empty")
	}
	return RateSample{
		Pair:      pair,
		Rate:      rate,
		Timestamp: timestamp.UTC().Truncate(time.Second),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}, nil
}

// FetchResult carries the per-pair outcome of a bulk fetch: successes and
// failures side by side, so partial success stays a first-class state.
type FetchResult struct {
	Rates    map[Pair]decimal.Decimal
	Failures map[Pair]error
}

// RateStatistics aggregates samples over a range. Min, Max and Avg are
// invalid when Count is zero.
type RateStatistics struct {
	Count int64
	Min   decimal.NullDecimal
	Max   decimal.NullDecimal
	Avg   decimal.NullDecimal
}

// Last24HoursWindow is the inclusive range [now-24h, now] in UTC.
func Last24HoursWindow(now time.Time) (from, to time.Time) {
	to = now.UTC()
	return to.Add(-24 * time.Hour), to
}
