package internal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedPair indicates a currency pair outside the supported set.
var ErrUnsupportedPair = errors.New("unsupported pair")

// ErrInvalidResponse indicates the upstream body did not carry a price field.
var ErrInvalidResponse = errors.New("invalid upstream response")

// ErrInvalidPrice indicates the upstream price parsed to zero or negative.
var ErrInvalidPrice = errors.New("invalid upstream price")

// ErrNetwork indicates a transport-level failure reaching the upstream.
var ErrNetwork = errors.New("upstream network failure")

// ErrUnavailable indicates the upstream liveness probe failed.
var ErrUnavailable = errors.New("upstream unavailable")

// ErrValidation indicates request input failed validation.
var ErrValidation = errors.New("validation failed")

// ErrInvalidDate indicates a well-formed but unacceptable date.
var ErrInvalidDate = errors.New("invalid date")

// ErrNotFound indicates no rate samples exist for the request.
var ErrNotFound = errors.New("not found")

// UpstreamError reports a non-2xx upstream status together with the body.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream http %d: %s", e.StatusCode, e.Body)
}

// AllRatesFailedError reports that every pair of a bulk fetch failed.
type AllRatesFailedError struct {
	Failures map[Pair]error
}

func (e *AllRatesFailedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, p := range SupportedPairs() {
		if err, ok := e.Failures[p]; ok {
			parts = append(parts, fmt.Sprintf("%s: %v", p, err))
		}
	}
	return "all rate fetches failed: " + strings.Join(parts, "; ")
}
