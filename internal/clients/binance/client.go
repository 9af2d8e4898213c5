package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"service-cryptorates/internal"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	maxBodyBytes = 32 << 10

	userAgent = "service-cryptorates/1.0"

	defaultBaseURL     = "https://api.binance.com/api/v3"
	defaultTimeout     = 10 * time.Second
	defaultPingTimeout = 5 * time.Second
)

type Client struct {
	BaseURL     string
	httpClient  *http.Client
	pingTimeout time.Duration
	log         *slog.Logger
}

func New(baseURL string, timeout, pingTimeout time.Duration, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		pingTimeout: pingTimeout,
		log:         log,
	}
}

type priceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func (c *Client) doGet(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	u, err := url.Parse(c.BaseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: do request: %v", internal.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", internal.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &internal.UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// FetchRate returns the EUR price of one unit of the pair's crypto asset.
// Binance quotes the inverse market (crypto priced in EUR), so the
// upstream price is inverted before it is returned.
func (c *Client) FetchRate(ctx context.Context, pair internal.Pair) (decimal.Decimal, error) {
	symbol, err := pair.Symbol()
	if err != nil {
		return decimal.Decimal{}, err
	}

	q := url.Values{}
	q.Set("symbol", symbol)

	body, err := c.doGet(ctx, "/price", q)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetch %s: %w", symbol, err)
	}

	var out priceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: unmarshal %s: %v", internal.ErrInvalidResponse, symbol, err)
	}
	if strings.TrimSpace(out.Price) == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: %s has no price field", internal.ErrInvalidResponse, symbol)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(out.Price))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s price %q: %v", internal.ErrInvalidPrice, symbol, out.Price, err)
	}
	if price.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: %s price %s is not positive", internal.ErrInvalidPrice, symbol, price)
	}

	return decimal.NewFromInt(1).Div(price), nil
}

// FetchAllRates fetches every supported pair. Individual failures do not
// abort the remaining fetches; they are collected in the result. The
// returned error is non-nil only when every pair failed.
func (c *Client) FetchAllRates(ctx context.Context) (internal.FetchResult, error) {
	pairs := internal.SupportedPairs()

	result := internal.FetchResult{
		Rates:    make(map[internal.Pair]decimal.Decimal, len(pairs)),
		Failures: make(map[internal.Pair]error),
	}

	for _, pair := range pairs {
		rate, err := c.FetchRate(ctx, pair)
		if err != nil {
			result.Failures[pair] = err
			c.log.Warn("fetch rate failed", "pair", pair.String(), "error", err)
			continue
		}
		result.Rates[pair] = rate
	}

	if len(result.Failures) == len(pairs) {
		return result, &internal.AllRatesFailedError{Failures: result.Failures}
	}

	return result, nil
}

// IsAvailable reports whether the upstream API answers its ping endpoint.
// Only HTTP 200 counts as available; any other status, 2xx included, does not.
func (c *Client) IsAvailable(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pingCtx, http.MethodGet, c.BaseURL+"/ping", nil)
	if err != nil {
		c.log.Debug("upstream ping failed", "error", err)
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("upstream ping failed", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("upstream ping failed", "status", resp.StatusCode)
		return false
	}

	return true
}
