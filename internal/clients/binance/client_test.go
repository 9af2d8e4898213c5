package binance_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"service-cryptorates/internal"
	"service-cryptorates/internal/clients/binance"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchRate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/price", r.URL.Path)
		assert.Equal(t, "BTCEUR", r.URL.Query().Get("symbol"))
		assert.Equal(t, "service-cryptorates/1.0", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(`{"symbol":"BTCEUR","price":"50000"}`))
		require.NoError(t, err)
	}))
	defer server.Close()

	client := binance.New(server.URL, 0, 0, nil)

	rate, err := client.FetchRate(context.Background(), internal.EURBTC)

	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.00002")),
		"expected 1/50000, got %s", rate)
}

func TestClient_FetchRate_UnsupportedPair(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := binance.New(server.URL, 0, 0, nil)

	_, err := client.FetchRate(context.Background(), internal.Pair("EUR/XRP"))

	require.Error(t, err)
	assert.ErrorIs(t, err, internal.ErrUnsupportedPair)
	assert.Equal(t, int64(0), hits.Load(), "unsupported pair must not reach the network")
}

func TestClient_FetchRate_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, err := w.Write([]byte("upstream exploded"))
		require.NoError(t, err)
	}))
	defer server.Close()

	client := binance.New(server.URL, 0, 0, nil)

	_, err := client.FetchRate(context.Background(), internal.EURBTC)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "upstream exploded")

	var upstreamErr *internal.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusInternalServerError, upstreamErr.StatusCode)
}

func TestClient_FetchRate_MissingPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte(`{"symbol":"BTCEUR"}`))
		require.NoError(t, err)
	}))
	defer server.Close()

	client := binance.New(server.URL, 0, 0, nil)

	_, err := client.FetchRate(context.Background(), internal.EURBTC)

	require.Error(t, err)
	assert.ErrorIs(t, err, internal.ErrInvalidResponse)
}

func TestClient_FetchRate_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte(`not json at all`))
		require.NoError(t, err)
	}))
	defer server.Close()

	client := binance.New(server.URL, 0, 0, nil)

	_, err := client.FetchRate(context.Background(), internal.EURBTC)

	require.Error(t, err)
	assert.ErrorIs(t, err, internal.ErrInvalidResponse)
}

func TestClient_FetchRate_NonPositivePrice(t *testing.T) {
	tests := []struct {
		name  string
		price string
	}{
		{name: "zero", price: "0"},
		{name: "negative", price: "-42.5"},
		{name: "garbage", price: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, err := w.Write([]byte(`{"symbol":"BTCEUR","price":"` + tt.price + `"}`))
				require.NoError(t, err)
			}))
			defer server.Close()

			client := binance.New(server.URL, 0, 0, nil)

			_, err := client.FetchRate(context.Background(), internal.EURBTC)

			require.Error(t, err)
			assert.ErrorIs(t, err, internal.ErrInvalidPrice)
		})
	}
}

func TestClient_FetchAllRates_Success(t *testing.T) {
	prices := map[string]string{
		"BTCEUR": "50000",
		"ETHEUR": "2500",
		"LTCEUR": "80",
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		price, ok := prices[symbol]
		require.True(t, ok, "unexpected symbol %q", symbol)
		_, err := w.Write([]byte(`{"symbol":"` + symbol + `","price":"` + price + `"}`))
		require.NoError(t, err)
	}))
	defer server.Close()

	client := binance.New(server.URL, 0, 0, nil)

	result, err := client.FetchAllRates(context.Background())

	require.NoError(t, err)
	assert.Len(t, result.Rates, 3)
	assert.Empty(t, result.Failures)
	assert.True(t, result.Rates[internal.EURLTC].Equal(decimal.RequireFromString("0.0125")),
		"expected 1/80, got %s", result.Rates[internal.EURLTC])
}

func TestClient_FetchAllRates_PartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "ETHEUR" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, err := w.Write([]byte(`{"symbol":"X","price":"100"}`))
		require.NoError(t, err)
	}))
	defer server.Close()

	client := binance.New(server.URL, 0, 0, nil)

	result, err := client.FetchAllRates(context.Background())

	require.NoError(t, err, "partial failure must not fail the whole fetch")
	assert.Len(t, result.Rates, 2)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures, internal.EURETH)
	assert.NotContains(t, result.Rates, internal.EURETH)
}

func TestClient_FetchAllRates_AllFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := binance.New(server.URL, 0, 0, nil)

	result, err := client.FetchAllRates(context.Background())

	require.Error(t, err)
	var allFailed *internal.AllRatesFailedError
	require.ErrorAs(t, err, &allFailed)
	assert.Len(t, allFailed.Failures, 3)
	assert.Empty(t, result.Rates)
}

func TestClient_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ping", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := binance.New(server.URL, 0, 0, nil)

	assert.True(t, client.IsAvailable(context.Background()))
}

func TestClient_IsAvailable_Non200Success(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusAccepted} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client := binance.New(server.URL, 0, 0, nil)

		assert.False(t, client.IsAvailable(context.Background()), "status %d is not available", status)
		server.Close()
	}
}

func TestClient_IsAvailable_Down(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := binance.New(server.URL, 0, 0, nil)

	assert.False(t, client.IsAvailable(context.Background()))
}

func TestClient_IsAvailable_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := binance.New(server.URL, 0, 0, nil)

	assert.False(t, client.IsAvailable(context.Background()))
}
