package toobit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"tickerfeed/internal/exchange"
	"tickerfeed/internal/exchange/toobit"
)

func TestConvertSymbol_SuffixHeuristic(t *testing.T) {
	t.Parallel()

	ex := toobit.New(toobit.Config{}, nil)

	tests := []struct {
		native string
		want   exchange.Symbol
	}{
		{native: "BTCUSDT", want: "BTC/USDT"},
		{native: "ethusdt", want: "ETH/USDT"},
		{native: "BTCEUR", want: "BTCEUR"}, // unknown quote: left concatenated
		{native: "BTC/USDT", want: "BTC/USDT"},
	}
	for _, tt := range tests {
		sym, err := ex.ConvertSymbol(tt.native)
		require.NoError(t, err)
		require.Equal(t, tt.want, sym)
	}

	_, err := ex.ConvertSymbol(nil)
	var ise *exchange.InvalidSymbolError
	require.ErrorAs(t, err, &ise)
}

func TestNormalizeData(t *testing.T) {
	t.Parallel()

	ex := toobit.New(toobit.Config{}, nil)
	raw := []byte(`[{"s": "BTCUSDT", "c": "50000", "v": "10", "qv": "500000"}]`)

	got, err := ex.NormalizeData(raw)
	require.NoError(t, err)
	require.Equal(t, exchange.TickerMap{
		"BTC/USDT": {Last: 50000, BaseVolume: 10, QuoteVolume: 500000},
	}, got)
}

func TestNormalizeData_EmptyArrayFails(t *testing.T) {
	t.Parallel()

	ex := toobit.New(toobit.Config{}, nil)
	_, err := ex.NormalizeData([]byte(`[]`))
	require.ErrorContains(t, err, "empty ticker payload")
}

func TestNormalizeData_MissingFieldsDefaultToZero(t *testing.T) {
	t.Parallel()

	ex := toobit.New(toobit.Config{}, nil)
	got, err := ex.NormalizeData([]byte(`[{"s": "SOLUSDT", "c": "150"}]`))
	require.NoError(t, err)
	require.Equal(t, exchange.TickerInfo{Last: 150}, got["SOL/USDT"])
}

func TestFetchTickers_TwoPhaseProtocol(t *testing.T) {
	t.Parallel()

	var infoHits int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&infoHits, 1)
		_, _ = w.Write([]byte(`{"symbols": [
			{"baseAsset": "BTC", "quoteAsset": "USDT"},
			{"baseAsset": "ETH", "quoteAsset": "USDT"},
			{"baseAsset": "", "quoteAsset": "USDT"}
		]}`))
	})
	mux.HandleFunc("/quote/v1/ticker/24hr", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "BTCUSDT":
			_, _ = w.Write([]byte(`[{"s": "BTCUSDT", "c": "50000", "v": "10", "qv": "500000"}]`))
		case "ETHUSDT":
			_, _ = w.Write([]byte(`[{"s": "ETHUSDT", "c": "3000", "v": "100", "qv": "300000"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ex := toobit.New(toobit.Config{BaseURL: srv.URL}, srv.Client())

	got, err := ex.FetchTickers(context.Background())
	require.NoError(t, err)
	// The blank instrument is dropped during discovery.
	require.Equal(t, exchange.TickerMap{
		"BTC/USDT": {Last: 50000, BaseVolume: 10, QuoteVolume: 500000},
		"ETH/USDT": {Last: 3000, BaseVolume: 100, QuoteVolume: 300000},
	}, got)
	require.EqualValues(t, 1, atomic.LoadInt64(&infoHits))

	_, err = ex.FetchTickers(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt64(&infoHits), "registry already populated, no rediscovery")
}
