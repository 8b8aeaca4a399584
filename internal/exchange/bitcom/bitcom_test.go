package bitcom_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"tickerfeed/internal/exchange"
	"tickerfeed/internal/exchange/bitcom"
	"tickerfeed/internal/httpx"
)

// newServer serves the two bit.com routes the adapter uses, with hit
// counters so tests can assert on the two-phase fetch protocol.
func newServer(t *testing.T, tickers map[string]string, failPairs map[string]int) (*httptest.Server, *int64, *int64) {
	t.Helper()
	var instrumentHits, tickerHits int64
	mux := http.NewServeMux()
	mux.HandleFunc("/spot/v1/instruments", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&instrumentHits, 1)
		body := `{"data": [`
		first := true
		for pair := range tickers {
			if !first {
				body += ","
			}
			first = false
			body += fmt.Sprintf(`{"pair": %q}`, pair)
		}
		body += `]}`
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/spot/v1/tickers", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&tickerHits, 1)
		pair := r.URL.Query().Get("pair")
		if code, ok := failPairs[pair]; ok {
			w.WriteHeader(code)
			return
		}
		payload, ok := tickers[pair]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(payload))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &instrumentHits, &tickerHits
}

func TestNormalizeData(t *testing.T) {
	t.Parallel()

	ex := bitcom.New(bitcom.Config{}, nil)
	raw := []byte(`{"data": {"pair": "BTC-USDT", "last_price": "50000", "volume24h": "10", "quote_volume24h": "500000"}}`)

	got, err := ex.NormalizeData(raw)
	require.NoError(t, err)
	require.Equal(t, exchange.TickerMap{
		"BTC/USDT": {Last: 50000, BaseVolume: 10, QuoteVolume: 500000},
	}, got)
}

func TestNormalizeData_MissingVolumesDefaultToZero(t *testing.T) {
	t.Parallel()

	ex := bitcom.New(bitcom.Config{}, nil)
	raw := []byte(`{"data": {"pair": "ETH-USDT", "last_price": "3000"}}`)

	got, err := ex.NormalizeData(raw)
	require.NoError(t, err)
	require.Equal(t, exchange.TickerMap{
		"ETH/USDT": {Last: 3000, BaseVolume: 0, QuoteVolume: 0},
	}, got)
}

func TestNormalizeData_MissingPairIsInvalidSymbol(t *testing.T) {
	t.Parallel()

	ex := bitcom.New(bitcom.Config{}, nil)
	_, err := ex.NormalizeData([]byte(`{"data": {"last_price": "1"}}`))

	var ise *exchange.InvalidSymbolError
	require.ErrorAs(t, err, &ise)
}

func TestConvertSymbol(t *testing.T) {
	t.Parallel()

	ex := bitcom.New(bitcom.Config{}, nil)

	sym, err := ex.ConvertSymbol("btc-usdt")
	require.NoError(t, err)
	require.Equal(t, exchange.Symbol("BTC/USDT"), sym)

	_, err = ex.ConvertSymbol(42)
	var ise *exchange.InvalidSymbolError
	require.ErrorAs(t, err, &ise)
}

func TestFetchTickers_LoadsMarketsLazilyOnce(t *testing.T) {
	t.Parallel()

	srv, instrumentHits, tickerHits := newServer(t, map[string]string{
		"BTC-USDT": `{"data": {"pair": "BTC-USDT", "last_price": "50000", "volume24h": "10", "quote_volume24h": "500000"}}`,
		"ETH-USDT": `{"data": {"pair": "ETH-USDT", "last_price": "3000", "volume24h": "100", "quote_volume24h": "300000"}}`,
	}, nil)
	ex := bitcom.New(bitcom.Config{BaseURL: srv.URL}, srv.Client())

	got, err := ex.FetchTickers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, exchange.TickerInfo{Last: 50000, BaseVolume: 10, QuoteVolume: 500000}, got["BTC/USDT"])
	require.EqualValues(t, 1, atomic.LoadInt64(instrumentHits))
	require.EqualValues(t, 2, atomic.LoadInt64(tickerHits))

	// Second invocation reuses the populated registry: no extra discovery.
	_, err = ex.FetchTickers(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt64(instrumentHits))
	require.EqualValues(t, 4, atomic.LoadInt64(tickerHits))
}

func TestFetchTickers_MarketFailurePropagates(t *testing.T) {
	t.Parallel()

	srv, _, _ := newServer(t, map[string]string{
		"BTC-USDT": `{"data": {"pair": "BTC-USDT", "last_price": "50000", "volume24h": "10", "quote_volume24h": "500000"}}`,
	}, map[string]int{"BTC-USDT": http.StatusInternalServerError})
	ex := bitcom.New(bitcom.Config{BaseURL: srv.URL}, srv.Client())

	got, err := ex.FetchTickers(context.Background())
	require.Nil(t, got)

	var fe *httpx.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, http.StatusInternalServerError, fe.StatusCode)
	require.Contains(t, fe.URL, "pair=BTC-USDT")
}

func TestFetchTickers_SkipFailedMarkets(t *testing.T) {
	t.Parallel()

	srv, _, _ := newServer(t, map[string]string{
		"BTC-USDT": `{"data": {"pair": "BTC-USDT", "last_price": "50000", "volume24h": "10", "quote_volume24h": "500000"}}`,
		"ETH-USDT": `{"data": {"pair": "ETH-USDT", "last_price": "3000", "volume24h": "100", "quote_volume24h": "300000"}}`,
	}, map[string]int{"ETH-USDT": http.StatusInternalServerError})
	ex := bitcom.New(bitcom.Config{BaseURL: srv.URL, SkipFailedMarkets: true, Logf: t.Logf}, srv.Client())

	got, err := ex.FetchTickers(context.Background())
	require.NoError(t, err)
	require.Equal(t, exchange.TickerMap{
		"BTC/USDT": {Last: 50000, BaseVolume: 10, QuoteVolume: 500000},
	}, got)
}

func TestFetchTickers_ConcurrentFanOut(t *testing.T) {
	t.Parallel()

	srv, _, _ := newServer(t, map[string]string{
		"BTC-USDT": `{"data": {"pair": "BTC-USDT", "last_price": "50000", "volume24h": "10", "quote_volume24h": "500000"}}`,
		"ETH-USDT": `{"data": {"pair": "ETH-USDT", "last_price": "3000", "volume24h": "100", "quote_volume24h": "300000"}}`,
		"SOL-USDT": `{"data": {"pair": "SOL-USDT", "last_price": "150", "volume24h": "1000", "quote_volume24h": "150000"}}`,
	}, nil)
	ex := bitcom.New(bitcom.Config{BaseURL: srv.URL, MaxConcurrency: 3}, srv.Client())

	got, err := ex.FetchTickers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestLoadMarkets_FailureLeavesRegistryUnchanged(t *testing.T) {
	t.Parallel()

	var fail atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/spot/v1/instruments", func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data": [{"pair": "BTC-USDT"}]}`))
	})
	mux.HandleFunc("/spot/v1/tickers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"pair": "BTC-USDT", "last_price": "50000"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ex := bitcom.New(bitcom.Config{BaseURL: srv.URL}, srv.Client())
	require.NoError(t, ex.LoadMarkets(context.Background()))

	// A failed refresh must not clear the previously discovered markets.
	fail.Store(true)
	require.Error(t, ex.LoadMarkets(context.Background()))

	got, err := ex.FetchTickers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
}
