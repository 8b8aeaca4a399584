package retry_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tickerfeed/internal/exchange"
	"tickerfeed/internal/exchange/retry"
	"tickerfeed/internal/httpx"
)

type flakyExchange struct {
	calls    atomic.Int64
	failures int64
	err      error
	tickers  exchange.TickerMap
}

func (f *flakyExchange) ID() string { return "flaky" }
func (f *flakyExchange) ConvertSymbol(native any) (exchange.Symbol, error) {
	s, ok := native.(string)
	if !ok {
		return "", &exchange.InvalidSymbolError{Exchange: "flaky", Value: native}
	}
	return exchange.Symbol(s), nil
}
func (f *flakyExchange) NormalizeData([]byte) (exchange.TickerMap, error) { return f.tickers, nil }
func (f *flakyExchange) LoadMarkets(context.Context) error               { return nil }
func (f *flakyExchange) FetchTickers(context.Context) (exchange.TickerMap, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, f.err
	}
	return f.tickers, nil
}
func (f *flakyExchange) Close() error { return nil }

func TestFetchTickers_RetriesRetryableFetchError(t *testing.T) {
	t.Parallel()

	inner := &flakyExchange{
		failures: 2,
		err:      &httpx.FetchError{URL: "https://x.test", StatusCode: http.StatusServiceUnavailable},
		tickers:  exchange.TickerMap{"BTC/USDT": {Last: 50000}},
	}
	r := &retry.Exchange{E: inner, Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Logf: t.Logf}

	got, err := r.FetchTickers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.EqualValues(t, 3, inner.calls.Load())
}

func TestFetchTickers_ExhaustedAttemptsReturnLastError(t *testing.T) {
	t.Parallel()

	inner := &flakyExchange{
		failures: 10,
		err:      &httpx.FetchError{URL: "https://x.test", StatusCode: http.StatusTooManyRequests},
	}
	r := &retry.Exchange{E: inner, Attempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	_, err := r.FetchTickers(context.Background())
	var fe *httpx.FetchError
	require.ErrorAs(t, err, &fe)
	require.EqualValues(t, 2, inner.calls.Load())
}

func TestFetchTickers_NonRetryableFailsImmediately(t *testing.T) {
	t.Parallel()

	inner := &flakyExchange{
		failures: 10,
		err:      &httpx.FetchError{URL: "https://x.test", StatusCode: http.StatusBadRequest},
	}
	r := &retry.Exchange{E: inner, Attempts: 5, BaseDelay: time.Millisecond}

	_, err := r.FetchTickers(context.Background())
	require.Error(t, err)
	require.EqualValues(t, 1, inner.calls.Load())
}

func TestFetchTickers_PlainErrorNotRetried(t *testing.T) {
	t.Parallel()

	inner := &flakyExchange{failures: 10, err: errors.New("normalize: bad payload")}
	r := &retry.Exchange{E: inner, Attempts: 5, BaseDelay: time.Millisecond}

	_, err := r.FetchTickers(context.Background())
	require.Error(t, err)
	require.EqualValues(t, 1, inner.calls.Load())
}
