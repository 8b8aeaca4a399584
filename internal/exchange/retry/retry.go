// Package retry wraps an adapter with an explicit retry policy. Core
// adapters never retry on their own; composing this decorator is how a
// caller opts in.
package retry

import (
    "context"
    "errors"
    "time"

    retrygo "github.com/avast/retry-go/v4"

    "tickerfeed/internal/exchange"
    "tickerfeed/internal/httpx"
    "tickerfeed/internal/metrics"
)

const (
    DefaultAttempts  = 3
    DefaultBaseDelay = 100 * time.Millisecond
    DefaultMaxDelay  = 2 * time.Second
)

// Exchange retries LoadMarkets and FetchTickers with exponential backoff
// when the underlying failure is a retryable fetch error (HTTP 429, 5xx, or
// a transport failure). Everything else fails immediately.
type Exchange struct {
    E         exchange.Exchange
    Attempts  uint
    BaseDelay time.Duration
    MaxDelay  time.Duration
    Logf      func(format string, args ...any)
}

func (r *Exchange) ID() string { return r.E.ID() }

func (r *Exchange) ConvertSymbol(native any) (exchange.Symbol, error) {
    return r.E.ConvertSymbol(native)
}

func (r *Exchange) NormalizeData(raw []byte) (exchange.TickerMap, error) {
    return r.E.NormalizeData(raw)
}

func (r *Exchange) Close() error { return r.E.Close() }

func (r *Exchange) LoadMarkets(ctx context.Context) error {
    return r.do(ctx, "LoadMarkets", func() error {
        return r.E.LoadMarkets(ctx)
    })
}

func (r *Exchange) FetchTickers(ctx context.Context) (exchange.TickerMap, error) {
    var out exchange.TickerMap
    err := r.do(ctx, "FetchTickers", func() error {
        t, err := r.E.FetchTickers(ctx)
        if err != nil {
            return err
        }
        out = t
        return nil
    })
    if err != nil {
        return nil, err
    }
    return out, nil
}

func (r *Exchange) do(ctx context.Context, operation string, fn func() error) error {
    attempts := r.Attempts
    if attempts == 0 {
        attempts = DefaultAttempts
    }
    baseDelay := r.BaseDelay
    if baseDelay <= 0 {
        baseDelay = DefaultBaseDelay
    }
    maxDelay := r.MaxDelay
    if maxDelay <= 0 {
        maxDelay = DefaultMaxDelay
    }
    return retrygo.Do(fn,
        retrygo.Attempts(attempts),
        retrygo.Delay(baseDelay),
        retrygo.MaxDelay(maxDelay),
        retrygo.DelayType(retrygo.BackOffDelay),
        retrygo.LastErrorOnly(true),
        retrygo.RetryIf(isRetryable),
        retrygo.Context(ctx),
        retrygo.OnRetry(func(n uint, err error) {
            metrics.RecordRetry(r.E.ID(), operation)
            if r.Logf != nil {
                r.Logf("%s: %s retry %d/%d: %v", r.E.ID(), operation, n+1, attempts, err)
            }
        }),
    )
}

func isRetryable(err error) bool {
    var fe *httpx.FetchError
    return errors.As(err, &fe) && fe.Retryable()
}
