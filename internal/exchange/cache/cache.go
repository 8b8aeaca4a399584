package cache

import (
    "context"
    "sync"
    "time"

    "golang.org/x/sync/singleflight"

    "tickerfeed/internal/exchange"
)

// Exchange caches the wrapped adapter's full ticker map for a TTL.
// Concurrent refreshes are coalesced so an expired cache triggers a single
// upstream FetchTickers no matter how many callers race on it.
type Exchange struct {
    E   exchange.Exchange
    TTL time.Duration

    mu      sync.RWMutex
    tickers exchange.TickerMap
    until   time.Time

    sf singleflight.Group
}

func (c *Exchange) ID() string { return c.E.ID() }

func (c *Exchange) ConvertSymbol(native any) (exchange.Symbol, error) {
    return c.E.ConvertSymbol(native)
}

func (c *Exchange) NormalizeData(raw []byte) (exchange.TickerMap, error) {
    return c.E.NormalizeData(raw)
}

func (c *Exchange) LoadMarkets(ctx context.Context) error { return c.E.LoadMarkets(ctx) }

func (c *Exchange) Close() error { return c.E.Close() }

// FetchTickers returns the cached map while it is fresh, refreshing it from
// the wrapped adapter otherwise. A failed refresh leaves the previous cache
// untouched but is reported to the caller.
func (c *Exchange) FetchTickers(ctx context.Context) (exchange.TickerMap, error) {
    if c.TTL <= 0 {
        return c.E.FetchTickers(ctx)
    }

    c.mu.RLock()
    fresh := c.tickers != nil && time.Now().Before(c.until)
    tickers := c.tickers
    c.mu.RUnlock()
    if fresh {
        return tickers, nil
    }

    v, err, _ := c.sf.Do("tickers", func() (any, error) {
        t, err := c.E.FetchTickers(ctx)
        if err != nil {
            return nil, err
        }
        c.mu.Lock()
        c.tickers = t
        c.until = time.Now().Add(c.TTL)
        c.mu.Unlock()
        return t, nil
    })
    if err != nil {
        return nil, err
    }
    return v.(exchange.TickerMap), nil
}
