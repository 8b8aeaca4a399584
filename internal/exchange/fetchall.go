package exchange

import (
    "context"
    "sync"

    "golang.org/x/sync/errgroup"

    "tickerfeed/internal/metrics"
)

// Gate paces outbound requests. Implementations block until the next request
// is allowed or the context is canceled.
type Gate interface {
    Wait(ctx context.Context) error
}

// MarketFetchOptions controls the per-market fetch loop shared by adapters
// that have to request each market individually.
type MarketFetchOptions struct {
    // Exchange is the owning adapter's ID, used to label metrics.
    Exchange string

    // Gate, when set, is waited on before every market request. This is how
    // adapters stay under exchange request-rate ceilings.
    Gate Gate

    // MaxConcurrency above 1 fans market requests out over that many
    // goroutines. The default is one request at a time.
    MaxConcurrency int

    // SkipFailures turns a failed market fetch into a logged skip instead of
    // aborting the whole call. Off by default: one failure fails the call.
    SkipFailures bool

    // Logf receives progress and skip messages. Nil disables logging.
    Logf func(format string, args ...any)
}

func (o MarketFetchOptions) logf(format string, args ...any) {
    if o.Logf != nil {
        o.Logf(format, args...)
    }
}

// ForEachMarket runs fetchOne for every native identifier in the registry and
// merges the normalized results into one map. Merge order is unspecified, so
// on duplicate canonical symbols the surviving entry is arbitrary
// (last write wins).
func ForEachMarket(ctx context.Context, markets Markets, opt MarketFetchOptions, fetchOne func(ctx context.Context, native string) (TickerMap, error)) (TickerMap, error) {
    out := TickerMap{}

    run := func(ctx context.Context, native string, merge func(TickerMap)) error {
        if opt.Gate != nil {
            if err := opt.Gate.Wait(ctx); err != nil {
                return err
            }
        }
        opt.logf("fetching %s", native)
        m, err := fetchOne(ctx, native)
        if err != nil {
            if opt.SkipFailures {
                opt.logf("skipping %s: %v", native, err)
                metrics.RecordSkippedMarket(opt.Exchange)
                return nil
            }
            return err
        }
        merge(m)
        return nil
    }

    if opt.MaxConcurrency > 1 {
        var mu sync.Mutex
        g, gctx := errgroup.WithContext(ctx)
        g.SetLimit(opt.MaxConcurrency)
        for _, native := range markets {
            native := native
            g.Go(func() error {
                return run(gctx, native, func(m TickerMap) {
                    mu.Lock()
                    out.Merge(m)
                    mu.Unlock()
                })
            })
        }
        if err := g.Wait(); err != nil {
            return nil, err
        }
        return out, nil
    }

    for _, native := range markets {
        if err := run(ctx, native, out.Merge); err != nil {
            return nil, err
        }
    }
    return out, nil
}
