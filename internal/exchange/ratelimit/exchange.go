package ratelimit

import (
    "context"

    "tickerfeed/internal/exchange"
)

// Exchange gates whole adapter calls with a shared limiter. It composes with
// the per-market pacing inside adapters: this wrapper bounds how often a
// caller may hit the adapter at all.
type Exchange struct {
    E    exchange.Exchange
    Gate exchange.Gate
}

func (r *Exchange) ID() string { return r.E.ID() }

func (r *Exchange) ConvertSymbol(native any) (exchange.Symbol, error) {
    return r.E.ConvertSymbol(native)
}

func (r *Exchange) NormalizeData(raw []byte) (exchange.TickerMap, error) {
    return r.E.NormalizeData(raw)
}

func (r *Exchange) LoadMarkets(ctx context.Context) error {
    if r.Gate != nil {
        if err := r.Gate.Wait(ctx); err != nil {
            return err
        }
    }
    return r.E.LoadMarkets(ctx)
}

func (r *Exchange) FetchTickers(ctx context.Context) (exchange.TickerMap, error) {
    if r.Gate != nil {
        if err := r.Gate.Wait(ctx); err != nil {
            return nil, err
        }
    }
    return r.E.FetchTickers(ctx)
}

func (r *Exchange) Close() error { return r.E.Close() }
