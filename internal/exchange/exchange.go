package exchange

import (
    "context"
)

// Symbol is a canonical trading pair identifier: uppercase base and quote
// assets separated by a slash, e.g. "BTC/USDT".
type Symbol string

// TickerInfo is the normalized 24h ticker shape shared by all exchanges.
type TickerInfo struct {
    Last        float64 `json:"last"`
    BaseVolume  float64 `json:"base_volume"`
    QuoteVolume float64 `json:"quote_volume"`
}

// TickerMap maps canonical symbols to their normalized tickers.
type TickerMap map[Symbol]TickerInfo

// Merge copies all entries from src into m. On key collision the entry from
// src wins; callers relying on a specific winner must order their merges.
func (m TickerMap) Merge(src TickerMap) {
    for sym, info := range src {
        m[sym] = info
    }
}

// Exchange is the contract every exchange integration satisfies.
//
// Implementations are not safe for concurrent use: the market registry behind
// LoadMarkets has a single owner, the adapter itself. Construct one adapter
// per logical caller.
type Exchange interface {
    // ID returns the short lowercase exchange identifier.
    ID() string

    // ConvertSymbol converts a native symbol value into its canonical form.
    // The value comes straight out of a decoded JSON payload; anything that
    // is not a string yields an *InvalidSymbolError.
    ConvertSymbol(native any) (Symbol, error)

    // NormalizeData converts one raw JSON payload into normalized tickers.
    // It performs no I/O. Missing or null numeric fields become 0.
    NormalizeData(raw []byte) (TickerMap, error)

    // LoadMarkets populates the adapter's market registry. Adapters with a
    // single bulk ticker endpoint implement it as a no-op. Calling it again
    // refreshes the registry; on failure the registry is left unchanged.
    LoadMarkets(ctx context.Context) error

    // FetchTickers returns normalized tickers for every market the adapter
    // knows about, loading markets first when the registry is empty.
    FetchTickers(ctx context.Context) (TickerMap, error)

    // Close releases held transport resources. Safe to call at any time.
    Close() error
}
