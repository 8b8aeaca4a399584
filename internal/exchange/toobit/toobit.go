// Package toobit integrates the Toobit spot API.
//
// docs: https://toobit-docs.github.io/apidocs/spot/v1/en/#24hr-ticker-price-change-statistics
package toobit

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/url"
    "strings"
    "time"

    "tickerfeed/internal/exchange"
    "tickerfeed/internal/exchange/ratelimit"
    "tickerfeed/internal/httpx"
    "tickerfeed/internal/metrics"
)

const (
    // ID is the exchange identifier used in config and the factory registry.
    ID = "toobit"

    defaultBaseURL = "https://api.toobit.com/"

    // quoteSuffix drives symbol normalization: native symbols carry no
    // delimiter, so the trailing quote asset is recognized by suffix.
    quoteSuffix = "USDT"
)

// Config controls the Toobit adapter behavior.
type Config struct {
    BaseURL string
    // RequestDelay is the pause between per-market ticker requests.
    RequestDelay time.Duration
    // MaxConcurrency above 1 fetches markets in parallel.
    MaxConcurrency int
    // SkipFailedMarkets logs and skips markets whose fetch fails instead of
    // failing the whole FetchTickers call.
    SkipFailedMarkets bool
    Logf              func(format string, args ...any)
}

// Exchange fetches tickers from Toobit. Markets are discovered through the
// exchangeInfo route and fetched one request per market.
type Exchange struct {
    cfg     Config
    client  httpx.Doer
    gate    exchange.Gate
    markets exchange.Markets
}

func New(cfg Config, client httpx.Doer) *Exchange {
    if cfg.BaseURL == "" {
        cfg.BaseURL = defaultBaseURL
    }
    if client == nil {
        client = http.DefaultClient
    }
    var gate exchange.Gate
    if cfg.RequestDelay > 0 {
        gate = &ratelimit.MinInterval{Interval: cfg.RequestDelay}
    }
    return &Exchange{cfg: cfg, client: client, gate: gate, markets: exchange.Markets{}}
}

func (e *Exchange) ID() string { return ID }

// ConvertSymbol maps concatenated native symbols like "BTCUSDT" to
// "BTC/USDT" by recognizing the trailing quote asset. A base asset whose own
// name ends in "USDT" is misclassified; that ambiguity comes with
// delimiter-free symbols and is accepted.
func (e *Exchange) ConvertSymbol(native any) (exchange.Symbol, error) {
    s, ok := native.(string)
    if !ok {
        return "", &exchange.InvalidSymbolError{Exchange: ID, Value: native}
    }
    return exchange.FromSuffix(s, quoteSuffix), nil
}

// NormalizeData converts one single-market 24h ticker payload, a one-element
// array:
//
//	[{"s": "BTCUSDT", "c": "50000", "v": "10", "qv": "500000"}]
func (e *Exchange) NormalizeData(raw []byte) (exchange.TickerMap, error) {
    var payload []map[string]any
    if err := json.Unmarshal(raw, &payload); err != nil {
        return nil, fmt.Errorf("toobit: decode ticker payload: %w", err)
    }
    if len(payload) == 0 {
        return nil, fmt.Errorf("toobit: empty ticker payload")
    }
    result := payload[0]
    sym, err := e.ConvertSymbol(result["s"])
    if err != nil {
        return nil, err
    }
    info, err := exchange.NewTickerInfo(result["c"], result["v"], result["qv"])
    if err != nil {
        return nil, fmt.Errorf("toobit: %s: %w", sym, err)
    }
    return exchange.TickerMap{sym: info}, nil
}

// LoadMarkets discovers tradable pairs from exchangeInfo. Native identifiers
// are the concatenated base and quote assets. The registry is replaced
// wholesale on success and left untouched on failure.
func (e *Exchange) LoadMarkets(ctx context.Context) error {
    u, err := e.endpoint("api/v1/exchangeInfo", nil)
    if err != nil {
        return err
    }
    var payload struct {
        Symbols []struct {
            BaseAsset  string `json:"baseAsset"`
            QuoteAsset string `json:"quoteAsset"`
        } `json:"symbols"`
    }
    if err := httpx.GetJSON(ctx, e.client, u, &payload); err != nil {
        return err
    }
    loaded := exchange.Markets{}
    for _, s := range payload.Symbols {
        if s.BaseAsset == "" || s.QuoteAsset == "" {
            continue
        }
        base := strings.ToUpper(s.BaseAsset)
        quote := strings.ToUpper(s.QuoteAsset)
        loaded[exchange.Symbol(base+"/"+quote)] = base + quote
    }
    e.markets = loaded
    return nil
}

func (e *Exchange) FetchTickers(ctx context.Context) (exchange.TickerMap, error) {
    if e.markets.Empty() {
        if err := e.LoadMarkets(ctx); err != nil {
            return nil, err
        }
    }
    out, err := exchange.ForEachMarket(ctx, e.markets, exchange.MarketFetchOptions{
        Exchange:       ID,
        Gate:           e.gate,
        MaxConcurrency: e.cfg.MaxConcurrency,
        SkipFailures:   e.cfg.SkipFailedMarkets,
        Logf:           e.cfg.Logf,
    }, e.fetchMarket)
    if err != nil {
        return nil, err
    }
    metrics.RecordTickersFetched(ID, len(out))
    return out, nil
}

func (e *Exchange) fetchMarket(ctx context.Context, native string) (exchange.TickerMap, error) {
    u, err := e.endpoint("quote/v1/ticker/24hr", url.Values{"symbol": {native}})
    if err != nil {
        return nil, err
    }
    var raw json.RawMessage
    if err := httpx.GetJSON(ctx, e.client, u, &raw); err != nil {
        return nil, err
    }
    return e.NormalizeData(raw)
}

func (e *Exchange) endpoint(path string, query url.Values) (string, error) {
    u, err := url.Parse(e.cfg.BaseURL)
    if err != nil {
        return "", fmt.Errorf("toobit: base url: %w", err)
    }
    u = u.JoinPath(path)
    if query != nil {
        u.RawQuery = query.Encode()
    }
    return u.String(), nil
}

func (e *Exchange) Close() error {
    if c, ok := e.client.(interface{ CloseIdleConnections() }); ok {
        c.CloseIdleConnections()
    }
    return nil
}
