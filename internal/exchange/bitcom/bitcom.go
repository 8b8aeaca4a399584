// Package bitcom integrates the bit.com spot API.
//
// docs: https://www.bit.com/docs/en-us/spot.html#get-tickers
package bitcom

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/url"
    "time"

    "tickerfeed/internal/exchange"
    "tickerfeed/internal/exchange/ratelimit"
    "tickerfeed/internal/httpx"
    "tickerfeed/internal/metrics"
)

const (
    // ID is the exchange identifier used in config and the factory registry.
    ID = "bit"

    defaultBaseURL = "https://betaspot-api.bitexch.dev/"
)

// Config controls the bit.com adapter behavior.
type Config struct {
    BaseURL string
    // RequestDelay is the pause between per-market ticker requests, keeping
    // the adapter under the exchange's request-rate ceiling.
    RequestDelay time.Duration
    // MaxConcurrency above 1 fetches markets in parallel. Defaults to one
    // request at a time.
    MaxConcurrency int
    // SkipFailedMarkets logs and skips markets whose fetch fails instead of
    // failing the whole FetchTickers call.
    SkipFailedMarkets bool
    Logf              func(format string, args ...any)
}

// Exchange fetches tickers from bit.com. The exchange has no bulk ticker
// route, so markets are discovered first and fetched one by one.
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

// ConvertSymbol maps native pairs like "BTC-USDT" to "BTC/USDT".
func (e *Exchange) ConvertSymbol(native any) (exchange.Symbol, error) {
    s, ok := native.(string)
    if !ok {
        return "", &exchange.InvalidSymbolError{Exchange: ID, Value: native}
    }
    return exchange.FromDelimited(s, "-"), nil
}

// NormalizeData converts one single-market ticker payload:
//
//	{"data": {"pair": "BTC-USDT", "last_price": "50000",
//	          "volume24h": "10", "quote_volume24h": "500000"}}
func (e *Exchange) NormalizeData(raw []byte) (exchange.TickerMap, error) {
    var payload struct {
        Data map[string]any `json:"data"`
    }
    if err := json.Unmarshal(raw, &payload); err != nil {
        return nil, fmt.Errorf("bit: decode ticker payload: %w", err)
    }
    sym, err := e.ConvertSymbol(payload.Data["pair"])
    if err != nil {
        return nil, err
    }
    info, err := exchange.NewTickerInfo(payload.Data["last_price"], payload.Data["volume24h"], payload.Data["quote_volume24h"])
    if err != nil {
        return nil, fmt.Errorf("bit: %s: %w", sym, err)
    }
    return exchange.TickerMap{sym: info}, nil
}

// LoadMarkets discovers tradable pairs via the instruments route. The
// registry is replaced wholesale on success and left untouched on failure.
func (e *Exchange) LoadMarkets(ctx context.Context) error {
    u, err := e.endpoint("spot/v1/instruments", nil)
    if err != nil {
        return err
    }
    var payload struct {
        Data []struct {
            Pair string `json:"pair"`
        } `json:"data"`
    }
    if err := httpx.GetJSON(ctx, e.client, u, &payload); err != nil {
        return err
    }
    loaded := exchange.Markets{}
    for _, inst := range payload.Data {
        if inst.Pair == "" {
            continue
        }
        sym, err := e.ConvertSymbol(inst.Pair)
        if err != nil {
            return err
        }
        loaded[sym] = inst.Pair
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
    u, err := e.endpoint("spot/v1/tickers", url.Values{"pair": {native}})
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
        return "", fmt.Errorf("bit: base url: %w", err)
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
