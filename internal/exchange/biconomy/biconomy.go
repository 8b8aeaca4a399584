// Package biconomy integrates the Biconomy ticker API.
//
// docs: https://github.com/BiconomyOfficial/apidocs
package biconomy

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/url"

    "tickerfeed/internal/exchange"
    "tickerfeed/internal/httpx"
    "tickerfeed/internal/metrics"
)

const (
    // ID is the exchange identifier used in config and the factory registry.
    ID = "biconomy"

    defaultBaseURL = "https://www.biconomy.com/"
)

type Config struct {
    BaseURL string
}

// Exchange fetches tickers from Biconomy. One bulk route returns every
// ticker, so there is no market discovery step.
type Exchange struct {
    cfg    Config
    client httpx.Doer
}

func New(cfg Config, client httpx.Doer) *Exchange {
    if cfg.BaseURL == "" {
        cfg.BaseURL = defaultBaseURL
    }
    if client == nil {
        client = http.DefaultClient
    }
    return &Exchange{cfg: cfg, client: client}
}

func (e *Exchange) ID() string { return ID }

// ConvertSymbol maps native pairs like "eth_usdt" to "ETH/USDT".
func (e *Exchange) ConvertSymbol(native any) (exchange.Symbol, error) {
    s, ok := native.(string)
    if !ok {
        return "", &exchange.InvalidSymbolError{Exchange: ID, Value: native}
    }
    return exchange.FromDelimited(s, "_"), nil
}

// NormalizeData converts the bulk ticker payload:
//
//	{"ticker": [{"symbol": "eth_usdt", "last": "3000", "vol": "100"}, ...]}
//
// Biconomy reports no quote-currency volume; it is always 0.
func (e *Exchange) NormalizeData(raw []byte) (exchange.TickerMap, error) {
    var payload struct {
        Ticker []map[string]any `json:"ticker"`
    }
    if err := json.Unmarshal(raw, &payload); err != nil {
        return nil, fmt.Errorf("biconomy: decode ticker payload: %w", err)
    }
    out := exchange.TickerMap{}
    for _, t := range payload.Ticker {
        native, ok := t["symbol"]
        if !ok {
            native = ""
        }
        sym, err := e.ConvertSymbol(native)
        if err != nil {
            return nil, err
        }
        info, err := exchange.NewTickerInfo(t["last"], t["vol"], nil)
        if err != nil {
            return nil, fmt.Errorf("biconomy: %s: %w", sym, err)
        }
        out[sym] = info
    }
    return out, nil
}

// LoadMarkets is a no-op: the bulk route already covers every market.
func (e *Exchange) LoadMarkets(ctx context.Context) error { return nil }

func (e *Exchange) FetchTickers(ctx context.Context) (exchange.TickerMap, error) {
    u, err := url.Parse(e.cfg.BaseURL)
    if err != nil {
        return nil, fmt.Errorf("biconomy: base url: %w", err)
    }
    var raw json.RawMessage
    if err := httpx.GetJSON(ctx, e.client, u.JoinPath("api/v1/tickers").String(), &raw); err != nil {
        return nil, err
    }
    out, err := e.NormalizeData(raw)
    if err != nil {
        return nil, err
    }
    metrics.RecordTickersFetched(ID, len(out))
    return out, nil
}

func (e *Exchange) Close() error {
    if c, ok := e.client.(interface{ CloseIdleConnections() }); ok {
        c.CloseIdleConnections()
    }
    return nil
}
