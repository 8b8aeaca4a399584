package aggregate

import (
    "sort"

    "tickerfeed/internal/exchange"
)

// Row is one exchange's normalized ticker for one canonical symbol, the
// flat shape consumers read.
type Row struct {
    Exchange    string          `json:"exchange"`
    Symbol      exchange.Symbol `json:"symbol"`
    Last        float64         `json:"last"`
    BaseVolume  float64         `json:"base_volume"`
    QuoteVolume float64         `json:"quote_volume"`
}

// Rows flattens per-exchange ticker maps into rows sorted by symbol, then
// exchange. Tickers from different exchanges are kept side by side; nothing
// arbitrates between conflicting prices.
func Rows(byExchange map[string]exchange.TickerMap) []Row {
    var n int
    for _, m := range byExchange {
        n += len(m)
    }
    out := make([]Row, 0, n)
    for id, m := range byExchange {
        for sym, info := range m {
            out = append(out, Row{
                Exchange:    id,
                Symbol:      sym,
                Last:        info.Last,
                BaseVolume:  info.BaseVolume,
                QuoteVolume: info.QuoteVolume,
            })
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Symbol != out[j].Symbol {
            return out[i].Symbol < out[j].Symbol
        }
        return out[i].Exchange < out[j].Exchange
    })
    return out
}

// Merge folds several ticker maps into one. Maps are merged in argument
// order, so on a symbol collision the ticker from the later map wins.
func Merge(maps ...exchange.TickerMap) exchange.TickerMap {
    out := exchange.TickerMap{}
    for _, m := range maps {
        out.Merge(m)
    }
    return out
}
