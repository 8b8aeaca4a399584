package exchange

import (
    "encoding/json"
    "fmt"
    "strconv"
    "strings"
)

// FromDelimited converts a delimiter-separated native pair into canonical
// form: "btc_usdt" with sep "_" becomes "BTC/USDT". Inputs already in
// canonical form pass through unchanged.
func FromDelimited(native, sep string) Symbol {
    return Symbol(strings.ToUpper(strings.ReplaceAll(native, sep, "/")))
}

// FromSuffix converts a concatenated native pair by recognizing a trailing
// quote asset: "BTCUSDT" with quote "USDT" becomes "BTC/USDT". The suffix
// match is a heuristic: a base asset whose own name ends in the quote string
// is misclassified. That ambiguity is inherent to delimiter-free symbols and
// is left as-is. Inputs without the suffix are only uppercased.
func FromSuffix(native, quote string) Symbol {
    up := strings.ToUpper(native)
    if strings.Contains(up, "/") {
        return Symbol(up)
    }
    q := strings.ToUpper(quote)
    if strings.HasSuffix(up, q) && len(up) > len(q) {
        return Symbol(up[:len(up)-len(q)] + "/" + q)
    }
    return Symbol(up)
}

// Float coerces a decoded JSON value into a float64. Exchanges serve numeric
// fields as numbers or as quoted strings, and omit them entirely for illiquid
// pairs; absent (nil) values are 0, not an error. A present but non-numeric
// value is an error.
func Float(v any) (float64, error) {
    switch x := v.(type) {
    case nil:
        return 0, nil
    case float64:
        return x, nil
    case json.Number:
        return x.Float64()
    case string:
        if x == "" {
            return 0, nil
        }
        return strconv.ParseFloat(x, 64)
    default:
        return 0, fmt.Errorf("unsupported numeric type %T", v)
    }
}

// NewTickerInfo builds a TickerInfo from raw last/baseVolume/quoteVolume
// values as they appear in a decoded payload.
func NewTickerInfo(last, baseVolume, quoteVolume any) (TickerInfo, error) {
    l, err := Float(last)
    if err != nil {
        return TickerInfo{}, fmt.Errorf("last: %w", err)
    }
    bv, err := Float(baseVolume)
    if err != nil {
        return TickerInfo{}, fmt.Errorf("base volume: %w", err)
    }
    qv, err := Float(quoteVolume)
    if err != nil {
        return TickerInfo{}, fmt.Errorf("quote volume: %w", err)
    }
    return TickerInfo{Last: l, BaseVolume: bv, QuoteVolume: qv}, nil
}
