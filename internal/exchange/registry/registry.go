// Package registry is the closed enumeration of known exchange adapters.
package registry

import (
    "fmt"
    "sort"
    "strings"
    "time"

    "tickerfeed/internal/exchange"
    "tickerfeed/internal/exchange/biconomy"
    "tickerfeed/internal/exchange/bitcom"
    "tickerfeed/internal/exchange/toobit"
    "tickerfeed/internal/httpx"
)

// Options are the construction parameters shared by all adapters. Fields
// that an adapter has no use for (e.g. RequestDelay on a bulk-endpoint
// exchange) are ignored by it.
type Options struct {
    BaseURL           string
    Client            httpx.Doer
    RequestDelay      time.Duration
    MaxConcurrency    int
    SkipFailedMarkets bool
    Logf              func(format string, args ...any)
}

// New constructs the adapter for a known exchange id.
func New(id string, o Options) (exchange.Exchange, error) {
    switch id {
    case bitcom.ID:
        return bitcom.New(bitcom.Config{
            BaseURL:           o.BaseURL,
            RequestDelay:      o.RequestDelay,
            MaxConcurrency:    o.MaxConcurrency,
            SkipFailedMarkets: o.SkipFailedMarkets,
            Logf:              o.Logf,
        }, o.Client), nil
    case biconomy.ID:
        return biconomy.New(biconomy.Config{
            BaseURL: o.BaseURL,
        }, o.Client), nil
    case toobit.ID:
        return toobit.New(toobit.Config{
            BaseURL:           o.BaseURL,
            RequestDelay:      o.RequestDelay,
            MaxConcurrency:    o.MaxConcurrency,
            SkipFailedMarkets: o.SkipFailedMarkets,
            Logf:              o.Logf,
        }, o.Client), nil
    }
    return nil, fmt.Errorf("unknown exchange %q (known: %s)", id, strings.Join(IDs(), ", "))
}

// IDs lists the known exchange identifiers, sorted.
func IDs() []string {
    ids := []string{bitcom.ID, biconomy.ID, toobit.ID}
    sort.Strings(ids)
    return ids
}
