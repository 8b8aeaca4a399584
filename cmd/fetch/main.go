package main

import (
    "context"
    "encoding/json"
    "flag"
    "fmt"
    "log"
    "os"
    "strings"
    "time"

    "tickerfeed/internal/aggregate"
    "tickerfeed/internal/config"
    "tickerfeed/internal/exchange"
    "tickerfeed/internal/exchange/cache"
    "tickerfeed/internal/exchange/ratelimit"
    "tickerfeed/internal/exchange/registry"
    "tickerfeed/internal/exchange/retry"
    "tickerfeed/internal/httpx"
)

func main() {
    var exchangesCSV string
    var configPath string
    var timeout int

    flag.StringVar(&exchangesCSV, "exchanges", getenv("EXCHANGES", ""), "comma-separated exchange ids; empty means all enabled in config")
    flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.yaml (optional)")
    flag.IntVar(&timeout, "timeout", 0, "overall timeout in seconds (0 uses config)")
    flag.Parse()

    cfg, err := config.Load(configPath)
    if err != nil {
        log.Fatalf("config: %v", err)
    }
    if timeout <= 0 {
        timeout = cfg.Server.RequestTimeoutSec
    }

    ids := splitCSV(exchangesCSV)
    if len(ids) == 0 {
        ids = cfg.EnabledIDs()
    }
    if len(ids) == 0 {
        log.Fatalf("no exchanges enabled; known ids: %s", strings.Join(registry.IDs(), ", "))
    }

    httpClient := httpx.New(time.Duration(timeout) * time.Second)

    exchanges := make([]exchange.Exchange, 0, len(ids))
    for _, id := range ids {
        ex, err := buildExchange(id, cfg, httpClient)
        if err != nil {
            log.Fatalf("%s: %v", id, err)
        }
        exchanges = append(exchanges, ex)
    }

    ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
    defer cancel()

    type result struct {
        id      string
        tickers exchange.TickerMap
        err     error
    }
    ch := make(chan result, len(exchanges))
    for _, ex := range exchanges {
        ex := ex
        go func() {
            defer ex.Close()
            if err := ex.LoadMarkets(ctx); err != nil {
                ch <- result{id: ex.ID(), err: err}
                return
            }
            tickers, err := ex.FetchTickers(ctx)
            ch <- result{id: ex.ID(), tickers: tickers, err: err}
        }()
    }

    byExchange := make(map[string]exchange.TickerMap, len(exchanges))
    for range exchanges {
        r := <-ch
        if r.err != nil {
            log.Printf("%s error: %v", r.id, r.err)
            continue
        }
        log.Printf("%s: %d tickers", r.id, len(r.tickers))
        byExchange[r.id] = r.tickers
    }
    if len(byExchange) == 0 {
        log.Fatal("no tickers received")
    }

    out := struct {
        Tickers []aggregate.Row `json:"tickers"`
    }{Tickers: aggregate.Rows(byExchange)}
    b, _ := json.MarshalIndent(out, "", "  ")
    fmt.Println(string(b))
}

// buildExchange constructs one adapter and stacks the configured decorators:
// rate limit, then retry, then cache outermost.
func buildExchange(id string, cfg config.Config, client httpx.Doer) (exchange.Exchange, error) {
    section, ok := cfg.Exchange(id)
    if !ok {
        return nil, fmt.Errorf("unknown exchange id (known: %s)", strings.Join(registry.IDs(), ", "))
    }
    ex, err := registry.New(id, registry.Options{
        BaseURL:           section.BaseURL,
        Client:            client,
        RequestDelay:      section.RequestDelay(),
        MaxConcurrency:    section.MaxConcurrency,
        SkipFailedMarkets: section.SkipFailedMarkets,
        Logf:              log.Printf,
    })
    if err != nil {
        return nil, err
    }
    if section.MaxRequestsPerMinute > 0 {
        rate := float64(section.MaxRequestsPerMinute) / 60.0
        burst := section.Burst
        if burst <= 0 {
            burst = 1
        }
        ex = &ratelimit.Exchange{E: ex, Gate: ratelimit.NewTokenBucket(rate, burst)}
    }
    if section.RetryAttempts > 0 {
        ex = &retry.Exchange{E: ex, Attempts: uint(section.RetryAttempts), Logf: log.Printf}
    }
    if section.CacheTTLSeconds > 0 {
        ex = &cache.Exchange{E: ex, TTL: time.Duration(section.CacheTTLSeconds) * time.Second}
    }
    return ex, nil
}

func splitCSV(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" {
            out = append(out, p)
        }
    }
    return out
}

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}
