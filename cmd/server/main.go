package main

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "net/http"
    "os"
    "os/signal"
    "strings"
    "syscall"
    "time"

    "github.com/gorilla/mux"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "tickerfeed/internal/aggregate"
    "tickerfeed/internal/config"
    "tickerfeed/internal/exchange"
    "tickerfeed/internal/exchange/cache"
    "tickerfeed/internal/exchange/ratelimit"
    "tickerfeed/internal/exchange/registry"
    "tickerfeed/internal/exchange/retry"
    "tickerfeed/internal/httpx"
)

type tickersResponse struct {
    Tickers []aggregate.Row `json:"tickers"`
}

func main() {
    cfgPath := os.Getenv("CONFIG_FILE")
    cfg, err := config.Load(cfgPath)
    if err != nil {
        log.Fatalf("config: %v", err)
    }
    port := cfg.Server.Port
    timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second

    httpClient := httpx.New(timeout)

    exchanges := make(map[string]exchange.Exchange)
    for _, id := range cfg.EnabledIDs() {
        ex, err := buildExchange(id, cfg, httpClient)
        if err != nil {
            log.Fatalf("%s: %v", id, err)
        }
        exchanges[id] = ex
    }
    if len(exchanges) == 0 {
        log.Fatalf("no exchanges enabled; known ids: %s", strings.Join(registry.IDs(), ", "))
    }

    r := mux.NewRouter()
    r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    }).Methods(http.MethodGet)
    r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

    api := r.PathPrefix("/api").Subrouter()
    api.Use(jsonHeaders, recoverPanic)
    api.HandleFunc("/tickers", func(w http.ResponseWriter, req *http.Request) {
        handleGetTickers(w, req, exchanges, timeout)
    }).Methods(http.MethodGet)

    srv := &http.Server{
        Addr:              ":" + port,
        Handler:           r,
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      timeout + 5*time.Second,
        IdleTimeout:       60 * time.Second,
    }

    go func() {
        log.Printf("server listening on :%s", port)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatalf("server: %v", err)
        }
    }()

    // graceful shutdown
    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()
    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = srv.Shutdown(shutdownCtx)
    for _, ex := range exchanges {
        _ = ex.Close()
    }
}

func handleGetTickers(w http.ResponseWriter, r *http.Request, exchanges map[string]exchange.Exchange, timeout time.Duration) {
    selected := make([]exchange.Exchange, 0, len(exchanges))
    if q := strings.TrimSpace(r.URL.Query().Get("exchanges")); q != "" {
        for _, id := range splitCSV(q) {
            ex, ok := exchanges[id]
            if !ok {
                http.Error(w, fmt.Sprintf("unknown or disabled exchange %q", id), http.StatusBadRequest)
                return
            }
            selected = append(selected, ex)
        }
    } else {
        for _, ex := range exchanges {
            selected = append(selected, ex)
        }
    }

    ctx, cancel := context.WithTimeout(r.Context(), timeout)
    defer cancel()
    writeTickers(w, ctx, selected)
}

// writeTickers fans out to the selected exchanges and writes the aggregated
// rows. Partial failures are tolerated as long as one exchange responds.
func writeTickers(w http.ResponseWriter, ctx context.Context, selected []exchange.Exchange) {
    type result struct {
        id      string
        tickers exchange.TickerMap
        err     error
    }
    ch := make(chan result, len(selected))
    for _, ex := range selected {
        ex := ex
        go func() {
            tickers, err := ex.FetchTickers(ctx)
            ch <- result{id: ex.ID(), tickers: tickers, err: err}
        }()
    }

    byExchange := make(map[string]exchange.TickerMap, len(selected))
    var errs []string
    for range selected {
        r := <-ch
        if r.err != nil {
            errs = append(errs, fmt.Sprintf("%s: %v", r.id, r.err))
            continue
        }
        byExchange[r.id] = r.tickers
    }
    if len(byExchange) == 0 && len(errs) > 0 {
        http.Error(w, strings.Join(errs, "; "), http.StatusBadGateway)
        return
    }

    w.WriteHeader(http.StatusOK)
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    _ = enc.Encode(tickersResponse{Tickers: aggregate.Rows(byExchange)})
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

func jsonHeaders(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json; charset=utf-8")
        next.ServeHTTP(w, r)
    })
}

func recoverPanic(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                log.Printf("panic serving %s: %v", r.URL.Path, rec)
                http.Error(w, "internal error", http.StatusInternalServerError)
            }
        }()
        next.ServeHTTP(w, r)
    })
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
