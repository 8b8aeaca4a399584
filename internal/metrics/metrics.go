package metrics

import (
    "strconv"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    exchangeRequestsTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "tickerfeed_exchange_requests_total",
            Help: "Outbound exchange API requests by host, path and status code",
        },
        []string{"host", "path", "status_code"},
    )

    exchangeRequestDuration = promauto.NewHistogramVec(
        prometheus.HistogramOpts{
            Name:    "tickerfeed_exchange_request_duration_seconds",
            Help:    "Outbound exchange API request duration in seconds",
            Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
        },
        []string{"host", "path"},
    )

    tickersFetchedTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "tickerfeed_tickers_fetched_total",
            Help: "Normalized tickers produced by FetchTickers, per exchange",
        },
        []string{"exchange"},
    )

    marketsSkippedTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "tickerfeed_markets_skipped_total",
            Help: "Per-market fetches skipped under the skip-failed-markets policy",
        },
        []string{"exchange"},
    )

    retriesTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "tickerfeed_exchange_retries_total",
            Help: "Retry attempts issued by the retry decorator, per exchange and operation",
        },
        []string{"exchange", "operation"},
    )
)

// ObserveRequest records one outbound API request. A status code of 0 means
// the request failed before any response arrived.
func ObserveRequest(host, path string, statusCode int, d time.Duration) {
    exchangeRequestsTotal.WithLabelValues(host, path, strconv.Itoa(statusCode)).Inc()
    exchangeRequestDuration.WithLabelValues(host, path).Observe(d.Seconds())
}

// RecordTickersFetched counts normalized tickers returned by one adapter call.
func RecordTickersFetched(exchange string, n int) {
    tickersFetchedTotal.WithLabelValues(exchange).Add(float64(n))
}

// RecordSkippedMarket counts one market skipped after a fetch failure.
func RecordSkippedMarket(exchange string) {
    marketsSkippedTotal.WithLabelValues(exchange).Inc()
}

// RecordRetry counts one retry attempt for an adapter operation.
func RecordRetry(exchange, operation string) {
    retriesTotal.WithLabelValues(exchange, operation).Inc()
}
