package httpx

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"

    "tickerfeed/internal/metrics"
)

// Doer executes a single HTTP request.
//
//go:generate mockgen -package=httpx_test -destination=mock_doer_test.go -source=fetch.go Doer
type Doer interface {
    Do(req *http.Request) (*http.Response, error)
}

// FetchError is the typed failure of a GET: a non-200 status, a transport
// error, or a malformed body. It always carries the offending URL.
type FetchError struct {
    URL        string
    StatusCode int   // 0 when the request never produced a response
    Err        error // transport or decode detail, nil for plain bad status
}

func (e *FetchError) Error() string {
    if e.Err != nil {
        return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
    }
    return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth retrying: rate limiting,
// server-side errors, and transport failures. Decode errors and client-side
// statuses are not.
func (e *FetchError) Retryable() bool {
    switch {
    case e.StatusCode == http.StatusTooManyRequests:
        return true
    case e.StatusCode >= 500:
        return true
    case e.StatusCode == 0 && e.Err != nil:
        return true
    }
    return false
}

// GetJSON performs a GET against url and decodes the JSON body into out.
// Any failure is a *FetchError; adapters pass it through untouched.
func GetJSON(ctx context.Context, d Doer, url string, out any) error {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
    if err != nil {
        return &FetchError{URL: url, Err: err}
    }
    req.Header.Set("Accept", "application/json")

    start := time.Now()
    resp, err := d.Do(req)
    if err != nil {
        metrics.ObserveRequest(req.URL.Host, req.URL.Path, 0, time.Since(start))
        return &FetchError{URL: url, Err: err}
    }
    defer resp.Body.Close()
    metrics.ObserveRequest(req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

    if resp.StatusCode != http.StatusOK {
        // Drain a little so the connection can be reused.
        _, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2<<10))
        return &FetchError{URL: url, StatusCode: resp.StatusCode}
    }

    dec := json.NewDecoder(resp.Body)
    dec.UseNumber()
    if err := dec.Decode(out); err != nil {
        return &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
    }
    return nil
}
