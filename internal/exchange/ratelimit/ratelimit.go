package ratelimit

import (
    "context"
    "sync"
    "time"
)

// MinInterval enforces a minimum time between calls. Concurrent callers wait
// until the interval has elapsed since the last admitted call, or return
// early if the context is canceled.
type MinInterval struct {
    Interval time.Duration

    mu   sync.Mutex
    last time.Time
}

// Wait blocks until at least Interval has passed since the previous admitted
// call. A zero or negative interval admits immediately.
func (m *MinInterval) Wait(ctx context.Context) error {
    if m.Interval <= 0 {
        return nil
    }
    m.mu.Lock()
    wait := time.Until(m.last.Add(m.Interval))
    if wait <= 0 {
        m.last = time.Now()
        m.mu.Unlock()
        return nil
    }
    // Reserve the slot before sleeping so concurrent waiters queue up
    // instead of all firing at once.
    m.last = m.last.Add(m.Interval)
    m.mu.Unlock()

    t := time.NewTimer(wait)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}
