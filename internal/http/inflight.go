package http

import (
	"context"
	"sync"
)

// InFlightTracker counts requests being served, per route, so shutdown can wait
// for them and report which routes are still busy.
type InFlightTracker struct {
	mu      sync.Mutex
	total   int64
	byRoute map[string]int64
	idle    []chan struct{}
}

// Begin marks a request on route as in flight. The returned func ends it and is
// safe to call more than once.
func (t *InFlightTracker) Begin(route string) func() {
	t.mu.Lock()
	if t.byRoute == nil {
		t.byRoute = make(map[string]int64)
	}
	t.total++
	t.byRoute[route]++
	t.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { t.end(route) }) }
}

func (t *InFlightTracker) end(route string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total--
	if t.byRoute[route]--; t.byRoute[route] <= 0 {
		delete(t.byRoute, route)
	}
	if t.total == 0 {
		for _, ch := range t.idle {
			close(ch)
		}
		t.idle = nil
	}
}

// Count returns the number of requests in flight.
func (t *InFlightTracker) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Routes returns a copy of the per-route in-flight counts.
func (t *InFlightTracker) Routes() map[string]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int64, len(t.byRoute))
	for route, n := range t.byRoute {
		out[route] = n
	}
	return out
}

// Wait blocks until nothing is in flight or ctx is done.
func (t *InFlightTracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	if t.total == 0 {
		t.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	t.idle = append(t.idle, ch)
	t.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var globalInFlightTracker = &InFlightTracker{}

// InFlightCount returns the number of requests the server is handling.
func InFlightCount() int64 {
	return globalInFlightTracker.Count()
}

// InFlightRoutes returns in-flight counts by route template.
func InFlightRoutes() map[string]int64 {
	return globalInFlightTracker.Routes()
}

// WaitForInFlight blocks until in-flight requests drain or ctx is done.
func WaitForInFlight(ctx context.Context) error {
	return globalInFlightTracker.Wait(ctx)
}
