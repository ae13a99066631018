package trading212

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Default quota observed on the web platform.
const (
	DefaultRateLimitCalls  = 3
	DefaultRateLimitWindow = time.Second
)

// CallGate admits at most calls requests per window and blocks the caller
// until quota is free. Admissions are spaced window/calls apart, so no
// window of that length ever sees more than calls requests.
type CallGate struct {
	limiter *rate.Limiter
}

// NewCallGate creates a gate. A zero window disables limiting.
func NewCallGate(calls int, window time.Duration) *CallGate {
	if calls <= 0 {
		calls = 1
	}
	return &CallGate{
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(calls)), 1),
	}
}

// defaultGate is shared by every client that is not given its own gate.
var defaultGate = NewCallGate(DefaultRateLimitCalls, DefaultRateLimitWindow)

// Do waits for quota, then sends req. Only cancellation of the request's
// context ends the wait early. Transport errors are returned as-is.
func (g *CallGate) Do(client *http.Client, req *http.Request) (*http.Response, error) {
	if err := g.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return client.Do(req)
}
