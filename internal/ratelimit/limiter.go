// Package ratelimit bounds the number of requests a client identifier may
// make within a fixed time window. The limiter is an injected, owned
// component so the in-memory store can be swapped for a shared one when the
// handler runs across multiple instances.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of a single limit check. It is derived, never stored.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetTime time.Time
	// RetryAfter is the whole number of seconds until the window resets,
	// rounded up. Set only when the request was denied.
	RetryAfter int
}

// Limiter checks whether a request from the given identifier is allowed
// under a max-requests-per-window policy. Identical identifiers share one
// record regardless of route.
type Limiter interface {
	Check(ctx context.Context, identifier string, maxRequests int, window time.Duration) (Result, error)
}

func retryAfterSeconds(until time.Duration) int {
	secs := int(until / time.Second)
	if until%time.Second != 0 {
		secs++
	}
	if secs < 0 {
		return 0
	}
	return secs
}
