// Package ratelimit throttles state-changing form posts per client with a
// sliding window. It protects sign-in and role changes from brute force; it
// never takes part in access decisions.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Store counts requests per key within a sliding window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// Policy is a limit per window.
type Policy struct {
	Limit  int
	Window time.Duration
}
