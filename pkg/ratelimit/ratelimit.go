// Package ratelimit gates repeated submissions with a fixed per-key cooldown.
//
// A key is allowed when no timestamp is stored for it or when the cooldown has
// elapsed since the stored timestamp; an allowed check stores the current time.
// A disallowed check never advances the stored timestamp, so repeated calls
// inside the window report a remaining wait that only shrinks.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of a single Check.
type Result struct {
	Allowed   bool
	Remaining time.Duration
}

// Limiter is implemented by the in-memory and the redis backed cooldown gates.
type Limiter interface {
	Check(ctx context.Context, key string) (Result, error)
	Clear(ctx context.Context, key string) error
	ClearAll(ctx context.Context) error
}

// Clock returns the current time.
type Clock func() time.Time
