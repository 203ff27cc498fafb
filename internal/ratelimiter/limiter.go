package ratelimiter

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Route groups Discord REST endpoints that share a client-side budget.
type Route string

const (
	RouteMessages Route = "messages"
	RouteRoles    Route = "roles"
)

// RouteLimiters holds one token bucket per route class.
// Discord enforces its own buckets server-side; these keep a burst of
// role grants (e.g. a mass verification) from tripping 429s on the
// notification channel.
type RouteLimiters struct {
	limiters map[Route]*rate.Limiter
}

// New creates RouteLimiters allowing ratePerSec requests per second per route.
func New(ratePerSec int) *RouteLimiters {
	r := rate.Limit(ratePerSec)
	burst := ratePerSec

	return &RouteLimiters{
		limiters: map[Route]*rate.Limiter{
			RouteMessages: rate.NewLimiter(r, burst),
			RouteRoles:    rate.NewLimiter(r, burst),
		},
	}
}

// Wait blocks until the route's limiter grants a token.
// Returns a non-nil error if ctx is cancelled while waiting.
func (rl *RouteLimiters) Wait(ctx context.Context, route Route) error {
	l, ok := rl.limiters[route]
	if !ok {
		return fmt.Errorf("unknown route %q", route)
	}
	return l.Wait(ctx)
}
