package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/notifyhub/role-manager-bot/internal/ratelimiter"
)

func TestRouteLimiters_AllowsBurst(t *testing.T) {
	rl := ratelimiter.New(3)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx, ratelimiter.RouteMessages); err != nil {
			t.Fatalf("call %d: expected token within burst, got %v", i, err)
		}
	}
}

func TestRouteLimiters_RoutesAreIndependent(t *testing.T) {
	rl := ratelimiter.New(1)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx, ratelimiter.RouteMessages); err != nil {
		t.Fatal(err)
	}
	// The messages bucket is now empty; roles must still have its token.
	if err := rl.Wait(ctx, ratelimiter.RouteRoles); err != nil {
		t.Fatalf("expected roles route to be unaffected, got %v", err)
	}
}

func TestRouteLimiters_CancelledContext(t *testing.T) {
	rl := ratelimiter.New(1)
	_ = rl.Wait(context.Background(), ratelimiter.RouteMessages)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.Wait(ctx, ratelimiter.RouteMessages); err == nil {
		t.Fatal("expected error once ctx is cancelled")
	}
}

func TestRouteLimiters_UnknownRoute(t *testing.T) {
	rl := ratelimiter.New(1)
	if err := rl.Wait(context.Background(), ratelimiter.Route("voice")); err == nil {
		t.Fatal("expected error for unknown route")
	}
}
