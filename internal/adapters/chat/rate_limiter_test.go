package chat

import (
	"testing"
	"time"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Second)

	for i := 0; i < 3; i++ {
		if !rl.Allow("c1") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if rl.Allow("c1") {
		t.Error("expected the fourth attempt inside the window to be blocked")
	}
}

func TestRateLimiter_ConnectionsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)

	if !rl.Allow("c1") {
		t.Fatal("first attempt for c1 should be allowed")
	}
	if !rl.Allow("c2") {
		t.Error("c2 must not be affected by c1's history")
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond)

	if !rl.Allow("c1") {
		t.Fatal("first attempt should be allowed")
	}
	if rl.Allow("c1") {
		t.Fatal("second attempt inside the window should be blocked")
	}

	time.Sleep(60 * time.Millisecond)

	if !rl.Allow("c1") {
		t.Error("expected the attempt to pass after the window elapsed")
	}
}

func TestRateLimiter_ForgetClearsHistory(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	rl.Allow("c1")
	rl.Forget("c1")
	if !rl.Allow("c1") {
		t.Error("history must be gone after Forget")
	}
}
