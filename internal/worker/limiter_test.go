package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "guest"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "u1"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	limiter.Allow("guest")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "guest"); err == nil {
		t.Error("expected wait to fail once the bucket is empty and ctx expires")
	}
}

func TestLimiter_PerKey(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if !limiter.Allow("guest") {
		t.Errorf("first request should pass")
	}
	if limiter.Allow("guest") {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}
	if !limiter.Allow("u1") {
		t.Errorf("expected allow for another key")
	}
}

func TestHostKey(t *testing.T) {
	key, err := HostKey("https://dashscope.aliyuncs.com/compatible-mode/v1")
	if err != nil {
		t.Fatalf("HostKey failed: %v", err)
	}
	if key != "dashscope.aliyuncs.com" {
		t.Errorf("expected dashscope.aliyuncs.com, got %s", key)
	}

	if _, err := HostKey("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
}
