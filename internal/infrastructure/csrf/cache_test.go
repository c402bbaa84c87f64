package csrf

import (
	"sync"
	"testing"
	"time"
)

func TestGetStableWithinTTL(t *testing.T) {
	cache := NewTokenCache(time.Minute)

	first, err := cache.Get("s1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	second, err := cache.Get("s1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if first != second {
		t.Error("expected same token within ttl")
	}

	other, err := cache.Get("s2")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if other == first {
		t.Error("expected distinct tokens per session")
	}
}

func TestGetRegeneratesAfterExpiry(t *testing.T) {
	cache := NewTokenCache(time.Minute)
	base := time.Now()
	cache.now = func() time.Time { return base }

	first, _ := cache.Get("s1")
	base = base.Add(2 * time.Minute)
	second, _ := cache.Get("s1")

	if first == second {
		t.Error("expected new token after expiry")
	}
}

func TestValidate(t *testing.T) {
	cache := NewTokenCache(time.Minute)
	token, _ := cache.Get("s1")

	if !cache.Validate("s1", token) {
		t.Error("expected valid token")
	}
	if cache.Validate("s1", "forged") {
		t.Error("forged token should fail")
	}
	if cache.Validate("s2", token) {
		t.Error("token bound to other session should fail")
	}

	cache.Drop("s1")
	if cache.Validate("s1", token) {
		t.Error("dropped token should fail")
	}
}

func TestConcurrentGetSingleToken(t *testing.T) {
	cache := NewTokenCache(time.Minute)

	const n = 16
	tokens := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			tok, err := cache.Get("s1")
			if err != nil {
				t.Errorf("get failed: %v", err)
				return
			}
			tokens[idx] = tok
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if tokens[i] != tokens[0] {
			t.Fatalf("expected all goroutines to observe one token, got %q vs %q", tokens[i], tokens[0])
		}
	}
}
