package session

import (
	"sync"
	"testing"
	"time"
)

func TestRetryBackoffGrowsAndCaps(t *testing.T) {
	b := newRetryBackoff(BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     500 * time.Millisecond,
	})

	if d := b.delay(1); d != 100*time.Millisecond {
		t.Fatalf("retry 1: %v", d)
	}
	if d := b.delay(2); d != 200*time.Millisecond {
		t.Fatalf("retry 2: %v", d)
	}
	if d := b.delay(3); d != 400*time.Millisecond {
		t.Fatalf("retry 3: %v", d)
	}
	if d := b.delay(4); d != 500*time.Millisecond {
		t.Fatalf("retry 4 should cap at MaxDelay: %v", d)
	}
}

func TestRetryBackoffJitterStaysBounded(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     time.Second,
		Jitter:       true,
	}
	b := newRetryBackoff(cfg)
	for n := 1; n <= 5; n++ {
		d := b.delay(n)
		if d < cfg.InitialDelay/2 || d > 2*cfg.MaxDelay {
			t.Fatalf("retry %d: jittered delay out of range: %v", n, d)
		}
	}
}

func TestRetryBackoffZeroInitial(t *testing.T) {
	b := newRetryBackoff(BackoffConfig{})
	if d := b.delay(3); d != 0 {
		t.Fatalf("expected zero delay, got %v", d)
	}
}

func TestRetryBackoffConcurrentJitter(t *testing.T) {
	b := newRetryBackoff(BackoffConfig{
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     10 * time.Millisecond,
		Jitter:       true,
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 1; n <= 50; n++ {
				if d := b.delay(n%4 + 1); d < 0 {
					t.Errorf("negative delay %v", d)
					return
				}
			}
		}()
	}
	wg.Wait()
}
