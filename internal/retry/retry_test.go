package retry

import (
	"errors"
	"testing"
	"time"
)

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := Sleep
	Sleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { Sleep = orig })
	return &slept
}

func TestPollSucceedsAfterRetries(t *testing.T) {
	slept := stubSleep(t)

	calls := 0
	err := Poll(Policy{Attempts: 5, Interval: 200 * time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errors.New("element not found")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	if len(*slept) != 2 {
		t.Fatalf("Expected 2 sleeps, got %d", len(*slept))
	}
	for _, d := range *slept {
		if d != 200*time.Millisecond {
			t.Errorf("Expected fixed 200ms interval, got %v", d)
		}
	}
}

func TestPollExhausted(t *testing.T) {
	slept := stubSleep(t)

	lookupErr := errors.New("element not found")
	calls := 0
	err := Poll(Policy{Attempts: 4, Interval: time.Second}, func() error {
		calls++
		return lookupErr
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("Expected ErrExhausted, got %v", err)
	}
	if !errors.Is(err, lookupErr) {
		t.Errorf("Expected the last failure to be wrapped, got %v", err)
	}
	if calls != 4 {
		t.Errorf("Expected 4 calls, got %d", calls)
	}
	// No sleep after the final attempt.
	if len(*slept) != 3 {
		t.Errorf("Expected 3 sleeps, got %d", len(*slept))
	}
}

func TestPollZeroAttemptsStillTriesOnce(t *testing.T) {
	stubSleep(t)

	calls := 0
	_ = Poll(Policy{}, func() error {
		calls++
		return errors.New("nope")
	})
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}
