package retry

import (
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is wrapped into the error returned once every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy is a fixed-interval retry budget.
type Policy struct {
	Attempts int
	Interval time.Duration
}

// Sleep is swapped out in tests.
var Sleep = time.Sleep

// Poll runs op until it succeeds or the policy's attempts are used up,
// sleeping Interval between attempts. At least one attempt is always made.
func Poll(p Policy, op func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		if i < attempts {
			Sleep(p.Interval)
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, err)
}
