package shopper

import (
	"errors"
	"fmt"
)

// ErrTrolleyNotEmpty means lines were still in the trolley when the delete
// loop gave up.
var ErrTrolleyNotEmpty = errors.New("trolley still has items")

// trolleyLines is the part of the trolley page the delete loop drives.
type trolleyLines interface {
	// Count returns how many delete links are on the page.
	Count() (int, error)
	// DeleteFirst removes the first line and waits for the page to settle.
	DeleteFirst() error
}

// deleteAll removes trolley lines one at a time. A pass that errors or
// leaves the line count unchanged is a failure; attempts consecutive
// failures give up. The total number of passes is capped at the lines first
// seen plus attempts, so a trolley that never shrinks cannot loop forever.
func deleteAll(lines trolleyLines, attempts int) error {
	remaining, err := lines.Count()
	if err != nil {
		return err
	}
	maxPasses := remaining + attempts

	failures := 0
	for pass := 0; remaining > 0; pass++ {
		if pass >= maxPasses {
			return fmt.Errorf("%w: %d line(s) left after %d passes", ErrTrolleyNotEmpty, remaining, pass)
		}

		left := remaining
		err := lines.DeleteFirst()
		if err == nil {
			left, err = lines.Count()
		}
		if err == nil && left >= remaining {
			err = fmt.Errorf("%w: delete left %d line(s)", ErrTrolleyNotEmpty, left)
		}

		if err == nil {
			failures = 0
			remaining = left
			continue
		}

		failures++
		logger.Printf("Error removing item from trolley: %v", err)
		if failures >= attempts {
			return fmt.Errorf("gave up emptying trolley: %w", err)
		}
		if n, cerr := lines.Count(); cerr == nil {
			remaining = n
		}
	}
	return nil
}
