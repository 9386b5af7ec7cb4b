package models

import (
	"fmt"
	"time"
)

// Item is a single shopping-list or basket entry.
// Two items are the same entry when both name and quantity match.
type Item struct {
	Name     string
	Quantity int
}

func (i Item) String() string {
	return fmt.Sprintf("Item: %s Amount: %d", i.Name, i.Quantity)
}

// Run is one recorded execution of the weekly shop.
type Run struct {
	ID         int64
	ListPath   string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Error      string
	Requested  int
	Missing    int
	Unchecked  int // Items whose basket state was never read back
}

// RunItem is a requested item together with what happened to it in a run.
// Missing only means something once Checked is set.
type RunItem struct {
	Item
	Added   bool
	Checked bool
	Missing bool
}
