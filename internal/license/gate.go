// Package license enforces the tracked-group quota.
package license

import (
	"context"
	"fmt"
)

// GroupCounter reports how many groups are currently tracked.
type GroupCounter interface {
	CountActive(ctx context.Context) (int64, error)
}

// Gate answers whether one more group may be tracked.
type Gate struct {
	counter   GroupCounter
	maxGroups int
}

// NewGate creates a license gate. maxGroups <= 0 means unlimited.
func NewGate(counter GroupCounter, maxGroups int) *Gate {
	return &Gate{counter: counter, maxGroups: maxGroups}
}

// MaxGroups returns the configured quota, 0 for unlimited.
func (g *Gate) MaxGroups() int {
	if g.maxGroups < 0 {
		return 0
	}
	return g.maxGroups
}

// CanAddGroup reports whether a new group fits in the quota.
// The reason string is only meaningful when the answer is false.
func (g *Gate) CanAddGroup(ctx context.Context) (bool, string, error) {
	if g.maxGroups <= 0 {
		return true, "", nil
	}

	count, err := g.counter.CountActive(ctx)
	if err != nil {
		return false, "", fmt.Errorf("count tracked groups: %w", err)
	}
	if count >= int64(g.maxGroups) {
		return false, fmt.Sprintf("group limit reached (%d of %d)", count, g.maxGroups), nil
	}
	return true, "", nil
}
