package fetcher

import (
	"context"
	"fmt"
)

// Outcome is the dedup verdict for one (message_id, group_id) pair.
type Outcome int

const (
	// OutcomeNew means the message has never been stored.
	OutcomeNew Outcome = iota
	// OutcomeExisting means the message is already stored.
	OutcomeExisting
	// OutcomeExistingDeleted means the message is stored and soft-deleted.
	// It must not be re-inserted or resurrected.
	OutcomeExistingDeleted
)

// ExistenceStore answers point lookups against stored messages.
type ExistenceStore interface {
	Exists(ctx context.Context, messageID, groupID int64) (bool, error)
	IsDeleted(ctx context.Context, messageID, groupID int64) (bool, error)
}

// DedupIndex decides whether an incoming message should be stored,
// skipped, or skipped because the local copy was deleted on purpose.
type DedupIndex struct {
	store ExistenceStore
}

// NewDedupIndex creates a dedup index over the given store.
func NewDedupIndex(store ExistenceStore) *DedupIndex {
	return &DedupIndex{store: store}
}

// Check resolves the outcome for one message key. The deleted check
// wins over plain existence so removed messages stay removed.
func (d *DedupIndex) Check(ctx context.Context, messageID, groupID int64) (Outcome, error) {
	deleted, err := d.store.IsDeleted(ctx, messageID, groupID)
	if err != nil {
		return OutcomeNew, fmt.Errorf("check deleted marker: %w", err)
	}
	if deleted {
		return OutcomeExistingDeleted, nil
	}

	exists, err := d.store.Exists(ctx, messageID, groupID)
	if err != nil {
		return OutcomeNew, fmt.Errorf("check message existence: %w", err)
	}
	if exists {
		return OutcomeExisting, nil
	}
	return OutcomeNew, nil
}
