package scheduler

import (
	"context"
	"fmt"
	"log"

	"myfolio/internal/domain/transactions"
)

// ResyncJob replays one item's full transaction history. Queued from the
// HTTP layer so the request returns immediately.
type ResyncJob struct {
	userID string
	itemID string
	sync   *transactions.SyncService
}

func NewResyncJob(userID, itemID string, sync *transactions.SyncService) *ResyncJob {
	return &ResyncJob{
		userID: userID,
		itemID: itemID,
		sync:   sync,
	}
}

// Execute runs the full resync.
func (j *ResyncJob) Execute(ctx context.Context) error {
	result, err := j.sync.ResyncItem(ctx, j.userID, j.itemID)
	if err != nil {
		return fmt.Errorf("resync failed: %w", err)
	}

	log.Printf("Resync for user %s item %s completed: +%d ~%d -%d over %d pages",
		j.userID, j.itemID, result.Added, result.Modified, result.Removed, result.Pages)
	return nil
}

// UserID returns the user ID associated with this job
func (j *ResyncJob) UserID() string {
	return j.userID
}

// Description returns a human-readable description of the job
func (j *ResyncJob) Description() string {
	return fmt.Sprintf("Full transaction resync for item %s", j.itemID)
}
