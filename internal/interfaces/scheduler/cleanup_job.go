package scheduler

import (
	"context"
	"fmt"
	"log"

	"myfolio/internal/domain/token"
)

// TokenCleanupJob sweeps every user's items and removes those whose token
// has not been used within the threshold.
type TokenCleanupJob struct {
	tokens        *token.Service
	daysThreshold int
}

func NewTokenCleanupJob(tokens *token.Service, daysThreshold int) *TokenCleanupJob {
	return &TokenCleanupJob{
		tokens:        tokens,
		daysThreshold: daysThreshold,
	}
}

// Execute runs the cleanup sweep.
func (j *TokenCleanupJob) Execute(ctx context.Context) error {
	log.Printf("Starting token cleanup sweep (threshold %dd)", j.daysThreshold)

	stats, err := j.tokens.Cleanup(ctx, j.daysThreshold)
	if err != nil {
		return fmt.Errorf("cleanup sweep failed: %w", err)
	}

	log.Printf("Token cleanup sweep done: users=%d scanned=%d removed=%d",
		stats.UsersScanned, stats.ItemsScanned, stats.ItemsRemoved)
	return nil
}

// UserID returns "system"; the sweep spans all users.
func (j *TokenCleanupJob) UserID() string {
	return "system"
}

// Description returns a human-readable description of the job
func (j *TokenCleanupJob) Description() string {
	return fmt.Sprintf("Token cleanup sweep (threshold %dd)", j.daysThreshold)
}
