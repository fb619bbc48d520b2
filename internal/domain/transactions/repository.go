package transactions

import "context"

// Repository defines the interface for transaction storage.
type Repository interface {
	// UpsertBatch writes the batch keyed by TransactionID; re-writing an
	// existing id replaces it.
	UpsertBatch(ctx context.Context, userID string, txs []*Transaction) error
	// MarkRemoved flags the ids as removed without deleting the documents.
	MarkRemoved(ctx context.Context, userID string, ids []string) error
	// List returns non-removed transactions matching the filter.
	List(ctx context.Context, userID string, f Filter) ([]*Transaction, error)
}
