package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"myfolio/internal/domain/transactions"
)

// TransactionRepository implements transactions.Repository. Documents live
// at users/{uid}/transactions/{transactionId}; removals are soft, via the
// isRemoved flag.
type TransactionRepository struct {
	client *firestore.Client
}

func NewTransactionRepository(client *firestore.Client) *TransactionRepository {
	return &TransactionRepository{client: client}
}

func (r *TransactionRepository) col(userID string) *firestore.CollectionRef {
	return r.client.Collection(usersCollection).Doc(userID).Collection(transactionsCollection)
}

// UpsertBatch writes the page through a BulkWriter. Set is a full replace,
// so replaying a page is idempotent.
func (r *TransactionRepository) UpsertBatch(ctx context.Context, userID string, txs []*transactions.Transaction) error {
	bw := r.client.BulkWriter(ctx)

	jobs := make([]*firestore.BulkWriterJob, 0, len(txs))
	for _, tx := range txs {
		job, err := bw.Set(r.col(userID).Doc(tx.TransactionID), tx)
		if err != nil {
			bw.End()
			return fmt.Errorf("failed to enqueue transaction %s: %w", tx.TransactionID, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("failed to write transaction %s: %w", txs[i].TransactionID, err)
		}
	}
	return nil
}

// MarkRemoved soft-deletes by id. Ids never seen before are ignored.
func (r *TransactionRepository) MarkRemoved(ctx context.Context, userID string, ids []string) error {
	bw := r.client.BulkWriter(ctx)

	jobs := make([]*firestore.BulkWriterJob, 0, len(ids))
	for _, id := range ids {
		job, err := bw.Update(r.col(userID).Doc(id), []firestore.Update{
			{Path: "isRemoved", Value: true},
		})
		if err != nil {
			bw.End()
			return fmt.Errorf("failed to enqueue removal of %s: %w", id, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for i, job := range jobs {
		if _, err := job.Results(); err != nil && status.Code(err) != codes.NotFound {
			return fmt.Errorf("failed to mark transaction %s removed: %w", ids[i], err)
		}
	}
	return nil
}

// List pushes the equality and date-range constraints into the Firestore
// query; free-text search and ordering happen in the query service.
func (r *TransactionRepository) List(ctx context.Context, userID string, f transactions.Filter) ([]*transactions.Transaction, error) {
	q := r.col(userID).Query.Where("isRemoved", "==", false)
	if f.AccountID != "" {
		q = q.Where("accountId", "==", f.AccountID)
	}
	if f.ItemID != "" {
		q = q.Where("itemId", "==", f.ItemID)
	}
	if f.Category != "" {
		q = q.Where("category", "==", f.Category)
	}
	if f.DateFrom != "" {
		q = q.Where("date", ">=", f.DateFrom)
	}
	if f.DateTo != "" {
		q = q.Where("date", "<=", f.DateTo)
	}

	var txs []*transactions.Transaction

	it := q.Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate transactions: %w", err)
		}

		var tx transactions.Transaction
		if err := snap.DataTo(&tx); err != nil {
			return nil, fmt.Errorf("failed to decode transaction %s: %w", snap.Ref.ID, err)
		}
		tx.TransactionID = snap.Ref.ID
		txs = append(txs, &tx)
	}

	return txs, nil
}
