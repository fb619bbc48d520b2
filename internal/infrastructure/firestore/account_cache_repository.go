package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"myfolio/internal/domain/accounts"
)

// AccountCacheRepository implements accounts.CacheRepository. Each user has
// one snapshot document at users/{uid}/accounts/{uid}.
type AccountCacheRepository struct {
	client *firestore.Client
}

func NewAccountCacheRepository(client *firestore.Client) *AccountCacheRepository {
	return &AccountCacheRepository{client: client}
}

func (r *AccountCacheRepository) doc(userID string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(userID).Collection(accountsCollection).Doc(userID)
}

func (r *AccountCacheRepository) Get(ctx context.Context, userID string) (*accounts.CacheEntry, error) {
	snap, err := r.doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, accounts.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account cache for %s: %w", userID, err)
	}

	var entry accounts.CacheEntry
	if err := snap.DataTo(&entry); err != nil {
		return nil, fmt.Errorf("failed to decode account cache for %s: %w", userID, err)
	}
	return &entry, nil
}

// Set replaces the snapshot document wholesale.
func (r *AccountCacheRepository) Set(ctx context.Context, userID string, entry *accounts.CacheEntry) error {
	if _, err := r.doc(userID).Set(ctx, entry); err != nil {
		return fmt.Errorf("failed to write account cache for %s: %w", userID, err)
	}
	return nil
}
