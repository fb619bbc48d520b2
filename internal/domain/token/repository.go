package token

import (
	"context"
	"errors"
	"time"
)

// ErrItemNotFound is returned when no token document exists for the item.
var ErrItemNotFound = errors.New("plaid item not found")

// Repository defines the interface for token document access.
type Repository interface {
	// Put fully replaces the document for doc.ItemID.
	Put(ctx context.Context, userID string, doc *Document) error
	Get(ctx context.Context, userID, itemID string) (*Document, error)
	ListByUser(ctx context.Context, userID string) ([]*Document, error)
	// Revoke sets status=revoked and physically deletes the ciphertext field.
	Revoke(ctx context.Context, userID, itemID string) error
	// Delete removes the document entirely (cleanup and unlink flows).
	Delete(ctx context.Context, userID, itemID string) error
	SetCursor(ctx context.Context, userID, itemID, cursor string) error
	SetStatus(ctx context.Context, userID, itemID string, status Status) error
	TouchLastUsed(ctx context.Context, userID, itemID string, t time.Time) error
}

// Encryptor is the subset of the crypto encryptor the token store needs.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// UserLister provides the user ids visited by the global cleanup sweep.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}
