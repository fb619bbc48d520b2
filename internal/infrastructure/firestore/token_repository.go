package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"myfolio/internal/domain/token"
)

// TokenRepository implements token.Repository on Firestore. Documents live
// at users/{uid}/plaid_tokens/{itemId}.
type TokenRepository struct {
	client *firestore.Client
}

func NewTokenRepository(client *firestore.Client) *TokenRepository {
	return &TokenRepository{client: client}
}

func (r *TokenRepository) doc(userID, itemID string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(userID).Collection(tokensCollection).Doc(itemID)
}

func (r *TokenRepository) Put(ctx context.Context, userID string, doc *token.Document) error {
	if _, err := r.doc(userID, doc.ItemID).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to write token document %s: %w", doc.ItemID, err)
	}
	return nil
}

func (r *TokenRepository) Get(ctx context.Context, userID, itemID string) (*token.Document, error) {
	snap, err := r.doc(userID, itemID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, token.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token document %s: %w", itemID, err)
	}

	var doc token.Document
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode token document %s: %w", itemID, err)
	}
	doc.ItemID = snap.Ref.ID
	return &doc, nil
}

func (r *TokenRepository) ListByUser(ctx context.Context, userID string) ([]*token.Document, error) {
	var docs []*token.Document

	it := r.client.Collection(usersCollection).Doc(userID).Collection(tokensCollection).Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate token documents: %w", err)
		}

		var doc token.Document
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode token document %s: %w", snap.Ref.ID, err)
		}
		doc.ItemID = snap.Ref.ID
		docs = append(docs, &doc)
	}

	return docs, nil
}

// Revoke flips the status and physically deletes the ciphertext field so a
// revoked document never retains key material.
func (r *TokenRepository) Revoke(ctx context.Context, userID, itemID string) error {
	_, err := r.doc(userID, itemID).Update(ctx, []firestore.Update{
		{Path: "status", Value: token.StatusRevoked},
		{Path: "encryptedToken", Value: firestore.Delete},
	})
	if status.Code(err) == codes.NotFound {
		return token.ErrItemNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to revoke token document %s: %w", itemID, err)
	}
	return nil
}

func (r *TokenRepository) Delete(ctx context.Context, userID, itemID string) error {
	if _, err := r.doc(userID, itemID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete token document %s: %w", itemID, err)
	}
	return nil
}

func (r *TokenRepository) SetCursor(ctx context.Context, userID, itemID, cursor string) error {
	return r.update(ctx, userID, itemID, firestore.Update{Path: "cursor", Value: cursor})
}

func (r *TokenRepository) SetStatus(ctx context.Context, userID, itemID string, s token.Status) error {
	return r.update(ctx, userID, itemID, firestore.Update{Path: "status", Value: s})
}

func (r *TokenRepository) TouchLastUsed(ctx context.Context, userID, itemID string, t time.Time) error {
	return r.update(ctx, userID, itemID, firestore.Update{Path: "lastUsedAt", Value: t})
}

func (r *TokenRepository) update(ctx context.Context, userID, itemID string, u firestore.Update) error {
	_, err := r.doc(userID, itemID).Update(ctx, []firestore.Update{u})
	if status.Code(err) == codes.NotFound {
		return token.ErrItemNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update token document %s: %w", itemID, err)
	}
	return nil
}
