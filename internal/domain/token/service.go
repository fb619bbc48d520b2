package token

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Service is the token store: durable, encrypted persistence of Plaid access
// tokens keyed by user and item.
type Service struct {
	repo        Repository
	users       UserLister
	enc         Encryptor
	environment string

	now func() time.Time
}

func NewService(repo Repository, users UserLister, enc Encryptor, environment string) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		enc:         enc,
		environment: environment,
		now:         time.Now,
	}
}

// Store encrypts and persists an access token, overwriting any prior token
// for the same item.
func (s *Service) Store(ctx context.Context, userID, itemID, accessToken string, meta InstitutionMeta) error {
	ciphertext, err := s.enc.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	now := s.now()
	doc := &Document{
		ItemID:          itemID,
		InstitutionID:   meta.InstitutionID,
		InstitutionName: meta.InstitutionName,
		EncryptedToken:  ciphertext,
		Status:          StatusActive,
		Environment:     s.environment,
		CreatedAt:       now,
		LastUsedAt:      now,
	}

	if err := s.repo.Put(ctx, userID, doc); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	log.Printf("Stored token for user %s item %s (%s)", userID, itemID, meta.InstitutionName)
	return nil
}

// GetItems returns all active items for a user with tokens decrypted.
// Items whose ciphertext fails to decrypt are treated as invalid: logged,
// marked expired and excluded from the result rather than failing the set.
func (s *Service) GetItems(ctx context.Context, userID string) ([]*Item, error) {
	docs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	items := make([]*Item, 0, len(docs))
	for _, doc := range docs {
		if doc.Status != StatusActive {
			continue
		}

		plaintext, err := s.enc.Decrypt(doc.EncryptedToken)
		if err != nil {
			log.Printf("Token for user %s item %s failed to decrypt, marking expired: %v", userID, doc.ItemID, err)
			if markErr := s.repo.SetStatus(ctx, userID, doc.ItemID, StatusExpired); markErr != nil {
				log.Printf("Failed to mark item %s expired: %v", doc.ItemID, markErr)
			}
			continue
		}

		items = append(items, itemFromDocument(doc, plaintext))
	}

	return items, nil
}

// GetItem returns one active item with its token decrypted.
func (s *Service) GetItem(ctx context.Context, userID, itemID string) (*Item, error) {
	doc, err := s.repo.Get(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if doc.Status != StatusActive {
		return nil, fmt.Errorf("item %s is %s: %w", itemID, doc.Status, ErrItemNotFound)
	}

	plaintext, err := s.enc.Decrypt(doc.EncryptedToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token for item %s: %w", itemID, err)
	}

	return itemFromDocument(doc, plaintext), nil
}

// Revoke marks an item revoked and deletes its ciphertext.
func (s *Service) Revoke(ctx context.Context, userID, itemID string) error {
	if err := s.repo.Revoke(ctx, userID, itemID); err != nil {
		return fmt.Errorf("failed to revoke item %s: %w", itemID, err)
	}
	log.Printf("Revoked token for user %s item %s", userID, itemID)
	return nil
}

// RevokeAll revokes every active item for the user and returns the count.
func (s *Service) RevokeAll(ctx context.Context, userID string) (int, error) {
	docs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list tokens: %w", err)
	}

	revoked := 0
	for _, doc := range docs {
		if doc.Status != StatusActive {
			continue
		}
		if err := s.repo.Revoke(ctx, userID, doc.ItemID); err != nil {
			return revoked, fmt.Errorf("failed to revoke item %s: %w", doc.ItemID, err)
		}
		revoked++
	}

	log.Printf("Revoked %d tokens for user %s", revoked, userID)
	return revoked, nil
}

// SetCursor persists the transaction sync cursor for an item.
func (s *Service) SetCursor(ctx context.Context, userID, itemID, cursor string) error {
	return s.repo.SetCursor(ctx, userID, itemID, cursor)
}

// TouchLastUsed records that an item's token was just used.
func (s *Service) TouchLastUsed(ctx context.Context, userID, itemID string) error {
	return s.repo.TouchLastUsed(ctx, userID, itemID, s.now())
}

// CleanupUser removes the user's items whose last use is older than the
// threshold.
func (s *Service) CleanupUser(ctx context.Context, userID string, daysThreshold int) (*CleanupStats, error) {
	stats := &CleanupStats{UsersScanned: 1, DaysThreshold: daysThreshold}
	cutoff := s.now().AddDate(0, 0, -daysThreshold)

	docs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	for _, doc := range docs {
		stats.ItemsScanned++
		if !doc.LastUsedAt.Before(cutoff) {
			continue
		}
		if err := s.repo.Delete(ctx, userID, doc.ItemID); err != nil {
			return stats, fmt.Errorf("failed to delete stale item %s: %w", doc.ItemID, err)
		}
		stats.ItemsRemoved++
		log.Printf("Cleanup: removed stale item %s for user %s (last used %s)",
			doc.ItemID, userID, doc.LastUsedAt.Format("2006-01-02"))
	}

	return stats, nil
}

// Cleanup sweeps all users. Used by the scheduled daily job.
func (s *Service) Cleanup(ctx context.Context, daysThreshold int) (*CleanupStats, error) {
	userIDs, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	total := &CleanupStats{DaysThreshold: daysThreshold}
	for _, userID := range userIDs {
		stats, err := s.CleanupUser(ctx, userID, daysThreshold)
		if err != nil {
			log.Printf("Cleanup failed for user %s: %v", userID, err)
			continue
		}
		total.UsersScanned++
		total.ItemsScanned += stats.ItemsScanned
		total.ItemsRemoved += stats.ItemsRemoved
	}

	log.Printf("Token cleanup complete: users=%d scanned=%d removed=%d threshold=%dd",
		total.UsersScanned, total.ItemsScanned, total.ItemsRemoved, daysThreshold)
	return total, nil
}

// Analytics aggregates token health metrics for one user.
func (s *Service) Analytics(ctx context.Context, userID string) (*Analytics, error) {
	docs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	a := &Analytics{}
	for _, doc := range docs {
		a.TotalItems++
		switch doc.Status {
		case StatusActive:
			a.ActiveItems++
		case StatusRevoked:
			a.RevokedItems++
		}
		a.Institutions = append(a.Institutions, doc.InstitutionName)

		lastUsed := doc.LastUsedAt
		if a.OldestUse == nil || lastUsed.Before(*a.OldestUse) {
			t := lastUsed
			a.OldestUse = &t
		}
		if a.NewestUse == nil || lastUsed.After(*a.NewestUse) {
			t := lastUsed
			a.NewestUse = &t
		}
	}

	return a, nil
}

func itemFromDocument(doc *Document, plaintext string) *Item {
	return &Item{
		ItemID:          doc.ItemID,
		InstitutionID:   doc.InstitutionID,
		InstitutionName: doc.InstitutionName,
		AccessToken:     plaintext,
		Status:          doc.Status,
		Environment:     doc.Environment,
		Cursor:          doc.Cursor,
		CreatedAt:       doc.CreatedAt,
		LastUsedAt:      doc.LastUsedAt,
	}
}
