package transactions

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"myfolio/internal/domain/token"
	"myfolio/internal/infrastructure/plaid"
)

// TokenStore is the subset of the token service the sync needs: decrypted
// items and durable cursor updates.
type TokenStore interface {
	GetItem(ctx context.Context, userID, itemID string) (*token.Item, error)
	GetItems(ctx context.Context, userID string) ([]*token.Item, error)
	SetCursor(ctx context.Context, userID, itemID, cursor string) error
	TouchLastUsed(ctx context.Context, userID, itemID string) error
}

// SyncAPI is the vendor call consumed page by page.
type SyncAPI interface {
	SyncTransactions(ctx context.Context, accessToken, cursor string) (*plaid.SyncPage, error)
}

// SyncService drives the cursor-based incremental transaction sync. The
// cursor is persisted after every page, so an interrupted run resumes from
// the last completed page and upserts make replayed pages harmless.
type SyncService struct {
	tokens TokenStore
	vendor SyncAPI
	repo   Repository

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

func NewSyncService(tokens TokenStore, vendor SyncAPI, repo Repository) *SyncService {
	return &SyncService{
		tokens: tokens,
		vendor: vendor,
		repo:   repo,
		locks:  map[string]*sync.Mutex{},
		now:    time.Now,
	}
}

// itemLock serializes syncs of the same item. Concurrent syncs of one cursor
// stream would interleave pages and corrupt the stored cursor.
func (s *SyncService) itemLock(userID, itemID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userID + "/" + itemID
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// SyncItem pulls all pending pages for one item starting at its stored
// cursor.
func (s *SyncService) SyncItem(ctx context.Context, userID, itemID string) (*SyncResult, error) {
	l := s.itemLock(userID, itemID)
	l.Lock()
	defer l.Unlock()

	item, err := s.tokens.GetItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	return s.syncLocked(ctx, userID, item, item.Cursor)
}

// ResyncItem discards the stored cursor and replays the item's full history.
// Existing rows are replaced by id, so a resync repairs drift without
// duplicating anything.
func (s *SyncService) ResyncItem(ctx context.Context, userID, itemID string) (*SyncResult, error) {
	l := s.itemLock(userID, itemID)
	l.Lock()
	defer l.Unlock()

	item, err := s.tokens.GetItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.SetCursor(ctx, userID, itemID, ""); err != nil {
		return nil, fmt.Errorf("failed to reset cursor: %w", err)
	}

	log.Printf("Resync: replaying full history for user %s item %s", userID, itemID)
	return s.syncLocked(ctx, userID, item, "")
}

// ItemExists reports whether the item is linked and active for the user.
// Lets callers validate before queueing background work.
func (s *SyncService) ItemExists(ctx context.Context, userID, itemID string) (bool, error) {
	if _, err := s.tokens.GetItem(ctx, userID, itemID); err != nil {
		return false, err
	}
	return true, nil
}

// SyncAll syncs every active item for the user, continuing past per-item
// failures.
func (s *SyncService) SyncAll(ctx context.Context, userID string) ([]*SyncResult, error) {
	items, err := s.tokens.GetItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load linked items: %w", err)
	}

	results := make([]*SyncResult, 0, len(items))
	for _, item := range items {
		res, err := s.SyncItem(ctx, userID, item.ItemID)
		if err != nil {
			log.Printf("Sync failed for user %s item %s: %v", userID, item.ItemID, err)
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *SyncService) syncLocked(ctx context.Context, userID string, item *token.Item, cursor string) (*SyncResult, error) {
	result := &SyncResult{ItemID: item.ItemID}

	for {
		page, err := s.vendor.SyncTransactions(ctx, item.AccessToken, cursor)
		if err != nil {
			// The cursor still points at the last completed page, so the
			// next run resumes there.
			return result, fmt.Errorf("sync page failed for item %s: %w", item.ItemID, err)
		}

		if err := s.applyPage(ctx, userID, item.ItemID, page, result); err != nil {
			return result, err
		}

		if err := s.tokens.SetCursor(ctx, userID, item.ItemID, page.NextCursor); err != nil {
			return result, fmt.Errorf("failed to persist cursor for item %s: %w", item.ItemID, err)
		}

		cursor = page.NextCursor
		result.Pages++
		if !page.HasMore {
			break
		}
	}

	if err := s.tokens.TouchLastUsed(ctx, userID, item.ItemID); err != nil {
		log.Printf("Failed to touch item %s: %v", item.ItemID, err)
	}

	result.TotalProcessed = result.Added + result.Modified + result.Removed
	log.Printf("Synced user %s item %s: +%d ~%d -%d over %d pages",
		userID, item.ItemID, result.Added, result.Modified, result.Removed, result.Pages)
	return result, nil
}

func (s *SyncService) applyPage(ctx context.Context, userID, itemID string, page *plaid.SyncPage, result *SyncResult) error {
	upserts := make([]*Transaction, 0, len(page.Added)+len(page.Modified))
	for _, tx := range page.Added {
		upserts = append(upserts, s.fromVendor(itemID, tx))
	}
	for _, tx := range page.Modified {
		upserts = append(upserts, s.fromVendor(itemID, tx))
	}

	if len(upserts) > 0 {
		if err := s.repo.UpsertBatch(ctx, userID, upserts); err != nil {
			return fmt.Errorf("failed to upsert transactions: %w", err)
		}
	}

	if len(page.Removed) > 0 {
		ids := make([]string, 0, len(page.Removed))
		for _, r := range page.Removed {
			ids = append(ids, r.TransactionID)
		}
		if err := s.repo.MarkRemoved(ctx, userID, ids); err != nil {
			return fmt.Errorf("failed to mark removed transactions: %w", err)
		}
	}

	result.Added += len(page.Added)
	result.Modified += len(page.Modified)
	result.Removed += len(page.Removed)
	return nil
}

func (s *SyncService) fromVendor(itemID string, tx plaid.Transaction) *Transaction {
	return &Transaction{
		TransactionID: tx.TransactionID,
		AccountID:     tx.AccountID,
		ItemID:        itemID,
		Amount:        tx.Amount,
		CurrencyCode:  tx.ISOCurrencyCode,
		Date:          tx.Date,
		Name:          tx.Name,
		MerchantName:  tx.MerchantName,
		Category:      tx.Category(),
		Channel:       tx.PaymentChannel,
		Pending:       tx.Pending,
		SyncedAt:      s.now(),
	}
}
