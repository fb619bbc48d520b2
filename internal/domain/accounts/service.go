package accounts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"myfolio/internal/domain/token"
	"myfolio/internal/infrastructure/plaid"
)

// TokenSource is the subset of the token store the accounts service needs.
type TokenSource interface {
	GetItems(ctx context.Context, userID string) ([]*token.Item, error)
	TouchLastUsed(ctx context.Context, userID, itemID string) error
}

// BalanceFetcher is the vendor call used per linked item.
type BalanceFetcher interface {
	GetAccounts(ctx context.Context, accessToken string) (*plaid.AccountsResult, error)
}

// CacheRepository persists the per-user account snapshot.
type CacheRepository interface {
	Get(ctx context.Context, userID string) (*CacheEntry, error)
	// Set overwrites the whole snapshot for the user.
	Set(ctx context.Context, userID string, entry *CacheEntry) error
}

// Service serves account balances through a TTL cache in front of the
// vendor API. A fresh snapshot is served as-is; a stale or missing one
// triggers a refresh across every linked item.
type Service struct {
	tokens TokenSource
	vendor BalanceFetcher
	cache  CacheRepository
	ttl    time.Duration

	now func() time.Time
}

func NewService(tokens TokenSource, vendor BalanceFetcher, cache CacheRepository, ttl time.Duration) *Service {
	return &Service{
		tokens: tokens,
		vendor: vendor,
		cache:  cache,
		ttl:    ttl,
		now:    time.Now,
	}
}

// GetAccounts returns the cached snapshot when it is younger than the TTL,
// otherwise refreshes from the vendor.
func (s *Service) GetAccounts(ctx context.Context, userID string) (*Result, error) {
	entry, err := s.cache.Get(ctx, userID)
	if err == nil && s.now().Sub(entry.LastUpdated) < s.ttl {
		return resultFrom(entry, SourceCache), nil
	}
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		log.Printf("Account cache read failed for user %s, refreshing: %v", userID, err)
	}

	return s.refresh(ctx, userID)
}

// ForceRefresh bypasses the cache and fetches live balances.
func (s *Service) ForceRefresh(ctx context.Context, userID string) (*Result, error) {
	return s.refresh(ctx, userID)
}

// CacheInfo reports snapshot freshness without calling the vendor.
func (s *Service) CacheInfo(ctx context.Context, userID string) (*CacheInfo, error) {
	entry, err := s.cache.Get(ctx, userID)
	if errors.Is(err, ErrCacheMiss) {
		return &CacheInfo{Cached: false, Expired: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account cache: %w", err)
	}

	age := s.now().Sub(entry.LastUpdated)
	return &CacheInfo{
		Cached:       true,
		LastUpdated:  entry.LastUpdated,
		Age:          age.Round(time.Second).String(),
		Expired:      age >= s.ttl,
		AccountCount: entry.AccountCount,
	}, nil
}

func (s *Service) refresh(ctx context.Context, userID string) (*Result, error) {
	items, err := s.tokens.GetItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load linked items: %w", err)
	}

	var (
		mu       sync.Mutex
		accounts []Account
		failed   []ItemError
		total    float64
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, item := range items {
		g.Go(func() error {
			res, err := s.vendor.GetAccounts(gctx, item.AccessToken)
			if err != nil {
				log.Printf("Failed to fetch accounts for user %s item %s: %v", userID, item.ItemID, err)
				mu.Lock()
				failed = append(failed, ItemError{
					ItemID:          item.ItemID,
					InstitutionName: item.InstitutionName,
					Reason:          err.Error(),
					Relink:          errors.Is(err, plaid.ErrItemLoginRequired),
				})
				mu.Unlock()
				return nil
			}

			if err := s.tokens.TouchLastUsed(gctx, userID, item.ItemID); err != nil {
				log.Printf("Failed to touch item %s: %v", item.ItemID, err)
			}

			mu.Lock()
			for _, a := range res.Accounts {
				accounts = append(accounts, Account{
					AccountID:        a.AccountID,
					Name:             a.Name,
					OfficialName:     a.OfficialName,
					Type:             a.Type,
					Subtype:          a.Subtype,
					Mask:             a.Mask,
					ItemID:           item.ItemID,
					InstitutionID:    item.InstitutionID,
					InstitutionName:  item.InstitutionName,
					AvailableBalance: a.Balances.Available,
					CurrentBalance:   a.Balances.Current,
					CurrencyCode:     a.Balances.ISOCurrencyCode,
				})
				total += a.Balances.CurrentBalance()
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entry := &CacheEntry{
		UserID:       userID,
		Accounts:     accounts,
		TotalBalance: total,
		AccountCount: len(accounts),
		FailedItems:  failed,
		LastUpdated:  s.now(),
	}

	// The snapshot is written whole so readers never see a half refresh.
	if err := s.cache.Set(ctx, userID, entry); err != nil {
		log.Printf("Failed to write account cache for user %s: %v", userID, err)
	}

	log.Printf("Refreshed accounts for user %s: %d accounts, %d failed items", userID, len(accounts), len(failed))
	return resultFrom(entry, SourceAPI), nil
}

func resultFrom(entry *CacheEntry, source string) *Result {
	return &Result{
		Accounts:     entry.Accounts,
		TotalBalance: entry.TotalBalance,
		AccountCount: entry.AccountCount,
		FailedItems:  entry.FailedItems,
		LastUpdated:  entry.LastUpdated,
		DataSource:   source,
	}
}
