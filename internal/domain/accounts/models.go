package accounts

import (
	"errors"
	"time"
)

// ErrCacheMiss is returned by CacheRepository.Get when no snapshot exists.
var ErrCacheMiss = errors.New("account cache miss")

// Account is one bank account with its balances, annotated with the
// institution it came from.
type Account struct {
	AccountID        string   `json:"accountId" firestore:"accountId"`
	Name             string   `json:"name" firestore:"name"`
	OfficialName     string   `json:"officialName,omitempty" firestore:"officialName"`
	Type             string   `json:"type" firestore:"type"`
	Subtype          string   `json:"subtype" firestore:"subtype"`
	Mask             string   `json:"mask" firestore:"mask"`
	ItemID           string   `json:"itemId" firestore:"itemId"`
	InstitutionID    string   `json:"institutionId" firestore:"institutionId"`
	InstitutionName  string   `json:"institutionName" firestore:"institutionName"`
	AvailableBalance *float64 `json:"availableBalance" firestore:"availableBalance"`
	CurrentBalance   *float64 `json:"currentBalance" firestore:"currentBalance"`
	CurrencyCode     string   `json:"currencyCode" firestore:"currencyCode"`
}

// ItemError records an institution that could not be fetched during a refresh.
// Relink is set when the failure requires the user to re-authenticate via Link.
type ItemError struct {
	ItemID          string `json:"itemId" firestore:"itemId"`
	InstitutionName string `json:"institutionName" firestore:"institutionName"`
	Reason          string `json:"reason" firestore:"reason"`
	Relink          bool   `json:"relink" firestore:"relink"`
}

// CacheEntry is the per-user snapshot of all linked accounts, written
// wholesale after each successful refresh.
type CacheEntry struct {
	UserID       string      `json:"userId" firestore:"userId"`
	Accounts     []Account   `json:"accounts" firestore:"accounts"`
	TotalBalance float64     `json:"totalBalance" firestore:"totalBalance"`
	AccountCount int         `json:"accountCount" firestore:"accountCount"`
	FailedItems  []ItemError `json:"failedItems,omitempty" firestore:"failedItems"`
	LastUpdated  time.Time   `json:"lastUpdated" firestore:"lastUpdated"`
}

// Result is what the service hands to callers: the snapshot plus where it
// came from.
type Result struct {
	Accounts     []Account   `json:"accounts"`
	TotalBalance float64     `json:"totalBalance"`
	AccountCount int         `json:"accountCount"`
	FailedItems  []ItemError `json:"failedItems,omitempty"`
	LastUpdated  time.Time   `json:"lastUpdated"`
	DataSource   string      `json:"dataSource"`
}

// CacheInfo describes the freshness of a user's snapshot without touching
// the vendor API.
type CacheInfo struct {
	Cached       bool      `json:"cached"`
	LastUpdated  time.Time `json:"lastUpdated,omitempty"`
	Age          string    `json:"age,omitempty"`
	Expired      bool      `json:"expired"`
	AccountCount int       `json:"accountCount"`
}

// DataSource values reported in Result.
const (
	SourceCache = "cache"
	SourceAPI   = "api"
)
