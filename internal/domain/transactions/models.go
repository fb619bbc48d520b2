package transactions

import "time"

// Transaction is one stored transaction. Removed transactions stay in the
// store flagged IsRemoved so incremental syncs never resurrect them.
type Transaction struct {
	TransactionID string    `json:"transactionId" firestore:"transactionId"`
	AccountID     string    `json:"accountId" firestore:"accountId"`
	ItemID        string    `json:"itemId" firestore:"itemId"`
	Amount        float64   `json:"amount" firestore:"amount"`
	CurrencyCode  string    `json:"currencyCode" firestore:"currencyCode"`
	Date          string    `json:"date" firestore:"date"` // YYYY-MM-DD
	Name          string    `json:"name" firestore:"name"`
	MerchantName  string    `json:"merchantName,omitempty" firestore:"merchantName"`
	Category      string    `json:"category,omitempty" firestore:"category"`
	Channel       string    `json:"channel,omitempty" firestore:"channel"`
	Pending       bool      `json:"pending" firestore:"pending"`
	IsRemoved     bool      `json:"-" firestore:"isRemoved"`
	SyncedAt      time.Time `json:"syncedAt" firestore:"syncedAt"`
}

// SyncResult summarizes one sync run over an item.
type SyncResult struct {
	ItemID         string `json:"itemId"`
	Added          int    `json:"added"`
	Modified       int    `json:"modified"`
	Removed        int    `json:"removed"`
	Pages          int    `json:"pages"`
	TotalProcessed int    `json:"totalProcessed"`
}

// Filter narrows a transaction listing. Zero values mean "no constraint".
type Filter struct {
	AccountID string
	ItemID    string
	Category  string
	DateFrom  string // YYYY-MM-DD inclusive
	DateTo    string // YYYY-MM-DD inclusive
}

// Query is a paginated, sortable, searchable listing request.
type Query struct {
	Filter
	SearchTerm string
	SortBy     string // date | amount | name
	SortOrder  string // asc | desc
	Page       int
	PageSize   int
}

// Page is one page of results plus the pagination envelope.
type Page struct {
	Transactions    []*Transaction `json:"transactions"`
	TotalCount      int            `json:"totalCount"`
	Page            int            `json:"page"`
	PageSize        int            `json:"pageSize"`
	TotalPages      int            `json:"totalPages"`
	HasNextPage     bool           `json:"hasNextPage"`
	HasPreviousPage bool           `json:"hasPreviousPage"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)
