package transactions

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// QueryService serves paginated listings over the stored transactions.
// Equality and range filters are pushed into the repository; free-text
// search, sorting and pagination happen in memory over the filtered set.
type QueryService struct {
	repo Repository
}

func NewQueryService(repo Repository) *QueryService {
	return &QueryService{repo: repo}
}

// Query lists the user's transactions for the request. Page numbers are
// 1-based; a page past the end returns an empty page with the correct
// totals rather than an error.
func (s *QueryService) Query(ctx context.Context, userID string, q Query) (*Page, error) {
	normalize(&q)

	txs, err := s.repo.List(ctx, userID, q.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	if q.SearchTerm != "" {
		txs = search(txs, q.SearchTerm)
	}

	sortTransactions(txs, q.SortBy, q.SortOrder)

	total := len(txs)
	totalPages := (total + q.PageSize - 1) / q.PageSize
	start := (q.Page - 1) * q.PageSize
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}

	return &Page{
		Transactions:    txs[start:end],
		TotalCount:      total,
		Page:            q.Page,
		PageSize:        q.PageSize,
		TotalPages:      totalPages,
		HasNextPage:     q.Page < totalPages,
		HasPreviousPage: q.Page > 1 && total > 0,
	}, nil
}

func normalize(q *Query) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	switch q.SortBy {
	case "amount", "name", "date":
	default:
		q.SortBy = "date"
	}
	if q.SortOrder != "asc" {
		q.SortOrder = "desc"
	}
}

func search(txs []*Transaction, term string) []*Transaction {
	term = strings.ToLower(term)
	out := txs[:0:0]
	for _, tx := range txs {
		if strings.Contains(strings.ToLower(tx.Name), term) ||
			strings.Contains(strings.ToLower(tx.MerchantName), term) ||
			strings.Contains(strings.ToLower(tx.Category), term) {
			out = append(out, tx)
		}
	}
	return out
}

func sortTransactions(txs []*Transaction, by, order string) {
	asc := order == "asc"
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !asc {
			a, b = b, a
		}
		switch by {
		case "amount":
			return a.Amount < b.Amount
		case "name":
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		default:
			// ISO dates sort correctly as strings.
			return a.Date < b.Date
		}
	})
}
