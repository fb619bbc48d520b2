package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"myfolio/internal/domain/token"
	"myfolio/internal/domain/transactions"
	"myfolio/internal/interfaces/scheduler"
	"myfolio/internal/shared/middleware"
)

// JobSubmitter queues background jobs; satisfied by the worker pool.
type JobSubmitter interface {
	Submit(job scheduler.Job) error
}

// TransactionsHandler serves the paginated listing plus the sync endpoints.
type TransactionsHandler struct {
	query *transactions.QueryService
	sync  *transactions.SyncService
	jobs  JobSubmitter
}

func NewTransactionsHandler(query *transactions.QueryService, sync *transactions.SyncService, jobs JobSubmitter) *TransactionsHandler {
	return &TransactionsHandler{
		query: query,
		sync:  sync,
		jobs:  jobs,
	}
}

// HandlePaginated lists transactions with paging, sorting, filtering and
// free-text search.
func (h *TransactionsHandler) HandlePaginated(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q, err := queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.query.Query(r.Context(), userID, q)
	if err != nil {
		log.Printf("Transaction query failed for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// HandleRefreshItem runs an incremental sync for one item and returns the
// counts once it finishes.
func (h *TransactionsHandler) HandleRefreshItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	itemID := r.PathValue("itemId")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, "item id is required")
		return
	}

	result, err := h.sync.SyncItem(r.Context(), userID, itemID)
	if err != nil {
		if errors.Is(err, token.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		log.Printf("Transaction sync failed for user %s item %s: %v", userID, itemID, err)
		writeVendorError(w, err, "transaction sync failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleRefreshAll runs an incremental sync across every linked item.
// Items that fail are skipped, so one broken institution does not block
// the rest.
func (h *TransactionsHandler) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	results, err := h.sync.SyncAll(r.Context(), userID)
	if err != nil {
		log.Printf("Transaction sync failed for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to sync transactions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": results,
		"count": len(results),
	})
}

// HandleResyncItem queues a full history replay for one item. Returns 202;
// the work runs on the worker pool.
func (h *TransactionsHandler) HandleResyncItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	itemID := r.PathValue("itemId")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, "item id is required")
		return
	}

	// Reject unknown items up front so the queue only holds real work.
	if _, err := h.sync.ItemExists(r.Context(), userID, itemID); err != nil {
		if errors.Is(err, token.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		log.Printf("Failed to check item %s for user %s: %v", itemID, userID, err)
		writeError(w, http.StatusInternalServerError, "failed to queue resync")
		return
	}

	if err := h.jobs.Submit(scheduler.NewResyncJob(userID, itemID, h.sync)); err != nil {
		log.Printf("Failed to queue resync for user %s item %s: %v", userID, itemID, err)
		writeError(w, http.StatusServiceUnavailable, "resync queue is full, try again later")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "itemId": itemID})
}

func queryFromRequest(r *http.Request) (transactions.Query, error) {
	params := r.URL.Query()

	// "search" is kept as an alias for older clients.
	searchTerm := params.Get("searchTerm")
	if searchTerm == "" {
		searchTerm = params.Get("search")
	}

	q := transactions.Query{
		Filter: transactions.Filter{
			AccountID: params.Get("accountId"),
			ItemID:    params.Get("itemId"),
			Category:  params.Get("category"),
			DateFrom:  params.Get("dateFrom"),
			DateTo:    params.Get("dateTo"),
		},
		SearchTerm: searchTerm,
		SortBy:     params.Get("sortBy"),
		SortOrder:  params.Get("sortOrder"),
	}

	var err error
	if raw := params.Get("page"); raw != "" {
		if q.Page, err = strconv.Atoi(raw); err != nil || q.Page < 1 {
			return q, errors.New("page must be a positive integer")
		}
	}
	if raw := params.Get("pageSize"); raw != "" {
		if q.PageSize, err = strconv.Atoi(raw); err != nil || q.PageSize < 1 {
			return q, errors.New("pageSize must be a positive integer")
		}
	}

	return q, nil
}
