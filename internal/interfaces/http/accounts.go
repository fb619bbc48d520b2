package http

import (
	"log"
	"net/http"

	"myfolio/internal/domain/accounts"
	"myfolio/internal/shared/middleware"
)

// AccountsHandler serves cached balances and manual refreshes.
type AccountsHandler struct {
	accounts *accounts.Service
}

func NewAccountsHandler(accountsSvc *accounts.Service) *AccountsHandler {
	return &AccountsHandler{accounts: accountsSvc}
}

// HandleGetAccounts returns all accounts, served from the cache when fresh.
func (h *AccountsHandler) HandleGetAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.accounts.GetAccounts(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to get accounts for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to load accounts")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleRefreshAccounts bypasses the cache and fetches live balances.
func (h *AccountsHandler) HandleRefreshAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.accounts.ForceRefresh(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to refresh accounts for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to refresh accounts")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleCacheInfo reports snapshot freshness.
func (h *AccountsHandler) HandleCacheInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	info, err := h.accounts.CacheInfo(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to read cache info for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to read cache info")
		return
	}

	writeJSON(w, http.StatusOK, info)
}
