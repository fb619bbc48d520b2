package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"myfolio/internal/domain/accounts"
	"myfolio/internal/domain/token"
	"myfolio/internal/infrastructure/plaid"
	"myfolio/internal/shared/middleware"
)

// PlaidHandler covers the Link flow and token administration.
type PlaidHandler struct {
	plaid            plaid.API
	tokens           *token.Service
	accounts         *accounts.Service
	products         []string
	cleanupThreshold int
}

func NewPlaidHandler(api plaid.API, tokens *token.Service, accountsSvc *accounts.Service, products []string, cleanupThreshold int) *PlaidHandler {
	return &PlaidHandler{
		plaid:            api,
		tokens:           tokens,
		accounts:         accountsSvc,
		products:         products,
		cleanupThreshold: cleanupThreshold,
	}
}

type LinkTokenResponse struct {
	LinkToken string `json:"link_token"`
}

// HandleCreateLinkToken issues a Link token for the frontend widget.
func (h *PlaidHandler) HandleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	linkToken, err := h.plaid.CreateLinkToken(r.Context(), userID, h.products)
	if err != nil {
		log.Printf("Failed to create link token for user %s: %v", userID, err)
		writeVendorError(w, err, "failed to create link token")
		return
	}

	writeJSON(w, http.StatusOK, LinkTokenResponse{LinkToken: linkToken})
}

type ExchangeRequest struct {
	PublicToken string                `json:"public_token"`
	Institution token.InstitutionMeta `json:"institution"`
}

type ExchangeResponse struct {
	ItemID   string             `json:"item_id"`
	Accounts []accounts.Account `json:"accounts"`
}

// HandleExchangePublicToken trades the Link public token for an access
// token, stores it encrypted, and returns the freshly fetched accounts.
func (h *PlaidHandler) HandleExchangePublicToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PublicToken == "" {
		writeError(w, http.StatusBadRequest, "public_token is required")
		return
	}

	ctx := r.Context()

	result, err := h.plaid.ExchangePublicToken(ctx, req.PublicToken)
	if err != nil {
		log.Printf("Public token exchange failed for user %s: %v", userID, err)
		writeVendorError(w, err, "failed to exchange public token")
		return
	}

	if err := h.tokens.Store(ctx, userID, result.ItemID, result.AccessToken, req.Institution); err != nil {
		log.Printf("Failed to store token for user %s item %s: %v", userID, result.ItemID, err)
		writeError(w, http.StatusInternalServerError, "failed to store access token")
		return
	}

	// Warm the cache so the new institution shows up immediately.
	refreshed, err := h.accounts.ForceRefresh(ctx, userID)
	if err != nil {
		log.Printf("Post-link account refresh failed for user %s: %v", userID, err)
		writeJSON(w, http.StatusOK, ExchangeResponse{ItemID: result.ItemID})
		return
	}

	writeJSON(w, http.StatusOK, ExchangeResponse{ItemID: result.ItemID, Accounts: refreshed.Accounts})
}

// HandleDeleteItem unlinks one institution: its token is revoked and the
// ciphertext destroyed.
func (h *PlaidHandler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
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

	if err := h.tokens.Revoke(r.Context(), userID, itemID); err != nil {
		if errors.Is(err, token.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		log.Printf("Failed to revoke item %s for user %s: %v", itemID, userID, err)
		writeError(w, http.StatusInternalServerError, "failed to unlink item")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked", "itemId": itemID})
}

// HandleRevokeAll revokes every linked institution for the user.
func (h *PlaidHandler) HandleRevokeAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := h.tokens.RevokeAll(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to revoke all tokens for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to revoke tokens")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "revoked", "count": count})
}

// HandleCleanup removes the user's items unused beyond the threshold.
// days_threshold overrides the configured default.
func (h *PlaidHandler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	threshold := h.cleanupThreshold
	if raw := r.URL.Query().Get("days_threshold"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "days_threshold must be a positive integer")
			return
		}
		threshold = v
	}

	stats, err := h.tokens.CleanupUser(r.Context(), userID, threshold)
	if err != nil {
		log.Printf("Token cleanup failed for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HandleAnalytics returns token health metrics for the user.
func (h *PlaidHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	analytics, err := h.tokens.Analytics(r.Context(), userID)
	if err != nil {
		log.Printf("Token analytics failed for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to compute analytics")
		return
	}

	writeJSON(w, http.StatusOK, analytics)
}

// writeVendorError maps the vendor error taxonomy onto HTTP statuses, with
// a stable machine-readable code for the relink flow.
func writeVendorError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, plaid.ErrItemLoginRequired):
		writeErrorCode(w, http.StatusConflict, "institution requires re-authentication", "ITEM_LOGIN_REQUIRED")
	case errors.Is(err, plaid.ErrInvalidCredentials):
		writeError(w, http.StatusBadGateway, "vendor rejected the request")
	case errors.Is(err, plaid.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "vendor rate limit reached, try again shortly")
	case errors.Is(err, plaid.ErrTransient):
		writeError(w, http.StatusBadGateway, "vendor temporarily unavailable")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
