package main

import (
	"log"
	"net/http"

	"myfolio/internal/shared/config"
	"myfolio/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handleHealth)

	// Public auth routes
	mux.HandleFunc("GET /api/auth/oauth/url", deps.AuthHandler.HandleAuthURL)
	mux.HandleFunc("GET /api/auth/oauth/callback", deps.AuthHandler.HandleGoogleCallback)
	mux.HandleFunc("GET /api/auth/oauth/microsoft/callback", deps.AuthHandler.HandleMicrosoftCallback)
	mux.HandleFunc("POST /api/auth/logout", deps.AuthHandler.HandleLogout)

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT)
	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMiddleware(h))
	}

	protected("GET /api/users/me", deps.AuthHandler.HandleMe)

	// Link flow and token administration
	protected("POST /api/plaid/create_link_token", deps.PlaidHandler.HandleCreateLinkToken)
	protected("POST /api/plaid/exchange_public_token", deps.PlaidHandler.HandleExchangePublicToken)
	protected("DELETE /api/plaid/items/{itemId}", deps.PlaidHandler.HandleDeleteItem)
	protected("DELETE /api/plaid/tokens/revoke-all", deps.PlaidHandler.HandleRevokeAll)
	protected("DELETE /api/plaid/tokens/cleanup", deps.PlaidHandler.HandleCleanup)
	protected("GET /api/plaid/tokens/analytics", deps.PlaidHandler.HandleAnalytics)

	// Accounts
	protected("GET /api/plaid/accounts", deps.AccountsHandler.HandleGetAccounts)
	protected("POST /api/plaid/accounts/refresh", deps.AccountsHandler.HandleRefreshAccounts)
	protected("GET /api/plaid/accounts/cache-info", deps.AccountsHandler.HandleCacheInfo)

	// Transactions
	protected("GET /api/plaid/transactions/paginated", deps.TransactionsHandler.HandlePaginated)
	protected("POST /api/plaid/transactions/refresh", deps.TransactionsHandler.HandleRefreshAll)
	protected("POST /api/plaid/transactions/refresh/{itemId}", deps.TransactionsHandler.HandleRefreshItem)
	protected("POST /api/plaid/transactions/resync/{itemId}", deps.TransactionsHandler.HandleResyncItem)

	// Apply global middleware
	handler := middleware.Logging(middleware.Tracing(middleware.CORS(cfg.Server.AllowedHosts)(mux)))

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Println("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
