package main

import (
	"context"
	"log"

	fs "cloud.google.com/go/firestore"

	"myfolio/internal/domain/accounts"
	"myfolio/internal/domain/token"
	"myfolio/internal/domain/transactions"
	"myfolio/internal/infrastructure/crypto"
	"myfolio/internal/infrastructure/firestore"
	"myfolio/internal/infrastructure/plaid"
	httphandlers "myfolio/internal/interfaces/http"
	"myfolio/internal/interfaces/scheduler"
	"myfolio/internal/shared/auth"
	"myfolio/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	Firestore *fs.Client

	// Handlers
	AuthHandler         *httphandlers.AuthHandler
	PlaidHandler        *httphandlers.PlaidHandler
	AccountsHandler     *httphandlers.AccountsHandler
	TransactionsHandler *httphandlers.TransactionsHandler

	// Auth
	JWT *auth.JWT

	// Services shared with the scheduler
	TokenService *token.Service
	SyncService  *transactions.SyncService

	// Background work
	WorkerPool *scheduler.WorkerPool
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	client, err := firestore.NewClient(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return nil, err
	}
	log.Println("Connected to Firestore")

	encryptor, err := crypto.NewEncryptor(cfg.Tokens.EncryptionKey)
	if err != nil {
		return nil, err
	}

	// Repositories
	userRepo := firestore.NewUserRepository(client)
	tokenRepo := firestore.NewTokenRepository(client)
	accountCacheRepo := firestore.NewAccountCacheRepository(client)
	transactionRepo := firestore.NewTransactionRepository(client)

	// Vendor client
	plaidClient, err := plaid.NewClient(cfg.Plaid.ClientID, cfg.Plaid.Secret, cfg.Plaid.Environment, cfg.Plaid.CountryCode)
	if err != nil {
		return nil, err
	}

	// Domain services
	tokenService := token.NewService(tokenRepo, userRepo, encryptor, cfg.Plaid.Environment)
	accountsService := accounts.NewService(tokenService, plaidClient, accountCacheRepo, cfg.Cache.AccountsTTL)
	syncService := transactions.NewSyncService(tokenService, plaidClient, transactionRepo)
	queryService := transactions.NewQueryService(transactionRepo)

	// Auth components
	jwt := auth.NewJWT(cfg.JWT.Secret, cfg.JWT.TTL)
	providers := map[string]auth.OAuthProvider{}
	if cfg.OAuth.Google.ClientID != "" {
		providers["google"] = auth.NewGoogleOAuthProvider(
			cfg.OAuth.Google.ClientID,
			cfg.OAuth.Google.ClientSecret,
			cfg.OAuth.Google.CallbackURL,
		)
	}
	if cfg.OAuth.Microsoft.ClientID != "" {
		providers["microsoft"] = auth.NewMicrosoftOAuthProvider(
			cfg.OAuth.Microsoft.ClientID,
			cfg.OAuth.Microsoft.ClientSecret,
			cfg.OAuth.Microsoft.TenantID,
			cfg.OAuth.Microsoft.CallbackURL,
		)
	}
	if len(providers) == 0 {
		log.Println("Warning: no OAuth providers configured, login is unavailable")
	}

	// Worker pool carries queued resyncs and the scheduled cleanup sweep.
	pool := scheduler.NewWorkerPool(cfg.Scheduler.WorkerCount, cfg.Scheduler.JobDelay, cfg.Scheduler.QueueSize)

	// Handlers
	authHandler := httphandlers.NewAuthHandler(userRepo, providers, jwt, cfg.JWT.TTL, cfg.Server.FrontendURL)
	plaidHandler := httphandlers.NewPlaidHandler(plaidClient, tokenService, accountsService, cfg.Plaid.Products, cfg.Tokens.CleanupThreshold)
	accountsHandler := httphandlers.NewAccountsHandler(accountsService)
	transactionsHandler := httphandlers.NewTransactionsHandler(queryService, syncService, pool)

	return &Dependencies{
		Firestore:           client,
		AuthHandler:         authHandler,
		PlaidHandler:        plaidHandler,
		AccountsHandler:     accountsHandler,
		TransactionsHandler: transactionsHandler,
		JWT:                 jwt,
		TokenService:        tokenService,
		SyncService:         syncService,
		WorkerPool:          pool,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.Firestore != nil {
		if err := d.Firestore.Close(); err != nil {
			log.Printf("Error closing Firestore client: %v", err)
		}
	}
}
