package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	syncPageSize   = 500 // Plaid's maximum count per sync page

	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

var environmentHosts = map[string]string{
	"sandbox":     "https://sandbox.plaid.com",
	"development": "https://development.plaid.com",
	"production":  "https://production.plaid.com",
}

// API defines the methods required from the Plaid client.
type API interface {
	CreateLinkToken(ctx context.Context, userID string, products []string) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResult, error)
	GetAccounts(ctx context.Context, accessToken string) (*AccountsResult, error)
	SyncTransactions(ctx context.Context, accessToken, cursor string) (*SyncPage, error)
}

// Client is a thin wrapper around the Plaid REST API. All calls authenticate
// with the deployment's client_id/secret; per-user access tokens are supplied
// by the caller and never stored here.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	clientID    string
	secret      string
	countryCode string
}

// Ensure Client implements API
var _ API = (*Client)(nil)

func NewClient(clientID, secret, environment, countryCode string) (*Client, error) {
	host, ok := environmentHosts[environment]
	if !ok {
		return nil, fmt.Errorf("unknown plaid environment %q", environment)
	}
	if countryCode == "" {
		countryCode = "US"
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL:     host,
		clientID:    clientID,
		secret:      secret,
		countryCode: countryCode,
	}, nil
}

// CreateLinkToken creates a Link token to initialize the frontend Link flow.
func (c *Client) CreateLinkToken(ctx context.Context, userID string, products []string) (string, error) {
	if len(products) == 0 {
		products = []string{"transactions"}
	}

	body := map[string]any{
		"client_name":   "MyFolio",
		"language":      "en",
		"country_codes": []string{c.countryCode},
		"products":      products,
		"user": map[string]string{
			"client_user_id": userID,
		},
	}

	var resp struct {
		LinkToken string `json:"link_token"`
	}
	if err := c.post(ctx, "/link/token/create", body, &resp); err != nil {
		return "", err
	}
	return resp.LinkToken, nil
}

// ExchangePublicToken trades the short-lived public token from Link for a
// durable access token and its item id.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResult, error) {
	body := map[string]any{
		"public_token": publicToken,
	}

	var resp ExchangeResult
	if err := c.post(ctx, "/item/public_token/exchange", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAccounts fetches all accounts and balances for one item.
func (c *Client) GetAccounts(ctx context.Context, accessToken string) (*AccountsResult, error) {
	body := map[string]any{
		"access_token": accessToken,
	}

	var resp AccountsResult
	if err := c.post(ctx, "/accounts/get", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SyncTransactions fetches one page of the incremental transaction stream.
// An empty cursor starts from the beginning of the item's history.
func (c *Client) SyncTransactions(ctx context.Context, accessToken, cursor string) (*SyncPage, error) {
	body := map[string]any{
		"access_token": accessToken,
		"count":        syncPageSize,
	}
	if cursor != "" {
		body["cursor"] = cursor
	}

	var resp SyncPage
	if err := c.post(ctx, "/transactions/sync", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post issues an authenticated POST, retrying rate-limited and transient
// network failures with doubling backoff.
func (c *Client) post(ctx context.Context, path string, body map[string]any, out any) error {
	body["client_id"] = c.clientID
	body["secret"] = c.secret

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	backoff := initialBackoff
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = c.doOnce(ctx, path, payload, out)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == maxAttempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return lastErr
}

func (c *Client) doOnce(ctx context.Context, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %v", ErrTransient, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil {
			return fmt.Errorf("plaid request failed with status %d: %s", resp.StatusCode, string(respBody))
		}
		if resp.StatusCode >= 500 && apiErr.Unwrap() == nil {
			return fmt.Errorf("%w: %v", ErrTransient, apiErr)
		}
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
