package plaid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient("client-id", "secret", "sandbox", "US")
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	client.baseURL = srv.URL
	return client, srv
}

func TestNewClient_UnknownEnvironment(t *testing.T) {
	if _, err := NewClient("id", "secret", "staging", "US"); err == nil {
		t.Error("NewClient() accepted unknown environment")
	}
}

func TestExchangePublicToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/item/public_token/exchange" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body["client_id"] != "client-id" || body["secret"] != "secret" {
			t.Error("request missing client credentials")
		}
		if body["public_token"] != "public-sandbox-123" {
			t.Errorf("public_token = %v", body["public_token"])
		}

		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "access-sandbox-456",
			"item_id":      "item-789",
		})
	}))

	result, err := client.ExchangePublicToken(context.Background(), "public-sandbox-123")
	if err != nil {
		t.Fatalf("ExchangePublicToken() failed: %v", err)
	}
	if result.AccessToken != "access-sandbox-456" {
		t.Errorf("AccessToken = %q", result.AccessToken)
	}
	if result.ItemID != "item-789" {
		t.Errorf("ItemID = %q", result.ItemID)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		errorType string
		errorCode string
		wantIs    error
	}{
		{
			name:      "item login required",
			status:    http.StatusBadRequest,
			errorType: "ITEM_ERROR",
			errorCode: "ITEM_LOGIN_REQUIRED",
			wantIs:    ErrItemLoginRequired,
		},
		{
			name:      "invalid credentials",
			status:    http.StatusBadRequest,
			errorType: "INVALID_INPUT",
			errorCode: "INVALID_ACCESS_TOKEN",
			wantIs:    ErrInvalidCredentials,
		},
		{
			name:      "invalid api keys",
			status:    http.StatusBadRequest,
			errorType: "INVALID_INPUT",
			errorCode: "INVALID_API_KEYS",
			wantIs:    ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]string{
					"error_type":    tt.errorType,
					"error_code":    tt.errorCode,
					"error_message": "boom",
				})
			}))

			_, err := client.GetAccounts(context.Background(), "access-token")
			if err == nil {
				t.Fatal("GetAccounts() returned no error")
			}
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantIs)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error is not *APIError: %v", err)
			}
			if apiErr.ErrorCode != tt.errorCode {
				t.Errorf("ErrorCode = %q, want %q", apiErr.ErrorCode, tt.errorCode)
			}
		})
	}
}

func TestRateLimitRetriedThenSucceeds(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"error_type": "RATE_LIMIT_EXCEEDED",
				"error_code": "RATE_LIMIT_EXCEEDED",
			})
			return
		}
		json.NewEncoder(w).Encode(AccountsResult{})
	}))

	if _, err := client.GetAccounts(context.Background(), "access-token"); err != nil {
		t.Fatalf("GetAccounts() failed after retry: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}
}

func TestInvalidCredentialsNotRetried(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error_type": "INVALID_INPUT",
			"error_code": "INVALID_ACCESS_TOKEN",
		})
	}))

	_, err := client.GetAccounts(context.Background(), "access-token")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1 (no retries)", got)
	}
}

func TestSyncTransactions_Pages(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)

		if body["cursor"] == nil {
			// First page
			json.NewEncoder(w).Encode(SyncPage{
				Added: []Transaction{
					{TransactionID: "tx-1", AccountID: "acc-1", Amount: 12.5, Date: "2024-05-01", Name: "Coffee"},
				},
				NextCursor: "cursor-1",
				HasMore:    true,
			})
			return
		}

		json.NewEncoder(w).Encode(SyncPage{
			Removed:    []RemovedTransaction{{TransactionID: "tx-0"}},
			NextCursor: "cursor-2",
			HasMore:    false,
		})
	}))

	ctx := context.Background()

	page1, err := client.SyncTransactions(ctx, "access-token", "")
	if err != nil {
		t.Fatalf("SyncTransactions() failed: %v", err)
	}
	if len(page1.Added) != 1 || page1.Added[0].TransactionID != "tx-1" {
		t.Errorf("unexpected first page: %+v", page1)
	}
	if !page1.HasMore || page1.NextCursor != "cursor-1" {
		t.Errorf("first page cursor state: hasMore=%v cursor=%q", page1.HasMore, page1.NextCursor)
	}

	page2, err := client.SyncTransactions(ctx, "access-token", page1.NextCursor)
	if err != nil {
		t.Fatalf("SyncTransactions() page 2 failed: %v", err)
	}
	if page2.HasMore {
		t.Error("second page should be the last")
	}
	if len(page2.Removed) != 1 || page2.Removed[0].TransactionID != "tx-0" {
		t.Errorf("unexpected removed set: %+v", page2.Removed)
	}
}
