package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"myfolio/internal/domain/accounts"
	"myfolio/internal/domain/token"
	"myfolio/internal/infrastructure/plaid"
)

// MockPlaidAPI implements plaid.API for testing
type MockPlaidAPI struct {
	CreateLinkTokenFunc     func(ctx context.Context, userID string, products []string) (string, error)
	ExchangePublicTokenFunc func(ctx context.Context, publicToken string) (*plaid.ExchangeResult, error)
	GetAccountsFunc         func(ctx context.Context, accessToken string) (*plaid.AccountsResult, error)
}

func (m *MockPlaidAPI) CreateLinkToken(ctx context.Context, userID string, products []string) (string, error) {
	if m.CreateLinkTokenFunc != nil {
		return m.CreateLinkTokenFunc(ctx, userID, products)
	}
	return "link-sandbox-token", nil
}

func (m *MockPlaidAPI) ExchangePublicToken(ctx context.Context, publicToken string) (*plaid.ExchangeResult, error) {
	if m.ExchangePublicTokenFunc != nil {
		return m.ExchangePublicTokenFunc(ctx, publicToken)
	}
	return &plaid.ExchangeResult{AccessToken: "access-1", ItemID: "item-1"}, nil
}

func (m *MockPlaidAPI) GetAccounts(ctx context.Context, accessToken string) (*plaid.AccountsResult, error) {
	if m.GetAccountsFunc != nil {
		return m.GetAccountsFunc(ctx, accessToken)
	}
	return &plaid.AccountsResult{}, nil
}

func (m *MockPlaidAPI) SyncTransactions(ctx context.Context, accessToken, cursor string) (*plaid.SyncPage, error) {
	return &plaid.SyncPage{}, nil
}

// MockTokenDocRepo implements token.Repository for testing
type MockTokenDocRepo struct {
	docs map[string]*token.Document
}

func newMockTokenDocRepo() *MockTokenDocRepo {
	return &MockTokenDocRepo{docs: map[string]*token.Document{}}
}

func (m *MockTokenDocRepo) Put(ctx context.Context, userID string, doc *token.Document) error {
	m.docs[doc.ItemID] = doc
	return nil
}

func (m *MockTokenDocRepo) Get(ctx context.Context, userID, itemID string) (*token.Document, error) {
	doc, ok := m.docs[itemID]
	if !ok {
		return nil, token.ErrItemNotFound
	}
	return doc, nil
}

func (m *MockTokenDocRepo) ListByUser(ctx context.Context, userID string) ([]*token.Document, error) {
	out := make([]*token.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (m *MockTokenDocRepo) Revoke(ctx context.Context, userID, itemID string) error {
	doc, ok := m.docs[itemID]
	if !ok {
		return token.ErrItemNotFound
	}
	doc.Status = token.StatusRevoked
	doc.EncryptedToken = ""
	return nil
}

func (m *MockTokenDocRepo) Delete(ctx context.Context, userID, itemID string) error {
	delete(m.docs, itemID)
	return nil
}

func (m *MockTokenDocRepo) SetCursor(ctx context.Context, userID, itemID, cursor string) error {
	return nil
}

func (m *MockTokenDocRepo) SetStatus(ctx context.Context, userID, itemID string, status token.Status) error {
	return nil
}

func (m *MockTokenDocRepo) TouchLastUsed(ctx context.Context, userID, itemID string, t time.Time) error {
	return nil
}

type noUsers struct{}

func (noUsers) ListUserIDs(ctx context.Context) ([]string, error) { return nil, nil }

// stubEncryptor reverses nothing; it just marks the ciphertext so tests can
// tell plaintext never reached the repository.
type stubEncryptor struct{}

func (stubEncryptor) Encrypt(plaintext string) (string, error) { return "enc:" + plaintext, nil }

func (stubEncryptor) Decrypt(ciphertext string) (string, error) {
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

func newPlaidHandler(api *MockPlaidAPI, repo *MockTokenDocRepo) *PlaidHandler {
	tokens := token.NewService(repo, noUsers{}, stubEncryptor{}, "sandbox")
	accountsSvc := accounts.NewService(
		&MockTokenSource{},
		&MockBalanceFetcher{},
		&MockCacheRepo{},
		24*time.Hour,
	)
	return NewPlaidHandler(api, tokens, accountsSvc, []string{"transactions"}, 90)
}

func TestHandleCreateLinkToken(t *testing.T) {
	h := newPlaidHandler(&MockPlaidAPI{}, newMockTokenDocRepo())

	w := httptest.NewRecorder()
	h.HandleCreateLinkToken(w, authedRequest(http.MethodPost, "/api/plaid/create_link_token"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp LinkTokenResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.LinkToken != "link-sandbox-token" {
		t.Errorf("link_token = %q", resp.LinkToken)
	}
}

func TestHandleCreateLinkToken_RateLimited(t *testing.T) {
	api := &MockPlaidAPI{
		CreateLinkTokenFunc: func(ctx context.Context, userID string, products []string) (string, error) {
			return "", &plaid.APIError{StatusCode: 429, ErrorCode: "RATE_LIMIT_EXCEEDED"}
		},
	}
	h := newPlaidHandler(api, newMockTokenDocRepo())

	w := httptest.NewRecorder()
	h.HandleCreateLinkToken(w, authedRequest(http.MethodPost, "/api/plaid/create_link_token"))

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
}

func TestHandleExchangePublicToken(t *testing.T) {
	repo := newMockTokenDocRepo()
	h := newPlaidHandler(&MockPlaidAPI{}, repo)

	body := `{"public_token":"public-sandbox-1","institution":{"institution_id":"ins_1","name":"Bank A"}}`
	r := httptest.NewRequest(http.MethodPost, "/api/plaid/exchange_public_token", strings.NewReader(body))
	ctx := authedRequest(http.MethodPost, "/").Context()
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	h.HandleExchangePublicToken(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}

	var resp ExchangeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.ItemID != "item-1" {
		t.Errorf("item_id = %q, want item-1", resp.ItemID)
	}

	doc, ok := repo.docs["item-1"]
	if !ok {
		t.Fatal("token document was not stored")
	}
	if doc.EncryptedToken == "access-1" {
		t.Error("plaintext access token reached the repository")
	}
	if doc.InstitutionName != "Bank A" {
		t.Errorf("institution = %q, want Bank A", doc.InstitutionName)
	}
}

func TestHandleExchangePublicToken_MissingToken(t *testing.T) {
	h := newPlaidHandler(&MockPlaidAPI{}, newMockTokenDocRepo())

	r := httptest.NewRequest(http.MethodPost, "/api/plaid/exchange_public_token", strings.NewReader(`{}`))
	r = r.WithContext(authedRequest(http.MethodPost, "/").Context())

	w := httptest.NewRecorder()
	h.HandleExchangePublicToken(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleDeleteItem(t *testing.T) {
	repo := newMockTokenDocRepo()
	repo.docs["item-1"] = &token.Document{
		ItemID:         "item-1",
		Status:         token.StatusActive,
		EncryptedToken: "enc:access-1",
	}
	h := newPlaidHandler(&MockPlaidAPI{}, repo)

	r := authedRequest(http.MethodDelete, "/api/plaid/items/item-1")
	r.SetPathValue("itemId", "item-1")
	w := httptest.NewRecorder()
	h.HandleDeleteItem(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	doc := repo.docs["item-1"]
	if doc.Status != token.StatusRevoked || doc.EncryptedToken != "" {
		t.Errorf("doc after revoke = %+v, want revoked with ciphertext cleared", doc)
	}
}

func TestHandleDeleteItem_NotFound(t *testing.T) {
	h := newPlaidHandler(&MockPlaidAPI{}, newMockTokenDocRepo())

	r := authedRequest(http.MethodDelete, "/api/plaid/items/missing")
	r.SetPathValue("itemId", "missing")
	w := httptest.NewRecorder()
	h.HandleDeleteItem(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleCleanup_BadThreshold(t *testing.T) {
	h := newPlaidHandler(&MockPlaidAPI{}, newMockTokenDocRepo())

	w := httptest.NewRecorder()
	h.HandleCleanup(w, authedRequest(http.MethodDelete, "/api/plaid/tokens/cleanup?days_threshold=-5"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
