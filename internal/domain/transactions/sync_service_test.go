package transactions

import (
	"context"
	"errors"
	"testing"

	"myfolio/internal/domain/token"
	"myfolio/internal/infrastructure/plaid"
)

type MockTokenStore struct {
	items   map[string]*token.Item
	cursors []string
}

func newMockTokenStore(items ...*token.Item) *MockTokenStore {
	m := &MockTokenStore{items: map[string]*token.Item{}}
	for _, it := range items {
		m.items[it.ItemID] = it
	}
	return m
}

func (m *MockTokenStore) GetItem(ctx context.Context, userID, itemID string) (*token.Item, error) {
	it, ok := m.items[itemID]
	if !ok {
		return nil, token.ErrItemNotFound
	}
	return it, nil
}

func (m *MockTokenStore) GetItems(ctx context.Context, userID string) ([]*token.Item, error) {
	out := make([]*token.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	return out, nil
}

func (m *MockTokenStore) SetCursor(ctx context.Context, userID, itemID, cursor string) error {
	m.cursors = append(m.cursors, cursor)
	if it, ok := m.items[itemID]; ok {
		it.Cursor = cursor
	}
	return nil
}

func (m *MockTokenStore) TouchLastUsed(ctx context.Context, userID, itemID string) error {
	return nil
}

// MockSyncAPI serves a scripted sequence of pages keyed by cursor.
type MockSyncAPI struct {
	pages   map[string]*plaid.SyncPage
	errors  map[string]error
	cursors []string
}

func (m *MockSyncAPI) SyncTransactions(ctx context.Context, accessToken, cursor string) (*plaid.SyncPage, error) {
	m.cursors = append(m.cursors, cursor)
	if err, ok := m.errors[cursor]; ok {
		return nil, err
	}
	page, ok := m.pages[cursor]
	if !ok {
		return nil, errors.New("unexpected cursor " + cursor)
	}
	return page, nil
}

type MockTxRepo struct {
	upserts [][]*Transaction
	removed [][]string

	UpsertBatchFunc func(ctx context.Context, userID string, txs []*Transaction) error
	ListFunc        func(ctx context.Context, userID string, f Filter) ([]*Transaction, error)
}

func (m *MockTxRepo) UpsertBatch(ctx context.Context, userID string, txs []*Transaction) error {
	if m.UpsertBatchFunc != nil {
		if err := m.UpsertBatchFunc(ctx, userID, txs); err != nil {
			return err
		}
	}
	m.upserts = append(m.upserts, txs)
	return nil
}

func (m *MockTxRepo) MarkRemoved(ctx context.Context, userID string, ids []string) error {
	m.removed = append(m.removed, ids)
	return nil
}

func (m *MockTxRepo) List(ctx context.Context, userID string, f Filter) ([]*Transaction, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID, f)
	}
	return nil, nil
}

func vendorTx(id string) plaid.Transaction {
	return plaid.Transaction{
		TransactionID:   id,
		AccountID:       "acc-1",
		Amount:          12.34,
		ISOCurrencyCode: "USD",
		Date:            "2024-05-01",
		Name:            "COFFEE SHOP",
	}
}

func TestSyncItem_PagesAndCursor(t *testing.T) {
	tokens := newMockTokenStore(&token.Item{ItemID: "item-1", AccessToken: "access-1"})
	vendor := &MockSyncAPI{
		pages: map[string]*plaid.SyncPage{
			"": {
				Added:      []plaid.Transaction{vendorTx("tx-1"), vendorTx("tx-2")},
				NextCursor: "cur-1",
				HasMore:    true,
			},
			"cur-1": {
				Added:      []plaid.Transaction{vendorTx("tx-3")},
				Modified:   []plaid.Transaction{vendorTx("tx-1")},
				Removed:    []plaid.RemovedTransaction{{TransactionID: "tx-0"}},
				NextCursor: "cur-2",
				HasMore:    false,
			},
		},
	}
	repo := &MockTxRepo{}

	svc := NewSyncService(tokens, vendor, repo)

	res, err := svc.SyncItem(context.Background(), "user-1", "item-1")
	if err != nil {
		t.Fatalf("SyncItem() failed: %v", err)
	}

	if res.Added != 3 || res.Modified != 1 || res.Removed != 1 || res.Pages != 2 {
		t.Errorf("result = %+v, want added=3 modified=1 removed=1 pages=2", res)
	}
	if res.TotalProcessed != 5 {
		t.Errorf("TotalProcessed = %d, want 5", res.TotalProcessed)
	}

	// Cursor must advance once per page, in order.
	want := []string{"cur-1", "cur-2"}
	if len(tokens.cursors) != len(want) {
		t.Fatalf("SetCursor called %d times, want %d", len(tokens.cursors), len(want))
	}
	for i, c := range want {
		if tokens.cursors[i] != c {
			t.Errorf("cursor[%d] = %q, want %q", i, tokens.cursors[i], c)
		}
	}

	if len(repo.removed) != 1 || repo.removed[0][0] != "tx-0" {
		t.Errorf("MarkRemoved = %v, want [[tx-0]]", repo.removed)
	}

	// Stored rows carry the owning item id and the mapped vendor fields.
	first := repo.upserts[0][0]
	if first.ItemID != "item-1" || first.TransactionID != "tx-1" || first.CurrencyCode != "USD" {
		t.Errorf("mapped transaction = %+v", first)
	}
}

func TestSyncItem_FailureKeepsLastCompletedCursor(t *testing.T) {
	tokens := newMockTokenStore(&token.Item{ItemID: "item-1", AccessToken: "access-1"})
	vendor := &MockSyncAPI{
		pages: map[string]*plaid.SyncPage{
			"": {Added: []plaid.Transaction{vendorTx("tx-1")}, NextCursor: "cur-1", HasMore: true},
		},
		errors: map[string]error{
			"cur-1": plaid.ErrTransient,
		},
	}
	repo := &MockTxRepo{}

	svc := NewSyncService(tokens, vendor, repo)

	_, err := svc.SyncItem(context.Background(), "user-1", "item-1")
	if !errors.Is(err, plaid.ErrTransient) {
		t.Fatalf("err = %v, want wrapped ErrTransient", err)
	}

	// Only the completed first page advanced the cursor.
	if len(tokens.cursors) != 1 || tokens.cursors[0] != "cur-1" {
		t.Fatalf("cursors = %v, want [cur-1]", tokens.cursors)
	}

	// A later run resumes from the stored cursor, not from scratch.
	vendor.errors = nil
	vendor.pages["cur-1"] = &plaid.SyncPage{
		Added:      []plaid.Transaction{vendorTx("tx-2")},
		NextCursor: "cur-2",
		HasMore:    false,
	}

	res, err := svc.SyncItem(context.Background(), "user-1", "item-1")
	if err != nil {
		t.Fatalf("resumed SyncItem() failed: %v", err)
	}
	if res.Added != 1 {
		t.Errorf("resumed run added = %d, want 1", res.Added)
	}
	if got := vendor.cursors[len(vendor.cursors)-1]; got != "cur-1" {
		t.Errorf("resumed run started at cursor %q, want cur-1", got)
	}
}

func TestSyncItem_UpsertFailureDoesNotAdvanceCursor(t *testing.T) {
	tokens := newMockTokenStore(&token.Item{ItemID: "item-1", AccessToken: "access-1"})
	vendor := &MockSyncAPI{
		pages: map[string]*plaid.SyncPage{
			"": {Added: []plaid.Transaction{vendorTx("tx-1")}, NextCursor: "cur-1", HasMore: false},
		},
	}
	repo := &MockTxRepo{
		UpsertBatchFunc: func(ctx context.Context, userID string, txs []*Transaction) error {
			return errors.New("write failed")
		},
	}

	svc := NewSyncService(tokens, vendor, repo)

	_, err := svc.SyncItem(context.Background(), "user-1", "item-1")
	if err == nil {
		t.Fatal("SyncItem() succeeded despite a failed batch write")
	}
	if len(tokens.cursors) != 0 {
		t.Errorf("cursor advanced past a page that was not stored: %v", tokens.cursors)
	}
}

func TestResyncItem_ReplaysFromStart(t *testing.T) {
	tokens := newMockTokenStore(&token.Item{ItemID: "item-1", AccessToken: "access-1", Cursor: "cur-old"})
	vendor := &MockSyncAPI{
		pages: map[string]*plaid.SyncPage{
			"": {Added: []plaid.Transaction{vendorTx("tx-1")}, NextCursor: "cur-new", HasMore: false},
		},
	}
	repo := &MockTxRepo{}

	svc := NewSyncService(tokens, vendor, repo)

	res, err := svc.ResyncItem(context.Background(), "user-1", "item-1")
	if err != nil {
		t.Fatalf("ResyncItem() failed: %v", err)
	}
	if res.Added != 1 {
		t.Errorf("added = %d, want 1", res.Added)
	}

	// The stored cursor is cleared before the replay begins.
	if len(tokens.cursors) < 2 || tokens.cursors[0] != "" {
		t.Errorf("cursor writes = %v, want reset to empty first", tokens.cursors)
	}
	if vendor.cursors[0] != "" {
		t.Errorf("replay started at %q, want empty cursor", vendor.cursors[0])
	}
}

func TestSyncItem_UnknownItem(t *testing.T) {
	svc := NewSyncService(newMockTokenStore(), &MockSyncAPI{}, &MockTxRepo{})

	_, err := svc.SyncItem(context.Background(), "user-1", "missing")
	if !errors.Is(err, token.ErrItemNotFound) {
		t.Errorf("err = %v, want ErrItemNotFound", err)
	}
}
