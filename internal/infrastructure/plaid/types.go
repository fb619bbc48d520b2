package plaid

// Account represents one account inside a linked item, as returned by
// POST /accounts/get.
type Account struct {
	AccountID    string   `json:"account_id"`
	Name         string   `json:"name"`
	OfficialName string   `json:"official_name"`
	Type         string   `json:"type"`
	Subtype      string   `json:"subtype"`
	Mask         string   `json:"mask"`
	Balances     Balances `json:"balances"`
}

type Balances struct {
	Available       *float64 `json:"available"`
	Current         *float64 `json:"current"`
	Limit           *float64 `json:"limit"`
	ISOCurrencyCode string   `json:"iso_currency_code"`
}

// CurrentBalance returns the current balance, or zero when the provider
// omitted it.
func (b Balances) CurrentBalance() float64 {
	if b.Current == nil {
		return 0
	}
	return *b.Current
}

// Transaction is one entry from the transactions/sync stream.
type Transaction struct {
	TransactionID           string                   `json:"transaction_id"`
	AccountID               string                   `json:"account_id"`
	Amount                  float64                  `json:"amount"`
	ISOCurrencyCode         string                   `json:"iso_currency_code"`
	Date                    string                   `json:"date"` // YYYY-MM-DD
	Name                    string                   `json:"name"`
	MerchantName            string                   `json:"merchant_name"`
	PaymentChannel          string                   `json:"payment_channel"`
	Pending                 bool                     `json:"pending"`
	PersonalFinanceCategory *PersonalFinanceCategory `json:"personal_finance_category"`
}

type PersonalFinanceCategory struct {
	Primary  string `json:"primary"`
	Detailed string `json:"detailed"`
}

// Category returns the primary category label, or empty when uncategorized.
func (t *Transaction) Category() string {
	if t.PersonalFinanceCategory == nil {
		return ""
	}
	return t.PersonalFinanceCategory.Primary
}

// RemovedTransaction identifies a transaction Plaid deleted upstream.
type RemovedTransaction struct {
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id"`
}

// ExchangeResult is the outcome of a public-token exchange.
type ExchangeResult struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

// SyncPage is one page of the cursor-based transactions/sync protocol.
// Callers must loop while HasMore is true, persisting NextCursor after
// each page so an interrupted sync can resume.
type SyncPage struct {
	Added      []Transaction        `json:"added"`
	Modified   []Transaction        `json:"modified"`
	Removed    []RemovedTransaction `json:"removed"`
	NextCursor string               `json:"next_cursor"`
	HasMore    bool                 `json:"has_more"`
}

type AccountsResult struct {
	Accounts []Account `json:"accounts"`
	Item     ItemInfo  `json:"item"`
}

type ItemInfo struct {
	ItemID        string `json:"item_id"`
	InstitutionID string `json:"institution_id"`
}
