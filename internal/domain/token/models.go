package token

import "time"

// Status is the lifecycle state of a bank connection's token.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// Item is one linked institution with its access token decrypted for use.
// It is never serialized with the plaintext token.
type Item struct {
	ItemID          string    `json:"itemId"`
	InstitutionID   string    `json:"institutionId"`
	InstitutionName string    `json:"institutionName"`
	AccessToken     string    `json:"-"`
	Status          Status    `json:"status"`
	Environment     string    `json:"environment"`
	Cursor          string    `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
	LastUsedAt      time.Time `json:"lastUsedAt"`
}

// Document is the persisted form of an Item: the access token is stored only
// as ciphertext.
type Document struct {
	ItemID          string    `firestore:"itemId"`
	InstitutionID   string    `firestore:"institutionId"`
	InstitutionName string    `firestore:"institutionName"`
	EncryptedToken  string    `firestore:"encryptedToken"`
	Status          Status    `firestore:"status"`
	Environment     string    `firestore:"environment"`
	Cursor          string    `firestore:"cursor"`
	CreatedAt       time.Time `firestore:"createdAt"`
	LastUsedAt      time.Time `firestore:"lastUsedAt"`
}

// InstitutionMeta is the Link metadata supplied by the frontend at exchange
// time.
type InstitutionMeta struct {
	InstitutionID   string `json:"institution_id"`
	InstitutionName string `json:"name"`
}

// CleanupStats summarizes one staleness sweep.
type CleanupStats struct {
	UsersScanned  int `json:"usersScanned"`
	ItemsScanned  int `json:"itemsScanned"`
	ItemsRemoved  int `json:"itemsRemoved"`
	DaysThreshold int `json:"daysThreshold"`
}

// Analytics aggregates token health for one user.
type Analytics struct {
	TotalItems   int        `json:"totalItems"`
	ActiveItems  int        `json:"activeItems"`
	RevokedItems int        `json:"revokedItems"`
	OldestUse    *time.Time `json:"oldestUse,omitempty"`
	NewestUse    *time.Time `json:"newestUse,omitempty"`
	Institutions []string   `json:"institutions"`
}
