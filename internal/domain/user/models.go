package user

import "time"

// User is an identity created on first OAuth login. The document id is the
// provider-qualified subject ("google:<sub>" or "microsoft:<sub>").
type User struct {
	ID          string    `json:"id" firestore:"id"`
	Email       string    `json:"email" firestore:"email"`
	Name        string    `json:"name" firestore:"name"`
	FirstName   string    `json:"firstName" firestore:"firstName"`
	LastName    string    `json:"lastName" firestore:"lastName"`
	Provider    string    `json:"provider" firestore:"provider"`
	AvatarURL   string    `json:"avatarUrl,omitempty" firestore:"avatarUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt" firestore:"lastLoginAt"`
}
