package plaid

import (
	"errors"
	"fmt"
)

// Sentinel errors for the Plaid error taxonomy. Callers branch on these with
// errors.Is; the wrapped *APIError keeps the raw provider detail for logging.
var (
	// ErrItemLoginRequired means the user must re-link the institution.
	ErrItemLoginRequired = errors.New("plaid: item login required")

	// ErrRateLimited is returned after retries with backoff are exhausted.
	ErrRateLimited = errors.New("plaid: rate limited")

	// ErrInvalidCredentials covers bad client credentials or access tokens.
	ErrInvalidCredentials = errors.New("plaid: invalid credentials")

	// ErrTransient covers network-level failures worth retrying.
	ErrTransient = errors.New("plaid: transient error")
)

// APIError is a structured error returned by the Plaid API.
type APIError struct {
	StatusCode   int
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	RequestID    string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("plaid API error (status %d): %s/%s: %s", e.StatusCode, e.ErrorType, e.ErrorCode, e.ErrorMessage)
}

// Unwrap maps provider error codes onto the sentinel taxonomy so callers can
// use errors.Is without inspecting raw codes.
func (e *APIError) Unwrap() error {
	switch e.ErrorCode {
	case "ITEM_LOGIN_REQUIRED", "ITEM_LOCKED", "USER_SETUP_REQUIRED":
		return ErrItemLoginRequired
	case "RATE_LIMIT_EXCEEDED", "TRANSACTIONS_LIMIT", "ADDITION_LIMIT":
		return ErrRateLimited
	case "INVALID_CREDENTIALS", "INVALID_API_KEYS", "INVALID_ACCESS_TOKEN", "UNAUTHORIZED":
		return ErrInvalidCredentials
	}
	switch e.ErrorType {
	case "RATE_LIMIT_EXCEEDED":
		return ErrRateLimited
	case "INVALID_INPUT":
		return ErrInvalidCredentials
	}
	return nil
}

// retryable reports whether the error is worth retrying with backoff.
func retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}
