package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"myfolio/internal/shared/auth"
)

func TestAuth(t *testing.T) {
	jwt := auth.NewJWT("test-secret", time.Hour)
	validToken, _ := jwt.Generate("google:12345", "test@example.com")

	tests := []struct {
		name           string
		setupRequest   func(r *http.Request)
		expectedStatus int
		expectedUser   bool
	}{
		{
			name: "Valid Token in Cookie",
			setupRequest: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "access_token", Value: validToken})
			},
			expectedStatus: http.StatusOK,
			expectedUser:   true,
		},
		{
			name: "Valid Token in Header",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+validToken)
			},
			expectedStatus: http.StatusOK,
			expectedUser:   true,
		},
		{
			name:           "No Token",
			setupRequest:   func(r *http.Request) {},
			expectedStatus: http.StatusUnauthorized,
			expectedUser:   false,
		},
		{
			name: "Invalid Token",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer invalid")
			},
			expectedStatus: http.StatusUnauthorized,
			expectedUser:   false,
		},
		{
			name: "Wrong Secret",
			setupRequest: func(r *http.Request) {
				other := auth.NewJWT("other-secret", time.Hour)
				tok, _ := other.Generate("google:12345", "test@example.com")
				r.Header.Set("Authorization", "Bearer "+tok)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedUser:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r.Context())
				if !ok && tt.expectedUser {
					t.Error("Expected user ID in context, got none")
				}
				if ok && !tt.expectedUser {
					t.Error("Unexpected user ID in context")
				}
				if ok && userID != "google:12345" {
					t.Errorf("Expected user ID google:12345, got %s", userID)
				}
				w.WriteHeader(http.StatusOK)
			})

			handler := Auth(jwt)(nextHandler)

			r := httptest.NewRequest(http.MethodGet, "/api/plaid/accounts", nil)
			tt.setupRequest(r)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}
		})
	}
}
