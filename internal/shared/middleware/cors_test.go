package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name           string
		allowedOrigins []string
		origin         string
		wantAllow      string
	}{
		{
			name:           "wildcard when unrestricted",
			allowedOrigins: nil,
			origin:         "http://anywhere.example",
			wantAllow:      "*",
		},
		{
			name:           "echoes allowed origin",
			allowedOrigins: []string{"https://app.example.com"},
			origin:         "https://app.example.com",
			wantAllow:      "https://app.example.com",
		},
		{
			name:           "omits header for unknown origin",
			allowedOrigins: []string{"https://app.example.com"},
			origin:         "https://evil.example.com",
			wantAllow:      "",
		},
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := CORS(tt.allowedOrigins)(next)

			r := httptest.NewRequest(http.MethodGet, "/api/plaid/accounts", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight request reached the handler")
	})
	handler := CORS(nil)(next)

	r := httptest.NewRequest(http.MethodOptions, "/api/plaid/accounts", nil)
	r.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("preflight response missing Access-Control-Allow-Methods")
	}
}
