package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"myfolio/internal/domain/user"
	"myfolio/internal/shared/auth"
	"myfolio/internal/shared/middleware"
)

const stateCookie = "oauth_state"

// AuthHandler drives the OAuth login flow and session issuance.
type AuthHandler struct {
	users     user.Repository
	providers map[string]auth.OAuthProvider
	jwt       *auth.JWT
	jwtTTL    time.Duration
	homeURL   string
}

func NewAuthHandler(users user.Repository, providers map[string]auth.OAuthProvider, jwt *auth.JWT, jwtTTL time.Duration, homeURL string) *AuthHandler {
	if homeURL == "" {
		homeURL = "/"
	}
	return &AuthHandler{
		users:     users,
		providers: providers,
		jwt:       jwt,
		jwtTTL:    jwtTTL,
		homeURL:   homeURL,
	}
}

type AuthURLResponse struct {
	URL      string `json:"url"`
	Provider string `json:"provider"`
}

// HandleAuthURL generates the OAuth authorization URL for the requested
// provider.
func (h *AuthHandler) HandleAuthURL(w http.ResponseWriter, r *http.Request) {
	providerName := r.URL.Query().Get("provider")
	if providerName == "" {
		providerName = "google"
	}

	provider, ok := h.providers[providerName]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown provider %q", providerName))
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, AuthURLResponse{URL: provider.GetAuthURL(state), Provider: providerName})
}

// HandleGoogleCallback processes the Google OAuth redirect.
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	h.handleCallback(w, r, "google")
}

// HandleMicrosoftCallback processes the Microsoft Entra OAuth redirect.
func (h *AuthHandler) HandleMicrosoftCallback(w http.ResponseWriter, r *http.Request) {
	h.handleCallback(w, r, "microsoft")
}

func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request, providerName string) {
	provider, ok := h.providers[providerName]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown provider %q", providerName))
		return
	}

	if oauthErr := r.URL.Query().Get("error"); oauthErr != "" {
		writeError(w, http.StatusBadRequest, "OAuth error: "+oauthErr)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(stateCookie)
	if err != nil || state == "" || cookie.Value != state {
		writeError(w, http.StatusBadRequest, "invalid OAuth state")
		return
	}
	// State is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	ctx := r.Context()

	oauthToken, err := provider.ExchangeCode(ctx, code)
	if err != nil {
		log.Printf("OAuth code exchange failed (%s): %v", providerName, err)
		writeError(w, http.StatusBadRequest, "failed to exchange authorization code")
		return
	}

	info, err := provider.GetUserInfo(ctx, oauthToken)
	if err != nil {
		log.Printf("OAuth user info failed (%s): %v", providerName, err)
		writeError(w, http.StatusBadRequest, "failed to fetch user profile")
		return
	}

	now := time.Now()
	u := &user.User{
		ID:          providerName + ":" + info.ID,
		Email:       info.Email,
		Name:        info.Name,
		FirstName:   info.FirstName,
		LastName:    info.LastName,
		Provider:    providerName,
		AvatarURL:   info.AvatarURL,
		LastLoginAt: now,
	}

	// Preserve the original creation time across logins.
	if existing, err := h.users.GetByID(ctx, u.ID); err == nil {
		u.CreatedAt = existing.CreatedAt
	} else if errors.Is(err, user.ErrNotFound) {
		u.CreatedAt = now
	} else {
		log.Printf("Failed to load user %s: %v", u.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	if err := h.users.Upsert(ctx, u); err != nil {
		log.Printf("Failed to upsert user %s: %v", u.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to save user")
		return
	}

	sessionToken, err := h.jwt.Generate(u.ID, u.Email)
	if err != nil {
		log.Printf("Failed to generate session token for %s: %v", u.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    sessionToken,
		Path:     "/",
		MaxAge:   int(h.jwtTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	log.Printf("User %s logged in via %s", u.ID, providerName)
	http.Redirect(w, r, h.homeURL, http.StatusFound)
}

// HandleLogout clears the session cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// HandleMe returns the authenticated user's profile.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.users.GetByID(r.Context(), userID)
	if errors.Is(err, user.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		log.Printf("Failed to load user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, u)
}
