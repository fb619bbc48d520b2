package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// OAuthProvider abstracts an external identity provider (Google, Microsoft).
type OAuthProvider interface {
	Name() string
	GetAuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*OAuthToken, error)
	GetUserInfo(ctx context.Context, token *OAuthToken) (*OAuthUserInfo, error)
}

type OAuthToken struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

type OAuthUserInfo struct {
	ID        string
	Email     string
	Name      string
	FirstName string
	LastName  string
	AvatarURL string
}

// GoogleOAuthProvider implements Google OAuth 2.0
type GoogleOAuthProvider struct {
	clientID     string
	clientSecret string
	redirectURL  string
	httpClient   *http.Client
}

func NewGoogleOAuthProvider(clientID, clientSecret, redirectURL string) *GoogleOAuthProvider {
	return &GoogleOAuthProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (g *GoogleOAuthProvider) Name() string { return "google" }

func (g *GoogleOAuthProvider) GetAuthURL(state string) string {
	baseURL := "https://accounts.google.com/o/oauth2/v2/auth"
	params := url.Values{}
	params.Add("client_id", g.clientID)
	params.Add("redirect_uri", g.redirectURL)
	params.Add("response_type", "code")
	params.Add("scope", "openid email profile")
	params.Add("state", state)
	params.Add("access_type", "offline")

	return baseURL + "?" + params.Encode()
}

func (g *GoogleOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthToken, error) {
	data := url.Values{}
	data.Set("code", code)
	data.Set("client_id", g.clientID)
	data.Set("client_secret", g.clientSecret)
	data.Set("redirect_uri", g.redirectURL)
	data.Set("grant_type", "authorization_code")

	return exchangeCode(ctx, g.httpClient, "https://oauth2.googleapis.com/token", data)
}

func (g *GoogleOAuthProvider) GetUserInfo(ctx context.Context, token *OAuthToken) (*OAuthUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get user info: %s", string(body))
	}

	var googleUser struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		Name      string `json:"name"`
		FirstName string `json:"given_name"`
		LastName  string `json:"family_name"`
		AvatarURL string `json:"picture"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&googleUser); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	return &OAuthUserInfo{
		ID:        googleUser.ID,
		Email:     googleUser.Email,
		Name:      googleUser.Name,
		FirstName: googleUser.FirstName,
		LastName:  googleUser.LastName,
		AvatarURL: googleUser.AvatarURL,
	}, nil
}

// MicrosoftOAuthProvider implements Microsoft Entra ID (Azure AD) OAuth 2.0.
// User identity is taken from the ID token, verified against the tenant's
// JWKS endpoint.
type MicrosoftOAuthProvider struct {
	clientID     string
	clientSecret string
	tenantID     string
	redirectURL  string
	httpClient   *http.Client

	jwksOnce sync.Once
	jwks     *keyfunc.JWKS
	jwksErr  error
}

func NewMicrosoftOAuthProvider(clientID, clientSecret, tenantID, redirectURL string) *MicrosoftOAuthProvider {
	if tenantID == "" {
		tenantID = "common"
	}
	return &MicrosoftOAuthProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		tenantID:     tenantID,
		redirectURL:  redirectURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (m *MicrosoftOAuthProvider) Name() string { return "microsoft" }

func (m *MicrosoftOAuthProvider) GetAuthURL(state string) string {
	baseURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/authorize", m.tenantID)
	params := url.Values{}
	params.Add("client_id", m.clientID)
	params.Add("redirect_uri", m.redirectURL)
	params.Add("response_type", "code")
	params.Add("scope", "openid email profile")
	params.Add("state", state)
	params.Add("response_mode", "query")

	return baseURL + "?" + params.Encode()
}

func (m *MicrosoftOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthToken, error) {
	data := url.Values{}
	data.Set("code", code)
	data.Set("client_id", m.clientID)
	data.Set("client_secret", m.clientSecret)
	data.Set("redirect_uri", m.redirectURL)
	data.Set("grant_type", "authorization_code")
	data.Set("scope", "openid email profile")

	tokenURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", m.tenantID)
	return exchangeCode(ctx, m.httpClient, tokenURL, data)
}

type entraClaims struct {
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
	jwt.RegisteredClaims
}

// GetUserInfo validates the ID token signature against the tenant JWKS and
// extracts the user's identity from its claims.
func (m *MicrosoftOAuthProvider) GetUserInfo(ctx context.Context, token *OAuthToken) (*OAuthUserInfo, error) {
	if token.IDToken == "" {
		return nil, fmt.Errorf("token response missing id_token")
	}

	jwks, err := m.keySet()
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant JWKS: %w", err)
	}

	claims := &entraClaims{}
	parsed, err := jwt.ParseWithClaims(token.IDToken, claims, jwks.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("failed to validate id_token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid id_token")
	}

	return userInfoFromClaims(claims, m.clientID)
}

// userInfoFromClaims maps validated ID-token claims onto the
// provider-neutral user info. The parser checks signature and expiry;
// the audience is enforced here.
func userInfoFromClaims(claims *entraClaims, clientID string) (*OAuthUserInfo, error) {
	if !claims.VerifyAudience(clientID, true) {
		return nil, fmt.Errorf("id_token audience mismatch")
	}

	email := claims.Email
	if email == "" {
		email = claims.PreferredUsername
	}

	first, last := splitName(claims.Name)
	return &OAuthUserInfo{
		ID:        claims.Subject,
		Email:     email,
		Name:      claims.Name,
		FirstName: first,
		LastName:  last,
	}, nil
}

// keySet fetches the tenant JWKS once and keeps it refreshed in the background.
func (m *MicrosoftOAuthProvider) keySet() (*keyfunc.JWKS, error) {
	m.jwksOnce.Do(func() {
		jwksURL := fmt.Sprintf("https://login.microsoftonline.com/%s/discovery/v2.0/keys", m.tenantID)
		m.jwks, m.jwksErr = keyfunc.Get(jwksURL, keyfunc.Options{
			Client:          m.httpClient,
			RefreshInterval: time.Hour,
			RefreshErrorHandler: func(err error) {
				// Keep serving with the cached key set; refresh retries on its own.
			},
		})
	})
	return m.jwks, m.jwksErr
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// exchangeCode posts an authorization-code grant and decodes the token response.
func exchangeCode(ctx context.Context, client *http.Client, tokenURL string, data url.Values) (*OAuthToken, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token exchange failed: %s", string(body))
	}

	var token OAuthToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &token, nil
}
