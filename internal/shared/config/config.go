package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Plaid     PlaidConfig
	Firebase  FirebaseConfig
	OAuth     OAuthConfig
	JWT       JWTConfig
	Tokens    TokenConfig
	Cache     CacheConfig
	Scheduler SchedulerConfig
	TLS       TLSConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	AllowedHosts []string
	// FrontendURL is where the OAuth callback redirects after login.
	FrontendURL string
}

type PlaidConfig struct {
	ClientID    string
	Secret      string
	Environment string // sandbox, development or production
	Products    []string
	CountryCode string
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

type OAuthConfig struct {
	Google    GoogleOAuthConfig
	Microsoft MicrosoftOAuthConfig
}

type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

type MicrosoftOAuthConfig struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	CallbackURL  string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type TokenConfig struct {
	EncryptionKey    string
	CleanupThreshold int // days of inactivity before a token is swept
}

type CacheConfig struct {
	AccountsTTL time.Duration
}

type SchedulerConfig struct {
	Enabled       bool
	ScheduleTimes []string
	WorkerCount   int
	JobDelay      time.Duration
	QueueSize     int
	RunOnStartup  bool
}

type TLSConfig struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	MetricsPort  string
}

// validPlaidEnvironments are the hosts Plaid exposes.
var validPlaidEnvironments = map[string]bool{
	"sandbox":     true,
	"development": true,
	"production":  true,
}

func Load() (*Config, error) {
	// Load .env if present; real deployments inject env vars directly.
	_ = godotenv.Load()

	jwtTTL, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	cacheTTL, err := time.ParseDuration(getEnv("ACCOUNTS_CACHE_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ACCOUNTS_CACHE_TTL: %w", err)
	}

	cleanupThreshold, err := strconv.Atoi(getEnv("TOKEN_CLEANUP_THRESHOLD_DAYS", "90"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_CLEANUP_THRESHOLD_DAYS: %w", err)
	}

	schedulerWorkers, err := strconv.Atoi(getEnv("SCHEDULER_WORKERS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_WORKERS: %w", err)
	}
	schedulerJobDelay, err := time.ParseDuration(getEnv("SCHEDULER_JOB_DELAY", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_JOB_DELAY: %w", err)
	}
	schedulerQueueSize, err := strconv.Atoi(getEnv("SCHEDULER_QUEUE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_QUEUE_SIZE: %w", err)
	}

	// Construct OAuth callback URLs from HOST_URL unless overridden.
	hostURL := getEnv("HOST_URL", "")
	buildCallbackURL := func(path string, overrideEnv string) string {
		if override := getEnv(overrideEnv, ""); override != "" {
			return override
		}
		if hostURL != "" {
			return fmt.Sprintf("%s%s", hostURL, path)
		}
		return ""
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			AllowedHosts: splitList(getEnv("ALLOWED_HOSTS", "")),
			FrontendURL:  getEnv("FRONTEND_URL", "/"),
		},
		Plaid: PlaidConfig{
			ClientID:    getEnv("PLAID_CLIENT_ID", ""),
			Secret:      getEnv("PLAID_SECRET", ""),
			Environment: getEnv("PLAID_ENV", "sandbox"),
			Products:    splitList(getEnv("PLAID_PRODUCTS", "transactions")),
			CountryCode: getEnv("PLAID_COUNTRY_CODE", "US"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		},
		OAuth: OAuthConfig{
			Google: GoogleOAuthConfig{
				ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
				ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
				CallbackURL:  buildCallbackURL("/api/auth/oauth/callback", "GOOGLE_CALLBACK_URL"),
			},
			Microsoft: MicrosoftOAuthConfig{
				ClientID:     getEnv("MS_CLIENT_ID", ""),
				ClientSecret: getEnv("MS_CLIENT_SECRET", ""),
				TenantID:     getEnv("MS_TENANT_ID", "common"),
				CallbackURL:  buildCallbackURL("/api/auth/oauth/microsoft/callback", "MS_CALLBACK_URL"),
			},
		},
		JWT: JWTConfig{
			Secret: getEnv("SECRET_KEY", ""),
			TTL:    jwtTTL,
		},
		Tokens: TokenConfig{
			EncryptionKey:    getEnv("TOKEN_ENCRYPTION_KEY", ""),
			CleanupThreshold: cleanupThreshold,
		},
		Cache: CacheConfig{
			AccountsTTL: cacheTTL,
		},
		Scheduler: SchedulerConfig{
			Enabled:       getBoolEnv("SCHEDULER_ENABLED", true),
			ScheduleTimes: splitList(getEnv("SCHEDULER_TIMES", "03:30")),
			WorkerCount:   schedulerWorkers,
			JobDelay:      schedulerJobDelay,
			QueueSize:     schedulerQueueSize,
			RunOnStartup:  getBoolEnv("SCHEDULER_RUN_ON_STARTUP", false),
		},
		TLS: TLSConfig{
			Enabled:      getBoolEnv("TLS_ENABLED", false),
			CertPath:     getEnv("TLS_CERT_PATH", ""),
			KeyPath:      getEnv("TLS_KEY_PATH", ""),
			RedirectHTTP: getBoolEnv("TLS_REDIRECT_HTTP", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "myfolio-api"),
			Environment:  getEnv("OTEL_ENVIRONMENT", "development"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
		},
	}

	// Validate required fields
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}
	if cfg.Tokens.EncryptionKey == "" {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY is required")
	}
	if len(cfg.Tokens.EncryptionKey) < 16 {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY must be at least 16 characters")
	}
	if !validPlaidEnvironments[cfg.Plaid.Environment] {
		return nil, fmt.Errorf("invalid PLAID_ENV %q (expected sandbox, development or production)", cfg.Plaid.Environment)
	}
	if cfg.Tokens.CleanupThreshold <= 0 {
		return nil, fmt.Errorf("TOKEN_CLEANUP_THRESHOLD_DAYS must be positive")
	}

	// Validate TLS configuration
	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return nil, fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if cfg.TLS.KeyPath == "" {
			return nil, fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
