package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Identity backends
const (
	IdentityBackendFirebase = "firebase"
	IdentityBackendMemory   = "memory"
)

// Profile stores
const (
	ProfileStoreFirestore = "firestore"
	ProfileStorePostgres  = "postgres"
	ProfileStoreNone      = "none"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	RoutePrefix    string
	AllowedOrigins []string

	FirebaseServiceAccount     string
	FirebaseServiceAccountFile string
	FirebaseProjectID          string
	FirebaseAPIKey             string
	GoogleClientID             string

	IdentityBackend    string
	ProfileStore       string
	DatabaseURL        string
	DatabaseMaxConns   int
	RedisURL           string
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	UpstreamTimeout    time.Duration
	TokenSigningSecret string

	KakaoAPIBaseURL           string
	IdentityToolkitBaseURL    string
	KakaoRequireVerifiedEmail bool
	ExposeErrorDetails        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	window, err := getDurationEnv("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return nil, err
	}
	timeout, err := getDurationEnv("UPSTREAM_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           getEnv("PORT", "4000"),
		Environment:    getEnv("ENVIRONMENT", "production"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		RoutePrefix:    normalizePrefix(getEnv("ROUTE_PREFIX", "/auth")),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "*")),

		FirebaseServiceAccount:     getEnv("FIREBASE_SERVICE_ACCOUNT", ""),
		FirebaseServiceAccountFile: getEnv("FIREBASE_SERVICE_ACCOUNT_FILE", ""),
		FirebaseProjectID:          getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseAPIKey:             getEnv("FIREBASE_API_KEY", ""),
		GoogleClientID:             getEnv("GOOGLE_CLIENT_ID", ""),

		IdentityBackend:    strings.ToLower(getEnv("IDENTITY_BACKEND", IdentityBackendFirebase)),
		ProfileStore:       strings.ToLower(getEnv("PROFILE_STORE", ProfileStoreFirestore)),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:   getIntEnv("DATABASE_MAX_CONNS", 10),
		RedisURL:           getEnv("REDIS_URL", ""),
		RateLimitRequests:  getIntEnv("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow:    window,
		UpstreamTimeout:    timeout,
		TokenSigningSecret: getEnv("TOKEN_SIGNING_SECRET", ""),

		KakaoAPIBaseURL:           getEnv("KAKAO_API_BASE_URL", "https://kapi.kakao.com"),
		IdentityToolkitBaseURL:    getEnv("IDENTITY_TOOLKIT_BASE_URL", "https://identitytoolkit.googleapis.com"),
		KakaoRequireVerifiedEmail: getBoolEnv("KAKAO_REQUIRE_VERIFIED_EMAIL", false),
	}
	cfg.ExposeErrorDetails = getBoolEnv("EXPOSE_ERROR_DETAILS", !cfg.IsProduction())
	return cfg, nil
}

// Validate fails fast when required credential material or backend settings
// are missing
func (c *Config) Validate() error {
	var errs []error

	switch c.IdentityBackend {
	case IdentityBackendFirebase:
		if c.FirebaseServiceAccount == "" && c.FirebaseServiceAccountFile == "" {
			errs = append(errs, errors.New("FIREBASE_SERVICE_ACCOUNT or FIREBASE_SERVICE_ACCOUNT_FILE is required"))
		}
	case IdentityBackendMemory:
		if c.TokenSigningSecret == "" {
			errs = append(errs, errors.New("TOKEN_SIGNING_SECRET is required for the memory identity backend"))
		}
		if c.IsProduction() {
			errs = append(errs, errors.New("the memory identity backend cannot run in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IDENTITY_BACKEND %q", c.IdentityBackend))
	}

	if c.FirebaseAPIKey == "" {
		errs = append(errs, errors.New("FIREBASE_API_KEY is required"))
	}
	if c.GoogleClientID == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID is required"))
	}

	switch c.ProfileStore {
	case ProfileStoreFirestore:
		if c.IdentityBackend != IdentityBackendFirebase {
			errs = append(errs, errors.New("PROFILE_STORE=firestore needs the firebase identity backend"))
		}
	case ProfileStorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when PROFILE_STORE=postgres"))
		}
		if c.DatabaseMaxConns <= 0 {
			errs = append(errs, errors.New("DATABASE_MAX_CONNS must be positive"))
		}
	case ProfileStoreNone:
	default:
		errs = append(errs, fmt.Errorf("unknown PROFILE_STORE %q", c.ProfileStore))
	}

	if c.RateLimitRequests <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS must be positive"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// normalizePrefix returns "/x" for "x", "/x/" and "/x"; "" and "/" mean root
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDurationEnv parses a Go duration such as "10s"
func getDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
