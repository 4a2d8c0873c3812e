package service

import (
	"context"

	"auth-gateway/internal/domain"
)

// AuthService runs the four login paths end to end
type AuthService interface {
	// Register creates an email account and mints a credential for it
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResult, error)

	// Login checks email and password with the password gateway and mints a credential
	Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResult, error)

	// SocialLogin verifies a provider token, resolves the account and mints a credential
	SocialLogin(ctx context.Context, provider domain.Provider, token string) (*domain.AuthResult, error)
}

// AssertionVerifier turns a provider token into a trusted assertion
type AssertionVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Assertion, error)
}

// PasswordVerifier exchanges email and password for the identity provider's local id
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, email, password string) (*domain.PasswordIdentity, error)
}

// IdentityResolver maps an assertion to exactly one account
type IdentityResolver interface {
	Resolve(ctx context.Context, assertion domain.Assertion) (*domain.Resolution, error)
}

// SessionIssuer mints the exchangeable credential for a uid
type SessionIssuer interface {
	Issue(ctx context.Context, uid string) (string, error)
}

// RateLimiter decides whether a caller may proceed
type RateLimiter interface {
	Allow(ctx context.Context, route, clientKey string) (*domain.RateLimitDecision, error)
}

// Services aggregates all service interfaces
type Services struct {
	Auth      AuthService
	Resolver  IdentityResolver
	Session   SessionIssuer
	RateLimit RateLimiter
}
