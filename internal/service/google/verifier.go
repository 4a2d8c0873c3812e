// Package google verifies Google ID tokens against this service's client id.
package google

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"auth-gateway/internal/domain"
	"auth-gateway/pkg/errors"
)

// TokenValidator checks signature, expiry and audience of an ID token
type TokenValidator interface {
	Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

// Verifier produces Google assertions from ID tokens
type Verifier struct {
	validator TokenValidator
	clientID  string
	timeout   time.Duration
	log       *zap.Logger
}

// NewVerifier builds a verifier using Google's published signing keys
func NewVerifier(ctx context.Context, clientID string, timeout time.Duration, log *zap.Logger) (*Verifier, error) {
	// Google's signing keys are public; no credentials are needed to fetch them
	validator, err := idtoken.NewValidator(ctx, option.WithHTTPClient(&http.Client{Timeout: timeout}))
	if err != nil {
		return nil, fmt.Errorf("create google token validator: %w", err)
	}
	return NewVerifierWithValidator(validator, clientID, timeout, log), nil
}

// NewVerifierWithValidator builds a verifier around an existing validator
func NewVerifierWithValidator(validator TokenValidator, clientID string, timeout time.Duration, log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{validator: validator, clientID: clientID, timeout: timeout, log: log}
}

// Verify validates idToken and maps its claims onto an assertion. A token
// issued for another client id fails closed.
func (v *Verifier) Verify(ctx context.Context, idToken string) (*domain.Assertion, error) {
	if v.clientID == "" {
		return nil, errors.NewInternalError("google client id is not configured", nil)
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	start := time.Now()
	payload, err := v.validator.Validate(ctx, idToken, v.clientID)
	v.log.Debug("google_validate_id_token", zap.Duration("duration", time.Since(start)), zap.Bool("ok", err == nil))
	if err != nil {
		return nil, errors.NewAuthenticationErrorWithCause("invalid google id token", err)
	}
	if payload.Audience != v.clientID {
		return nil, errors.NewAuthenticationError("google id token audience mismatch")
	}
	if payload.Subject == "" {
		return nil, errors.NewAuthenticationError("google id token has no subject")
	}

	email := getStringValue(payload.Claims, "email")
	if email == "" {
		return nil, errors.NewValidationError("google account has no email", nil)
	}

	return &domain.Assertion{
		Provider:    domain.ProviderGoogle,
		SubjectID:   payload.Subject,
		Email:       email,
		DisplayName: domain.CleanDisplayName(getStringValue(payload.Claims, "name")),
		PhotoURL:    domain.SafePhotoURL(getStringValue(payload.Claims, "picture")),
	}, nil
}

// getStringValue safely gets string value from a claims map
func getStringValue(m map[string]interface{}, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}
