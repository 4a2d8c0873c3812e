// Package password verifies email and password with the identity provider's
// REST sign-in endpoint. Password hashes never reach this service.
package password

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"auth-gateway/internal/domain"
	"auth-gateway/pkg/errors"
	"auth-gateway/pkg/logger"
)

// DefaultBaseURL is the Identity Toolkit host
const DefaultBaseURL = "https://identitytoolkit.googleapis.com"

const signInPath = "/v1/accounts:signInWithPassword"

// credentialRejections are gateway codes that mean the caller's credentials
// were refused rather than the gateway failing
var credentialRejections = map[string]bool{
	"EMAIL_NOT_FOUND":           true,
	"INVALID_PASSWORD":          true,
	"INVALID_LOGIN_CREDENTIALS": true,
	"INVALID_EMAIL":             true,
	"USER_DISABLED":             true,
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type gatewayError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Gateway calls signInWithPassword
type Gateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewGateway creates a gateway client. timeout bounds every call.
func NewGateway(baseURL, apiKey string, timeout time.Duration, log *logger.Logger) *Gateway {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

// VerifyPassword exchanges credentials for the account's local id.
// Refused credentials come back as an authentication error.
func (g *Gateway) VerifyPassword(ctx context.Context, email, password string) (*domain.PasswordIdentity, error) {
	jsonBody, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, errors.NewInternalError("failed to marshal sign-in request", err)
	}

	endpoint := fmt.Sprintf("%s%s?key=%s", g.baseURL, signInPath, url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, errors.NewInternalError("failed to create sign-in request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		// No upstream status to relay, so 500. The transport error embeds
		// the URL, which carries the API key.
		return nil, errors.NewInternalError("password gateway request failed", redact(err, g.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewInternalError("failed to read password gateway response", err)
	}

	g.logger.WithFields(map[string]interface{}{
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("password gateway responded")

	if resp.StatusCode != http.StatusOK {
		return nil, g.rejection(resp.StatusCode, body)
	}

	var out signInResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.NewInternalError("failed to parse password gateway response", err)
	}
	if out.LocalID == "" {
		return nil, errors.NewInternalError("password gateway returned no local id", nil)
	}

	return &domain.PasswordIdentity{LocalID: out.LocalID, Email: out.Email, DisplayName: out.DisplayName}, nil
}

func (g *Gateway) rejection(status int, body []byte) error {
	var gwErr gatewayError
	_ = json.Unmarshal(body, &gwErr)
	code := errorCode(gwErr.Error.Message)

	cause := fmt.Errorf("password gateway returned status %d: %s", status, code)
	if credentialRejections[code] {
		return errors.NewAuthenticationErrorWithCause("invalid email or password", cause)
	}

	g.logger.WithFields(map[string]interface{}{
		"status_code": status,
		"code":        code,
	}).Warn("password gateway error")
	return errors.NewExternalError("password verification failed", cause).WithStatus(status)
}

// errorCode strips the detail suffix, e.g. "TOO_MANY_ATTEMPTS_TRY_LATER : ..."
func errorCode(message string) string {
	if i := strings.Index(message, " : "); i >= 0 {
		message = message[:i]
	}
	code := strings.TrimSpace(message)
	if code == "" {
		return "UNKNOWN"
	}
	return code
}

func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), url.QueryEscape(secret), "REDACTED"))
}
