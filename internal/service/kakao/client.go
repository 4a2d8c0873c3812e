// Package kakao resolves Kakao access tokens into assertions by fetching the
// caller's profile. The token is trusted exactly as far as Kakao accepts it.
package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"auth-gateway/internal/domain"
	"auth-gateway/pkg/errors"
)

// DefaultBaseURL is Kakao's production API host
const DefaultBaseURL = "https://kapi.kakao.com"

const (
	userMePath        = "/v2/user/me"
	placeholderPrefix = "카카오사용자_"
	maxErrorBody      = 1 << 10
)

// UserMe is the subset of /v2/user/me the gateway reads
type UserMe struct {
	ID           int64         `json:"id"`
	Properties   *Properties   `json:"properties"`
	KakaoAccount *KakaoAccount `json:"kakao_account"`
}

// Properties holds the legacy profile fields
type Properties struct {
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profile_image"`
}

// KakaoAccount holds consented account fields
type KakaoAccount struct {
	Email           string        `json:"email"`
	IsEmailVerified *bool         `json:"is_email_verified"`
	Name            string        `json:"name"`
	Profile         *KakaoProfile `json:"profile"`
}

// KakaoProfile is the profile block granted by the profile consent item
type KakaoProfile struct {
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profile_image_url"`
}

// Config configures a Client
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RequireVerifiedEmail drops emails Kakao does not mark as verified, so
	// they are never used for account linking.
	RequireVerifiedEmail bool
}

// Client fetches Kakao profiles with a caller's access token
type Client struct {
	baseURL              string
	httpClient           *http.Client
	timeout              time.Duration
	requireVerifiedEmail bool
	log                  *zap.Logger
}

// NewClient creates a Kakao client. httpClient is the base transport; nil
// means http.DefaultClient.
func NewClient(cfg Config, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:              baseURL,
		httpClient:           httpClient,
		timeout:              cfg.Timeout,
		requireVerifiedEmail: cfg.RequireVerifiedEmail,
		log:                  log,
	}
}

// Verify fetches the profile behind accessToken and builds an assertion
func (c *Client) Verify(ctx context.Context, accessToken string) (*domain.Assertion, error) {
	me, err := c.FetchUserMe(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if me.ID == 0 {
		return nil, errors.NewInternalError("kakao profile has no id", nil)
	}
	return c.toAssertion(me), nil
}

// FetchUserMe calls GET /v2/user/me with a bearer token
func (c *Client) FetchUserMe(ctx context.Context, accessToken string) (*UserMe, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	client := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, c.httpClient),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+userMePath, nil)
	if err != nil {
		return nil, errors.NewInternalError("failed to build kakao request", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		c.log.Warn("kakao_user_me", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return nil, errors.NewInternalError("kakao profile request failed", err)
	}
	defer resp.Body.Close()

	c.log.Debug("kakao_user_me",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		cause := fmt.Errorf("kakao returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, errors.NewAuthenticationErrorWithCause("invalid kakao access token", cause)
		}
		return nil, errors.NewExternalError("kakao profile request rejected", cause).WithStatus(resp.StatusCode)
	}

	var me UserMe
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return nil, errors.NewInternalError("failed to decode kakao profile", err)
	}
	return &me, nil
}

func (c *Client) toAssertion(me *UserMe) *domain.Assertion {
	subject := strconv.FormatInt(me.ID, 10)

	email := ""
	if acct := me.KakaoAccount; acct != nil && acct.Email != "" {
		// Kakao omits is_email_verified when the scope was not granted
		verified := acct.IsEmailVerified != nil && *acct.IsEmailVerified
		if verified || !c.requireVerifiedEmail {
			email = acct.Email
		} else {
			c.log.Info("dropping unverified kakao email", zap.String("subject", subject))
		}
	}

	return &domain.Assertion{
		Provider:    domain.ProviderKakao,
		SubjectID:   subject,
		Email:       email,
		DisplayName: DisplayName(me),
		PhotoURL:    PhotoURL(me),
	}
}

// DisplayName picks the first non-empty of profile nickname, account name,
// legacy nickname, then a generated placeholder.
func DisplayName(me *UserMe) string {
	var candidates []string
	if acct := me.KakaoAccount; acct != nil {
		if acct.Profile != nil {
			candidates = append(candidates, acct.Profile.Nickname)
		}
		candidates = append(candidates, acct.Name)
	}
	if me.Properties != nil {
		candidates = append(candidates, me.Properties.Nickname)
	}

	for _, candidate := range candidates {
		if name := domain.CleanDisplayName(candidate); name != "" {
			return name
		}
	}
	return placeholderPrefix + strconv.FormatInt(me.ID, 10)
}

// PhotoURL picks the profile image, then the legacy one. Non-http(s) values
// are ignored.
func PhotoURL(me *UserMe) string {
	var candidates []string
	if acct := me.KakaoAccount; acct != nil && acct.Profile != nil {
		candidates = append(candidates, acct.Profile.ProfileImageURL)
	}
	if me.Properties != nil {
		candidates = append(candidates, me.Properties.ProfileImage)
	}

	for _, candidate := range candidates {
		if url := domain.SafePhotoURL(candidate); url != "" {
			return url
		}
	}
	return ""
}
