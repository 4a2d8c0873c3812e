package google

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"

	"auth-gateway/internal/domain"
	"auth-gateway/pkg/errors"
)

const clientID = "web-client.apps.googleusercontent.com"

// fakeValidator mimics idtoken's audience check and returns a canned payload
type fakeValidator struct {
	payload *idtoken.Payload
	err     error
	calls   int
}

func (f *fakeValidator) Validate(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.payload.Audience != audience {
		return nil, stderrors.New("idtoken: audience provided does not match aud claim in the JWT")
	}
	return f.payload, nil
}

func payloadFor(audience string, claims map[string]interface{}) *idtoken.Payload {
	return &idtoken.Payload{
		Issuer:   "https://accounts.google.com",
		Audience: audience,
		Subject:  "10987654321",
		Expires:  time.Now().Add(time.Hour).Unix(),
		Claims:   claims,
	}
}

func TestVerifier_Verify(t *testing.T) {
	tests := []struct {
		name       string
		validator  *fakeValidator
		wantStatus int
		want       *domain.Assertion
	}{
		{
			name: "valid token",
			validator: &fakeValidator{payload: payloadFor(clientID, map[string]interface{}{
				"email":   "kim@example.com",
				"name":    "Kim",
				"picture": "https://lh3.googleusercontent.com/a/photo",
			})},
			want: &domain.Assertion{
				Provider:    domain.ProviderGoogle,
				SubjectID:   "10987654321",
				Email:       "kim@example.com",
				DisplayName: "Kim",
				PhotoURL:    "https://lh3.googleusercontent.com/a/photo",
			},
		},
		{
			name:       "token for another client",
			validator:  &fakeValidator{payload: payloadFor("other-client", map[string]interface{}{"email": "kim@example.com"})},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "validator error",
			validator:  &fakeValidator{err: stderrors.New("idtoken: token expired")},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no email",
			validator:  &fakeValidator{payload: payloadFor(clientID, map[string]interface{}{"name": "Kim"})},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVerifierWithValidator(tt.validator, clientID, time.Second, nil)
			got, err := v.Verify(context.Background(), "id-token")
			if tt.wantStatus != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantStatus, errors.StatusCode(err))
				assert.NotContains(t, err.Error(), "id-token")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// A validator that skips the audience check must still be caught.
type laxValidator struct{ payload *idtoken.Payload }

func (l laxValidator) Validate(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
	return l.payload, nil
}

func TestVerifier_AudienceMismatchFailsClosed(t *testing.T) {
	v := NewVerifierWithValidator(laxValidator{payload: payloadFor("other-client", map[string]interface{}{"email": "a@b.com"})}, clientID, 0, nil)
	_, err := v.Verify(context.Background(), "id-token")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, errors.StatusCode(err))
}

func TestVerifier_DropsUnsafePicture(t *testing.T) {
	v := NewVerifierWithValidator(&fakeValidator{payload: payloadFor(clientID, map[string]interface{}{
		"email":   "a@b.com",
		"picture": "javascript:alert(1)",
	})}, clientID, 0, nil)

	got, err := v.Verify(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Empty(t, got.PhotoURL)
}

func TestVerifier_MissingClientID(t *testing.T) {
	validator := &fakeValidator{}
	_, err := NewVerifierWithValidator(validator, "", 0, nil).Verify(context.Background(), "id-token")
	assert.Error(t, err)
	assert.Equal(t, 0, validator.calls)
}
