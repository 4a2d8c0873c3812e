package password

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-gateway/pkg/errors"
)

func TestGateway_VerifyPassword(t *testing.T) {
	tests := []struct {
		name           string
		serverStatus   int
		serverResponse interface{}
		expectedLocal  string
		expectedStatus int
		expectedType   errors.ErrorType
	}{
		{
			name:           "valid credentials",
			serverStatus:   http.StatusOK,
			serverResponse: map[string]interface{}{"localId": "abc123", "email": "a@b.com", "idToken": "x"},
			expectedLocal:  "abc123",
		},
		{
			name:           "wrong password",
			serverStatus:   http.StatusBadRequest,
			serverResponse: map[string]interface{}{"error": map[string]interface{}{"code": 400, "message": "INVALID_PASSWORD"}},
			expectedStatus: http.StatusUnauthorized,
			expectedType:   errors.ErrorTypeAuthentication,
		},
		{
			name:           "unknown email",
			serverStatus:   http.StatusBadRequest,
			serverResponse: map[string]interface{}{"error": map[string]interface{}{"code": 400, "message": "INVALID_LOGIN_CREDENTIALS"}},
			expectedStatus: http.StatusUnauthorized,
			expectedType:   errors.ErrorTypeAuthentication,
		},
		{
			name:         "throttled keeps upstream status",
			serverStatus: http.StatusTooManyRequests,
			serverResponse: map[string]interface{}{"error": map[string]interface{}{
				"code": 429, "message": "TOO_MANY_ATTEMPTS_TRY_LATER : Access to this account has been temporarily disabled",
			}},
			expectedStatus: http.StatusTooManyRequests,
			expectedType:   errors.ErrorTypeExternal,
		},
		{
			name:           "bad api key",
			serverStatus:   http.StatusBadRequest,
			serverResponse: map[string]interface{}{"error": map[string]interface{}{"code": 400, "message": "API key not valid. Please pass a valid API key."}},
			expectedStatus: http.StatusBadRequest,
			expectedType:   errors.ErrorTypeExternal,
		},
		{
			name:           "missing local id",
			serverStatus:   http.StatusOK,
			serverResponse: map[string]interface{}{"email": "a@b.com"},
			expectedStatus: http.StatusInternalServerError,
			expectedType:   errors.ErrorTypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, signInPath, r.URL.Path)
				assert.Equal(t, "test-key", r.URL.Query().Get("key"))

				var body signInRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "a@b.com", body.Email)
				assert.True(t, body.ReturnSecureToken)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.serverStatus)
				_ = json.NewEncoder(w).Encode(tt.serverResponse)
			}))
			defer server.Close()

			gateway := NewGateway(server.URL, "test-key", time.Second, nil)
			identity, err := gateway.VerifyPassword(context.Background(), "a@b.com", "hunter2")

			if tt.expectedStatus != 0 {
				require.Error(t, err)
				appErr, ok := errors.FromError(err)
				require.True(t, ok)
				assert.Equal(t, tt.expectedStatus, appErr.StatusCode)
				assert.Equal(t, tt.expectedType, appErr.Type)
				assert.NotContains(t, err.Error(), "hunter2")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedLocal, identity.LocalID)
		})
	}
}

func TestGateway_TransportErrorHidesKey(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewGateway(url, "secret-key", time.Second, nil).VerifyPassword(context.Background(), "a@b.com", "pw")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, errors.StatusCode(err))
	assert.NotContains(t, err.Error(), "secret-key")
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "TOO_MANY_ATTEMPTS_TRY_LATER", errorCode("TOO_MANY_ATTEMPTS_TRY_LATER : detail"))
	assert.Equal(t, "EMAIL_NOT_FOUND", errorCode("EMAIL_NOT_FOUND"))
	assert.Equal(t, "UNKNOWN", errorCode(""))
}
