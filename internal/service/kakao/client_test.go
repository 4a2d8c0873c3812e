package kakao

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-gateway/internal/domain"
	"auth-gateway/pkg/errors"
)

func newKakaoServer(t *testing.T, status int, body interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userMePath, r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"this access token does not exist","code":-401}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_Verify(t *testing.T) {
	verified := true
	unverified := false

	tests := []struct {
		name          string
		body          map[string]interface{}
		requireVerify bool
		want          *domain.Assertion
	}{
		{
			name: "full profile",
			body: map[string]interface{}{
				"id": 987654,
				"kakao_account": map[string]interface{}{
					"email":             "minji@kakao.com",
					"is_email_verified": verified,
					"profile": map[string]interface{}{
						"nickname":          "민지",
						"profile_image_url": "https://k.kakaocdn.net/img.jpg",
					},
				},
			},
			want: &domain.Assertion{
				Provider:    domain.ProviderKakao,
				SubjectID:   "987654",
				Email:       "minji@kakao.com",
				DisplayName: "민지",
				PhotoURL:    "https://k.kakaocdn.net/img.jpg",
			},
		},
		{
			name: "account name when profile nickname missing",
			body: map[string]interface{}{
				"id": 42,
				"kakao_account": map[string]interface{}{
					"name":    "Minji",
					"profile": map[string]interface{}{},
				},
				"properties": map[string]interface{}{"nickname": "legacy"},
			},
			want: &domain.Assertion{Provider: domain.ProviderKakao, SubjectID: "42", DisplayName: "Minji"},
		},
		{
			name: "legacy properties",
			body: map[string]interface{}{
				"id": 42,
				"properties": map[string]interface{}{
					"nickname":      "옛날닉네임",
					"profile_image": "http://k.kakaocdn.net/old.jpg",
				},
			},
			want: &domain.Assertion{
				Provider:    domain.ProviderKakao,
				SubjectID:   "42",
				DisplayName: "옛날닉네임",
				PhotoURL:    "http://k.kakaocdn.net/old.jpg",
			},
		},
		{
			name: "placeholder",
			body: map[string]interface{}{"id": 42},
			want: &domain.Assertion{Provider: domain.ProviderKakao, SubjectID: "42", DisplayName: "카카오사용자_42"},
		},
		{
			name: "unverified email kept by default",
			body: map[string]interface{}{
				"id":            7,
				"kakao_account": map[string]interface{}{"email": "u@kakao.com", "is_email_verified": unverified},
			},
			want: &domain.Assertion{Provider: domain.ProviderKakao, SubjectID: "7", Email: "u@kakao.com", DisplayName: "카카오사용자_7"},
		},
		{
			name: "unverified email dropped when required",
			body: map[string]interface{}{
				"id":            7,
				"kakao_account": map[string]interface{}{"email": "u@kakao.com", "is_email_verified": unverified},
			},
			requireVerify: true,
			want:          &domain.Assertion{Provider: domain.ProviderKakao, SubjectID: "7", DisplayName: "카카오사용자_7"},
		},
		{
			name: "email without verification flag kept by default",
			body: map[string]interface{}{
				"id":            8,
				"kakao_account": map[string]interface{}{"email": "n@kakao.com"},
			},
			want: &domain.Assertion{Provider: domain.ProviderKakao, SubjectID: "8", Email: "n@kakao.com", DisplayName: "카카오사용자_8"},
		},
		{
			name: "email without verification flag dropped when required",
			body: map[string]interface{}{
				"id":            8,
				"kakao_account": map[string]interface{}{"email": "n@kakao.com"},
			},
			requireVerify: true,
			want:          &domain.Assertion{Provider: domain.ProviderKakao, SubjectID: "8", DisplayName: "카카오사용자_8"},
		},
		{
			name: "verified email kept when required",
			body: map[string]interface{}{
				"id":            9,
				"kakao_account": map[string]interface{}{"email": "v@kakao.com", "is_email_verified": verified},
			},
			requireVerify: true,
			want:          &domain.Assertion{Provider: domain.ProviderKakao, SubjectID: "9", Email: "v@kakao.com", DisplayName: "카카오사용자_9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newKakaoServer(t, http.StatusOK, tt.body)
			client := NewClient(Config{BaseURL: server.URL, Timeout: time.Second, RequireVerifiedEmail: tt.requireVerify}, server.Client(), nil)

			got, err := client.Verify(context.Background(), "good-token")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		status     int
		body       interface{}
		wantStatus int
	}{
		{"rejected token", "bad-token", http.StatusOK, nil, http.StatusUnauthorized},
		{"upstream throttled", "good-token", http.StatusTooManyRequests, map[string]interface{}{"code": -10}, http.StatusTooManyRequests},
		{"upstream down", "good-token", http.StatusServiceUnavailable, nil, http.StatusServiceUnavailable},
		{"missing id", "good-token", http.StatusOK, map[string]interface{}{"properties": map[string]interface{}{}}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newKakaoServer(t, tt.status, tt.body)
			client := NewClient(Config{BaseURL: server.URL}, server.Client(), nil)

			_, err := client.Verify(context.Background(), tt.token)
			require.Error(t, err)
			assert.Equal(t, tt.wantStatus, errors.StatusCode(err))
			assert.NotContains(t, err.Error(), tt.token)
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(Config{BaseURL: url}, nil, nil).Verify(context.Background(), "good-token")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, errors.StatusCode(err))
}

func TestDisplayName_SanitizesMarkup(t *testing.T) {
	me := &UserMe{ID: 1, KakaoAccount: &KakaoAccount{Profile: &KakaoProfile{Nickname: "<img src=x>"}, Name: "Minji"}}
	assert.Equal(t, "Minji", DisplayName(me))
}

func TestPhotoURL_SkipsUnsafe(t *testing.T) {
	me := &UserMe{
		ID:           1,
		KakaoAccount: &KakaoAccount{Profile: &KakaoProfile{ProfileImageURL: "data:image/png;base64,AAAA"}},
		Properties:   &Properties{ProfileImage: "https://k.kakaocdn.net/legacy.jpg"},
	}
	assert.Equal(t, "https://k.kakaocdn.net/legacy.jpg", PhotoURL(me))
}
