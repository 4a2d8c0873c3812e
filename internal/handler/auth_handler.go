package handler

import (
	"net/http"
	"strings"

	"auth-gateway/internal/container"
	"auth-gateway/internal/domain"
	"auth-gateway/pkg/errors"
)

// Envelope messages
const (
	MessageRegisterSuccess = "register_success"
	MessageRegisterFailed  = "register_failed"
	MessageLoginSuccess    = "login_success"
	MessageLoginFailed     = "login_failed"
	MessageGoogleSuccess   = "google_login_success"
	MessageGoogleFailed    = "google_login_failed"
	MessageKakaoSuccess    = "kakao_login_success"
	MessageKakaoFailed     = "kakao_login_failed"
)

// AuthHandler handles the four login routes
type AuthHandler struct {
	container *container.Container
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(container *container.Container) *AuthHandler {
	return &AuthHandler{
		container: container,
	}
}

// Register handles POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, MessageRegisterFailed, err)
		return
	}
	if missing := req.MissingFields(); len(missing) > 0 {
		h.fail(w, MessageRegisterFailed, missingFields(missing))
		return
	}

	result, err := h.container.GetAuthService().Register(r.Context(), req)
	if err != nil {
		h.fail(w, MessageRegisterFailed, err)
		return
	}

	writeJSON(w, http.StatusCreated, successEnvelope(MessageRegisterSuccess, result, false), h.container.GetLogger())
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, MessageLoginFailed, err)
		return
	}
	if missing := req.MissingFields(); len(missing) > 0 {
		h.fail(w, MessageLoginFailed, missingFields(missing))
		return
	}

	result, err := h.container.GetAuthService().Login(r.Context(), req)
	if err != nil {
		h.fail(w, MessageLoginFailed, err)
		return
	}

	writeJSON(w, http.StatusOK, successEnvelope(MessageLoginSuccess, result, false), h.container.GetLogger())
}

// Google handles POST /google
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req domain.GoogleLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, MessageGoogleFailed, err)
		return
	}
	h.social(w, r, domain.ProviderGoogle, "idToken", req.IDToken, MessageGoogleSuccess, MessageGoogleFailed)
}

// Kakao handles POST /kakao
func (h *AuthHandler) Kakao(w http.ResponseWriter, r *http.Request) {
	var req domain.KakaoLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, MessageKakaoFailed, err)
		return
	}
	h.social(w, r, domain.ProviderKakao, "accessToken", req.AccessToken, MessageKakaoSuccess, MessageKakaoFailed)
}

func (h *AuthHandler) social(w http.ResponseWriter, r *http.Request, provider domain.Provider, field, token, okMsg, failMsg string) {
	if strings.TrimSpace(token) == "" {
		h.fail(w, failMsg, missingFields([]string{field}))
		return
	}

	result, err := h.container.GetAuthService().SocialLogin(r.Context(), provider, token)
	if err != nil {
		h.fail(w, failMsg, err)
		return
	}

	writeJSON(w, http.StatusOK, successEnvelope(okMsg, result, true), h.container.GetLogger())
}

func (h *AuthHandler) fail(w http.ResponseWriter, message string, err error) {
	WriteError(w, message, err, h.container.GetConfig().ExposeErrorDetails, h.container.GetLogger())
}

func missingFields(fields []string) error {
	return errors.NewValidationError(strings.Join(fields, ", ")+" required", map[string]interface{}{"missing": fields})
}
