package domain

import "strings"

// RegisterRequest is the body of POST /register
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name,omitempty"`
	Nickname  string `json:"nickname,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Birthdate string `json:"birthdate,omitempty"`
	Gender    string `json:"gender,omitempty"`
}

// MissingFields lists required fields that are empty
func (r RegisterRequest) MissingFields() []string {
	return missing(map[string]string{"email": r.Email, "password": r.Password}, "email", "password")
}

// DisplayName is the nickname, or the name when no nickname was given
func (r RegisterRequest) DisplayName() string {
	if n := strings.TrimSpace(r.Nickname); n != "" {
		return n
	}
	return strings.TrimSpace(r.Name)
}

// LoginRequest is the body of POST /login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MissingFields lists required fields that are empty
func (r LoginRequest) MissingFields() []string {
	return missing(map[string]string{"email": r.Email, "password": r.Password}, "email", "password")
}

// GoogleLoginRequest is the body of POST /google
type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
}

// KakaoLoginRequest is the body of POST /kakao
type KakaoLoginRequest struct {
	AccessToken string `json:"accessToken"`
}

func missing(values map[string]string, order ...string) []string {
	var out []string
	for _, key := range order {
		if strings.TrimSpace(values[key]) == "" {
			out = append(out, key)
		}
	}
	return out
}
