package domain

import (
	"fmt"
	"strings"
)

// Provider identifies where a login assertion came from
type Provider string

const (
	ProviderEmail  Provider = "email"
	ProviderGoogle Provider = "google"
	ProviderKakao  Provider = "kakao"
)

// ParseProvider converts a raw provider tag into a Provider
func ParseProvider(raw string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("unsupported provider %q", raw)
	}
	return p, nil
}

// Valid reports whether p is one of the supported providers
func (p Provider) Valid() bool {
	switch p {
	case ProviderEmail, ProviderGoogle, ProviderKakao:
		return true
	}
	return false
}

// IsSocial reports whether accounts for p live in a "<provider>:<subject>" namespace
func (p Provider) IsSocial() bool {
	return p == ProviderGoogle || p == ProviderKakao
}

// AccountUID returns the uid an account minted for subjectID under p would get.
// Email accounts keep the identity provider's own identifier.
func (p Provider) AccountUID(subjectID string) string {
	if p.IsSocial() {
		return string(p) + ":" + subjectID
	}
	return subjectID
}

// Assertion is a verified statement from a provider about who the caller is.
// It is request-scoped and never persisted.
type Assertion struct {
	Provider    Provider
	SubjectID   string
	Email       string
	DisplayName string
	PhotoURL    string
}

// Validate checks the fields every assertion must carry
func (a Assertion) Validate() error {
	if !a.Provider.Valid() {
		return fmt.Errorf("unsupported provider %q", a.Provider)
	}
	if strings.TrimSpace(a.SubjectID) == "" {
		return fmt.Errorf("%s assertion has an empty subject id", a.Provider)
	}
	return nil
}

// UID returns the provider-scoped uid for the assertion
func (a Assertion) UID() string {
	return a.Provider.AccountUID(a.SubjectID)
}

// Account is the canonical user record held by the identity provider
type Account struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhoneNumber string `json:"phoneNumber"`
	PhotoURL    string `json:"photoURL"`
}

// NewAccount describes an account to create. Empty fields are not sent.
// An empty UID lets the identity provider generate one.
type NewAccount struct {
	UID         string
	Email       string
	Password    string
	DisplayName string
	PhotoURL    string
	PhoneNumber string
}

// AccountUpdate carries profile fields to set; nil means leave unchanged
type AccountUpdate struct {
	DisplayName *string
	PhotoURL    *string
}

// Empty reports whether the update changes nothing
func (u AccountUpdate) Empty() bool {
	return u.DisplayName == nil && u.PhotoURL == nil
}

// Enrichment returns the update that fills account's empty profile fields from
// the assertion hints. Non-empty fields are never overwritten.
func Enrichment(account *Account, a Assertion) AccountUpdate {
	var update AccountUpdate
	if account.DisplayName == "" && a.DisplayName != "" {
		name := a.DisplayName
		update.DisplayName = &name
	}
	if account.PhotoURL == "" && a.PhotoURL != "" {
		photo := a.PhotoURL
		update.PhotoURL = &photo
	}
	return update
}

// Resolution is the outcome of mapping an assertion to an account
type Resolution struct {
	Account      *Account
	IsNewAccount bool
}

// AuthResult is what a successful login path hands back to the client
type AuthResult struct {
	User         *Account `json:"user"`
	CustomToken  string   `json:"customToken"`
	IsNewAccount bool     `json:"isNewAccount"`
}
