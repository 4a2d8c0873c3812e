// Package memstore is an in-memory identity provider. It backs tests and
// IDENTITY_BACKEND=memory for local runs without Firebase credentials.
package memstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/identity"
)

const tokenTTL = time.Hour

// Calls counts operations per method so tests can assert on side effects
type Calls struct {
	FindByID    int
	FindByEmail int
	Create      int
	Update      int
	MintToken   int
}

// Store keeps accounts in maps guarded by a mutex
type Store struct {
	mu      sync.Mutex
	secret  []byte
	issuer  string
	byUID   map[string]*domain.Account
	byEmail map[string]string
	calls   Calls

	// Fail lets tests inject a failure for a named method ("FindByID", ...)
	Fail map[string]error
}

// New creates an empty store signing custom tokens with secret
func New(secret string) *Store {
	return &Store{
		secret:  []byte(secret),
		issuer:  "auth-gateway-memstore",
		byUID:   make(map[string]*domain.Account),
		byEmail: make(map[string]string),
		Fail:    make(map[string]error),
	}
}

// Calls returns a snapshot of the call counters
func (s *Store) Calls() Calls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Len returns the number of stored accounts
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUID)
}

// Seed inserts an account directly, bypassing collision checks
func (s *Store) Seed(account domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := account
	s.byUID[cp.UID] = &cp
	if cp.Email != "" {
		s.byEmail[normalizeEmail(cp.Email)] = cp.UID
	}
}

func (s *Store) FindByID(ctx context.Context, uid string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.FindByID++
	if err := s.failure("FindByID"); err != nil {
		return nil, err
	}
	account, ok := s.byUID[uid]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.FindByEmail++
	if err := s.failure("FindByEmail"); err != nil {
		return nil, err
	}
	return s.lookupEmail(email)
}

func (s *Store) Create(ctx context.Context, in domain.NewAccount) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Create++
	if err := s.failure("Create"); err != nil {
		return nil, err
	}

	uid := in.UID
	if uid == "" {
		uid = uuid.NewString()
	}
	if _, exists := s.byUID[uid]; exists {
		return nil, identity.ErrAlreadyExists
	}
	if in.Email != "" {
		if _, exists := s.byEmail[normalizeEmail(in.Email)]; exists {
			return nil, identity.ErrAlreadyExists
		}
	}

	account := &domain.Account{
		UID:         uid,
		Email:       normalizeEmail(in.Email),
		DisplayName: in.DisplayName,
		PhoneNumber: in.PhoneNumber,
		PhotoURL:    in.PhotoURL,
	}
	s.byUID[uid] = account
	if account.Email != "" {
		s.byEmail[account.Email] = uid
	}
	cp := *account
	return &cp, nil
}

func (s *Store) Update(ctx context.Context, uid string, update domain.AccountUpdate) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Update++
	if err := s.failure("Update"); err != nil {
		return nil, err
	}
	account, ok := s.byUID[uid]
	if !ok {
		return nil, identity.ErrNotFound
	}
	if update.DisplayName != nil {
		account.DisplayName = *update.DisplayName
	}
	if update.PhotoURL != nil {
		account.PhotoURL = *update.PhotoURL
	}
	cp := *account
	return &cp, nil
}

// MintToken signs an HS256 token carrying the uid. Unknown uids are accepted,
// matching how the managed provider mints tokens.
func (s *Store) MintToken(ctx context.Context, uid string) (string, error) {
	s.mu.Lock()
	s.calls.MintToken++
	err := s.failure("MintToken")
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	if uid == "" {
		return "", errors.New("memstore: empty uid")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": uid,
		"uid": uid,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken validates a token minted by this store and returns its uid
func (s *Store) ParseToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(s.issuer))
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("memstore: unexpected claims")
	}
	uid, _ := claims["uid"].(string)
	if uid == "" {
		return "", errors.New("memstore: token has no uid")
	}
	return uid, nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure("Ping")
}

func (s *Store) lookupEmail(email string) (*domain.Account, error) {
	uid, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *s.byUID[uid]
	return &cp, nil
}

func (s *Store) failure(method string) error {
	return s.Fail[method]
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
