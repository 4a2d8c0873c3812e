// Package firebase adapts Firebase Authentication to the identity.Store port.
package firebase

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/identity"
)

// authClient is the subset of *auth.Client the store calls
type authClient interface {
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
	CustomToken(ctx context.Context, uid string) (string, error)
	Users(ctx context.Context, nextPageToken string) *auth.UserIterator
}

// Store implements identity.Store on Firebase Auth
type Store struct {
	client  authClient
	timeout time.Duration
	log     *zap.Logger
}

// NewStore wraps an auth client. Every call runs under timeout.
func NewStore(client authClient, timeout time.Duration, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{client: client, timeout: timeout, log: log}
}

func (s *Store) FindByID(ctx context.Context, uid string) (*domain.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	record, err := s.client.GetUser(ctx, uid)
	s.observe("firebase_get_user", start, err)
	if err != nil {
		return nil, translate(err)
	}
	return toAccount(record), nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	record, err := s.client.GetUserByEmail(ctx, email)
	s.observe("firebase_get_user_by_email", start, err)
	if err != nil {
		return nil, translate(err)
	}
	return toAccount(record), nil
}

func (s *Store) Create(ctx context.Context, in domain.NewAccount) (*domain.Account, error) {
	params := &auth.UserToCreate{}
	if in.UID != "" {
		params = params.UID(in.UID)
	}
	if in.Email != "" {
		params = params.Email(in.Email)
	}
	if in.Password != "" {
		params = params.Password(in.Password)
	}
	if in.DisplayName != "" {
		params = params.DisplayName(in.DisplayName)
	}
	if in.PhotoURL != "" {
		params = params.PhotoURL(in.PhotoURL)
	}
	if in.PhoneNumber != "" {
		params = params.PhoneNumber(in.PhoneNumber)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	record, err := s.client.CreateUser(ctx, params)
	s.observe("firebase_create_user", start, err)
	if err != nil {
		return nil, translate(err)
	}
	return toAccount(record), nil
}

func (s *Store) Update(ctx context.Context, uid string, update domain.AccountUpdate) (*domain.Account, error) {
	params := &auth.UserToUpdate{}
	if update.DisplayName != nil {
		params = params.DisplayName(*update.DisplayName)
	}
	if update.PhotoURL != nil {
		params = params.PhotoURL(*update.PhotoURL)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	record, err := s.client.UpdateUser(ctx, uid, params)
	s.observe("firebase_update_user", start, err)
	if err != nil {
		return nil, translate(err)
	}
	return toAccount(record), nil
}

func (s *Store) MintToken(ctx context.Context, uid string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	token, err := s.client.CustomToken(ctx, uid)
	s.observe("firebase_custom_token", start, err)
	if err != nil {
		return "", fmt.Errorf("firebase: mint custom token: %w", err)
	}
	return token, nil
}

// Ping lists at most one account. An empty project counts as reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	_, err := s.client.Users(ctx, "").Next()
	if err == iterator.Done {
		err = nil
	}
	s.observe("firebase_list_users", start, err)
	if err != nil {
		return fmt.Errorf("firebase: list users: %w", err)
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) observe(op string, start time.Time, err error) {
	dur := time.Since(start)
	if err != nil && !auth.IsUserNotFound(err) {
		s.log.Warn(op, zap.Duration("duration", dur), zap.Error(err))
		return
	}
	s.log.Debug(op, zap.Duration("duration", dur))
}

// translate maps Firebase error codes onto the identity sentinels
func translate(err error) error {
	switch {
	case auth.IsUserNotFound(err):
		return fmt.Errorf("%w: %v", identity.ErrNotFound, err)
	case auth.IsUIDAlreadyExists(err), auth.IsEmailAlreadyExists(err):
		return fmt.Errorf("%w: %v", identity.ErrAlreadyExists, err)
	default:
		return err
	}
}

func toAccount(record *auth.UserRecord) *domain.Account {
	if record == nil || record.UserInfo == nil {
		return &domain.Account{}
	}
	return &domain.Account{
		UID:         record.UID,
		Email:       record.Email,
		DisplayName: record.DisplayName,
		PhoneNumber: record.PhoneNumber,
		PhotoURL:    record.PhotoURL,
	}
}
