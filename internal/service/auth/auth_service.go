package auth

import (
	"context"
	"strings"
	"time"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/identity"
	"auth-gateway/internal/metrics"
	"auth-gateway/internal/repository"
	"auth-gateway/internal/service"
	"auth-gateway/pkg/errors"
	"auth-gateway/pkg/logger"
	"auth-gateway/pkg/utils"
)

// Observer receives login telemetry
type Observer interface {
	LoginAttempt(provider domain.Provider, outcome string)
	AccountCreated(provider domain.Provider)
}

type nopObserver struct{}

func (nopObserver) LoginAttempt(domain.Provider, string) {}
func (nopObserver) AccountCreated(domain.Provider)       {}

// Dependencies are the collaborators the auth service orchestrates
type Dependencies struct {
	Store     identity.Store
	Resolver  service.IdentityResolver
	Session   service.SessionIssuer
	Password  service.PasswordVerifier
	Verifiers *Registry
	Profiles  repository.ProfileRepository
	Observer  Observer
	Logger    *logger.Logger
}

// Service implements the AuthService interface
type Service struct {
	store     identity.Store
	resolver  service.IdentityResolver
	session   service.SessionIssuer
	password  service.PasswordVerifier
	verifiers *Registry
	profiles  repository.ProfileRepository
	observer  Observer
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates a new auth service
func NewService(deps Dependencies) *Service {
	s := &Service{
		store:     deps.Store,
		resolver:  deps.Resolver,
		session:   deps.Session,
		password:  deps.Password,
		verifiers: deps.Verifiers,
		profiles:  deps.Profiles,
		observer:  deps.Observer,
		logger:    deps.Logger,
		now:       time.Now,
	}
	if s.verifiers == nil {
		s.verifiers = NewRegistry()
	}
	if s.profiles == nil {
		s.profiles = repository.NewNoopProfileRepository()
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	return s
}

var _ service.AuthService = (*Service)(nil)

// Register creates an email account directly with the identity provider.
// A duplicate email is reported as an internal failure.
func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (result *domain.AuthResult, err error) {
	defer s.observe(domain.ProviderEmail, &err)

	if missing := req.MissingFields(); len(missing) > 0 {
		return nil, errors.NewValidationError("email and password are required", map[string]interface{}{"missing": missing})
	}

	email := strings.TrimSpace(req.Email)
	phone := strings.TrimSpace(req.Phone)
	accountPhone := ""
	if phone != "" {
		if e164, perr := utils.ToE164(phone); perr == nil {
			accountPhone = e164
			phone = e164
		} else {
			s.logger.WithError(perr).Debug("phone kept on profile only")
		}
	}

	account, err := s.store.Create(ctx, domain.NewAccount{
		Email:       email,
		Password:    req.Password,
		DisplayName: domain.CleanDisplayName(req.DisplayName()),
		PhoneNumber: accountPhone,
	})
	if err != nil {
		if identity.IsAlreadyExists(err) {
			return nil, errors.NewInternalError("email is already registered", err)
		}
		return nil, errors.NewInternalError("failed to create account", err)
	}
	s.observer.AccountCreated(domain.ProviderEmail)

	profile := domain.NewProfile(domain.ProfileInput{
		UID:       account.UID,
		Email:     account.Email,
		Name:      strings.TrimSpace(req.Name),
		Nickname:  strings.TrimSpace(req.Nickname),
		Phone:     phone,
		Birthdate: strings.TrimSpace(req.Birthdate),
		Gender:    strings.TrimSpace(req.Gender),
		Provider:  domain.ProviderEmail,
	}, s.now())

	return s.finish(ctx, account, profile, true)
}

// Login verifies credentials with the password gateway. A verified identity
// without an account record gets a minimal one.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (result *domain.AuthResult, err error) {
	defer s.observe(domain.ProviderEmail, &err)

	if missing := req.MissingFields(); len(missing) > 0 {
		return nil, errors.NewValidationError("email and password are required", map[string]interface{}{"missing": missing})
	}

	verified, err := s.password.VerifyPassword(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return nil, err
	}

	email := verified.Email
	if email == "" {
		email = strings.TrimSpace(req.Email)
	}
	resolution, err := s.resolver.Resolve(ctx, domain.Assertion{
		Provider:  domain.ProviderEmail,
		SubjectID: verified.LocalID,
		Email:     email,
	})
	if err != nil {
		return nil, asAppError(err, "failed to load account")
	}

	account := resolution.Account
	profile := domain.NewProfile(domain.ProfileInput{
		UID:      account.UID,
		Email:    account.Email,
		Name:     account.DisplayName,
		Phone:    account.PhoneNumber,
		Provider: domain.ProviderEmail,
	}, s.now())

	return s.finish(ctx, account, profile, resolution.IsNewAccount)
}

// SocialLogin verifies a provider token and resolves it to one account
func (s *Service) SocialLogin(ctx context.Context, provider domain.Provider, token string) (result *domain.AuthResult, err error) {
	defer s.observe(provider, &err)

	if strings.TrimSpace(token) == "" {
		return nil, errors.NewValidationError("provider token is required", nil)
	}
	verifier, err := s.verifiers.Get(provider)
	if err != nil {
		return nil, err
	}

	assertion, err := verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	resolution, err := s.resolver.Resolve(ctx, *assertion)
	if err != nil {
		return nil, asAppError(err, "failed to resolve account")
	}

	account := resolution.Account
	s.logger.WithFields(map[string]interface{}{
		"provider":       string(provider),
		"uid":            account.UID,
		"is_new_account": resolution.IsNewAccount,
		"linked":         account.UID != assertion.UID(),
	}).Info("social login resolved")

	profile := domain.NewProfile(domain.ProfileInput{
		UID:      account.UID,
		Email:    account.Email,
		Name:     account.DisplayName,
		Phone:    account.PhoneNumber,
		Provider: provider,
	}, s.now())

	return s.finish(ctx, account, profile, resolution.IsNewAccount)
}

// finish upserts the profile document and mints the credential. Either
// step failing fails the whole login.
func (s *Service) finish(ctx context.Context, account *domain.Account, profile *domain.Profile, isNew bool) (*domain.AuthResult, error) {
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, errors.NewInternalError("failed to save user profile", err)
	}

	token, err := s.session.Issue(ctx, account.UID)
	if err != nil {
		return nil, errors.NewInternalError("failed to issue credential", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"uid":            account.UID,
		"provider":       string(profile.Provider),
		"is_new_account": isNew,
	}).Debug("credential issued")

	return &domain.AuthResult{User: account, CustomToken: token, IsNewAccount: isNew}, nil
}

func (s *Service) observe(provider domain.Provider, errp *error) {
	err := *errp
	switch {
	case err == nil:
		s.observer.LoginAttempt(provider, metrics.OutcomeSuccess)
	case isClientError(err):
		s.observer.LoginAttempt(provider, metrics.OutcomeRejected)
	default:
		s.observer.LoginAttempt(provider, metrics.OutcomeError)
		s.logger.WithField("provider", string(provider)).WithError(err).Error("login failed")
	}
}

func isClientError(err error) bool {
	appErr, ok := errors.FromError(err)
	if !ok {
		return false
	}
	switch appErr.Type {
	case errors.ErrorTypeValidation, errors.ErrorTypeAuthentication:
		return true
	}
	return false
}

// asAppError keeps typed errors and wraps everything else as internal
func asAppError(err error, message string) error {
	if _, ok := errors.FromError(err); ok {
		return err
	}
	return errors.NewInternalError(message, err)
}
