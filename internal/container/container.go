package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"auth-gateway/internal/config"
	"auth-gateway/internal/domain"
	"auth-gateway/internal/identity"
	"auth-gateway/internal/identity/firebase"
	"auth-gateway/internal/identity/memstore"
	"auth-gateway/internal/metrics"
	"auth-gateway/internal/repository"
	"auth-gateway/internal/service"
	"auth-gateway/internal/service/auth"
	"auth-gateway/internal/service/google"
	"auth-gateway/internal/service/kakao"
	"auth-gateway/internal/service/password"
	"auth-gateway/internal/service/ratelimit"
	"auth-gateway/internal/service/resolver"
	"auth-gateway/internal/service/session"
	"auth-gateway/pkg/database"
	"auth-gateway/pkg/logger"
	"auth-gateway/pkg/redis"
)

// healthTimeout bounds each collaborator check
const healthTimeout = 5 * time.Second

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *logger.Logger
	Metrics       *metrics.Collector
	IdentityStore identity.Store
	Profiles      repository.ProfileRepository
	RedisClient   *redis.Client
	DB            *database.PostgresDB
	Services      *service.Services

	closeOnce sync.Once
	closers   []func() error
}

// Components are the outer collaborators. New builds them from config;
// tests pass fakes to NewWithComponents.
type Components struct {
	Store     identity.Store
	Profiles  repository.ProfileRepository
	Password  service.PasswordVerifier
	Verifiers map[domain.Provider]service.AssertionVerifier
	Redis     *redis.Client
	DB        *database.PostgresDB
	Metrics   *metrics.Collector
	Closers   []func() error
}

// New creates a new dependency injection container from configuration
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	comps := Components{Metrics: metrics.NewCollector()}

	// Release whatever was opened if a later step fails
	ok := false
	defer func() {
		if !ok {
			for i := len(comps.Closers) - 1; i >= 0; i-- {
				_ = comps.Closers[i]()
			}
		}
	}()

	var app *firebase.App
	switch cfg.IdentityBackend {
	case config.IdentityBackendFirebase:
		var err error
		app, err = firebase.NewApp(ctx, firebase.Credentials{
			ServiceAccount:     cfg.FirebaseServiceAccount,
			ServiceAccountFile: cfg.FirebaseServiceAccountFile,
			ProjectID:          cfg.FirebaseProjectID,
		})
		if err != nil {
			return nil, err
		}
		comps.Store = firebase.NewStore(app.Auth, cfg.UpstreamTimeout, log.Logger.Named("identity"))
		log.WithField("project_id", app.ProjectID).Info("Firebase identity backend initialized")
	case config.IdentityBackendMemory:
		comps.Store = memstore.New(cfg.TokenSigningSecret)
		log.Warn("Using in-memory identity backend; accounts are lost on restart")
	default:
		return nil, fmt.Errorf("unknown identity backend %q", cfg.IdentityBackend)
	}

	switch cfg.ProfileStore {
	case config.ProfileStoreFirestore:
		if app == nil {
			return nil, fmt.Errorf("firestore profile store needs the firebase identity backend")
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, err
		}
		comps.Closers = append(comps.Closers, client.Close)
		comps.Profiles = repository.NewFirestoreProfileRepository(client, "")
	case config.ProfileStorePostgres:
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL, database.PoolOptions{
			MaxConns:       int32(cfg.DatabaseMaxConns),
			ConnectTimeout: cfg.UpstreamTimeout,
		})
		if err != nil {
			return nil, err
		}
		comps.DB = db
		comps.Closers = append(comps.Closers, func() error { db.Close(); return nil })
		comps.Profiles = repository.NewProfileRepository(db.Pool)
		if err := comps.Metrics.RegisterPool(db.Pool); err != nil {
			log.WithError(err).Warn("Failed to register database pool metrics")
		}
	default:
		comps.Profiles = repository.NewNoopProfileRepository()
	}
	log.WithField("profile_store", comps.Profiles.Name()).Info("Profile store initialized")

	// Rate limiting is optional; without Redis every request is allowed
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger.Named("redis"))
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, proceeding without rate limiting")
		} else {
			comps.Redis = client
			comps.Closers = append(comps.Closers, client.Close)
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, proceeding without rate limiting")
	}

	googleVerifier, err := google.NewVerifier(ctx, cfg.GoogleClientID, cfg.UpstreamTimeout, log.Logger.Named("google"))
	if err != nil {
		return nil, err
	}
	kakaoClient := kakao.NewClient(kakao.Config{
		BaseURL:              cfg.KakaoAPIBaseURL,
		Timeout:              cfg.UpstreamTimeout,
		RequireVerifiedEmail: cfg.KakaoRequireVerifiedEmail,
	}, nil, log.Logger.Named("kakao"))

	comps.Verifiers = map[domain.Provider]service.AssertionVerifier{
		domain.ProviderGoogle: googleVerifier,
		domain.ProviderKakao:  kakaoClient,
	}
	comps.Password = password.NewGateway(cfg.IdentityToolkitBaseURL, cfg.FirebaseAPIKey, cfg.UpstreamTimeout, log.WithField("component", "password"))

	c := NewWithComponents(cfg, log, comps)
	ok = true
	return c, nil
}

// NewWithComponents wires the services on top of the given collaborators
func NewWithComponents(cfg *config.Config, log *logger.Logger, comps Components) *Container {
	if comps.Metrics == nil {
		comps.Metrics = metrics.NewCollector()
	}
	if comps.Profiles == nil {
		comps.Profiles = repository.NewNoopProfileRepository()
	}

	res := resolver.New(comps.Store,
		resolver.WithLogger(log.Logger.Named("resolver")),
		resolver.WithCreatedHook(comps.Metrics.AccountCreated),
	)
	issuer := session.NewIssuer(comps.Store)

	registry := auth.NewRegistry()
	for provider, verifier := range comps.Verifiers {
		registry.Register(provider, verifier)
	}

	authService := auth.NewService(auth.Dependencies{
		Store:     comps.Store,
		Resolver:  res,
		Session:   issuer,
		Password:  comps.Password,
		Verifiers: registry,
		Profiles:  comps.Profiles,
		Observer:  comps.Metrics,
		Logger:    log,
	})

	services := &service.Services{
		Auth:     authService,
		Resolver: res,
		Session:  issuer,
	}
	if comps.Redis != nil {
		services.RateLimit = ratelimit.NewLimiter(comps.Redis, comps.Redis.KeyBuilder,
			int64(cfg.RateLimitRequests), cfg.RateLimitWindow, log.Logger.Named("ratelimit"))
	}

	return &Container{
		Config:        cfg,
		Logger:        log,
		Metrics:       comps.Metrics,
		IdentityStore: comps.Store,
		Profiles:      comps.Profiles,
		RedisClient:   comps.Redis,
		DB:            comps.DB,
		Services:      services,
		closers:       comps.Closers,
	}
}

// GetAuthService returns the auth service
func (c *Container) GetAuthService() service.AuthService {
	return c.Services.Auth
}

// GetRateLimiter returns the limiter, or a nil interface when Redis is not
// configured
func (c *Container) GetRateLimiter() service.RateLimiter {
	if c.Services.RateLimit == nil {
		return nil
	}
	return c.Services.RateLimit
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetMetrics returns the metrics collector
func (c *Container) GetMetrics() *metrics.Collector {
	return c.Metrics
}

// CheckConnections runs at boot. It checks every collaborator concurrently
// and writes the profile store's startup marker. The map holds "ok" or the
// error text per collaborator; the error is the first failure.
func (c *Container) CheckConnections(ctx context.Context) (map[string]string, error) {
	return runChecks(ctx, c.checks(c.Profiles.MarkStartup))
}

// Health is the read-only variant of CheckConnections served on /health
func (c *Container) Health(ctx context.Context) (map[string]string, error) {
	return runChecks(ctx, c.checks(c.Profiles.Ping))
}

type check struct {
	name string
	fn   func(context.Context) error
}

func (c *Container) checks(profiles func(context.Context) error) []check {
	checks := []check{
		{name: "identity", fn: c.IdentityStore.Ping},
		{name: "profiles:" + c.Profiles.Name(), fn: profiles},
	}
	if c.DB != nil {
		checks = append(checks, check{name: "postgres", fn: c.DB.Health})
	}
	if c.RedisClient != nil {
		checks = append(checks, check{name: "redis", fn: c.RedisClient.Health})
	}
	return checks
}

func runChecks(ctx context.Context, checks []check) (map[string]string, error) {
	var mu sync.Mutex
	results := make(map[string]string, len(checks))

	// A plain group so one failure does not cancel the other checks
	var g errgroup.Group
	for _, ch := range checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, healthTimeout)
			defer cancel()

			err := ch.fn(cctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[ch.name] = err.Error()
				return fmt.Errorf("%s: %w", ch.name, err)
			}
			results[ch.name] = "ok"
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// Close releases every client the container opened, in reverse order
func (c *Container) Close() error {
	var firstErr error
	c.closeOnce.Do(func() {
		for i := len(c.closers) - 1; i >= 0; i-- {
			if err := c.closers[i](); err != nil {
				c.Logger.WithError(err).Warn("Failed to close resource")
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	})
	return firstErr
}
