// Package resolver maps provider assertions onto canonical accounts.
package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/identity"
)

// state is one step of a resolution
type state int

const (
	stateLookupByID state = iota
	stateLookupByEmail
	stateCreate
	stateEnrich
	stateDone
)

func (s state) String() string {
	switch s {
	case stateLookupByID:
		return "lookup_by_id"
	case stateLookupByEmail:
		return "lookup_by_email"
	case stateCreate:
		return "create"
	case stateEnrich:
		return "enrich"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// CreatedFunc is called once for every account the resolver creates
type CreatedFunc func(provider domain.Provider)

// Resolver runs the lookup, link, create and enrich sequence against an
// identity store. Steps run strictly in order; each depends on the last.
type Resolver struct {
	store     identity.Store
	log       *zap.Logger
	onCreated CreatedFunc
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithCreatedHook registers a callback for newly created accounts
func WithCreatedHook(fn CreatedFunc) Option {
	return func(r *Resolver) { r.onCreated = fn }
}

// New creates a resolver over store
func New(store identity.Store, opts ...Option) *Resolver {
	r := &Resolver{store: store, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// resolution carries state between steps
type resolution struct {
	assertion domain.Assertion
	uid       string
	account   *domain.Account
	isNew     bool
	retried   bool
}

// Resolve returns the account the assertion belongs to, creating it when no
// account matches by provider uid or by email.
func (r *Resolver) Resolve(ctx context.Context, assertion domain.Assertion) (*domain.Resolution, error) {
	if err := assertion.Validate(); err != nil {
		return nil, err
	}

	res := &resolution{assertion: assertion, uid: assertion.UID()}
	log := r.log.With(zap.String("provider", string(assertion.Provider)), zap.String("uid", res.uid))

	st := stateLookupByID
	for st != stateDone {
		next, err := r.step(ctx, st, res)
		if err != nil {
			log.Warn("identity resolution failed", zap.Stringer("state", st), zap.Error(err))
			return nil, err
		}
		log.Debug("identity resolution step", zap.Stringer("from", st), zap.Stringer("to", next))
		st = next
	}

	return &domain.Resolution{Account: res.account, IsNewAccount: res.isNew}, nil
}

func (r *Resolver) step(ctx context.Context, st state, res *resolution) (state, error) {
	switch st {
	case stateLookupByID:
		return r.lookupByID(ctx, res)
	case stateLookupByEmail:
		return r.lookupByEmail(ctx, res)
	case stateCreate:
		return r.create(ctx, res)
	case stateEnrich:
		return r.enrich(ctx, res)
	}
	return stateDone, fmt.Errorf("resolver: unexpected state %s", st)
}

func (r *Resolver) lookupByID(ctx context.Context, res *resolution) (state, error) {
	account, err := r.store.FindByID(ctx, res.uid)
	switch {
	case err == nil:
		res.account = account
		return stateEnrich, nil
	case identity.IsNotFound(err):
		// Only social assertions link by email. An email assertion names
		// exactly one account, the one the password gateway verified.
		if res.assertion.Provider.IsSocial() && res.assertion.Email != "" {
			return stateLookupByEmail, nil
		}
		return r.afterMiss(res)
	default:
		return stateDone, fmt.Errorf("lookup account by id: %w", err)
	}
}

// lookupByEmail links the assertion to an existing account holding the same
// email, whatever namespace that account's uid is in.
func (r *Resolver) lookupByEmail(ctx context.Context, res *resolution) (state, error) {
	account, err := r.store.FindByEmail(ctx, res.assertion.Email)
	switch {
	case err == nil:
		res.account = account
		return stateEnrich, nil
	case identity.IsNotFound(err):
		return r.afterMiss(res)
	default:
		return stateDone, fmt.Errorf("lookup account by email: %w", err)
	}
}

// afterMiss creates on the first pass. After a create collision both lookups
// were retried and still missed, so the collision is reported.
func (r *Resolver) afterMiss(res *resolution) (state, error) {
	if res.retried {
		return stateDone, fmt.Errorf("create account %s: %w", res.uid, identity.ErrAlreadyExists)
	}
	return stateCreate, nil
}

func (r *Resolver) create(ctx context.Context, res *resolution) (state, error) {
	a := res.assertion
	account, err := r.store.Create(ctx, domain.NewAccount{
		UID:         res.uid,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		PhotoURL:    a.PhotoURL,
	})
	switch {
	case err == nil:
		res.account = account
		res.isNew = true
		if r.onCreated != nil {
			r.onCreated(a.Provider)
		}
		// A fresh account already carries every hint.
		return stateDone, nil
	case identity.IsAlreadyExists(err) && !res.retried:
		// Lost a create race; the winner's account is found by the lookups.
		res.retried = true
		r.log.Info("account create collided, retrying lookup", zap.String("uid", res.uid))
		return stateLookupByID, nil
	default:
		return stateDone, fmt.Errorf("create account: %w", err)
	}
}

func (r *Resolver) enrich(ctx context.Context, res *resolution) (state, error) {
	update := domain.Enrichment(res.account, res.assertion)
	if update.Empty() {
		return stateDone, nil
	}

	account, err := r.store.Update(ctx, res.account.UID, update)
	if err != nil {
		return stateDone, fmt.Errorf("enrich account: %w", err)
	}
	res.account = account
	return stateDone, nil
}
