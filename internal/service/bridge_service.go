package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pf-nexus/papermark/internal/domain"
	"github.com/pf-nexus/papermark/internal/observability"
	"github.com/pf-nexus/papermark/internal/port"
	"github.com/pf-nexus/papermark/internal/session"
)

// provisionTimeout bounds a coalesced provisioning call, which runs detached
// from the cancellation of whichever request started it.
const provisionTimeout = 10 * time.Second

// TokenKind tells the caller which cookie a BridgeResult token belongs in.
type TokenKind string

const (
	TokenKindSession TokenKind = "session"
	TokenKindHandoff TokenKind = "handoff"
)

// BridgeResult is the outcome of a successful bridge or handoff exchange.
type BridgeResult struct {
	User      *domain.User
	Account   *domain.Account
	IsNewUser bool
	Token     string
	ExpiresAt time.Time
	Kind      TokenKind
}

// BridgeSettings configures token lifetimes and the session strategy.
type BridgeSettings struct {
	Mode          domain.BridgeMode
	SessionMaxAge time.Duration
	HandoffTTL    time.Duration
}

// BridgeService turns an upstream session into a local one.
type BridgeService interface {
	// Bridge validates the upstream token, provisions the local user and
	// account link, and mints a session token (or a handoff token in handoff
	// mode). Failures are *domain.BridgeError.
	Bridge(ctx context.Context, upstreamToken string) (*BridgeResult, error)
	// CompleteHandoff redeems a handoff token, once, for a session token.
	CompleteHandoff(ctx context.Context, handoffToken string) (*BridgeResult, error)
}

type bridgeService struct {
	validator port.UpstreamValidator
	users     port.UserRepository
	accounts  port.AccountRepository
	handoffs  port.HandoffStore
	codec     *session.Codec
	settings  BridgeSettings
	metrics   *observability.Metrics
	group     singleflight.Group
	now       func() time.Time
}

// NewBridgeService creates a new BridgeService implementation.
func NewBridgeService(
	validator port.UpstreamValidator,
	users port.UserRepository,
	accounts port.AccountRepository,
	handoffs port.HandoffStore,
	codec *session.Codec,
	settings BridgeSettings,
	metrics *observability.Metrics,
) BridgeService {
	return &bridgeService{
		validator: validator,
		users:     users,
		accounts:  accounts,
		handoffs:  handoffs,
		codec:     codec,
		settings:  settings,
		metrics:   metrics,
		now:       time.Now,
	}
}

type provisioned struct {
	user      *domain.User
	account   *domain.Account
	isNewUser bool
}

func (s *bridgeService) Bridge(ctx context.Context, upstreamToken string) (*BridgeResult, error) {
	if upstreamToken == "" {
		return nil, domain.NewBridgeError(domain.KindMissingUpstreamSession, domain.ErrUnauthorized)
	}

	profile, err := s.validate(ctx, upstreamToken)
	if err != nil {
		return nil, err
	}

	// Concurrent first bridges for one email share a single provisioning run;
	// across processes the unique constraints decide.
	v, err, _ := s.group.Do(profile.Email, func() (interface{}, error) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), provisionTimeout)
		defer cancel()
		return s.provision(pctx, profile)
	})
	if err != nil {
		return nil, domain.NewBridgeError(domain.KindProvisioningError, err)
	}
	p := v.(*provisioned)

	result := &BridgeResult{User: p.user, Account: p.account, IsNewUser: p.isNewUser}
	if s.settings.Mode == domain.BridgeModeHandoff {
		err = s.mint(result, session.NewHandoffClaims(p.user.ID), s.settings.HandoffTTL, TokenKindHandoff)
	} else {
		err = s.mint(result, session.NewSessionClaims(p.user), s.settings.SessionMaxAge, TokenKindSession)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *bridgeService) validate(ctx context.Context, token string) (*domain.UpstreamProfile, error) {
	start := s.now()
	profile, err := s.validator.Validate(ctx, token)
	elapsed := s.now().Sub(start)

	switch {
	case err == nil && (profile == nil || profile.ID == "" || profile.Email == ""):
		s.metrics.UpstreamRequest("malformed", elapsed)
		return nil, domain.NewBridgeError(domain.KindMalformedUpstreamProfile, domain.ErrMalformedProfile)
	case err == nil:
		s.metrics.UpstreamRequest("ok", elapsed)
		return profile, nil
	case errors.Is(err, domain.ErrMalformedProfile):
		s.metrics.UpstreamRequest("malformed", elapsed)
		return nil, domain.NewBridgeError(domain.KindMalformedUpstreamProfile, err)
	case errors.Is(err, domain.ErrUpstreamRejected):
		s.metrics.UpstreamRequest("rejected", elapsed)
	default:
		s.metrics.UpstreamRequest("unavailable", elapsed)
	}
	return nil, domain.NewBridgeError(domain.KindUpstreamValidationFailed, err)
}

func (s *bridgeService) provision(ctx context.Context, profile *domain.UpstreamProfile) (*provisioned, error) {
	isNewUser := false
	user, err := s.users.GetByEmail(ctx, profile.Email)
	if errors.Is(err, domain.ErrNotFound) {
		candidate := &domain.User{
			Email: profile.Email,
			Name:  profile.FullName(),
		}
		if profile.IsEmailVerified() {
			verifiedAt := s.now().UTC()
			candidate.EmailVerifiedAt = &verifiedAt
		}
		user, isNewUser, err = s.users.CreateIfAbsent(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("bridge.provision user: %w", err)
		}
		if isNewUser {
			s.metrics.Provisioned("user")
		}
	} else if err != nil {
		return nil, fmt.Errorf("bridge.provision user lookup: %w", err)
	}

	account, err := s.accounts.GetByUserAndProvider(ctx, user.ID, domain.AuthProviderPFNexus)
	if errors.Is(err, domain.ErrNotFound) {
		var created bool
		account, created, err = s.accounts.CreateIfAbsent(ctx, &domain.Account{
			UserID:            user.ID,
			Type:              domain.AccountTypeOAuth,
			Provider:          domain.AuthProviderPFNexus,
			ProviderAccountID: profile.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("bridge.provision account: %w", err)
		}
		if created {
			s.metrics.Provisioned("account")
		}
	} else if err != nil {
		return nil, fmt.Errorf("bridge.provision account lookup: %w", err)
	}

	return &provisioned{user: user, account: account, isNewUser: isNewUser}, nil
}

func (s *bridgeService) mint(result *BridgeResult, claims session.Claims, maxAge time.Duration, kind TokenKind) error {
	token, err := s.codec.Encode(claims, maxAge)
	if err != nil {
		return domain.NewBridgeError(domain.KindTokenEncodingError, err)
	}
	result.Token = token
	result.ExpiresAt = s.now().Add(maxAge)
	result.Kind = kind
	return nil
}

func (s *bridgeService) CompleteHandoff(ctx context.Context, handoffToken string) (*BridgeResult, error) {
	claims, err := s.codec.Decode(handoffToken, session.AudienceHandoff)
	if err != nil {
		return nil, domain.NewBridgeError(domain.KindHandoffInvalid, fmt.Errorf("%w: %v", domain.ErrHandoffInvalid, err))
	}

	ttl := time.Until(claims.ExpiresAtTime())
	if ttl < time.Second {
		ttl = time.Second
	}
	fresh, err := s.handoffs.Consume(ctx, claims.ID, ttl)
	if err != nil {
		return nil, domain.NewBridgeError(domain.KindHandoffInvalid, fmt.Errorf("%w: %v", domain.ErrHandoffInvalid, err))
	}
	if !fresh {
		return nil, domain.NewBridgeError(domain.KindHandoffInvalid, fmt.Errorf("%w: replayed", domain.ErrHandoffInvalid))
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewBridgeError(domain.KindHandoffInvalid, fmt.Errorf("%w: unknown user", domain.ErrHandoffInvalid))
		}
		return nil, domain.NewBridgeError(domain.KindProvisioningError, err)
	}

	result := &BridgeResult{User: user}
	if err := s.mint(result, session.NewSessionClaims(user), s.settings.SessionMaxAge, TokenKindSession); err != nil {
		return nil, err
	}
	return result, nil
}
