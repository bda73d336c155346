package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pizzeria/internal/metrics"
	"pizzeria/internal/models"
	"pizzeria/internal/repositories"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultTokenTTL    = time.Hour
	DefaultTokenLength = 20
)

// TokenConfig tunes token issuance. Zero values fall back to the defaults.
type TokenConfig struct {
	TTL     time.Duration
	Length  int
	Now     func() time.Time
	Metrics *metrics.Collectors
}

// TokenService issues, verifies, renews and revokes bearer tokens.
type TokenService struct {
	userRepo  repositories.UserRepository
	tokenRepo repositories.TokenRepository
	ttl       time.Duration
	length    int
	now       func() time.Time
	metrics   *metrics.Collectors
}

// NewTokenService creates a new TokenService.
func NewTokenService(userRepo repositories.UserRepository, tokenRepo repositories.TokenRepository, cfg TokenConfig) *TokenService {
	s := &TokenService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		ttl:       cfg.TTL,
		length:    cfg.Length,
		now:       cfg.Now,
		metrics:   cfg.Metrics,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTokenTTL
	}
	if s.length <= 0 {
		s.length = DefaultTokenLength
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Issue authenticates email/password and persists a fresh token.
func (s *TokenService) Issue(ctx context.Context, email, password string) (*models.Token, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &AuthError{Reason: ReasonNotFound}
		}
		return nil, &StorageError{Op: "read user", Err: err}
	}

	if !checkPassword(user.HashedPassword, password) {
		return nil, &AuthError{Reason: ReasonInvalidCredentials}
	}

	id, err := randomString(s.length)
	if err != nil {
		return nil, err
	}
	token := &models.Token{
		ID:      id,
		Email:   user.Email,
		Expires: s.now().Add(s.ttl).UnixMilli(),
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, &StorageError{Op: "create token", Err: err}
	}
	s.metrics.TokenIssued()
	log.WithField("email", user.Email).Info("token issued")
	return token, nil
}

// Get returns a stored token whether or not it has expired.
func (s *TokenService) Get(ctx context.Context, id string) (*models.Token, error) {
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "missing token id"}
	}
	token, err := s.tokenRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("read token", "token", id, err)
	}
	return token, nil
}

// Verify reports whether id names an unexpired token, returning it if so.
func (s *TokenService) Verify(ctx context.Context, id string) (*models.Token, bool) {
	if id == "" {
		return nil, false
	}
	token, err := s.tokenRepo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			log.WithError(err).Warn("token lookup failed")
		}
		return nil, false
	}
	if !token.ValidAt(s.now()) {
		return nil, false
	}
	return token, true
}

// VerifyOwnedBy reports whether id is valid and belongs to email. The
// comparison is exact and case-sensitive.
func (s *TokenService) VerifyOwnedBy(ctx context.Context, id, email string) bool {
	token, ok := s.Verify(ctx, id)
	return ok && token.Email == email
}

// Renew pushes the expiry of a still-valid token to now+TTL.
func (s *TokenService) Renew(ctx context.Context, id string) (*models.Token, error) {
	token, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !token.ValidAt(now) {
		return nil, errInvalidToken
	}
	token.Expires = now.Add(s.ttl).UnixMilli()
	if err := s.tokenRepo.Update(ctx, token); err != nil {
		return nil, storageErr("update token", "token", id, err)
	}
	return token, nil
}

// Revoke deletes the token. Revoking an absent token is not an error.
func (s *TokenService) Revoke(ctx context.Context, id string) error {
	if id == "" {
		return &ValidationError{Field: "id", Message: "missing token id"}
	}
	if err := s.tokenRepo.Delete(ctx, id); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return &StorageError{Op: "delete token", Err: fmt.Errorf("token %s: %w", shortID(id), err)}
	}
	return nil
}

// shortID trims a token id for logs.
func shortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[:6] + "…"
}
