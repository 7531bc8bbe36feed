package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"warden/internal/domain"
)

// DefaultTokenTTL is the session token lifetime.
const DefaultTokenTTL = time.Hour

type sessionClaims struct {
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 session tokens. Validation layers
// the per-user token validity floor on top of the structural JWT checks, so
// logout revokes every previously issued token at once.
type TokenService struct {
	secret   []byte
	ttl      time.Duration
	validity domain.TokenValidityRepository
	now      func() time.Time
}

func NewTokenService(secret []byte, ttl time.Duration, validity domain.TokenValidityRepository) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: secret, ttl: ttl, validity: validity, now: time.Now}
}

// Issue signs a token for the user, valid from now for the configured TTL.
func (s *TokenService) Issue(userID string) (string, error) {
	now := s.now().UTC()
	claims := sessionClaims{jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Validate returns the user ID carried by a structurally valid, unrevoked
// token. Any structural defect (bad signature, expiry, wrong algorithm,
// missing claims) is an AccessDeniedError raised before the floor lookup; a
// storage fault during the lookup propagates as a plain error so callers
// report a server failure instead of denying access.
func (s *TokenService) Validate(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.ErrAccessDenied("missing session token")
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", domain.ErrAccessDenied("invalid session token")
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return "", domain.ErrAccessDenied("invalid session token")
	}

	floor, err := s.validity.MinValidity(ctx, claims.Subject)
	if err != nil {
		return "", fmt.Errorf("token validity lookup: %w", err)
	}
	// Strictly after: a token issued at the exact revocation instant is out.
	if !claims.IssuedAt.Time.After(floor) {
		return "", domain.ErrAccessDenied("session token has been revoked")
	}

	return claims.Subject, nil
}

// Revoke advances the user's validity floor to now, invalidating every token
// issued up to this instant. Revoking with no live tokens is a harmless no-op.
func (s *TokenService) Revoke(ctx context.Context, userID string) error {
	return s.validity.Advance(ctx, userID, s.now().UTC())
}
