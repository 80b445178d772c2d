// Package token issues and validates HS256 admin session tokens.
package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "walletverify/pkg/domain-errors"
	"walletverify/pkg/requestcontext"
)

// Claims are the JWT claims of an admin session.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RoleAdmin is the only role issued today.
const RoleAdmin = "admin"

// Service signs and validates admin tokens.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
	now        func() time.Time
}

type Option func(*Service)

// WithClock overrides the validation clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(signingKey, issuer, audience string, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a token for subject. Issued-at comes from the request time.
func (s *Service) Issue(ctx context.Context, subject string) (string, *Claims, error) {
	now := requestcontext.Now(ctx)
	claims := &Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign admin token")
	}
	return signed, claims, nil
}

// Validate checks algorithm, signature, expiry, issuer and audience.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "admin token required")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "admin token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid admin token")
	}
	if !parsed.Valid || claims.Role != RoleAdmin {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid admin token")
	}
	return claims, nil
}
