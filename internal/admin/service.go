// Package admin gates operator endpoints.
//
// Operators log in with the static credential from configuration and receive
// a short-lived HS256 token. Every admin request presents either that token as
// "Bearer <jwt>" or, when configured, the static break-glass token.
package admin

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"
	"time"

	"walletverify/internal/admin/token"
	dErrors "walletverify/pkg/domain-errors"
	"walletverify/pkg/requestcontext"
	"walletverify/pkg/secrets"
)

// Authentication methods recorded on a Principal.
const (
	MethodJWT         = "jwt"
	MethodStaticToken = "static_token"
)

// Principal is an authenticated operator.
type Principal struct {
	Subject string
	Method  string
}

// Authorizer decides whether a credential grants admin access.
type Authorizer interface {
	Authorize(ctx context.Context, credential string) (Principal, error)
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	TokenType string
	Subject   string
	ExpiresAt time.Time
}

// Config holds the static operator credential. Password is hashed at startup;
// PasswordHash, when set, is a bcrypt hash used as is.
type Config struct {
	Username     string
	Password     string
	PasswordHash string
	StaticToken  string
}

// Service implements login and Authorizer.
type Service struct {
	username     []byte
	passwordHash string
	staticToken  []byte
	tokens       *token.Service
	logger       *slog.Logger
	metrics      *Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New builds the gate. Login is disabled when no username is configured.
func New(cfg Config, tokens *token.Service, opts ...Option) (*Service, error) {
	s := &Service{
		username:    []byte(cfg.Username),
		staticToken: []byte(cfg.StaticToken),
		tokens:      tokens,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case cfg.Username == "":
	case cfg.PasswordHash != "":
		if !secrets.IsHash(cfg.PasswordHash) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "admin password hash is not a bcrypt hash")
		}
		s.passwordHash = cfg.PasswordHash
	case cfg.Password != "":
		hash, err := secrets.Hash(cfg.Password)
		if err != nil {
			return nil, err
		}
		s.passwordHash = hash
	}
	return s, nil
}

// LoginEnabled reports whether a static credential is configured.
func (s *Service) LoginEnabled() bool {
	return len(s.username) > 0 && len(s.passwordHash) > 0
}

// Login checks the static credential and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	if !s.LoginEnabled() {
		s.metrics.incLogin("disabled")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "admin login is not configured")
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), s.username) == 1
	// bcrypt runs even for a wrong username so both failures take the same time.
	passErr := secrets.Verify(password, s.passwordHash)
	if !userOK || passErr != nil {
		s.metrics.incLogin("failure")
		s.logger.WarnContext(ctx, "admin login failed",
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	signed, claims, err := s.tokens.Issue(ctx, username)
	if err != nil {
		return nil, err
	}
	s.metrics.incLogin("success")
	s.logger.InfoContext(ctx, "admin logged in",
		"subject", username,
		"jti", claims.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &Session{
		Token:     signed,
		TokenType: "Bearer",
		Subject:   username,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Authorize accepts "Bearer <jwt>", or the static token when one is configured.
func (s *Service) Authorize(_ context.Context, credential string) (Principal, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Principal{}, dErrors.New(dErrors.CodeUnauthorized, "admin credential required")
	}

	if scheme, raw, ok := strings.Cut(credential, " "); ok && strings.EqualFold(scheme, "Bearer") {
		claims, err := s.tokens.Validate(strings.TrimSpace(raw))
		s.metrics.incAuthorization(MethodJWT, err == nil)
		if err != nil {
			return Principal{}, err
		}
		return Principal{Subject: claims.Subject, Method: MethodJWT}, nil
	}

	ok := len(s.staticToken) > 0 && subtle.ConstantTimeCompare([]byte(credential), s.staticToken) == 1
	s.metrics.incAuthorization(MethodStaticToken, ok)
	if !ok {
		return Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid admin credential")
	}
	return Principal{Subject: "static-token", Method: MethodStaticToken}, nil
}
