package services

import (
	"context"
	"errors"
	"time"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

const adminSubject = "admin"

// authService implements the AuthService interface for the single admin
type authService struct {
	authAdapter  driven.AuthAdapter
	passwordHash string
	tokenTTL     time.Duration
}

// NewAuthService creates a new AuthService. An empty passwordHash leaves
// the sync trigger unauthenticated.
func NewAuthService(authAdapter driven.AuthAdapter, passwordHash string, tokenTTL time.Duration) driving.AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &authService{
		authAdapter:  authAdapter,
		passwordHash: passwordHash,
		tokenTTL:     tokenTTL,
	}
}

// Enabled reports whether an admin password is configured
func (s *authService) Enabled() bool {
	return s.passwordHash != ""
}

// Login validates the admin password and issues a token
func (s *authService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if req.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	if !s.Enabled() {
		return nil, domain.ErrUnauthorized
	}
	if !s.authAdapter.VerifyPassword(req.Password, s.passwordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL).Unix()
	token, err := s.authAdapter.GenerateToken(&domain.TokenClaims{
		Subject:   adminSubject,
		Role:      domain.RoleAdmin,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}

	return &domain.LoginResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// ValidateToken validates a token and returns the auth context
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.authAdapter.ParseToken(token)
	if errors.Is(err, domain.ErrTokenExpired) {
		return nil, domain.ErrTokenExpired
	}
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if time.Now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}
	if claims.Role != domain.RoleAdmin {
		return nil, domain.ErrUnauthorized
	}

	return &domain.AuthContext{Subject: claims.Subject, Role: claims.Role}, nil
}
