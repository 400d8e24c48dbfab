package mocks

import (
	"fmt"
	"strings"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

var _ driven.AuthAdapter = (*MockAuthAdapter)(nil)

// MockAuthAdapter is a reversible, insecure AuthAdapter for testing.
// Hashes are "hashed:<password>" and tokens are "token:<subject>:<role>:<exp>".
type MockAuthAdapter struct {
	ParseTokenFn func(token string) (*domain.TokenClaims, error)
}

// NewMockAuthAdapter creates a new MockAuthAdapter
func NewMockAuthAdapter() *MockAuthAdapter {
	return &MockAuthAdapter{}
}

func (m *MockAuthAdapter) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

func (m *MockAuthAdapter) VerifyPassword(password, hash string) bool {
	return hash == "hashed:"+password
}

func (m *MockAuthAdapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	return fmt.Sprintf("token:%s:%s:%d", claims.Subject, claims.Role, claims.ExpiresAt), nil
}

func (m *MockAuthAdapter) ParseToken(token string) (*domain.TokenClaims, error) {
	if m.ParseTokenFn != nil {
		return m.ParseTokenFn(token)
	}
	parts := strings.Split(token, ":")
	if len(parts) != 4 || parts[0] != "token" {
		return nil, domain.ErrTokenInvalid
	}
	var exp int64
	if _, err := fmt.Sscanf(parts[3], "%d", &exp); err != nil {
		return nil, domain.ErrTokenInvalid
	}
	return &domain.TokenClaims{Subject: parts[1], Role: domain.Role(parts[2]), ExpiresAt: exp}, nil
}
