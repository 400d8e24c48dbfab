package driving

import (
	"context"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
)

// AuthService guards the sync trigger
type AuthService interface {
	// Enabled reports whether an admin password is configured. When it is
	// not, the sync trigger is open.
	Enabled() bool

	// Login exchanges the admin password for a token
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)

	// ValidateToken validates a token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)
}
