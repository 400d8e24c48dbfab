package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven/mocks"
)

func newTestAuthService(hash string) (*mocks.MockAuthAdapter, *authService) {
	authAdapter := mocks.NewMockAuthAdapter()
	svc := NewAuthService(authAdapter, hash, time.Hour).(*authService)
	return authAdapter, svc
}

func TestAuthService_Enabled(t *testing.T) {
	_, off := newTestAuthService("")
	if off.Enabled() {
		t.Error("expected auth disabled without a hash")
	}
	_, on := newTestAuthService("hashed:secret")
	if !on.Enabled() {
		t.Error("expected auth enabled")
	}
}

func TestAuthService_Login(t *testing.T) {
	tests := []struct {
		name    string
		hash    string
		req     domain.LoginRequest
		wantErr error
	}{
		{"valid password", "hashed:secret", domain.LoginRequest{Password: "secret"}, nil},
		{"wrong password", "hashed:secret", domain.LoginRequest{Password: "nope"}, domain.ErrInvalidCredentials},
		{"empty password", "hashed:secret", domain.LoginRequest{}, domain.ErrInvalidInput},
		{"auth disabled", "", domain.LoginRequest{Password: "secret"}, domain.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, svc := newTestAuthService(tt.hash)
			resp, err := svc.Login(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected token")
			}
			if resp.ExpiresAt <= time.Now().Unix() {
				t.Error("expected expiry in the future")
			}
		})
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	_, svc := newTestAuthService("hashed:secret")

	resp, err := svc.Login(context.Background(), domain.LoginRequest{Password: "secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	authCtx, err := svc.ValidateToken(context.Background(), resp.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !authCtx.IsAdmin() || authCtx.Subject != "admin" {
		t.Errorf("unexpected auth context %+v", authCtx)
	}

	expired := fmt.Sprintf("token:admin:admin:%d", time.Now().Add(-time.Minute).Unix())
	viewer := fmt.Sprintf("token:bob:viewer:%d", time.Now().Add(time.Hour).Unix())

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty", "", domain.ErrTokenInvalid},
		{"garbage", "not-a-token", domain.ErrTokenInvalid},
		{"expired", expired, domain.ErrTokenExpired},
		{"non-admin", viewer, domain.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ValidateToken(context.Background(), tt.token); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAuthService_ValidateToken_AdapterExpiry(t *testing.T) {
	adapter, svc := newTestAuthService("hashed:secret")
	adapter.ParseTokenFn = func(string) (*domain.TokenClaims, error) {
		return nil, domain.ErrTokenExpired
	}
	if _, err := svc.ValidateToken(context.Background(), "x"); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}
