package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

// Ensure Adapter implements AuthAdapter
var _ driven.AuthAdapter = (*Adapter)(nil)

const issuer = "tg-bookmarks"

// jwtClaims carries the role next to the registered claims
type jwtClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Adapter handles authentication operations using bcrypt and JWT
type Adapter struct {
	jwtSecret  []byte
	bcryptCost int
}

// NewAdapter creates a new auth adapter with the given JWT secret
func NewAdapter(jwtSecret string) *Adapter {
	return NewAdapterWithCost(jwtSecret, bcrypt.DefaultCost)
}

// NewAdapterWithCost creates a new auth adapter with custom bcrypt cost
func NewAdapterWithCost(jwtSecret string, bcryptCost int) *Adapter {
	return &Adapter{
		jwtSecret:  []byte(jwtSecret),
		bcryptCost: bcryptCost,
	}
}

// HashPassword generates a bcrypt hash from a plaintext password
func (a *Adapter) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks if a password matches a bcrypt hash
func (a *Adapter) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken signs claims with HS256
func (a *Adapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	jc := jwtClaims{
		Role: claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jc)
	return token.SignedString(a.jwtSecret)
}

// ParseToken validates a JWT and extracts domain claims.
// Expired tokens return domain.ErrTokenExpired, anything else
// unacceptable returns domain.ErrTokenInvalid.
func (a *Adapter) ParseToken(tokenString string) (*domain.TokenClaims, error) {
	var jc jwtClaims
	token, err := jwt.ParseWithClaims(tokenString, &jc, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, domain.ErrTokenInvalid
	}

	claims := &domain.TokenClaims{
		Subject:   jc.Subject,
		Role:      jc.Role,
		ExpiresAt: jc.ExpiresAt.Unix(),
	}
	if jc.IssuedAt != nil {
		claims.IssuedAt = jc.IssuedAt.Unix()
	}
	return claims, nil
}
