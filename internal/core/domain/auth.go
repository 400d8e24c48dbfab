package domain

// Role of an API caller. Only the admin role exists: the browsing API is
// public and only sync triggering is guarded.
type Role string

const RoleAdmin Role = "admin"

// TokenClaims holds the claims of an issued API token
type TokenClaims struct {
	Subject   string `json:"sub"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// LoginRequest is the body of an admin login
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse carries an issued token
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// AuthContext is the authenticated caller attached to a request
type AuthContext struct {
	Subject string `json:"subject"`
	Role    Role   `json:"role"`
}

// IsAdmin reports whether the caller may trigger syncs.
func (a *AuthContext) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}
