package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleUser     Role = "user"
	RoleApprover Role = "approver"
	RoleAdmin    Role = "admin"
)

func ParseRole(s string) Role {
	switch Role(s) {
	case RoleApprover, RoleAdmin:
		return Role(s)
	default:
		return RoleUser
	}
}

// User is the authenticated caller as seen by the rest of the service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsReviewer reports whether the caller may see every request and change
// statuses.
func (u *User) IsReviewer() bool {
	return u != nil && (u.Role == RoleApprover || u.Role == RoleAdmin)
}

// Credentials is what the repository returns for password verification.
type Credentials struct {
	UserID       string
	Email        string
	FullName     string
	PasswordHash string
}

type AuthTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type Session struct {
	AuthTokens
	User SessionUser `json:"user"`
}

type SessionUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims represents JWT token claims. RegisteredClaims.ID carries the token id
// used for revocation.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(userID, email string) (token string, expiresAt time.Time, err error)
	GenerateRefreshToken(userID, email string) (token string, err error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
}

type RepositoryAPI interface {
	CreateUser(ctx context.Context, email, fullName, passwordHash string) (string, error)
	GetCredentialsByEmail(ctx context.Context, email string) (*Credentials, error)
	GetUserByID(ctx context.Context, userID string) (*User, error)
}

// RevocationStore remembers signed-out token ids until they expire.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrAlreadyRegistered  = errors.New("user already registered")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("forbidden")
)
