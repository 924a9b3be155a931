package security

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const (
	localIssuer   = "templectl"
	localAudience = "temple-services-api"
)

// Identity is the caller proven by a bearer token.
type Identity struct {
	UserID string
	Email  string
}

// TokenVerifier checks a bearer token and extracts the caller.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// UserClaims defines the claims of locally issued tokens
type UserClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 tokens for development and tests,
// standing in for the identity provider.
type TokenManager interface {
	TokenVerifier
	GenerateAccessToken(userID, email string) (string, error)
}

type tokenManager struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, expiry time.Duration) TokenManager {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &tokenManager{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

func (m *tokenManager) GenerateAccessToken(userID, email string) (string, error) {
	now := m.now()
	claims := UserClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    localIssuer,
			Audience:  jwt.ClaimStrings{localAudience},
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithAudience(localAudience), jwt.WithIssuer(localIssuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}
