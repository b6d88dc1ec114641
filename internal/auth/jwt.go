package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

const (
	// TokenTypeAccess marks a short-lived token used on API calls
	TokenTypeAccess = "access"
	// TokenTypeRefresh marks a longer-lived token used only to mint access tokens
	TokenTypeRefresh = "refresh"
)

// Claims represents the JWT token claims
type Claims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Issuer mints and validates token pairs. Construct one per server; it is
// safe for concurrent use.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer creates a token issuer with the given signing secret and lifetimes
func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret must not be empty")
	}
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// AccessToken mints a new access token for a user
func (i *Issuer) AccessToken(userID string) (string, error) {
	return i.sign(userID, TokenTypeAccess, i.accessTTL, "")
}

// RefreshToken mints a new refresh token for a user. The returned JTI
// identifies the token for server-side revocation.
func (i *Issuer) RefreshToken(userID string) (token, jti string, expiresAt time.Time, err error) {
	jti = ulid.Make().String()
	expiresAt = time.Now().Add(i.refreshTTL)
	token, err = i.sign(userID, TokenTypeRefresh, i.refreshTTL, jti)
	return token, jti, expiresAt, err
}

func (i *Issuer) sign(userID, tokenType string, ttl time.Duration, jti string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Validate parses a token and returns its claims if the signature and
// expiry check out
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// ValidateType validates a token and additionally checks its token_type claim
func (i *Issuer) ValidateType(tokenString, tokenType string) (*Claims, error) {
	claims, err := i.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("expected %s token, got %s", tokenType, claims.TokenType)
	}
	return claims, nil
}
