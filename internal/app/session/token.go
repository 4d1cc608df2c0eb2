package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/identity"
	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
)

// CookieName is the cookie carrying the session token.
const CookieName = "canteen_session"

const tokenIssuer = "canteen-pos"

// Claims are the JWT claims of a session token. The subject is the session id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and validates session tokens with HMAC-SHA256.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

// NewTokens returns a signer. secret must not be empty.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	return &Tokens{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime of issued tokens.
func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue signs a token for sess.
func (t *Tokens) Issue(sess Session) (string, error) {
	claims := &Claims{
		Role: string(sess.Identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates raw and returns its claims.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, apperrors.InvalidToken(err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, apperrors.InvalidToken(fmt.Errorf("malformed claims"))
	}
	if _, ok := identity.ParseRole(claims.Role); !ok {
		return nil, apperrors.InvalidToken(fmt.Errorf("unknown role %q", claims.Role))
	}
	return claims, nil
}
