package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/comanda-pos/comanda/internal/shared"
)

const tokenIssuer = "comanda"

// ErrInvalidToken is returned for malformed, expired or foreign tokens.
var ErrInvalidToken = errors.New("auth: invalid token")

type deviceClaims struct {
	Username string `json:"usr"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs HS256 bearer tokens for kitchen screens and handhelds.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the actor and returns it with its expiry.
func (t *TokenIssuer) Issue(actor shared.Actor) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := deviceClaims{
		Username: actor.Username,
		Role:     string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(actor.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken validates a bearer token and returns the actor it was issued for.
func (t *TokenIssuer) ParseToken(raw string) (shared.Actor, error) {
	var claims deviceClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return shared.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return shared.Actor{}, ErrInvalidToken
	}
	role, ok := shared.ParseRole(claims.Role)
	if !ok {
		return shared.Actor{}, ErrInvalidToken
	}
	return shared.Actor{UserID: id, Username: claims.Username, Role: role}, nil
}
