package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hanpama/relaygraph/internal/request"
)

// ErrInvalidToken is returned for a bearer token that does not verify.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of a bearer token.
type Claims struct {
	Username    string   `json:"username,omitempty"`
	Staff       bool     `json:"staff,omitempty"`
	Superuser   bool     `json:"superuser,omitempty"`
	Permissions []string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// User converts the claims into the request principal.
func (c *Claims) User() *request.User {
	return &request.User{
		ID:          c.Subject,
		Username:    c.Username,
		Staff:       c.Staff,
		Superuser:   c.Superuser,
		Permissions: c.Permissions,
	}
}

// Authenticator verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{secret: secret}
}

// Sign issues a token for u valid for ttl. A zero ttl never expires.
func (a *Authenticator) Sign(u *request.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username:    u.Username,
		Staff:       u.Staff,
		Superuser:   u.Superuser,
		Permissions: u.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  u.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Verify parses and validates a token string.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate returns the user of the request's bearer token. A request
// without an Authorization header is anonymous (nil user, nil error).
func (a *Authenticator) Authenticate(r *http.Request) (*request.User, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return nil, nil
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := a.Verify(strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	return claims.User(), nil
}
