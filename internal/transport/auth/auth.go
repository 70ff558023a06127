// Package auth resolves the player behind a request.
//
// Players are identified by a signed HS256 token carrying the claim "pid",
// read from an Authorization bearer header or the session cookie. Without a
// secret the package runs in development mode and trusts a plain player id
// from the X-Player-ID header or the cookie.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"wordchain/internal/domain"
)

// DefaultTTL is how long issued tokens stay valid
const DefaultTTL = 14 * 24 * time.Hour

// Header names
const (
	PlayerHeader = "X-Player-ID"
	AdminHeader  = "X-Admin-Token"
)

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrInvalidToken    = errors.New("invalid token")
)

type claims struct {
	PlayerID int64 `json:"pid"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies player tokens
type Authenticator struct {
	secret     []byte
	cookie     string
	adminToken string
	ttl        time.Duration
}

// New creates an authenticator. An empty secret enables development mode;
// an empty admin token disables admin requests.
func New(secret, cookie, adminToken string) *Authenticator {
	if cookie == "" {
		cookie = "loggedas"
	}
	return &Authenticator{
		secret:     []byte(secret),
		cookie:     cookie,
		adminToken: adminToken,
		ttl:        DefaultTTL,
	}
}

// DevMode reports whether tokens are unsigned player ids
func (a *Authenticator) DevMode() bool {
	return len(a.secret) == 0
}

// CookieName returns the session cookie name
func (a *Authenticator) CookieName() string {
	return a.cookie
}

// Issue signs a token for a player
func (a *Authenticator) Issue(playerID domain.PlayerID, now time.Time) (string, time.Time, error) {
	if !playerID.Valid() {
		return "", time.Time{}, domain.ErrInvalidPlayerID
	}
	if a.DevMode() {
		return playerID.String(), now.Add(a.ttl), nil
	}
	exp := now.Add(a.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		PlayerID: int64(playerID),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies a token and returns its player
func (a *Authenticator) Parse(token string) (domain.PlayerID, error) {
	if a.DevMode() {
		id, err := domain.ParsePlayerID(strings.TrimSpace(token))
		if err != nil {
			return domain.NoPlayer, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		return id, nil
	}

	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.NoPlayer, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	id := domain.PlayerID(c.PlayerID)
	if !id.Valid() {
		return domain.NoPlayer, fmt.Errorf("%w: %w", ErrInvalidToken, domain.ErrInvalidPlayerID)
	}
	return id, nil
}

// bearerOrCookie extracts the raw credential of a request
func (a *Authenticator) bearerOrCookie(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if a.DevMode() {
		if h := r.Header.Get(PlayerHeader); h != "" {
			return h
		}
	}
	if c, err := r.Cookie(a.cookie); err == nil {
		return c.Value
	}
	return ""
}

// PlayerFromRequest resolves the player of a request
func (a *Authenticator) PlayerFromRequest(r *http.Request) (domain.PlayerID, error) {
	raw := a.bearerOrCookie(r)
	if raw == "" {
		return domain.NoPlayer, ErrUnauthenticated
	}
	return a.Parse(raw)
}

// SetCookie stores a token in the session cookie
func (a *Authenticator) SetCookie(w http.ResponseWriter, token string, exp time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
}

// IsAdmin reports whether the request carries the admin token
func (a *Authenticator) IsAdmin(r *http.Request) bool {
	if a.adminToken == "" {
		return false
	}
	got := r.Header.Get(AdminHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(a.adminToken)) == 1
}

type ctxKey struct{}

// WithPlayer returns a context carrying the player id
func WithPlayer(ctx context.Context, playerID domain.PlayerID) context.Context {
	return context.WithValue(ctx, ctxKey{}, playerID)
}

// PlayerFrom returns the player stored by WithPlayer
func PlayerFrom(ctx context.Context) (domain.PlayerID, bool) {
	id, ok := ctx.Value(ctxKey{}).(domain.PlayerID)
	return id, ok && id.Valid()
}

// Identify stores the request's player in its context when one is present.
// Requests without credentials pass through.
func (a *Authenticator) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := a.PlayerFromRequest(r); err == nil {
			r = r.WithContext(WithPlayer(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
