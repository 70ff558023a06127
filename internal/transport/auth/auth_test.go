package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordchain/internal/domain"
)

func TestIssueAndParse(t *testing.T) {
	a := New("test-secret", "", "")
	token, exp, err := a.Issue(42, time.Now())
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	id, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, domain.PlayerID(42), id)

	other := New("other-secret", "", "")
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	a := New("test-secret", "", "")
	token, _, err := a.Issue(1, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	_, err = a.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	a := New("test-secret", "", "")
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims{PlayerID: 1})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPlayerFromRequest(t *testing.T) {
	a := New("test-secret", "loggedas", "")
	token, _, err := a.Issue(7, time.Now())
	require.NoError(t, err)

	bearer := httptest.NewRequest(http.MethodGet, "/", nil)
	bearer.Header.Set("Authorization", "Bearer "+token)
	id, err := a.PlayerFromRequest(bearer)
	require.NoError(t, err)
	assert.Equal(t, domain.PlayerID(7), id)

	cookie := httptest.NewRequest(http.MethodGet, "/", nil)
	cookie.AddCookie(&http.Cookie{Name: "loggedas", Value: token})
	id, err = a.PlayerFromRequest(cookie)
	require.NoError(t, err)
	assert.Equal(t, domain.PlayerID(7), id)

	header := httptest.NewRequest(http.MethodGet, "/", nil)
	header.Header.Set(PlayerHeader, "7")
	_, err = a.PlayerFromRequest(header)
	assert.ErrorIs(t, err, ErrUnauthenticated, "plain ids are ignored when a secret is set")
}

func TestDevMode(t *testing.T) {
	a := New("", "", "")
	assert.True(t, a.DevMode())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(PlayerHeader, "15")
	id, err := a.PlayerFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, domain.PlayerID(15), id)

	r.Header.Set(PlayerHeader, "0")
	_, err = a.PlayerFromRequest(r)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentify(t *testing.T) {
	a := New("", "", "")
	var got domain.PlayerID
	var found bool
	h := a.Identify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = PlayerFrom(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(PlayerHeader, "3")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.True(t, found)
	assert.Equal(t, domain.PlayerID(3), got)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, found)
}

func TestIsAdmin(t *testing.T) {
	r := httptest.NewRequest(http.MethodDelete, "/", nil)
	r.Header.Set(AdminHeader, "s3cret")

	assert.True(t, New("", "", "s3cret").IsAdmin(r))
	assert.False(t, New("", "", "other").IsAdmin(r))
	assert.False(t, New("", "", "").IsAdmin(r), "no admin token disables admin requests")
}
