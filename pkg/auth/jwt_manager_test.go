package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	req := require.New(t)
	mgr := NewJWTManager("test-secret", time.Hour)

	token, err := mgr.Generate("user-42")
	req.NoError(err)
	req.NotEmpty(token)

	claims, err := mgr.Verify(token)
	req.NoError(err)
	req.Equal("user-42", claims.Subject)
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	req := require.New(t)
	mgr := NewJWTManager("test-secret", -time.Minute)

	token, err := mgr.Generate("user-42")
	req.NoError(err)

	_, err = mgr.Verify(token)
	req.Error(err)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	req := require.New(t)

	token, err := NewJWTManager("secret-a", time.Hour).Generate("user-42")
	req.NoError(err)

	_, err = NewJWTManager("secret-b", time.Hour).Verify(token)
	req.Error(err)
}

func TestJWTManager_Expiry(t *testing.T) {
	req := require.New(t)
	mgr := NewJWTManager("test-secret", time.Hour)

	token, err := mgr.Generate("user-42")
	req.NoError(err)

	exp, err := mgr.Expiry(token)
	req.NoError(err)
	req.WithinDuration(time.Now().Add(time.Hour), exp, time.Minute)
}

func TestExtractToken_CookieFirst(t *testing.T) {
	req := require.New(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "access_token_cookie", Value: "from-cookie"})
	r.Header.Set("Authorization", "Bearer from-header")

	token, err := ExtractToken(r, "access_token_cookie")
	req.NoError(err)
	req.Equal("from-cookie", token)
}

func TestExtractToken_BearerHeader(t *testing.T) {
	req := require.New(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer from-header")

	token, err := ExtractToken(r, "access_token_cookie")
	req.NoError(err)
	req.Equal("from-header", token)
}

func TestExtractToken_QueryFallback(t *testing.T) {
	req := require.New(t)

	r := httptest.NewRequest(http.MethodGet, "/ws?token=from-query", nil)

	token, err := ExtractToken(r, "access_token_cookie")
	req.NoError(err)
	req.Equal("from-query", token)
}

func TestExtractToken_Missing(t *testing.T) {
	req := require.New(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ExtractToken(r, "access_token_cookie")
	req.ErrorIs(err, ErrNoToken)
}
