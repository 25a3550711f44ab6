package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "5b10a2844c20165700ede21g",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	assert.True(t, TokenExpiry(signedToken(t, exp)).Equal(exp))
	assert.True(t, TokenExpiry("opaque-token").IsZero())
	assert.True(t, TokenExpiry("a.b.c").IsZero(), "malformed JWTs are treated as opaque")
}

func TestSession_Valid(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		session *Session
		want    bool
	}{
		{"nil session", nil, false},
		{"empty token", &Session{}, false},
		{"opaque token", New("opaque-token", "User", ""), true},
		{"unexpired jwt", New(signedToken(t, now.Add(time.Hour)), "User", ""), true},
		{"expired jwt", New(signedToken(t, now.Add(-time.Minute)), "User", ""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.Valid(now))
		})
	}
}

func TestSession_Key(t *testing.T) {
	a := New("token-a", "User", "")
	b := New("token-b", "User", "")

	assert.Len(t, a.Key(), 16)
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), New("token-a", "Other", "").Key())
	assert.NotContains(t, a.Key(), "token-a")
}

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()

	s, err := NewStaticProvider("token", "Ada", "acc-1").Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token", s.AccessToken)
	assert.Equal(t, "Ada", s.UserName)

	_, err = NewStaticProvider("", "Ada", "").Session(ctx)
	assert.True(t, errors.Is(err, ErrNoSession))
}

func TestContextProvider(t *testing.T) {
	_, err := ContextProvider{}.Session(context.Background())
	assert.True(t, errors.Is(err, ErrNoSession))

	ctx := WithSession(context.Background(), New("token", "Ada", ""))
	s, err := ContextProvider{}.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token", s.AccessToken)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken(""))
}
