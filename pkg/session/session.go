// Package session is the boundary to the external session provider that owns login,
// token refresh and logout. The core only consumes an access token, the user's
// identity and a validity signal.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrNoSession is returned by providers that have no authenticated session
var ErrNoSession = errors.New("no active session")

// Session is the authenticated identity the core works on behalf of
type Session struct {
	AccessToken string
	UserName    string
	AccountID   string

	// ExpiresAt is zero when the token carries no readable expiry
	ExpiresAt time.Time
}

// New builds a Session and reads the expiry from JWT-shaped tokens
func New(accessToken, userName, accountID string) *Session {
	return &Session{
		AccessToken: accessToken,
		UserName:    userName,
		AccountID:   accountID,
		ExpiresAt:   TokenExpiry(accessToken),
	}
}

// Valid reports whether the session has a token that has not expired at now
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// Key identifies the session without exposing the token
func (s *Session) Key() string {
	if s == nil {
		return ""
	}
	return TokenKey(s.AccessToken)
}

// TokenKey hashes an access token for use as a map key or log field
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

// TokenExpiry returns the exp claim of a JWT access token without verifying it.
// Opaque tokens yield the zero time. Signature checks belong to Atlassian, which
// rejects bad tokens with 401.
func TokenExpiry(token string) time.Time {
	if strings.Count(token, ".") != 2 {
		return time.Time{}
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// Provider supplies the current session
type Provider interface {
	Session(ctx context.Context) (*Session, error)
}

// StaticProvider always returns the same session, typically built from config
type StaticProvider struct {
	session *Session
}

// NewStaticProvider creates a provider for a fixed token and identity
func NewStaticProvider(accessToken, userName, accountID string) *StaticProvider {
	if accessToken == "" {
		return &StaticProvider{}
	}
	return &StaticProvider{session: New(accessToken, userName, accountID)}
}

// Session implements Provider
func (p *StaticProvider) Session(ctx context.Context) (*Session, error) {
	if p.session == nil {
		return nil, ErrNoSession
	}
	return p.session, nil
}

type contextKey struct{}

// WithSession attaches a session to ctx
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached by WithSession
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}

// ContextProvider reads the session placed on the request context, as the API
// server does for each inbound bearer token
type ContextProvider struct{}

// Session implements Provider
func (ContextProvider) Session(ctx context.Context) (*Session, error) {
	if s, ok := FromContext(ctx); ok {
		return s, nil
	}
	return nil, ErrNoSession
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
