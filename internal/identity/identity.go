// Package identity wraps the third-party identity provider used for end-user
// sessions. The rest of the service depends only on Provider.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const SessionCookieName = "__session"

var (
	ErrNoToken      = errors.New("no session token")
	ErrInvalidToken = errors.New("invalid session token")
	ErrEmailTaken   = errors.New("email already registered")
)

// Principal is the verified end user behind a request.
type Principal struct {
	UID   string
	Email string
	Name  string
}

type Account struct {
	Email       string
	Password    string
	DisplayName string
}

type Provider interface {
	// VerifyIDToken checks a short-lived ID token sent as a bearer token.
	VerifyIDToken(ctx context.Context, idToken string) (*Principal, error)
	// VerifySessionCookie checks the long-lived session cookie used by pages.
	VerifySessionCookie(ctx context.Context, cookie string) (*Principal, error)
	// CreateSessionCookie exchanges an ID token for a session cookie value.
	CreateSessionCookie(ctx context.Context, idToken string, ttl time.Duration) (string, error)
	// CreateAccount registers an email/password account and returns its uid.
	CreateAccount(ctx context.Context, account Account) (string, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) string {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	parts := strings.Fields(raw)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Authenticate verifies whichever credential the request carries: a bearer ID
// token wins over the session cookie. Every failure is reported as an error;
// callers treat malformed and missing credentials the same way.
func Authenticate(ctx context.Context, p Provider, c *gin.Context) (*Principal, error) {
	if p == nil {
		return nil, ErrNoToken
	}
	if token := BearerToken(c); token != "" {
		return p.VerifyIDToken(ctx, token)
	}
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil || strings.TrimSpace(cookie) == "" {
		return nil, ErrNoToken
	}
	return p.VerifySessionCookie(ctx, cookie)
}
