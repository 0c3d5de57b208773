// Package adminsession issues and verifies the admin session cookie.
//
// The cookie holds an HS256 token with issuer, subject and expiry; it is
// verified server-side on every request. There is no revocation list, so a
// token stays valid until it expires.
package adminsession

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName = "admin_session"
	Issuer     = "siteplanner-admin"
	scope      = "admin"
)

var ErrInvalidSession = errors.New("invalid admin session")

type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Manager signs and checks admin session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration, secure bool) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue returns a signed token for the admin identified by subject.
func (m *Manager) Issue(subject string) (string, error) {
	now := m.now()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses the token and returns its claims. Any failure yields ErrInvalidSession.
func (m *Manager) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidSession
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	if claims.Scope != scope {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// IsAdmin reports whether the request carries a valid admin session cookie.
func (m *Manager) IsAdmin(c *gin.Context) bool {
	raw, err := c.Cookie(CookieName)
	if err != nil {
		return false
	}
	_, err = m.Verify(raw)
	return err == nil
}

// Actor returns the subject of a valid admin session, or "" when there is none.
func (m *Manager) Actor(c *gin.Context) string {
	raw, err := c.Cookie(CookieName)
	if err != nil {
		return ""
	}
	claims, err := m.Verify(raw)
	if err != nil {
		return ""
	}
	return claims.Subject
}

// SetCookie writes the session cookie: HttpOnly, site-wide, Secure outside development.
func (m *Manager) SetCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(m.ttl.Seconds()), "/", "", m.secure, true)
}

func (m *Manager) ClearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", m.secure, true)
}
