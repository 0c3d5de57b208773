package adminsession

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssueAndVerify(t *testing.T) {
	m := NewManager(testSecret, time.Hour, false)

	token, err := m.Issue("admin@example.com")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Subject)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestVerifyRejects(t *testing.T) {
	m := NewManager(testSecret, time.Hour, false)

	t.Run("literal true marker", func(t *testing.T) {
		_, err := m.Verify("true")
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := m.Verify("  ")
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewManager(strings.Repeat("x", 32), time.Hour, false)
		token, err := other.Issue("admin@example.com")
		require.NoError(t, err)
		_, err = m.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewManager(testSecret, time.Hour, false)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := past.Issue("admin@example.com")
		require.NoError(t, err)
		_, err = m.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := Claims{
			Scope: scope,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = m.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("missing scope", func(t *testing.T) {
		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    Issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = m.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})
}

func TestIsAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager(testSecret, time.Hour, false)
	token, err := m.Issue("admin@example.com")
	require.NoError(t, err)

	newContext := func(cookie *http.Cookie) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		c.Request = req
		return c
	}

	assert.False(t, m.IsAdmin(newContext(nil)))
	assert.False(t, m.IsAdmin(newContext(&http.Cookie{Name: CookieName, Value: "true"})))
	assert.True(t, m.IsAdmin(newContext(&http.Cookie{Name: CookieName, Value: token})))

	assert.Equal(t, "admin@example.com", m.Actor(newContext(&http.Cookie{Name: CookieName, Value: token})))
	assert.Empty(t, m.Actor(newContext(&http.Cookie{Name: CookieName, Value: "true"})))
}

func TestSetCookieAttributes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager(testSecret, 24*time.Hour, true)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
	m.SetCookie(c, "tok")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, CookieName, cookie.Name)
	assert.Equal(t, 86400, cookie.MaxAge)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
}
