package handlers

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"siteplanner/internal/adminsession"
	"siteplanner/internal/database"
	"siteplanner/internal/logging"
	"siteplanner/internal/models"
)

type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminCredentials is the single configured admin account.
type AdminCredentials struct {
	Email        string
	PasswordHash []byte
}

// NewAdminCredentials prefers a bcrypt hash; a plain password is hashed once
// at startup.
func NewAdminCredentials(email, passwordHash, password string) (AdminCredentials, error) {
	creds := AdminCredentials{Email: strings.ToLower(strings.TrimSpace(email))}
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return AdminCredentials{}, fmt.Errorf("ADMIN_PASSWORD_HASH is not a bcrypt hash: %w", err)
		}
		creds.PasswordHash = []byte(passwordHash)
		return creds, nil
	}
	if password == "" {
		return AdminCredentials{}, fmt.Errorf("admin password is not configured")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AdminCredentials{}, err
	}
	creds.PasswordHash = hash
	return creds, nil
}

func (a AdminCredentials) matches(email, password string) bool {
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(strings.TrimSpace(email))), []byte(a.Email)) == 1
	passwordOK := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)) == nil
	return emailOK && passwordOK
}

func AdminLogin(db *mongo.Database, admins *adminsession.Manager, creds AdminCredentials) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdminLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		if !creds.matches(req.Email, req.Password) {
			logging.Area("ADMIN").Warn("admin login rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		token, err := admins.Issue(creds.Email)
		if err != nil {
			logging.Area("ADMIN").WithError(err).Error("admin token generation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
			return
		}
		admins.SetCookie(c, token)

		ctx, cancel := requestContext(c)
		defer cancel()
		if _, err := database.NewStore(db).InsertActivity(ctx, models.Activity{
			UserID:  creds.Email,
			Type:    models.AuditAdminLogin,
			Details: "admin signed in from " + c.ClientIP(),
			Audit:   true,
		}); err != nil {
			logging.Area("ADMIN").WithError(err).Warn("admin login audit not recorded")
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":        true,
			"expiresAt": time.Now().Add(admins.TTL()).UTC(),
		})
	}
}

func AdminLogout(admins *adminsession.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		admins.ClearCookie(c)
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

// AdminMe reports the signed-in admin.
func AdminMe(admins *adminsession.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "email": admins.Actor(c)})
	}
}
