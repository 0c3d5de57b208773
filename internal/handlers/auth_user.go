package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"siteplanner/internal/database"
	"siteplanner/internal/identity"
	"siteplanner/internal/logging"
	"siteplanner/internal/models"
	"siteplanner/internal/otp"
)

type OTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Code     string `json:"code" binding:"required,len=6,numeric"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required,max=120"`
}

type SessionRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// SessionSettings controls the end-user session cookie.
type SessionSettings struct {
	TTL    time.Duration
	Secure bool
}

// RequestOTP mails a sign-up code. The response is the same whether or not
// the address is already registered.
func RequestOTP(codes *otp.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OTPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := codes.Request(ctx, req.Email); err != nil {
			if errors.Is(err, otp.ErrRateLimited) {
				respondWithError(c, http.StatusTooManyRequests, "AUTH", "too many requests, try again later")
				return
			}
			logging.Area("AUTH").WithError(err).Error("otp request failed")
			respondWithError(c, http.StatusInternalServerError, "AUTH", "could not send code")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "code sent"})
	}
}

// Signup redeems the emailed code, creates the identity-provider account and
// the local profile. If the provider rejects the account the code stays valid.
func Signup(db *mongo.Database, codes *otp.Service, users identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		email := otp.NormalizeEmail(req.Email)
		name := strings.TrimSpace(req.Name)

		ctx, cancel := requestContext(c)
		defer cancel()

		var uid string
		var createErr error
		err := codes.Redeem(ctx, email, req.Code, func(ctx context.Context) error {
			uid, createErr = users.CreateAccount(ctx, identity.Account{
				Email:       email,
				Password:    req.Password,
				DisplayName: name,
			})
			return createErr
		})
		switch {
		case err == nil:
		case errors.Is(createErr, identity.ErrEmailTaken):
			respondWithError(c, http.StatusConflict, "AUTH", "email already registered")
			return
		case createErr != nil:
			logging.Area("AUTH").WithError(createErr).Error("create account failed")
			respondWithError(c, http.StatusBadGateway, "AUTH", "could not create account")
			return
		case errors.Is(err, otp.ErrInvalidCode):
			respondWithError(c, http.StatusBadRequest, "AUTH", err.Error())
			return
		default:
			respondDBError(c, "AUTH", err)
			return
		}

		now := time.Now().UTC()
		user := models.User{
			ID:        uid,
			Email:     email,
			Name:      name,
			Role:      models.RoleUser,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := models.Validate(user); err != nil {
			respondValidationError(c, err)
			return
		}
		if _, err := db.Collection(models.CollectionUsers).InsertOne(ctx, user); err != nil {
			respondDBError(c, "AUTH", err)
			return
		}
		recordActivity(ctx, db, uid, models.ActivitySignup, "account created", "")

		logging.Area("AUTH").WithField("uid", uid).Info("user registered")
		c.JSON(http.StatusCreated, gin.H{"user": user})
	}
}

// CreateSession exchanges a provider ID token for the session cookie and
// upserts the local profile.
func CreateSession(db *mongo.Database, users identity.Provider, settings SessionSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		principal, err := users.VerifyIDToken(ctx, strings.TrimSpace(req.IDToken))
		if err != nil {
			logging.Area("AUTH").WithError(err).Warn("session exchange rejected")
			respondWithError(c, http.StatusUnauthorized, "AUTH", "invalid token")
			return
		}

		cookie, err := users.CreateSessionCookie(ctx, req.IDToken, settings.TTL)
		if err != nil {
			logging.Area("AUTH").WithError(err).Warn("session cookie creation failed")
			respondWithError(c, http.StatusUnauthorized, "AUTH", "invalid token")
			return
		}

		if err := touchUser(ctx, db, principal); err != nil {
			respondDBError(c, "AUTH", err)
			return
		}
		recordActivity(ctx, db, principal.UID, models.ActivityLogin, "signed in", "")

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(identity.SessionCookieName, cookie, int(settings.TTL.Seconds()), "/", "", settings.Secure, true)
		c.JSON(http.StatusOK, gin.H{"uid": principal.UID})
	}
}

func touchUser(ctx context.Context, db *mongo.Database, principal *identity.Principal) error {
	now := time.Now().UTC()
	set := bson.M{"lastLoginAt": now, "updatedAt": now}
	if principal.Email != "" {
		set["email"] = strings.ToLower(principal.Email)
	}
	_, err := db.Collection(models.CollectionUsers).UpdateOne(ctx,
		bson.M{"_id": principal.UID},
		bson.M{
			"$set": set,
			"$setOnInsert": bson.M{
				"name":      principal.Name,
				"role":      models.RoleUser,
				"createdAt": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func Logout(settings SessionSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(identity.SessionCookieName, "", -1, "/", "", settings.Secure, true)
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

// recordActivity appends to the caller's feed. The write is best effort.
func recordActivity(ctx context.Context, db *mongo.Database, uid, kind, details, resourceID string) {
	if err := database.RecordActivity(ctx, db, uid, kind, details, resourceID); err != nil {
		logging.Area("ACTIVITY").WithError(err).WithField("type", kind).Warn("activity not recorded")
	}
}
