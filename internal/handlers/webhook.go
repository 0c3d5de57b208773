package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"siteplanner/internal/logging"
	"siteplanner/internal/models"
)

const (
	WebhookSignatureHeader = "X-Webhook-Signature"
	maxWebhookBody         = 1 << 20

	eventUserCreated = "user.created"
	eventUserUpdated = "user.updated"
)

type identityEvent struct {
	Event string `json:"event"`
	Data  struct {
		UID   string `json:"uid"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"data"`
}

// SignWebhook returns the hex HMAC-SHA256 of body, the value expected in
// X-Webhook-Signature.
func SignWebhook(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret string, body []byte, header string) bool {
	header = strings.TrimPrefix(strings.TrimSpace(header), "sha256=")
	got, err := hex.DecodeString(header)
	if err != nil || len(got) == 0 {
		return false
	}
	want, _ := hex.DecodeString(SignWebhook(secret, body))
	return hmac.Equal(got, want)
}

// IdentityWebhook keeps local profiles in step with the identity provider.
func IdentityWebhook(db *mongo.Database, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			respondWithError(c, http.StatusServiceUnavailable, "WEBHOOK", "webhook disabled")
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, "WEBHOOK", "invalid body")
			return
		}
		if !validSignature(secret, body, c.GetHeader(WebhookSignatureHeader)) {
			respondWithError(c, http.StatusUnauthorized, "WEBHOOK", "invalid signature")
			return
		}

		var event identityEvent
		if err := json.Unmarshal(body, &event); err != nil {
			respondWithError(c, http.StatusBadRequest, "WEBHOOK", "invalid JSON payload")
			return
		}
		if event.Event != eventUserCreated && event.Event != eventUserUpdated {
			c.JSON(http.StatusAccepted, gin.H{"message": "event ignored"})
			return
		}
		if strings.TrimSpace(event.Data.UID) == "" || strings.TrimSpace(event.Data.Email) == "" {
			respondWithError(c, http.StatusBadRequest, "WEBHOOK", "uid and email are required")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := upsertFromEvent(ctx, db, event); err != nil {
			respondDBError(c, "WEBHOOK", err)
			return
		}

		logging.Area("WEBHOOK").WithField("event", event.Event).WithField("uid", event.Data.UID).Info("profile synced")
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	}
}

func upsertFromEvent(ctx context.Context, db *mongo.Database, event identityEvent) error {
	now := time.Now().UTC()
	set := bson.M{
		"email":     strings.ToLower(strings.TrimSpace(event.Data.Email)),
		"updatedAt": now,
	}
	if name := strings.TrimSpace(event.Data.Name); name != "" {
		set["name"] = name
	}
	if phone := strings.TrimSpace(event.Data.Phone); phone != "" {
		set["phone"] = phone
	}
	_, err := db.Collection(models.CollectionUsers).UpdateOne(ctx,
		bson.M{"_id": strings.TrimSpace(event.Data.UID)},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"role": models.RoleUser, "createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}
