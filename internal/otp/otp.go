// Package otp issues and consumes single-use email sign-up codes.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"siteplanner/internal/logging"
	"siteplanner/internal/mailer"
	"siteplanner/internal/models"
	"siteplanner/internal/ratelimit"
)

const codeDigits = 6

var (
	ErrInvalidCode = errors.New("invalid or expired code")
	ErrRateLimited = errors.New("too many code requests")
)

// Store persists hashed codes. Consume must find and remove the matching
// unexpired code in one operation so a code can be used only once; it returns
// nil when nothing matched.
type Store interface {
	Save(ctx context.Context, otp models.OTP) error
	Consume(ctx context.Context, email, codeHash string, now time.Time) (*models.OTP, error)
}

type Service struct {
	store   Store
	sender  mailer.Sender
	limiter ratelimit.Limiter
	limit   int
	ttl     time.Duration
	now     func() time.Time
}

func NewService(store Store, sender mailer.Sender, limiter ratelimit.Limiter, limit int, ttl time.Duration) *Service {
	return &Service{
		store:   store,
		sender:  sender,
		limiter: limiter,
		limit:   limit,
		ttl:     ttl,
		now:     time.Now,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Request generates a fresh code for email, stores its hash and mails it.
// Earlier unconsumed codes stay valid until they expire.
func (s *Service) Request(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	now := s.now()

	if s.limiter != nil {
		res, err := s.limiter.Allow(ctx, "otp:"+email, s.limit, now)
		if err != nil {
			return err
		}
		if !res.Allowed {
			return ErrRateLimited
		}
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	record := models.OTP{
		Email:     email,
		CodeHash:  HashCode(email, code),
		ExpiresAt: now.Add(s.ttl).UTC(),
		CreatedAt: now.UTC(),
	}
	if err := s.store.Save(ctx, record); err != nil {
		return err
	}
	if err := s.sender.SendOTP(email, code, s.ttl); err != nil {
		return fmt.Errorf("send code: %w", err)
	}
	logging.Area("OTP").WithField("email", email).Info("code issued")
	return nil
}

// Consume accepts code once. Unknown, reused and expired codes all yield ErrInvalidCode.
func (s *Service) Consume(ctx context.Context, email, code string) error {
	_, err := s.take(ctx, email, code)
	return err
}

// Redeem consumes code and then runs use. When use fails the code is put
// back with its original expiry, so the caller can retry with the same code.
// use's error is returned unchanged.
func (s *Service) Redeem(ctx context.Context, email, code string, use func(ctx context.Context) error) error {
	record, err := s.take(ctx, email, code)
	if err != nil {
		return err
	}
	if err := use(ctx); err != nil {
		s.restore(ctx, *record)
		return err
	}
	return nil
}

func (s *Service) take(ctx context.Context, email, code string) (*models.OTP, error) {
	email = NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, ErrInvalidCode
	}
	record, err := s.store.Consume(ctx, email, HashCode(email, code), s.now().UTC())
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrInvalidCode
	}
	return record, nil
}

func (s *Service) restore(ctx context.Context, record models.OTP) {
	entry := logging.Area("OTP").WithField("email", record.Email)
	if !record.ExpiresAt.After(s.now()) {
		return
	}
	// The request context may already be done when the caller failed on a timeout.
	if err := s.store.Save(context.WithoutCancel(ctx), record); err != nil {
		entry.WithError(err).Warn("code could not be restored")
		return
	}
	entry.Info("code restored after failed use")
}

// HashCode binds the code to the address so equal codes for different emails
// never collide.
func HashCode(email, code string) string {
	sum := sha256.Sum256([]byte(email + ":" + code))
	return hex.EncodeToString(sum[:])
}

func generateCode() (string, error) {
	upper := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		upper.Mul(upper, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// MongoStore keeps codes in the otps collection; a TTL index removes
// expired rows.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (m *MongoStore) Save(ctx context.Context, otp models.OTP) error {
	_, err := m.db.Collection(models.CollectionOTPs).InsertOne(ctx, otp)
	return err
}

func (m *MongoStore) Consume(ctx context.Context, email, codeHash string, now time.Time) (*models.OTP, error) {
	var record models.OTP
	err := m.db.Collection(models.CollectionOTPs).FindOneAndDelete(ctx, bson.M{
		"email":     email,
		"codeHash":  codeHash,
		"expiresAt": bson.M{"$gt": now},
	}, options.FindOneAndDelete().SetSort(bson.D{{Key: "createdAt", Value: -1}})).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
