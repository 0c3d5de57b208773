package identity

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseProvider implements Provider with the Firebase Admin SDK.
type FirebaseProvider struct {
	client *auth.Client
}

// NewFirebaseProvider initializes the Admin SDK from a service account file.
func NewFirebaseProvider(ctx context.Context, credentialsPath string) (*FirebaseProvider, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}
	return &FirebaseProvider{client: client}, nil
}

func (p *FirebaseProvider) VerifyIDToken(ctx context.Context, idToken string) (*Principal, error) {
	token, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return principalFromToken(token), nil
}

func (p *FirebaseProvider) VerifySessionCookie(ctx context.Context, cookie string) (*Principal, error) {
	token, err := p.client.VerifySessionCookie(ctx, cookie)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return principalFromToken(token), nil
}

func (p *FirebaseProvider) CreateSessionCookie(ctx context.Context, idToken string, ttl time.Duration) (string, error) {
	cookie, err := p.client.SessionCookie(ctx, idToken, ttl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return cookie, nil
}

func (p *FirebaseProvider) CreateAccount(ctx context.Context, account Account) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(account.Email).
		EmailVerified(true).
		Password(account.Password)
	if account.DisplayName != "" {
		params = params.DisplayName(account.DisplayName)
	}

	record, err := p.client.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", ErrEmailTaken
		}
		return "", err
	}
	return record.UID, nil
}

func principalFromToken(token *auth.Token) *Principal {
	p := &Principal{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		p.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		p.Name = name
	}
	return p
}
