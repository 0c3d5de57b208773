// Package identitytest provides an in-memory identity.Provider for tests.
package identitytest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"siteplanner/internal/identity"
)

// Fake accepts tokens of the form "valid:<uid>" for both ID tokens and session
// cookies; anything else fails verification.
type Fake struct {
	mu       sync.Mutex
	accounts map[string]identity.Account
	Emails   map[string]string
	seq      int
}

func New() *Fake {
	return &Fake{
		accounts: map[string]identity.Account{},
		Emails:   map[string]string{},
	}
}

// Token returns a credential the fake will accept for uid.
func Token(uid string) string {
	return "valid:" + uid
}

func (f *Fake) verify(raw string) (*identity.Principal, error) {
	uid, ok := strings.CutPrefix(raw, "valid:")
	if !ok || uid == "" {
		return nil, identity.ErrInvalidToken
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &identity.Principal{UID: uid, Email: f.Emails[uid]}, nil
}

func (f *Fake) VerifyIDToken(_ context.Context, idToken string) (*identity.Principal, error) {
	return f.verify(idToken)
}

func (f *Fake) VerifySessionCookie(_ context.Context, cookie string) (*identity.Principal, error) {
	return f.verify(cookie)
}

func (f *Fake) CreateSessionCookie(_ context.Context, idToken string, _ time.Duration) (string, error) {
	if _, err := f.verify(idToken); err != nil {
		return "", err
	}
	return idToken, nil
}

func (f *Fake) CreateAccount(_ context.Context, account identity.Account) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if existing.Email == account.Email {
			return "", identity.ErrEmailTaken
		}
	}
	f.seq++
	uid := fmt.Sprintf("uid-%d", f.seq)
	f.accounts[uid] = account
	f.Emails[uid] = account.Email
	return uid, nil
}

// Accounts returns the number of created accounts.
func (f *Fake) Accounts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.accounts)
}
