package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports the first missing setting the server cannot start without.
func (c Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"MONGO_URI", c.MongoURI},
		{"DB_NAME", c.DBName},
		{"ADMIN_EMAIL", c.Admin.Email},
		{"ADMIN_SESSION_SECRET", c.Admin.SessionSecret},
		{"FIREBASE_CREDENTIALS_PATH", c.Firebase.CredentialsPath},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("ENV %s is required", r.key)
		}
	}

	if c.Admin.PasswordHash == "" && c.Admin.Password == "" {
		return errors.New("ENV ADMIN_PASSWORD_HASH or ADMIN_PASSWORD is required")
	}
	if len(c.Admin.SessionSecret) < 32 {
		return errors.New("ENV ADMIN_SESSION_SECRET must be at least 32 characters")
	}
	if c.OTP.RequestsPerWindow < 1 {
		return errors.New("ENV OTP_REQUESTS_PER_WINDOW must be positive")
	}
	return nil
}
