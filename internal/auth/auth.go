// Package auth loads market-data API credentials.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Default environment variable names.
const (
	EnvKeyID  = "APCA_API_KEY_ID"
	EnvSecret = "APCA_API_SECRET_KEY"
)

// Handshake header names for providers that accept credentials on upgrade.
const (
	HeaderKeyID  = "APCA-API-KEY-ID"
	HeaderSecret = "APCA-API-SECRET-KEY"
)

var ErrMissingCredentials = errors.New("missing credentials")

// Credentials holds an API key pair.
type Credentials struct {
	KeyID  string
	Secret string
}

// LoadCredentials validates a key pair.
func LoadCredentials(keyID, secret string) (*Credentials, error) {
	keyID = strings.TrimSpace(keyID)
	secret = strings.TrimSpace(secret)

	if keyID == "" {
		return nil, fmt.Errorf("%w: API key ID is required", ErrMissingCredentials)
	}
	if secret == "" {
		return nil, fmt.Errorf("%w: API secret is required", ErrMissingCredentials)
	}

	return &Credentials{KeyID: keyID, Secret: secret}, nil
}

// FromEnv reads credentials from the environment after loading the given
// .env files. Missing files are skipped; variables already set in the
// environment win over file values.
func FromEnv(keyVar, secretVar string, envFiles ...string) (*Credentials, error) {
	if keyVar == "" {
		keyVar = EnvKeyID
	}
	if secretVar == "" {
		secretVar = EnvSecret
	}

	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	return LoadCredentials(os.Getenv(keyVar), os.Getenv(secretVar))
}

// Headers returns handshake headers carrying the key pair.
func (c *Credentials) Headers() http.Header {
	h := http.Header{}
	h.Set(HeaderKeyID, c.KeyID)
	h.Set(HeaderSecret, c.Secret)
	return h
}

// LogValue implements slog.LogValuer so credentials never reach logs.
func (c *Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("key_id", Mask(c.KeyID)),
		slog.String("secret", Mask(c.Secret)),
	)
}

// Mask keeps the first four characters of s.
func Mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}
