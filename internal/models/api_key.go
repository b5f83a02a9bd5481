package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// APIKeyPrefix marks storefront admin keys so they are recognisable in logs and secret scanners.
const APIKeyPrefix = "sfk_"

// Admin permission levels, lowest to highest.
const (
	PermissionRead  = "read"
	PermissionWrite = "write"
	PermissionAdmin = "admin"
)

// APIKey is a back-office credential. Only the SHA-256 hash of the raw key is persisted,
// along with an 8-character prefix for display.
type APIKey struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	KeyHash     string    `json:"key_hash"`
	Prefix      string    `json:"prefix"`
	Permissions []string  `json:"permissions"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewAPIKey builds an enabled APIKey record from a raw key.
func NewAPIKey(id, name, rawKey string, permissions []string) *APIKey {
	now := time.Now().UTC()
	prefix := rawKey
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return &APIKey{
		ID:          id,
		Name:        name,
		KeyHash:     HashAPIKey(rawKey),
		Prefix:      prefix,
		Permissions: permissions,
		Enabled:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// GenerateAPIKey returns a random key: sfk_ followed by 44 url-safe base64 characters.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 33)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return APIKeyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// HashAPIKey computes the SHA-256 hex digest of a raw API key.
func HashAPIKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// NewID generates a UUID v4 string for stored records.
func NewID() string {
	return uuid.New().String()
}

// HasPermission reports whether an enabled key grants required.
// admin implies write, write implies read.
func (ak *APIKey) HasPermission(required string) bool {
	if ak == nil || !ak.Enabled {
		return false
	}
	for _, p := range ak.Permissions {
		switch p {
		case "*", PermissionAdmin:
			return true
		case PermissionWrite:
			if required == PermissionRead || required == PermissionWrite {
				return true
			}
		case required:
			return true
		}
	}
	return false
}
