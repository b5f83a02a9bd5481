package storage

import (
	"context"
	"time"

	"storefront/internal/models"
)

// Storage defines the interface for partner, referral visit, case study and
// API key persistence. It is implemented by in-memory, JSON file, PostgreSQL
// and SQLite backends.
//
// Referral visits are append-only: the interface has no way to update or
// delete one.
type Storage interface {
	// Partners returns all partners, oldest first
	Partners(ctx context.Context) ([]*models.Partner, error)

	// GetPartner retrieves a partner by its ID
	GetPartner(ctx context.Context, id string) (*models.Partner, error)

	// GetPartnerByReferralCode retrieves a partner by its exact referral code
	GetPartnerByReferralCode(ctx context.Context, code string) (*models.Partner, error)

	// SavePartner stores or updates a partner. Returns ErrDuplicateReferralCode
	// when another partner already holds the code.
	SavePartner(ctx context.Context, partner *models.Partner) error

	// DeletePartner removes a partner. Returns ErrHasDependencies when visits
	// have been recorded against it.
	DeletePartner(ctx context.Context, id string) error

	// InsertReferralVisit appends a visit record
	InsertReferralVisit(ctx context.Context, visit *models.ReferralVisit) error

	// ReferralVisits returns a partner's visits, newest first
	ReferralVisits(ctx context.Context, partnerID string) ([]*models.ReferralVisit, error)

	// CaseStudies returns all case studies, newest first
	CaseStudies(ctx context.Context) ([]*models.CaseStudy, error)

	// SaveCaseStudy stores or updates a case study
	SaveCaseStudy(ctx context.Context, study *models.CaseStudy) error

	// CreateAPIKey persists a new API key
	CreateAPIKey(ctx context.Context, key *models.APIKey) error

	// GetAPIKeyByHash looks up a key by the SHA-256 hash of its raw value
	GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error)

	// ListAPIKeys returns every stored key
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)

	// Ping verifies the backend is reachable
	Ping(ctx context.Context) error

	// Close closes the storage connection and cleans up resources
	Close() error
}

// Config holds configuration for storage backends
type Config struct {
	// Type specifies the storage backend type (json, memory, postgres, sqlite)
	Type string `json:"type" yaml:"type"`

	// Path is used for file-based storage backends
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// ConnectionString is used for database backends
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`

	// CacheTTL specifies how long the JSON backend trusts its in-memory copy
	CacheTTL string `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty"`

	// MaxOpenConns and ConnMaxLifetime size the database connection pool
	MaxOpenConns    int           `json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime,omitempty" yaml:"conn_max_lifetime,omitempty"`

	// Additional options for specific backends
	Options map[string]interface{} `json:"options,omitempty" yaml:"options,omitempty"`
}
