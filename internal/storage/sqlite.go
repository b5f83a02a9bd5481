package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"storefront/internal/models"
)

// Timestamps are stored as INTEGER epoch milliseconds.
var sqliteSchema = []string{
	`PRAGMA foreign_keys = ON`,
	`CREATE TABLE IF NOT EXISTS partners (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		company       TEXT NOT NULL DEFAULT '',
		email         TEXT NOT NULL,
		referral_code TEXT NOT NULL UNIQUE,
		status        TEXT NOT NULL,
		created_at    INTEGER NOT NULL,
		updated_at    INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS referral_visits (
		id            TEXT PRIMARY KEY,
		partner_id    TEXT NOT NULL REFERENCES partners(id),
		referral_code TEXT NOT NULL,
		visitor_id    TEXT NOT NULL,
		landing_page  TEXT NOT NULL DEFAULT '',
		ip_address    TEXT NOT NULL,
		user_agent    TEXT NOT NULL DEFAULT '',
		utm_source    TEXT NOT NULL DEFAULT '',
		utm_medium    TEXT NOT NULL DEFAULT '',
		utm_campaign  TEXT NOT NULL DEFAULT '',
		created_at    INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_referral_visits_partner ON referral_visits (partner_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS case_studies (
		id         TEXT PRIMARY KEY,
		slug       TEXT NOT NULL,
		title      TEXT NOT NULL,
		product    TEXT NOT NULL,
		industry   TEXT NOT NULL DEFAULT '',
		summary    TEXT NOT NULL DEFAULT '',
		published  INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		key_hash    TEXT NOT NULL UNIQUE,
		prefix      TEXT NOT NULL,
		permissions TEXT NOT NULL,
		enabled     INTEGER NOT NULL DEFAULT 1,
		created_at  INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL
	)`,
}

// SQLiteStorage implements the Storage interface on a local SQLite database file.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens the database and bootstraps the schema.
func NewSQLiteStorage(config Config) (*SQLiteStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps PRAGMA settings in effect and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return &SQLiteStorage{db: db}, nil
}

type sqliteScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePartner(row sqliteScanner) (*models.Partner, error) {
	var (
		p                    models.Partner
		createdAt, updatedAt int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Company, &p.Email, &p.ReferralCode, &p.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = fromEpochMillis(createdAt)
	p.UpdatedAt = fromEpochMillis(updatedAt)
	return &p, nil
}

// Partners returns all partners, oldest first.
func (ss *SQLiteStorage) Partners(ctx context.Context) ([]*models.Partner, error) {
	rows, err := ss.db.QueryContext(ctx, `SELECT `+partnerColumns+` FROM partners ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get partners: %w", err)
	}
	defer rows.Close()

	partners := make([]*models.Partner, 0)
	for rows.Next() {
		p, err := scanSQLitePartner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

// GetPartner retrieves a partner by its ID.
func (ss *SQLiteStorage) GetPartner(ctx context.Context, id string) (*models.Partner, error) {
	p, err := scanSQLitePartner(ss.db.QueryRowContext(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("partner %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	return p, nil
}

// GetPartnerByReferralCode retrieves a partner by its referral code.
func (ss *SQLiteStorage) GetPartnerByReferralCode(ctx context.Context, code string) (*models.Partner, error) {
	p, err := scanSQLitePartner(ss.db.QueryRowContext(ctx, `SELECT `+partnerColumns+` FROM partners WHERE referral_code = ?`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("referral code %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get partner by referral code: %w", err)
	}
	return p, nil
}

// SavePartner stores or updates a partner (upsert on id).
func (ss *SQLiteStorage) SavePartner(ctx context.Context, p *models.Partner) error {
	_, err := ss.db.ExecContext(ctx, `
		INSERT INTO partners (`+partnerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			company = excluded.company,
			email = excluded.email,
			referral_code = excluded.referral_code,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Company, p.Email, p.ReferralCode, p.Status,
		toEpochMillis(p.CreatedAt), toEpochMillis(p.UpdatedAt),
	)
	if err != nil {
		if isSQLiteConstraint(err, "UNIQUE") {
			return ErrDuplicateReferralCode
		}
		return fmt.Errorf("failed to save partner: %w", err)
	}
	return nil
}

// DeletePartner removes a partner with no recorded visits.
func (ss *SQLiteStorage) DeletePartner(ctx context.Context, id string) error {
	var visits int
	if err := ss.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM referral_visits WHERE partner_id = ?`, id,
	).Scan(&visits); err != nil {
		return fmt.Errorf("failed to check partner visits: %w", err)
	}
	if visits > 0 {
		return ErrHasDependencies
	}

	res, err := ss.db.ExecContext(ctx, `DELETE FROM partners WHERE id = ?`, id)
	if err != nil {
		if isSQLiteConstraint(err, "FOREIGN KEY") {
			return ErrHasDependencies
		}
		return fmt.Errorf("failed to delete partner %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("partner %s: %w", id, ErrNotFound)
	}
	return nil
}

// InsertReferralVisit appends a visit record.
func (ss *SQLiteStorage) InsertReferralVisit(ctx context.Context, v *models.ReferralVisit) error {
	_, err := ss.db.ExecContext(ctx, `
		INSERT INTO referral_visits (id, partner_id, referral_code, visitor_id, landing_page,
			ip_address, user_agent, utm_source, utm_medium, utm_campaign, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.PartnerID, v.ReferralCode, v.VisitorID, v.LandingPage,
		v.IPAddress, v.UserAgent, v.UTMSource, v.UTMMedium, v.UTMCampaign,
		toEpochMillis(v.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert referral visit: %w", err)
	}
	return nil
}

// ReferralVisits returns a partner's visits, newest first.
func (ss *SQLiteStorage) ReferralVisits(ctx context.Context, partnerID string) ([]*models.ReferralVisit, error) {
	rows, err := ss.db.QueryContext(ctx, `
		SELECT id, partner_id, referral_code, visitor_id, landing_page, ip_address, user_agent,
			utm_source, utm_medium, utm_campaign, created_at
		FROM referral_visits WHERE partner_id = ? ORDER BY created_at DESC, rowid`, partnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral visits: %w", err)
	}
	defer rows.Close()

	visits := make([]*models.ReferralVisit, 0)
	for rows.Next() {
		var (
			v         models.ReferralVisit
			createdAt int64
		)
		if err := rows.Scan(&v.ID, &v.PartnerID, &v.ReferralCode, &v.VisitorID, &v.LandingPage, &v.IPAddress,
			&v.UserAgent, &v.UTMSource, &v.UTMMedium, &v.UTMCampaign, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan referral visit: %w", err)
		}
		v.CreatedAt = fromEpochMillis(createdAt)
		visits = append(visits, &v)
	}
	return visits, rows.Err()
}

// CaseStudies returns all case studies, newest first.
func (ss *SQLiteStorage) CaseStudies(ctx context.Context) ([]*models.CaseStudy, error) {
	rows, err := ss.db.QueryContext(ctx, `
		SELECT id, slug, title, product, industry, summary, published, created_at, updated_at
		FROM case_studies ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get case studies: %w", err)
	}
	defer rows.Close()

	studies := make([]*models.CaseStudy, 0)
	for rows.Next() {
		var (
			cs                   models.CaseStudy
			published            int
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&cs.ID, &cs.Slug, &cs.Title, &cs.Product, &cs.Industry, &cs.Summary, &published,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan case study: %w", err)
		}
		cs.Published = published != 0
		cs.CreatedAt = fromEpochMillis(createdAt)
		cs.UpdatedAt = fromEpochMillis(updatedAt)
		studies = append(studies, &cs)
	}
	return studies, rows.Err()
}

// SaveCaseStudy stores or updates a case study.
func (ss *SQLiteStorage) SaveCaseStudy(ctx context.Context, cs *models.CaseStudy) error {
	_, err := ss.db.ExecContext(ctx, `
		INSERT INTO case_studies (id, slug, title, product, industry, summary, published, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			slug = excluded.slug,
			title = excluded.title,
			product = excluded.product,
			industry = excluded.industry,
			summary = excluded.summary,
			published = excluded.published,
			updated_at = excluded.updated_at`,
		cs.ID, cs.Slug, cs.Title, cs.Product, cs.Industry, cs.Summary, boolToInt(cs.Published),
		toEpochMillis(cs.CreatedAt), toEpochMillis(cs.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save case study: %w", err)
	}
	return nil
}

// CreateAPIKey persists a new API key.
func (ss *SQLiteStorage) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	perms, err := marshalPermissions(key.Permissions)
	if err != nil {
		return err
	}
	_, err = ss.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, name, key_hash, prefix, permissions, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		key.ID, key.Name, key.KeyHash, key.Prefix, perms, boolToInt(key.Enabled),
		toEpochMillis(key.CreatedAt), toEpochMillis(key.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func scanSQLiteAPIKey(row sqliteScanner) (*models.APIKey, error) {
	var (
		k                    models.APIKey
		perms                string
		enabled              int
		createdAt, updatedAt int64
	)
	if err := row.Scan(&k.ID, &k.Name, &k.KeyHash, &k.Prefix, &perms, &enabled, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p, err := unmarshalPermissions(perms)
	if err != nil {
		return nil, err
	}
	k.Permissions = p
	k.Enabled = enabled != 0
	k.CreatedAt = fromEpochMillis(createdAt)
	k.UpdatedAt = fromEpochMillis(updatedAt)
	return &k, nil
}

const sqliteAPIKeyColumns = `id, name, key_hash, prefix, permissions, enabled, created_at, updated_at`

// GetAPIKeyByHash looks up a key by its hash.
func (ss *SQLiteStorage) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	k, err := scanSQLiteAPIKey(ss.db.QueryRowContext(ctx,
		`SELECT `+sqliteAPIKeyColumns+` FROM api_keys WHERE key_hash = ?`, hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}

// ListAPIKeys returns every stored key, oldest first.
func (ss *SQLiteStorage) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := ss.db.QueryContext(ctx, `SELECT `+sqliteAPIKeyColumns+` FROM api_keys ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	keys := make([]*models.APIKey, 0)
	for rows.Next() {
		k, err := scanSQLiteAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Ping verifies the database connection.
func (ss *SQLiteStorage) Ping(ctx context.Context) error {
	return ss.db.PingContext(ctx)
}

// Close closes the database.
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}

// isSQLiteConstraint matches constraint failures by message; the driver does not
// export typed constraint errors.
func isSQLiteConstraint(err error, kind string) bool {
	return strings.Contains(err.Error(), kind+" constraint failed")
}
