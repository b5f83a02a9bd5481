package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/models"
)

// PostgreSQL SQLSTATE codes mapped to storage sentinels.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS partners (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		company       TEXT,
		email         TEXT NOT NULL,
		referral_code TEXT NOT NULL UNIQUE,
		status        TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS referral_visits (
		id            TEXT PRIMARY KEY,
		partner_id    TEXT NOT NULL REFERENCES partners(id),
		referral_code TEXT NOT NULL,
		visitor_id    TEXT NOT NULL,
		landing_page  TEXT,
		ip_address    TEXT NOT NULL,
		user_agent    TEXT,
		utm_source    TEXT,
		utm_medium    TEXT,
		utm_campaign  TEXT,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_referral_visits_partner ON referral_visits (partner_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS case_studies (
		id         TEXT PRIMARY KEY,
		slug       TEXT NOT NULL,
		title      TEXT NOT NULL,
		product    TEXT NOT NULL,
		industry   TEXT,
		summary    TEXT,
		published  BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		key_hash    TEXT NOT NULL UNIQUE,
		prefix      TEXT NOT NULL,
		permissions JSONB NOT NULL,
		enabled     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
}

// PostgresStorage implements the Storage interface on a pgx connection pool.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects, verifies the connection and bootstraps the schema.
func NewPostgresStorage(config Config) (*PostgresStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL storage")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if config.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(config.MaxOpenConns)
	}
	if config.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = config.ConnMaxLifetime
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return &PostgresStorage{pool: pool}, nil
}

const partnerColumns = `id, name, company, email, referral_code, status, created_at, updated_at`

func scanPartner(row pgx.Row) (*models.Partner, error) {
	var (
		p         models.Partner
		company   pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&p.ID, &p.Name, &company, &p.Email, &p.ReferralCode, &p.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Company = pgTextToString(company)
	p.CreatedAt = pgTimestamptzToTime(createdAt)
	p.UpdatedAt = pgTimestamptzToTime(updatedAt)
	return &p, nil
}

// Partners returns all partners, oldest first.
func (ps *PostgresStorage) Partners(ctx context.Context) ([]*models.Partner, error) {
	rows, err := ps.pool.Query(ctx, `SELECT `+partnerColumns+` FROM partners ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get partners: %w", err)
	}
	defer rows.Close()

	partners := make([]*models.Partner, 0)
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

// GetPartner retrieves a partner by its ID.
func (ps *PostgresStorage) GetPartner(ctx context.Context, id string) (*models.Partner, error) {
	p, err := scanPartner(ps.pool.QueryRow(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("partner %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	return p, nil
}

// GetPartnerByReferralCode retrieves a partner by its referral code.
func (ps *PostgresStorage) GetPartnerByReferralCode(ctx context.Context, code string) (*models.Partner, error) {
	p, err := scanPartner(ps.pool.QueryRow(ctx, `SELECT `+partnerColumns+` FROM partners WHERE referral_code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("referral code %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get partner by referral code: %w", err)
	}
	return p, nil
}

// SavePartner stores or updates a partner (upsert on id).
func (ps *PostgresStorage) SavePartner(ctx context.Context, p *models.Partner) error {
	_, err := ps.pool.Exec(ctx, `
		INSERT INTO partners (`+partnerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			company = EXCLUDED.company,
			email = EXCLUDED.email,
			referral_code = EXCLUDED.referral_code,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.Name, stringToPgText(p.Company), p.Email, p.ReferralCode, p.Status,
		timeToPgTimestamptz(p.CreatedAt), timeToPgTimestamptz(p.UpdatedAt),
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return ErrDuplicateReferralCode
		}
		return fmt.Errorf("failed to save partner: %w", err)
	}
	return nil
}

// DeletePartner removes a partner with no recorded visits.
func (ps *PostgresStorage) DeletePartner(ctx context.Context, id string) error {
	var hasVisits bool
	if err := ps.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM referral_visits WHERE partner_id = $1)`, id,
	).Scan(&hasVisits); err != nil {
		return fmt.Errorf("failed to check partner visits: %w", err)
	}
	if hasVisits {
		return ErrHasDependencies
	}

	tag, err := ps.pool.Exec(ctx, `DELETE FROM partners WHERE id = $1`, id)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return ErrHasDependencies
		}
		return fmt.Errorf("failed to delete partner %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("partner %s: %w", id, ErrNotFound)
	}
	return nil
}

// InsertReferralVisit appends a visit record.
func (ps *PostgresStorage) InsertReferralVisit(ctx context.Context, v *models.ReferralVisit) error {
	_, err := ps.pool.Exec(ctx, `
		INSERT INTO referral_visits (id, partner_id, referral_code, visitor_id, landing_page,
			ip_address, user_agent, utm_source, utm_medium, utm_campaign, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		v.ID, v.PartnerID, v.ReferralCode, v.VisitorID, stringToPgText(v.LandingPage),
		v.IPAddress, stringToPgText(v.UserAgent),
		stringToPgText(v.UTMSource), stringToPgText(v.UTMMedium), stringToPgText(v.UTMCampaign),
		timeToPgTimestamptz(v.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert referral visit: %w", err)
	}
	return nil
}

// ReferralVisits returns a partner's visits, newest first.
func (ps *PostgresStorage) ReferralVisits(ctx context.Context, partnerID string) ([]*models.ReferralVisit, error) {
	rows, err := ps.pool.Query(ctx, `
		SELECT id, partner_id, referral_code, visitor_id, landing_page, ip_address, user_agent,
			utm_source, utm_medium, utm_campaign, created_at
		FROM referral_visits WHERE partner_id = $1 ORDER BY created_at DESC, id`, partnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral visits: %w", err)
	}
	defer rows.Close()

	visits := make([]*models.ReferralVisit, 0)
	for rows.Next() {
		var (
			v                                  models.ReferralVisit
			landing, ua, source, medium, campg pgtype.Text
			createdAt                          pgtype.Timestamptz
		)
		if err := rows.Scan(&v.ID, &v.PartnerID, &v.ReferralCode, &v.VisitorID, &landing, &v.IPAddress, &ua,
			&source, &medium, &campg, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan referral visit: %w", err)
		}
		v.LandingPage = pgTextToString(landing)
		v.UserAgent = pgTextToString(ua)
		v.UTMSource = pgTextToString(source)
		v.UTMMedium = pgTextToString(medium)
		v.UTMCampaign = pgTextToString(campg)
		v.CreatedAt = pgTimestamptzToTime(createdAt)
		visits = append(visits, &v)
	}
	return visits, rows.Err()
}

// CaseStudies returns all case studies, newest first.
func (ps *PostgresStorage) CaseStudies(ctx context.Context) ([]*models.CaseStudy, error) {
	rows, err := ps.pool.Query(ctx, `
		SELECT id, slug, title, product, industry, summary, published, created_at, updated_at
		FROM case_studies ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get case studies: %w", err)
	}
	defer rows.Close()

	studies := make([]*models.CaseStudy, 0)
	for rows.Next() {
		var (
			cs                 models.CaseStudy
			industry, summary  pgtype.Text
			createdAt, updated pgtype.Timestamptz
		)
		if err := rows.Scan(&cs.ID, &cs.Slug, &cs.Title, &cs.Product, &industry, &summary, &cs.Published,
			&createdAt, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan case study: %w", err)
		}
		cs.Industry = pgTextToString(industry)
		cs.Summary = pgTextToString(summary)
		cs.CreatedAt = pgTimestamptzToTime(createdAt)
		cs.UpdatedAt = pgTimestamptzToTime(updated)
		studies = append(studies, &cs)
	}
	return studies, rows.Err()
}

// SaveCaseStudy stores or updates a case study.
func (ps *PostgresStorage) SaveCaseStudy(ctx context.Context, cs *models.CaseStudy) error {
	_, err := ps.pool.Exec(ctx, `
		INSERT INTO case_studies (id, slug, title, product, industry, summary, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			slug = EXCLUDED.slug,
			title = EXCLUDED.title,
			product = EXCLUDED.product,
			industry = EXCLUDED.industry,
			summary = EXCLUDED.summary,
			published = EXCLUDED.published,
			updated_at = EXCLUDED.updated_at`,
		cs.ID, cs.Slug, cs.Title, cs.Product, stringToPgText(cs.Industry), stringToPgText(cs.Summary),
		cs.Published, timeToPgTimestamptz(cs.CreatedAt), timeToPgTimestamptz(cs.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save case study: %w", err)
	}
	return nil
}

// CreateAPIKey persists a new API key.
func (ps *PostgresStorage) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	perms, err := marshalPermissions(key.Permissions)
	if err != nil {
		return err
	}
	_, err = ps.pool.Exec(ctx, `
		INSERT INTO api_keys (id, name, key_hash, prefix, permissions, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.Name, key.KeyHash, key.Prefix, []byte(perms), key.Enabled,
		timeToPgTimestamptz(key.CreatedAt), timeToPgTimestamptz(key.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

const apiKeyColumns = `id, name, key_hash, prefix, permissions::text, enabled, created_at, updated_at`

func scanAPIKey(row pgx.Row) (*models.APIKey, error) {
	var (
		k                    models.APIKey
		perms                string
		createdAt, updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&k.ID, &k.Name, &k.KeyHash, &k.Prefix, &perms, &k.Enabled, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p, err := unmarshalPermissions(perms)
	if err != nil {
		return nil, err
	}
	k.Permissions = p
	k.CreatedAt = pgTimestamptzToTime(createdAt)
	k.UpdatedAt = pgTimestamptzToTime(updatedAt)
	return &k, nil
}

// GetAPIKeyByHash looks up a key by its hash.
func (ps *PostgresStorage) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	k, err := scanAPIKey(ps.pool.QueryRow(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, hash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}

// ListAPIKeys returns every stored key, oldest first.
func (ps *PostgresStorage) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := ps.pool.Query(ctx, `SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	keys := make([]*models.APIKey, 0)
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Ping verifies the database connection.
func (ps *PostgresStorage) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close closes the connection pool.
func (ps *PostgresStorage) Close() error {
	ps.pool.Close()
	return nil
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
