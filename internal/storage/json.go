package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"storefront/internal/models"
)

// JSONStorage implements the Storage interface using a single JSON file for persistence.
// It provides an in-memory cache for performance and supports concurrent access.
type JSONStorage struct {
	filePath     string
	cacheTTL     time.Duration
	mu           sync.RWMutex
	data         *JSONData
	lastModified time.Time
	cacheExpiry  time.Time
}

// JSONData represents the structure of data stored in JSON format
type JSONData struct {
	Partners       []*models.Partner       `json:"partners"`
	ReferralVisits []*models.ReferralVisit `json:"referral_visits"`
	CaseStudies    []*models.CaseStudy     `json:"case_studies"`
	APIKeys        []*models.APIKey        `json:"api_keys"`
	LastUpdated    time.Time               `json:"last_updated"`
}

// NewJSONStorage creates a new JSON-based storage instance
func NewJSONStorage(config Config) (*JSONStorage, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("path is required for JSON storage")
	}

	cacheTTL := 5 * time.Minute
	if config.CacheTTL != "" {
		if duration, err := time.ParseDuration(config.CacheTTL); err == nil {
			cacheTTL = duration
		}
	}

	storage := &JSONStorage{
		filePath: config.Path,
		cacheTTL: cacheTTL,
	}

	// Initialize with empty data if file doesn't exist
	if err := storage.ensureFileExists(); err != nil {
		return nil, fmt.Errorf("failed to ensure file exists: %w", err)
	}

	if err := storage.loadData(); err != nil {
		return nil, fmt.Errorf("failed to load initial data: %w", err)
	}

	return storage, nil
}

// ensureFileExists creates the JSON file with empty data if it doesn't exist
func (j *JSONStorage) ensureFileExists() error {
	if _, err := os.Stat(j.filePath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(j.filePath), 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}

		return j.saveData(&JSONData{
			Partners:       []*models.Partner{},
			ReferralVisits: []*models.ReferralVisit{},
			CaseStudies:    []*models.CaseStudy{},
			APIKeys:        []*models.APIKey{},
		})
	}
	return nil
}

// loadData loads data from the JSON file with caching.
// It uses double-checked locking: a fast read-lock path for cache hits,
// and a write-lock slow path with re-validation.
func (j *JSONStorage) loadData() error {
	j.mu.RLock()
	if j.data != nil && time.Now().Before(j.cacheExpiry) {
		j.mu.RUnlock()
		return nil
	}
	j.mu.RUnlock()

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.data != nil && time.Now().Before(j.cacheExpiry) {
		return nil
	}

	info, err := os.Stat(j.filePath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	// If the file hasn't changed, extend the cache and return.
	if j.data != nil && !info.ModTime().After(j.lastModified) {
		j.cacheExpiry = time.Now().Add(j.cacheTTL)
		return nil
	}

	fileData, err := os.ReadFile(j.filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var data JSONData
	if err := json.Unmarshal(fileData, &data); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	j.data = &data
	j.lastModified = info.ModTime()
	j.cacheExpiry = time.Now().Add(j.cacheTTL)
	return nil
}

// saveData writes data to the JSON file. Callers hold the write lock.
func (j *JSONStorage) saveData(data *JSONData) error {
	data.LastUpdated = time.Now()

	fileData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(j.filePath, fileData, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if info, err := os.Stat(j.filePath); err == nil {
		j.lastModified = info.ModTime()
	}
	return nil
}

// Partners returns all partners, oldest first
func (j *JSONStorage) Partners(ctx context.Context) ([]*models.Partner, error) {
	if err := j.loadData(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	partners := make([]*models.Partner, 0, len(j.data.Partners))
	for _, p := range j.data.Partners {
		pCopy := *p
		partners = append(partners, &pCopy)
	}
	sortPartners(partners)
	return partners, nil
}

// GetPartner retrieves a partner by its ID
func (j *JSONStorage) GetPartner(ctx context.Context, id string) (*models.Partner, error) {
	if err := j.loadData(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	for _, p := range j.data.Partners {
		if p.ID == id {
			pCopy := *p
			return &pCopy, nil
		}
	}
	return nil, fmt.Errorf("partner %s: %w", id, ErrNotFound)
}

// GetPartnerByReferralCode retrieves a partner by its referral code
func (j *JSONStorage) GetPartnerByReferralCode(ctx context.Context, code string) (*models.Partner, error) {
	if err := j.loadData(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	for _, p := range j.data.Partners {
		if p.ReferralCode == code {
			pCopy := *p
			return &pCopy, nil
		}
	}
	return nil, fmt.Errorf("referral code %s: %w", code, ErrNotFound)
}

// SavePartner stores or updates a partner
func (j *JSONStorage) SavePartner(ctx context.Context, partner *models.Partner) error {
	if err := j.loadData(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	idx := -1
	for i, p := range j.data.Partners {
		if p.ReferralCode == partner.ReferralCode && p.ID != partner.ID {
			return ErrDuplicateReferralCode
		}
		if p.ID == partner.ID {
			idx = i
		}
	}

	pCopy := *partner
	if idx >= 0 {
		j.data.Partners[idx] = &pCopy
	} else {
		j.data.Partners = append(j.data.Partners, &pCopy)
	}
	return j.saveData(j.data)
}

// DeletePartner removes a partner with no recorded visits
func (j *JSONStorage) DeletePartner(ctx context.Context, id string) error {
	if err := j.loadData(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	for _, v := range j.data.ReferralVisits {
		if v.PartnerID == id {
			return ErrHasDependencies
		}
	}

	for i, p := range j.data.Partners {
		if p.ID == id {
			j.data.Partners = append(j.data.Partners[:i], j.data.Partners[i+1:]...)
			return j.saveData(j.data)
		}
	}
	return fmt.Errorf("partner %s: %w", id, ErrNotFound)
}

// InsertReferralVisit appends a visit record
func (j *JSONStorage) InsertReferralVisit(ctx context.Context, visit *models.ReferralVisit) error {
	if err := j.loadData(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	vCopy := *visit
	j.data.ReferralVisits = append(j.data.ReferralVisits, &vCopy)
	return j.saveData(j.data)
}

// ReferralVisits returns a partner's visits, newest first
func (j *JSONStorage) ReferralVisits(ctx context.Context, partnerID string) ([]*models.ReferralVisit, error) {
	if err := j.loadData(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	visits := make([]*models.ReferralVisit, 0)
	for _, v := range j.data.ReferralVisits {
		if v.PartnerID == partnerID {
			vCopy := *v
			visits = append(visits, &vCopy)
		}
	}
	sortVisits(visits)
	return visits, nil
}

// CaseStudies returns all case studies, newest first
func (j *JSONStorage) CaseStudies(ctx context.Context) ([]*models.CaseStudy, error) {
	if err := j.loadData(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	studies := make([]*models.CaseStudy, 0, len(j.data.CaseStudies))
	for _, cs := range j.data.CaseStudies {
		csCopy := *cs
		studies = append(studies, &csCopy)
	}
	sortCaseStudies(studies)
	return studies, nil
}

// SaveCaseStudy stores or updates a case study
func (j *JSONStorage) SaveCaseStudy(ctx context.Context, study *models.CaseStudy) error {
	if err := j.loadData(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	csCopy := *study
	for i, cs := range j.data.CaseStudies {
		if cs.ID == study.ID {
			j.data.CaseStudies[i] = &csCopy
			return j.saveData(j.data)
		}
	}
	j.data.CaseStudies = append(j.data.CaseStudies, &csCopy)
	return j.saveData(j.data)
}

// CreateAPIKey persists a new API key
func (j *JSONStorage) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	if err := j.loadData(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	for _, k := range j.data.APIKeys {
		if k.KeyHash == key.KeyHash {
			return fmt.Errorf("api key with this hash already exists")
		}
	}
	kCopy := *key
	j.data.APIKeys = append(j.data.APIKeys, &kCopy)
	return j.saveData(j.data)
}

// GetAPIKeyByHash looks up a key by its hash
func (j *JSONStorage) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	if err := j.loadData(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	for _, k := range j.data.APIKeys {
		if k.KeyHash == hash {
			kCopy := *k
			return &kCopy, nil
		}
	}
	return nil, ErrNotFound
}

// ListAPIKeys returns every stored key, oldest first
func (j *JSONStorage) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	if err := j.loadData(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	keys := make([]*models.APIKey, 0, len(j.data.APIKeys))
	for _, k := range j.data.APIKeys {
		kCopy := *k
		keys = append(keys, &kCopy)
	}
	sortAPIKeys(keys)
	return keys, nil
}

// Ping verifies the backing file is still readable.
func (j *JSONStorage) Ping(_ context.Context) error {
	if _, err := os.Stat(j.filePath); err != nil {
		return fmt.Errorf("json storage unavailable: %w", err)
	}
	return nil
}

// Close clears the cache
func (j *JSONStorage) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.data = nil
	j.cacheExpiry = time.Time{}
	return nil
}
