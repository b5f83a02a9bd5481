package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"storefront/internal/models"
)

// MemoryStorage implements the Storage interface using in-memory data structures.
// This provider is ideal for development, testing, and scenarios where data
// persistence is not required. It provides fast access but data is lost on restart.
type MemoryStorage struct {
	mu           sync.RWMutex
	partners     map[string]*models.Partner // keyed by ID
	codes        map[string]string          // referral code -> partner ID
	visits       []*models.ReferralVisit    // insertion order
	caseStudies  map[string]*models.CaseStudy
	apiKeys      map[string]*models.APIKey // keyed by ID
	apiKeyHashes map[string]string         // hash -> ID
}

// NewMemoryStorage creates a new memory-based storage instance
func NewMemoryStorage(config Config) (*MemoryStorage, error) {
	return &MemoryStorage{
		partners:     make(map[string]*models.Partner),
		codes:        make(map[string]string),
		caseStudies:  make(map[string]*models.CaseStudy),
		apiKeys:      make(map[string]*models.APIKey),
		apiKeyHashes: make(map[string]string),
	}, nil
}

// Partners returns all partners, oldest first
func (m *MemoryStorage) Partners(ctx context.Context) ([]*models.Partner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	partners := make([]*models.Partner, 0, len(m.partners))
	for _, p := range m.partners {
		// Return a copy to prevent external modification
		pCopy := *p
		partners = append(partners, &pCopy)
	}
	sortPartners(partners)
	return partners, nil
}

// GetPartner retrieves a partner by its ID
func (m *MemoryStorage) GetPartner(ctx context.Context, id string) (*models.Partner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.partners[id]
	if !exists {
		return nil, fmt.Errorf("partner %s: %w", id, ErrNotFound)
	}
	pCopy := *p
	return &pCopy, nil
}

// GetPartnerByReferralCode retrieves a partner by its referral code
func (m *MemoryStorage) GetPartnerByReferralCode(ctx context.Context, code string) (*models.Partner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.codes[code]
	if !exists {
		return nil, fmt.Errorf("referral code %s: %w", code, ErrNotFound)
	}
	pCopy := *m.partners[id]
	return &pCopy, nil
}

// SavePartner stores or updates a partner
func (m *MemoryStorage) SavePartner(ctx context.Context, partner *models.Partner) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if owner, taken := m.codes[partner.ReferralCode]; taken && owner != partner.ID {
		return ErrDuplicateReferralCode
	}
	if prev, exists := m.partners[partner.ID]; exists && prev.ReferralCode != partner.ReferralCode {
		delete(m.codes, prev.ReferralCode)
	}

	// Store a copy to prevent external modification
	pCopy := *partner
	m.partners[partner.ID] = &pCopy
	m.codes[partner.ReferralCode] = partner.ID
	return nil
}

// DeletePartner removes a partner with no recorded visits
func (m *MemoryStorage) DeletePartner(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, exists := m.partners[id]
	if !exists {
		return fmt.Errorf("partner %s: %w", id, ErrNotFound)
	}
	for _, v := range m.visits {
		if v.PartnerID == id {
			return ErrHasDependencies
		}
	}

	delete(m.codes, p.ReferralCode)
	delete(m.partners, id)
	return nil
}

// InsertReferralVisit appends a visit record
func (m *MemoryStorage) InsertReferralVisit(ctx context.Context, visit *models.ReferralVisit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	vCopy := *visit
	m.visits = append(m.visits, &vCopy)
	return nil
}

// ReferralVisits returns a partner's visits, newest first
func (m *MemoryStorage) ReferralVisits(ctx context.Context, partnerID string) ([]*models.ReferralVisit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.ReferralVisit, 0)
	for _, v := range m.visits {
		if v.PartnerID == partnerID {
			vCopy := *v
			result = append(result, &vCopy)
		}
	}
	sortVisits(result)
	return result, nil
}

// CaseStudies returns all case studies, newest first
func (m *MemoryStorage) CaseStudies(ctx context.Context) ([]*models.CaseStudy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	studies := make([]*models.CaseStudy, 0, len(m.caseStudies))
	for _, cs := range m.caseStudies {
		csCopy := *cs
		studies = append(studies, &csCopy)
	}
	sortCaseStudies(studies)
	return studies, nil
}

// SaveCaseStudy stores or updates a case study
func (m *MemoryStorage) SaveCaseStudy(ctx context.Context, study *models.CaseStudy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	csCopy := *study
	m.caseStudies[study.ID] = &csCopy
	return nil
}

// CreateAPIKey persists a new API key
func (m *MemoryStorage) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.apiKeyHashes[key.KeyHash]; exists {
		return fmt.Errorf("api key with this hash already exists")
	}
	kCopy := *key
	kCopy.Permissions = append([]string(nil), key.Permissions...)
	m.apiKeys[key.ID] = &kCopy
	m.apiKeyHashes[key.KeyHash] = key.ID
	return nil
}

// GetAPIKeyByHash looks up a key by its hash
func (m *MemoryStorage) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.apiKeyHashes[hash]
	if !exists {
		return nil, ErrNotFound
	}
	kCopy := *m.apiKeys[id]
	return &kCopy, nil
}

// ListAPIKeys returns every stored key, oldest first
func (m *MemoryStorage) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]*models.APIKey, 0, len(m.apiKeys))
	for _, k := range m.apiKeys {
		kCopy := *k
		keys = append(keys, &kCopy)
	}
	sortAPIKeys(keys)
	return keys, nil
}

// Ping always succeeds
func (m *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for memory storage
func (m *MemoryStorage) Close() error {
	return nil
}

func sortPartners(partners []*models.Partner) {
	sort.Slice(partners, func(i, j int) bool {
		if partners[i].CreatedAt.Equal(partners[j].CreatedAt) {
			return partners[i].ID < partners[j].ID
		}
		return partners[i].CreatedAt.Before(partners[j].CreatedAt)
	})
}

// sortVisits orders newest first, keeping insertion order among equal timestamps.
func sortVisits(visits []*models.ReferralVisit) {
	sort.SliceStable(visits, func(i, j int) bool {
		return visits[j].CreatedAt.Before(visits[i].CreatedAt)
	})
}

func sortCaseStudies(studies []*models.CaseStudy) {
	sort.Slice(studies, func(i, j int) bool {
		if studies[i].CreatedAt.Equal(studies[j].CreatedAt) {
			return studies[i].ID < studies[j].ID
		}
		return studies[j].CreatedAt.Before(studies[i].CreatedAt)
	})
}

func sortAPIKeys(keys []*models.APIKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CreatedAt.Equal(keys[j].CreatedAt) {
			return keys[i].ID < keys[j].ID
		}
		return keys[i].CreatedAt.Before(keys[j].CreatedAt)
	})
}
