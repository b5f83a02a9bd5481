// Package client implements the visitor-side half of referral attribution:
// capturing ?ref= codes into durable local storage, keeping a stable visitor
// id, and reporting visits to the tracking endpoint without ever blocking the
// caller.
package client

import (
	"sync"
	"time"

	bolt "github.com/boltdb/bolt"
)

// Fixed keys under which attribution state is persisted. Values are plain strings.
const (
	KeyReferralCode = "referral_code"
	KeyCapturedAt   = "referral_captured_at" // epoch milliseconds
	KeyVisitorID    = "visitor_id"
)

// Store is durable client-local key/value storage.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Close() error
}

// MemoryStore is a Store that lives only as long as the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Close() error { return nil }

const bucketName = "attribution"

// BoltStore persists attribution state in a single BoltDB file so it survives restarts.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (or creates) the database at path and ensures the bucket exists.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(key string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		// bolt values are only valid inside the transaction, so copy out
		if v := tx.Bucket([]byte(bucketName)).Get([]byte(key)); v != nil {
			value, ok = string(v), true
		}
		return nil
	})
	return value, ok, err
}

func (s *BoltStore) Set(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), []byte(value))
	})
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
