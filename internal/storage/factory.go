package storage

import (
	"fmt"
	"sort"

	"storefront/internal/models"
)

// opener builds a backend from the flattened storage Config.
type opener func(Config) (Storage, error)

// Factory maps configured storage types to backends.
type Factory struct {
	openers map[string]opener
}

// NewFactory returns a factory with the memory, json, postgres and sqlite backends registered.
func NewFactory() *Factory {
	return &Factory{openers: map[string]opener{
		models.StorageTypeMemory:   func(c Config) (Storage, error) { return NewMemoryStorage(c) },
		models.StorageTypeJSON:     func(c Config) (Storage, error) { return NewJSONStorage(c) },
		models.StorageTypePostgres: func(c Config) (Storage, error) { return NewPostgresStorage(c) },
		models.StorageTypeSQLite:   func(c Config) (Storage, error) { return NewSQLiteStorage(c) },
	}}
}

// Create validates config and opens the backend it names.
func (f *Factory) Create(config models.StorageConfig) (Storage, error) {
	if err := f.ValidateConfig(config); err != nil {
		return nil, err
	}

	open := f.openers[config.Type]
	s, err := open(toBackendConfig(config))
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", config.Type, err)
	}
	return s, nil
}

// GetSupportedProviders lists the registered storage types in sorted order.
func (f *Factory) GetSupportedProviders() []string {
	types := make([]string, 0, len(f.openers))
	for t := range f.openers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ValidateConfig checks that the type is registered and carries the location it needs:
// a file path for json, a DSN for the SQL backends.
func (f *Factory) ValidateConfig(config models.StorageConfig) error {
	if _, ok := f.openers[config.Type]; !ok {
		return fmt.Errorf("unsupported storage type: %s", config.Type)
	}
	switch config.Type {
	case models.StorageTypeJSON:
		if config.Path == "" {
			return fmt.Errorf("path is required for JSON storage")
		}
	case models.StorageTypePostgres, models.StorageTypeSQLite:
		if config.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for %s storage", config.Type)
		}
	}
	return nil
}

func toBackendConfig(config models.StorageConfig) Config {
	options := make(map[string]interface{}, len(config.Options))
	for k, v := range config.Options {
		options[k] = v
	}
	return Config{
		Type:             config.Type,
		Path:             config.Path,
		ConnectionString: config.Database.DSN,
		MaxOpenConns:     config.Database.MaxOpenConns,
		ConnMaxLifetime:  config.Database.ConnMaxLifetime,
		CacheTTL:         config.Options["cache_ttl"],
		Options:          options,
	}
}
