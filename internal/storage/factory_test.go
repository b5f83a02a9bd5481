package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

func TestFactory_Create(t *testing.T) {
	factory := NewFactory()
	dir := t.TempDir()

	tests := []struct {
		name    string
		config  models.StorageConfig
		wantErr bool
	}{
		{"memory", models.StorageConfig{Type: models.StorageTypeMemory}, false},
		{"json", models.StorageConfig{Type: models.StorageTypeJSON, Path: filepath.Join(dir, "s.json")}, false},
		{"sqlite", models.StorageConfig{Type: models.StorageTypeSQLite, Database: models.DatabaseConfig{DSN: filepath.Join(dir, "s.db")}}, false},
		{"json without path", models.StorageConfig{Type: models.StorageTypeJSON}, true},
		{"postgres without dsn", models.StorageConfig{Type: models.StorageTypePostgres}, true},
		{"unknown", models.StorageConfig{Type: "mongo"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := factory.Create(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()
			assert.NotNil(t, s)
		})
	}
}

func TestFactory_GetSupportedProviders(t *testing.T) {
	providers := NewFactory().GetSupportedProviders()
	assert.ElementsMatch(t, []string{"json", "memory", "postgres", "sqlite"}, providers)
}
