package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParsesLegacyAliases(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("DB_CONNECTION_STRING", "postgres://localhost/tutorhub")
	t.Setenv("LEGACY_COURSE_ALIASES", "AI-In-Web-Development:6f1c2f4e-7a2b-4c1d-9e3f-0a1b2c3d4e5f, old-python:11111111-2222-3333-4444-555555555555")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "6f1c2f4e-7a2b-4c1d-9e3f-0a1b2c3d4e5f", cfg.LegacyCourseAliases["ai-in-web-development"])
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", cfg.LegacyCourseAliases["old-python"])
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadRequiresDatabase(t *testing.T) {
	// t.Setenv registers the restore; the variable must be absent, not empty.
	t.Setenv("DB_CONNECTION_STRING", "unused")
	require.NoError(t, os.Unsetenv("DB_CONNECTION_STRING"))

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	tests := []struct {
		env  string
		dsn  string
		want string
	}{
		{"development", "postgres://localhost/tutorhub", "postgres://localhost/tutorhub?sslmode=disable"},
		{"development", "postgres://localhost/tutorhub?sslmode=require", "postgres://localhost/tutorhub?sslmode=require"},
		{"development", "host=localhost dbname=tutorhub", "host=localhost dbname=tutorhub sslmode=disable"},
		{"production", "postgres://db/tutorhub?sslmode=require", "postgres://db/tutorhub?sslmode=require&default_query_exec_mode=simple_protocol"},
	}
	for _, tt := range tests {
		cfg := &Config{Environment: tt.env, DBConnectionString: tt.dsn}
		assert.Equal(t, tt.want, cfg.DatabaseDSN())
	}
}
