package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 3001, cfg.Web.Port)
	assert.Equal(t, DefaultAllowedOrigins, cfg.Web.AllowedOrigins)
	assert.False(t, cfg.Mail.Enabled())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRE", "2h")
	t.Setenv("RATE_LIMIT_MAX", "50")
	t.Setenv("METRICS_ENABLE", "true")
	t.Setenv("FRONTEND_URL", "https://salon.example.com, http://localhost:3000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Web.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.Expire)
	assert.Equal(t, 50, cfg.Web.RateLimitMax)
	assert.True(t, cfg.Web.Metrics)

	// FRONTEND_URL extends the defaults without duplicating them
	assert.Len(t, cfg.Web.AllowedOrigins, len(DefaultAllowedOrigins)+1)
	assert.Contains(t, cfg.Web.AllowedOrigins, "https://salon.example.com")
}

func TestAllowedOriginsReplacesList(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Web.AllowedOrigins)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "salond.yml")
	require.NoError(t, os.WriteFile(file, []byte(`
web:
  port: 4000
  rate_limit_window: 1m
database:
  type: sqlite
  name: bookings.db
mail:
  host: smtp.example.com
  to: salon@example.com
`), 0o644))
	t.Setenv("DB_NAME", "override.db")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Web.Port)
	assert.Equal(t, time.Minute, cfg.Web.RateLimitWindow)
	assert.Equal(t, "override.db", cfg.Database.Name)
	assert.True(t, cfg.Mail.Enabled())
	// untouched keys keep their defaults
	assert.Equal(t, 1000, cfg.Web.RateLimitMax)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Web.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Database.Type = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.System.Env = EnvProduction
	assert.Error(t, cfg.Validate())
	cfg.Auth.Secret = "a-real-secret"
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
