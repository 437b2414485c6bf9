package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_MODE", "")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("EMAIL_SEND_TIMEOUT_SECONDS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeProduction, cfg.App.Mode)
	assert.False(t, cfg.App.IsDemo())
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Equal(t, 10*time.Second, cfg.Email.SendTimeout())
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
}

func TestLoadDemoModeRequiresAdminEmail(t *testing.T) {
	t.Setenv("APP_MODE", "demo")
	t.Setenv("ADMIN_EMAIL", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("ADMIN_EMAIL", "admin@example.com")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.App.IsDemo())
	assert.Equal(t, "admin@example.com", cfg.Email.AdminEmail)
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	t.Setenv("APP_MODE", "staging")

	_, err := Load()
	assert.Error(t, err)
}

func TestEnvHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	t.Setenv("SOME_BOOL", "maybe")

	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
	assert.True(t, getEnvAsBool("SOME_BOOL", true))
}
