package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/crec-session/internal/config"
	"github.com/stretchr/testify/require"
)

func writePolicyFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policies.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadPolicies(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		p, err := config.LoadPolicies("")
		require.NoError(t, err)
		require.Equal(t, 30*time.Minute, p.GetAdminSessionTimeout())
		require.Equal(t, 15*time.Minute, p.GetAdminInactivityTimeout())
		require.Equal(t, 15*time.Minute, p.GetFabLabSessionTimeout())
		require.Equal(t, 10*time.Minute, p.GetFabLabInactivityTimeout())
		require.Equal(t, time.Minute, p.GetSessionCheckInterval())
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writePolicyFile(t, `
[admin]
session_timeout = "45m"

[fablab]
inactivity_timeout = "5m"

[monitor]
check_interval = "30s"
`)
		p, err := config.LoadPolicies(path)
		require.NoError(t, err)
		require.Equal(t, 45*time.Minute, p.GetAdminSessionTimeout())
		require.Equal(t, 15*time.Minute, p.GetAdminInactivityTimeout())
		require.Equal(t, 5*time.Minute, p.GetFabLabInactivityTimeout())
		require.Equal(t, 30*time.Second, p.GetSessionCheckInterval())
	})

	t.Run("env overrides file", func(t *testing.T) {
		path := writePolicyFile(t, "[admin]\nsession_timeout = \"45m\"\n")
		t.Setenv("ADMIN_SESSION_TIMEOUT", "1h")
		p, err := config.LoadPolicies(path)
		require.NoError(t, err)
		require.Equal(t, time.Hour, p.GetAdminSessionTimeout())
	})

	t.Run("invalid env falls back", func(t *testing.T) {
		t.Setenv("FABLAB_SESSION_TIMEOUT", "soon")
		p, err := config.LoadPolicies("")
		require.NoError(t, err)
		require.Equal(t, 15*time.Minute, p.GetFabLabSessionTimeout())
	})

	t.Run("negative duration rejected", func(t *testing.T) {
		path := writePolicyFile(t, "[admin]\nsession_timeout = \"-5m\"\n")
		_, err := config.LoadPolicies(path)
		require.Error(t, err)
	})
}

func TestEnvVars(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BASE_URL", "https://api.crec.edu/")
	env := config.EnvVars{}
	require.Equal(t, ":9090", env.GetPort())
	require.Equal(t, "https://api.crec.edu", env.GetBaseURL())

	t.Setenv("ALLOWED_ORIGINS", "https://crec.edu, https://admin.crec.edu")
	origins := config.Cors{}.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://admin.crec.edu"))
	require.False(t, origins.IsAllowedOrigin("https://evil.example"))
}
