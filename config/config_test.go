package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	s, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:3003", s.Binding)
	assert.Equal(t, "development", s.Mode)
	assert.Equal(t, 1<<20, s.MaxBodySize)
	assert.Equal(t, "/static", s.Static.Mount)
	assert.False(t, s.Static.Enabled)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	yaml := `
binding: "0.0.0.0:8080"
mode: production
max_connections: 256
max_connection_time: 90s
log_level: warn
static:
  enabled: true
  dir: public
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "starberry.yaml"), []byte(yaml), 0o644))

	s, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", s.Binding)
	assert.Equal(t, "production", s.Mode)
	assert.Equal(t, 256, s.MaxConnections)
	assert.Equal(t, 90*time.Second, s.MaxConnectionTime)
	assert.Equal(t, "warn", s.LogLevel)
	assert.True(t, s.Static.Enabled)
	assert.Equal(t, "public", s.Static.Dir)
	// Unset keys keep their defaults.
	assert.Equal(t, 100, s.MaxHeaders)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "binding: \"0.0.0.0:8080\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "starberry.yaml"), []byte(yaml), 0o644))

	t.Setenv("STARBERRY_BINDING", "127.0.0.1:9999")
	t.Setenv("STARBERRY_MODE", "beta")

	s, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", s.Binding)
	assert.Equal(t, "beta", s.Mode)
}

func TestLoadRejectsBadMode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "starberry.yaml"), []byte("mode: turbo\n"), 0o644))

	_, err := Load(dir)
	assert.ErrorContains(t, err, "unknown mode")
}

func TestValidate(t *testing.T) {
	s := Default()
	assert.NoError(t, s.Validate())

	s.Binding = ""
	assert.Error(t, s.Validate())

	s = Default()
	s.MaxConnections = -1
	assert.Error(t, s.Validate())
}
