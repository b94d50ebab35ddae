package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  host: "0.0.0.0"
  port: 9090
catalog:
  definition_file: "catalog.yaml"
  watch: true
cache:
  max_size: 1000
  default_ttl_seconds: 60
telemetry:
  enabled: true
  sink_type: "console"
  batch_size: 25
  flush_interval_seconds: 2.5
auth:
  submit_token: "submit-abc"
  approve_token: "approve-xyz"
deprecation:
  enabled: true
  redirect_on_resolve: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadParsesConfig(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Catalog.Watch)
	assert.Equal(t, 1000, cfg.Cache.MaxSize)
	assert.Equal(t, 60*time.Second, cfg.Cache.DefaultTTL())
	assert.Equal(t, 2500*time.Millisecond, cfg.Telemetry.FlushInterval())
	assert.Equal(t, "submit-abc", cfg.Auth.SubmitToken)
	assert.True(t, cfg.Deprecation.RedirectOnResolve)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 0\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5000, cfg.Cache.MaxSize)
	assert.Equal(t, 300*time.Second, cfg.Cache.DefaultTTL())
	assert.Equal(t, 50, cfg.Telemetry.BatchSize)
	assert.Equal(t, 10000, cfg.Telemetry.MaxQueueSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverridesTokensAndPort(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	t.Setenv("RESOLVER_SUBMIT_TOKEN", "env-submit")
	t.Setenv("RESOLVER_APPROVE_TOKEN", "env-approve")
	t.Setenv("RESOLVER_PORT", "7000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-submit", cfg.Auth.SubmitToken)
	assert.Equal(t, "env-approve", cfg.Auth.ApproveToken)
	assert.Equal(t, 7000, cfg.Server.Port)
}
