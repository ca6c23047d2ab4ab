package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
system:
  name: test-core
providers:
  primary:
    type: cloud
    primary: true
    models: [gpt-test]
tools:
  soma:
    category: execution
agents:
  assistant:
    allowed_tools: [soma]
`

func TestLoader_LoadAppliesDefaultsAndValidates(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)
	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "test-core", cfg.System.Name)
	assert.Equal(t, 15000, cfg.Providers["primary"].TimeoutMs)
	assert.Equal(t, 5, cfg.Providers["primary"].CircuitBreaker.FailureThreshold)
	assert.Equal(t, 0.7, cfg.Decision.ConfidenceThreshold)
	assert.Equal(t, 20, cfg.History.MaxTurns)
}

func TestLoader_EnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_API_KEY", "secret-value")
	path := writeTempConfig(t, `
providers:
  primary:
    type: cloud
    auth_env_var: ${TEST_API_KEY}
`)
	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "secret-value", cfg.Providers["primary"].AuthEnvVar)
}

func TestLoader_MissingEnvVarFails(t *testing.T) {
	os.Unsetenv("DEFINITELY_NOT_SET_XYZ")
	path := writeTempConfig(t, `
providers:
  primary:
    type: cloud
    auth_env_var: ${DEFINITELY_NOT_SET_XYZ}
`)
	_, err := NewLoader(path).Load()
	require.Error(t, err)
	var missing *EnvVarMissingError
	assert.ErrorAs(t, err, &missing)
}

func TestLoader_EnvVarWithDefault(t *testing.T) {
	path := writeTempConfig(t, `
providers:
  primary:
    type: cloud
    base_url: ${SOME_URL:-http://localhost:11434}
`)
	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", cfg.Providers["primary"].BaseURL)
}

func TestLoader_DanglingToolReferenceRejected(t *testing.T) {
	path := writeTempConfig(t, `
agents:
  assistant:
    allowed_tools: [does_not_exist]
`)
	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does_not_exist")
}

func TestLoader_DisabledComponentIsDangling(t *testing.T) {
	path := writeTempConfig(t, `
tools:
  soma:
    category: execution
    enabled: false
agents:
  assistant:
    allowed_tools: [soma]
`)
	_, err := NewLoader(path).Load()
	require.Error(t, err)
}

func TestLoader_ProviderFallbackCycleRejected(t *testing.T) {
	path := writeTempConfig(t, `
providers:
  a:
    type: cloud
    fallback_provider_id: b
  b:
    type: cloud
    fallback_provider_id: a
`)
	_, err := NewLoader(path).Load()
	require.Error(t, err)
	var cycleErr *CycleError
	assert.ErrorAs(t, err, &cycleErr)
}

func TestLoader_ProviderFallbackAcyclicAllowed(t *testing.T) {
	path := writeTempConfig(t, `
providers:
  a:
    type: cloud
    fallback_provider_id: b
  b:
    type: local
`)
	_, err := NewLoader(path).Load()
	require.NoError(t, err)
}

func TestLoader_MalformedDocumentIsConfigParseError(t *testing.T) {
	path := writeTempConfig(t, "providers: [this is not: valid: yaml: at: all")
	_, err := NewLoader(path).Load()
	require.Error(t, err)
	var parseErr *ConfigParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestLoader_CurrentReturnsLastLoadedSnapshot(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)
	l := NewLoader(path)
	require.Nil(t, l.Current())

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Same(t, cfg, l.Current())
}
