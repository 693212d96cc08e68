package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the overrides for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvModelPath, EnvModelVersion, EnvPort, EnvLogLevel} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	config, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, config.HTTP.Port)
	assert.Equal(t, "info", config.Log.Level)
	assert.True(t, config.Model.Watch)
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlConfig := `
model:
  path: /srv/models/churn.json
  version: v1
  cache_size: 8
http:
  port: 8081
  timeout: 10s
database:
  path: /var/lib/modelserve/audit.db
`
	require.NoError(t, os.WriteFile(path, []byte(yamlConfig), 0o600))
	clearEnv(t)
	t.Setenv(EnvModelVersion, "v2")
	t.Setenv(EnvPort, "9090")

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/models/churn.json", config.Model.Path)
	assert.Equal(t, "v2", config.Model.Version)
	assert.Equal(t, 8, config.Model.CacheSize)
	assert.Equal(t, 9090, config.HTTP.Port)
	assert.Equal(t, 10*time.Second, config.HTTP.Timeout)
	assert.Equal(t, "/var/lib/modelserve/audit.db", config.Database.Path)
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv(EnvPort, "http")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unterminated"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvSourceReadsPerSnapshot(t *testing.T) {
	clearEnv(t)
	source := NewEnvSource(Settings{ModelPath: "a.json"})
	t.Setenv(EnvModelVersion, "v1")
	assert.Equal(t, Settings{ModelPath: "a.json", ModelVersion: "v1"}, source.Snapshot())

	t.Setenv(EnvModelVersion, "v2")
	t.Setenv(EnvModelPath, "b.json")
	assert.Equal(t, Settings{ModelPath: "b.json", ModelVersion: "v2"}, source.Snapshot())
}

func TestEnvSourceDefaults(t *testing.T) {
	source := NewEnvSource(Settings{})
	source.lookup = func(string) (string, bool) { return "", false }
	assert.Equal(t, Settings{ModelPath: DefaultModelPath, ModelVersion: DefaultModelVersion}, source.Snapshot())
}

func TestStaticSource(t *testing.T) {
	source := StaticSource{ModelPath: "m.json", ModelVersion: "test-version"}
	assert.Equal(t, "test-version", source.Snapshot().ModelVersion)
}
