package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestDefaults verifies all default values are applied when no config file exists.
func TestDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	cfg, err := loadWith(newViperBackend(path))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, VariantSentiment, cfg.Model.Variant)
	assert.Equal(t, BackendHuggingFace, cfg.Model.Backend)
	assert.Equal(t, "sentiment.db", cfg.Storage.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, time.Duration(0), cfg.HuggingFace.Timeout)
	assert.Equal(t, DefaultSentimentModel, cfg.ModelID())
	assert.Nil(t, cfg.LabelOverride())
}

// TestYAMLParsing verifies that fields are correctly read from a YAML file.
func TestYAMLParsing(t *testing.T) {
	path := writeTempConfig(t, `
server:
  host: 0.0.0.0
  port: 9000
model:
  variant: emotions
  backend: ollama
  labels: "joy, sadness ,fear"
huggingface:
  timeout: 30s
ollama:
  base_url: http://gpu-box:11434
  model: llama3.2
storage:
  path: /tmp/sentid-test.db
log:
  level: debug
  format: json
`)

	cfg, err := loadWith(newViperBackend(path))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, VariantEmotions, cfg.Model.Variant)
	assert.Equal(t, BackendOllama, cfg.Model.Backend)
	assert.Equal(t, DefaultEmotionsModel, cfg.ModelID())
	assert.Equal(t, []string{"joy", "sadness", "fear"}, cfg.LabelOverride())
	assert.Equal(t, 30*time.Second, cfg.HuggingFace.Timeout)
	assert.Equal(t, "http://gpu-box:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "llama3.2", cfg.Ollama.Model)
	assert.Equal(t, "/tmp/sentid-test.db", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

// TestEnvOverride verifies that environment variables override file values.
func TestEnvOverride(t *testing.T) {
	path := writeTempConfig(t, `
server:
  port: 9000
model:
  id: file-model
`)
	t.Setenv("SENTID_SERVER_PORT", "9100")
	t.Setenv("SENTID_MODEL_ID", "env-model")
	t.Setenv("SENTID_HUGGINGFACE_TOKEN", "hf_secret")

	cfg, err := loadWith(newViperBackend(path))
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "env-model", cfg.ModelID())
	assert.Equal(t, "hf_secret", cfg.HuggingFace.Token)
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown variant", "model:\n  variant: toxicity\n", "model.variant"},
		{"unknown backend", "model:\n  backend: tflite\n", "model.backend"},
		{"port out of range", "server:\n  port: 70000\n", "server.port"},
		{"port not a number", "server:\n  port: abc\n", "invalid integer"},
		{"bad duration", "huggingface:\n  timeout: soon\n", "invalid duration"},
		{"empty storage path", "storage:\n  path: \"\"\n", "storage.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempConfig(t, tt.content)
			_, err := loadWith(newViperBackend(path))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetKeyPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	b := newViperBackend(path)

	require.NoError(t, setKeyWith(b, "server.port", "8123"))
	require.NoError(t, setKeyWith(b, "model.variant", VariantEmotions))
	require.NoError(t, setKeyWith(b, "huggingface.timeout", "15s"))

	cfg, err := loadWith(newViperBackend(path))
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.Server.Port)
	assert.Equal(t, VariantEmotions, cfg.Model.Variant)
	assert.Equal(t, 15*time.Second, cfg.HuggingFace.Timeout)
}

func TestSetKeyDoesNotPersistEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("SENTID_HUGGINGFACE_TOKEN", "hf_secret")

	require.NoError(t, setKeyWith(newViperBackend(path), "log.level", "warn"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hf_secret")
	assert.Contains(t, string(data), "warn")
}

func TestSetKeyRejects(t *testing.T) {
	b := newViperBackend(filepath.Join(t.TempDir(), "config.yaml"))

	err := setKeyWith(b, "huggingface.token", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SENTID_HUGGINGFACE_TOKEN")

	err = setKeyWith(b, "server.port", "eighty")
	require.Error(t, err)

	err = setKeyWith(b, "huggingface.timeout", "later")
	require.Error(t, err)

	err = setKeyWith(b, "no.such.key", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.HuggingFace.Token = "hf_secret"
	cfg.Sentry.DSN = "https://key@sentry.example/1"

	for _, k := range ShowAll(cfg) {
		assert.NotEqual(t, "huggingface.token", k.Key)
		assert.NotEqual(t, "sentry.dsn", k.Key)
		assert.NotContains(t, k.Value, "hf_secret")
	}
	assert.NotContains(t, ValidKeys(), "sentry.dsn")
	assert.Contains(t, ValidKeys(), "model.variant")
}
