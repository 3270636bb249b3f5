package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalYAML = `
environment: test
backend:
  type: clickhouse
marketdata:
  api_key: k-123
  symbols: [AAPL, MSFT]
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "SPY", cfg.MarketData.BenchmarkSymbol)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
backend:
  type: postgres
marketdata:
  api_key: k
  symbols: [AAPL]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.type")
}

func TestLoadWithEnvOverlaysBeforeValidation(t *testing.T) {
	// No api_key in the file; only the environment supplies it.
	path := writeConfig(t, `
environment: test
backend:
  type: kafka
marketdata:
  symbols: [AAPL]
`)
	t.Setenv("MARKETDATA_API_KEY", "env-key")
	t.Setenv("KAFKA_BROKERS", "b1:9092,b2:9092")

	cfg, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.MarketData.APIKey)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadWithEnvSymbolList(t *testing.T) {
	path := writeConfig(t, minimalYAML)
	t.Setenv("SYMBOLS", "NVDA,AMD")

	cfg, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "AMD"}, cfg.MarketData.Symbols)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
