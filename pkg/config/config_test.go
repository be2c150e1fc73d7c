package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "texto", cfg.Compiler.DefaultField)
	assert.Equal(t, ".raw", cfg.Compiler.RawSuffix)
	assert.Equal(t, 2*time.Second, cfg.Compiler.CompileTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Server.SlowRequest)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "brs-compile-events", cfg.Kafka.Topics.CompileEvents)
}

func TestLoadDevelopmentFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"texto": ".raw", "ementa": ".raw", "tipo": "", "data": "", "numero": "",
	}, cfg.Compiler.Fields)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 250*time.Millisecond, cfg.Server.SlowRequest)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BRS_SERVER_PORT", "9999")
	t.Setenv("BRS_COMPILER_DEFAULT_FIELD", "conteudo")
	t.Setenv("BRS_COMPILER_RAW_SUFFIX", "")
	t.Setenv("BRS_COMPILER_FIELDS", "conteudo:.exato, tipo ,data:")
	t.Setenv("BRS_COMPILER_TIMEOUT", "500ms")
	t.Setenv("BRS_REDIS_ENABLED", "true")
	t.Setenv("BRS_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "conteudo", cfg.Compiler.DefaultField)
	assert.Equal(t, "", cfg.Compiler.RawSuffix)
	assert.Equal(t, map[string]string{"conteudo": ".exato", "tipo": "", "data": ""}, cfg.Compiler.Fields)
	assert.Equal(t, 500*time.Millisecond, cfg.Compiler.CompileTimeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"metrics port collision", func(c *Config) { c.Metrics.Port = c.Server.Port }},
		{"no default field", func(c *Config) { c.Compiler.DefaultField = " " }},
		{"no timeout", func(c *Config) { c.Compiler.CompileTimeout = 0 }},
		{"kafka without topic", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Topics.CompileEvents = ""
		}},
		{"rate limit without window", func(c *Config) {
			c.Server.RateLimit = 10
			c.Server.RateWindow = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, defaultConfig().Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [unclosed"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)
}
