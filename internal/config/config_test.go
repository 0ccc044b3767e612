package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load looks at
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"COMPANION_ADDR", "COMPANION_MODEL", "COMPANION_BASEURL", "COMPANION_MAXTOKENS",
		"COMPANION_TEMP", "COMPANION_TIMEOUT", "COMPANION_MAXHISTORY", "COMPANION_TTL",
		"COMPANION_DEBUG", "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "OLLAMA_API_KEY",
	} {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "companion.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DefaultModel, cfg.LLM.Model)
	assert.Equal(t, DefaultMaxTokens, cfg.LLM.MaxTokens)
	assert.Equal(t, float32(1.0), cfg.Temperature())
	assert.Equal(t, DefaultTimeout, cfg.LLM.Timeout)
	assert.Equal(t, 20, cfg.Sessions.MaxHistory)
	assert.Equal(t, time.Duration(0), cfg.Sessions.TTL)
	assert.Equal(t, DefaultExpirySchedule, cfg.Sessions.ExpirySchedule)
	assert.True(t, cfg.RecentContext())
	assert.False(t, cfg.Log.Debug)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
server:
  addr: ":8080"
llm:
  model: openai/gpt-4.1
  temperature: 0
  apiKeys:
    openai: sk-file
sessions:
  maxHistory: 10
  ttl: 30m
prompt:
  recentContext: false
log:
  debug: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "openai/gpt-4.1", cfg.LLM.Model)
	assert.Equal(t, DefaultMaxTokens, cfg.LLM.MaxTokens)
	assert.Equal(t, float32(0), cfg.Temperature())
	assert.Equal(t, "sk-file", cfg.LLM.APIKeys["openai"])
	assert.Equal(t, 10, cfg.Sessions.MaxHistory)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.TTL)
	assert.Equal(t, DefaultExpirySchedule, cfg.Sessions.ExpirySchedule)
	assert.False(t, cfg.RecentContext())
	assert.True(t, cfg.Log.Debug)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "llm:\n  model: openai/gpt-4.1\n  maxTokens: 200\n")
	t.Setenv("COMPANION_MODEL", "gemini/gemini-2.5-flash")
	t.Setenv("COMPANION_MAXTOKENS", "512")
	t.Setenv("COMPANION_TEMP", "0.3")
	t.Setenv("COMPANION_TTL", "1h")
	t.Setenv("COMPANION_DEBUG", "true")
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini/gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 512, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.3, cfg.Temperature(), 1e-6)
	assert.Equal(t, time.Hour, cfg.Sessions.TTL)
	assert.True(t, cfg.Log.Debug)
	assert.Equal(t, "g-key", cfg.LLM.APIKeys["gemini"])
	assert.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "server: [not, a, map]"))
	assert.Error(t, err)

	t.Setenv("COMPANION_MAXTOKENS", "lots")
	_, err = Load("")
	assert.ErrorContains(t, err, "COMPANION_MAXTOKENS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid anthropic", func(c *Config) { c.LLM.APIKeys["anthropic"] = "k" }, ""},
		{"ollama keyless", func(c *Config) { c.LLM.Model = "ollama/llama3" }, ""},
		{"missing key", func(c *Config) {}, "ANTHROPIC_API_KEY"},
		{"no provider prefix", func(c *Config) { c.LLM.Model = "gpt-4.1" }, "provider prefix"},
		{"zero window", func(c *Config) {
			c.LLM.APIKeys["anthropic"] = "k"
			c.Sessions.MaxHistory = 0
		}, "maxHistory"},
		{"bad schedule", func(c *Config) {
			c.LLM.APIKeys["anthropic"] = "k"
			c.Sessions.TTL = time.Minute
			c.Sessions.ExpirySchedule = "whenever"
		}, "expirySchedule"},
		{"schedule ignored without ttl", func(c *Config) {
			c.LLM.APIKeys["anthropic"] = "k"
			c.Sessions.ExpirySchedule = "whenever"
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvProviderKeys(t *testing.T) {
	env := map[string]string{
		"OPENAI_API_KEY":    "o",
		"ANTHROPIC_API_KEY": "a",
		"OLLAMA_API_KEY":    "",
	}
	cfg := Default()
	require.NoError(t, cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	assert.Equal(t, map[string]string{"openai": "o", "anthropic": "a"}, cfg.LLM.APIKeys)
}
