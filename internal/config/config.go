// Package config assembles the server configuration from defaults, an
// optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/alexschlessinger/companion/llm"
	"github.com/alexschlessinger/companion/sessions"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultAddr            = ":3000"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultModel           = "anthropic/claude-sonnet-4-20250514"
	DefaultMaxTokens       = 1024
	DefaultTemperature     = 1.0
	DefaultTimeout         = 60 * time.Second
	DefaultExpirySchedule  = "@every 1m"
)

// envPrefix namespaces the server's own environment variables
const envPrefix = "COMPANION_"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Sessions SessionsConfig `yaml:"sessions"`
	Prompt   PromptConfig   `yaml:"prompt"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type LLMConfig struct {
	// Model is "provider/model", e.g. "openai/gpt-4.1"
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"maxTokens"`
	// Temperature is a pointer so an explicit 0 survives the default merge
	Temperature *float64      `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	BaseURL     string        `yaml:"baseURL"`
	// APIKeys maps provider name to key
	APIKeys map[string]string `yaml:"apiKeys"`
}

type SessionsConfig struct {
	sessions.SessionConfig `yaml:",inline"`
	ExpirySchedule         string `yaml:"expirySchedule"`
}

type PromptConfig struct {
	RecentContext *bool `yaml:"recentContext"`
}

type LogConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns a fresh Config holding every default value
func Default() *Config {
	temperature := DefaultTemperature
	recent := true
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		LLM: LLMConfig{
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: &temperature,
			Timeout:     DefaultTimeout,
			APIKeys:     map[string]string{},
		},
		Sessions: SessionsConfig{
			SessionConfig:  *sessions.DefaultConfig(),
			ExpirySchedule: DefaultExpirySchedule,
		},
		Prompt: PromptConfig{RecentContext: &recent},
	}
}

// Load reads the optional YAML file at path, fills anything it leaves unset
// from the defaults, then applies .env and environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// mergo only fills zero values, so file settings win over defaults.
	// Without dereferencing, an explicit temperature: 0 is kept.
	if err := mergo.Merge(cfg, Default(), mergo.WithoutDereference); err != nil {
		return nil, fmt.Errorf("merge defaults: %w", err)
	}

	// A missing .env is normal; variables already set are not replaced
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		zap.S().Warnw("dotenv_load_failed", "error", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from COMPANION_* variables and provider keys
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		return v, ok && v != ""
	}

	if v, ok := get("ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := get("MODEL"); ok {
		c.LLM.Model = v
	}
	if v, ok := get("BASEURL"); ok {
		c.LLM.BaseURL = v
	}
	if v, ok := get("MAXTOKENS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAXTOKENS: %w", envPrefix, err)
		}
		c.LLM.MaxTokens = n
	}
	if v, ok := get("TEMP"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sTEMP: %w", envPrefix, err)
		}
		c.LLM.Temperature = &f
	}
	if v, ok := get("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", envPrefix, err)
		}
		c.LLM.Timeout = d
	}
	if v, ok := get("MAXHISTORY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAXHISTORY: %w", envPrefix, err)
		}
		c.Sessions.MaxHistory = n
	}
	if v, ok := get("TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTTL: %w", envPrefix, err)
		}
		c.Sessions.TTL = d
	}
	if v, ok := get("DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDEBUG: %w", envPrefix, err)
		}
		c.Log.Debug = b
	}

	if c.LLM.APIKeys == nil {
		c.LLM.APIKeys = map[string]string{}
	}
	for _, provider := range llm.Providers {
		if v, ok := lookup(llm.EnvVarForProvider(provider)); ok && v != "" {
			c.LLM.APIKeys[provider] = v
		}
	}
	return nil
}

// Temperature returns the sampling temperature
func (c *Config) Temperature() float32 {
	if c.LLM.Temperature == nil {
		return DefaultTemperature
	}
	return float32(*c.LLM.Temperature)
}

// RecentContext reports whether prompts carry the recent-conversation block
func (c *Config) RecentContext() bool {
	return c.Prompt.RecentContext == nil || *c.Prompt.RecentContext
}

// Validate checks the assembled configuration before the server starts
func (c *Config) Validate() error {
	var errs []error

	provider, _, err := llm.SplitModel(c.LLM.Model)
	if err != nil {
		errs = append(errs, err)
	} else if provider != "ollama" && strings.TrimSpace(c.LLM.APIKeys[provider]) == "" {
		errs = append(errs, fmt.Errorf("missing API key for provider %q, set %s", provider, llm.EnvVarForProvider(provider)))
	}

	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("llm.maxTokens must be positive, got %d", c.LLM.MaxTokens))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must be positive, got %s", c.LLM.Timeout))
	}
	if c.Sessions.MaxHistory <= 0 {
		errs = append(errs, fmt.Errorf("sessions.maxHistory must be positive, got %d", c.Sessions.MaxHistory))
	}
	if c.Sessions.TTL < 0 {
		errs = append(errs, fmt.Errorf("sessions.ttl must not be negative, got %s", c.Sessions.TTL))
	}
	if c.Sessions.TTL > 0 {
		if _, err := cron.ParseStandard(c.Sessions.ExpirySchedule); err != nil {
			errs = append(errs, fmt.Errorf("sessions.expirySchedule: %w", err))
		}
	}
	return errors.Join(errs...)
}
