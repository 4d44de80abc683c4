// Package config loads the stategraph configuration file and applies
// environment overrides for credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// Memory backends.
const (
	BackendMem    = "mem"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
	BackendRedis  = "redis"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the application configuration.
type Config struct {
	// Provider selects the chat model backend.
	Provider string `yaml:"provider"`

	// Model overrides the provider's default model name.
	Model string `yaml:"model"`

	LogLevel string `yaml:"log_level"`

	// MaxSteps bounds graph runs; 0 keeps the engine default.
	MaxSteps int `yaml:"max_steps"`

	// MaxToolRounds bounds tool-calling agents; 0 keeps the agent default.
	MaxToolRounds int `yaml:"max_tool_rounds"`

	Keys   Keys   `yaml:"keys"`
	Memory Memory `yaml:"memory"`
	Serve  Serve  `yaml:"serve"`
	MCP    MCP    `yaml:"mcp"`

	// Catalog is a YAML product catalog; empty uses the bundled one.
	Catalog string `yaml:"catalog"`

	// CodeExtension filters files fetched for code review.
	CodeExtension string `yaml:"code_extension"`
}

// Keys holds collaborator credentials. Environment variables win over the
// file.
type Keys struct {
	OpenAI    string `yaml:"openai"`
	Anthropic string `yaml:"anthropic"`
	Google    string `yaml:"google"`
	NewsAPI   string `yaml:"news_api"`
	GitHub    string `yaml:"github"`
}

// Memory configures the HITL memory backend.
type Memory struct {
	Backend string `yaml:"backend"`

	// Path is the SQLite database file.
	Path string `yaml:"path"`

	// DSN is the MySQL data source name.
	DSN string `yaml:"dsn"`

	// Redis connection.
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Serve configures the review API server.
type Serve struct {
	Addr string `yaml:"addr"`
}

// MCP names the MCP server launched by the crypto assistant.
type MCP struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Provider:      ProviderOpenAI,
		LogLevel:      "info",
		Memory:        Memory{Backend: BackendMem, Path: "stategraph.db"},
		Serve:         Serve{Addr: ":8080"},
		CodeExtension: ".java",
	}
}

// Load reads path over the defaults, applies environment overrides, and
// validates the result. An empty path or a missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv(lookup)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for name, dst := range map[string]*string{
		"OPENAI_API_KEY":        &c.Keys.OpenAI,
		"ANTHROPIC_API_KEY":     &c.Keys.Anthropic,
		"GOOGLE_API_KEY":        &c.Keys.Google,
		"NEWS_API_KEY":          &c.Keys.NewsAPI,
		"GITHUB_TOKEN":          &c.Keys.GitHub,
		"STATEGRAPH_PROVIDER":   &c.Provider,
		"STATEGRAPH_MODEL":      &c.Model,
		"STATEGRAPH_MEMORY":     &c.Memory.Backend,
		"STATEGRAPH_MEMORY_DSN": &c.Memory.DSN,
	} {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
}

// Validate checks the provider, limits, and memory backend settings.
func (c *Config) Validate() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle:
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalid, c.Provider)
	}

	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: max_steps must be >= 0", ErrInvalid)
	}
	if c.MaxToolRounds < 0 {
		return fmt.Errorf("%w: max_tool_rounds must be >= 0", ErrInvalid)
	}

	switch c.Memory.Backend {
	case BackendMem:
	case BackendSQLite:
		if c.Memory.Path == "" {
			return fmt.Errorf("%w: sqlite memory needs a path", ErrInvalid)
		}
	case BackendMySQL:
		if c.Memory.DSN == "" {
			return fmt.Errorf("%w: mysql memory needs a dsn", ErrInvalid)
		}
	case BackendRedis:
		if c.Memory.Addr == "" {
			return fmt.Errorf("%w: redis memory needs an addr", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown memory backend %q", ErrInvalid, c.Memory.Backend)
	}
	return nil
}

// APIKey returns the credential of the selected provider.
func (c *Config) APIKey() string {
	switch c.Provider {
	case ProviderAnthropic:
		return c.Keys.Anthropic
	case ProviderGoogle:
		return c.Keys.Google
	default:
		return c.Keys.OpenAI
	}
}

// Environ renders the MCP server environment as KEY=VALUE pairs.
func (m MCP) Environ() []string {
	env := make([]string, 0, len(m.Env))
	for k, v := range m.Env {
		env = append(env, k+"="+v)
	}
	return env
}
