// Package config provides Viper-based configuration loading for the Fable engine.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GameConfig holds world-content and session settings.
type GameConfig struct {
	// WorldDir is the directory containing world documents (JSON or YAML).
	WorldDir string `mapstructure:"world_dir"`
	// SavesDir is the directory where session snapshots are written.
	SavesDir string `mapstructure:"saves_dir"`
	// ScriptDir is the root directory for Lua area hooks. Empty = scripting disabled.
	ScriptDir string `mapstructure:"script_dir"`
	// ScriptInstructionLimit caps Lua opcodes per hook execution. 0 = default.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// DatabaseConfig holds PostgreSQL connection settings for the knowledge store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// KnowledgeConfig selects and tunes the knowledge-store backend.
type KnowledgeConfig struct {
	// Backend is "memory" or "postgres".
	Backend string `mapstructure:"backend"`
	// ChunkLimit is the default maximum number of chunks returned per query.
	ChunkLimit int `mapstructure:"chunk_limit"`
	// DataDir holds the chunk/entity/relation files for the memory backend.
	DataDir string `mapstructure:"data_dir"`
}

// ProviderConfig holds the settings for one LLM provider variant.
type ProviderConfig struct {
	// APIKey authenticates against the provider. Required for cloud providers.
	APIKey string `mapstructure:"api_key"`
	// Model is the provider-specific model identifier.
	Model string `mapstructure:"model"`
	// BaseURL overrides the provider endpoint (local servers, proxies).
	BaseURL string `mapstructure:"base_url"`
}

// LLMConfig holds generation settings and per-provider configuration.
type LLMConfig struct {
	// Provider is the numeric id of the initially active provider (1-6).
	Provider int `mapstructure:"provider"`
	// Timeout is the per-generation deadline.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxTokens caps generated output length.
	MaxTokens int `mapstructure:"max_tokens"`
	// Temperature controls sampling randomness.
	Temperature float64 `mapstructure:"temperature"`

	LocalAPI    ProviderConfig `mapstructure:"local_api"`
	LocalDirect ProviderConfig `mapstructure:"local_direct"`
	OpenAI      ProviderConfig `mapstructure:"openai"`
	Anthropic   ProviderConfig `mapstructure:"anthropic"`
	Google      ProviderConfig `mapstructure:"google"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Game      GameConfig      `mapstructure:"game"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateKnowledge(c.Knowledge); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Knowledge.Backend == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLLM(c.LLM); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.WorldDir == "" {
		errs = append(errs, "game.world_dir must not be empty")
	}
	if g.SavesDir == "" {
		errs = append(errs, "game.saves_dir must not be empty")
	}
	if g.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("game.script_instruction_limit must be >= 0, got %d", g.ScriptInstructionLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateKnowledge(k KnowledgeConfig) error {
	validBackends := map[string]bool{"memory": true, "postgres": true}
	if !validBackends[k.Backend] {
		return fmt.Errorf("knowledge.backend must be one of [memory, postgres], got %q", k.Backend)
	}
	if k.ChunkLimit < 1 {
		return fmt.Errorf("knowledge.chunk_limit must be >= 1, got %d", k.ChunkLimit)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLLM(l LLMConfig) error {
	var errs []string
	if l.Provider < 1 || l.Provider > 6 {
		errs = append(errs, fmt.Sprintf("llm.provider must be 1-6, got %d", l.Provider))
	}
	if l.Timeout <= 0 {
		errs = append(errs, "llm.timeout must be positive")
	}
	if l.MaxTokens < 1 {
		errs = append(errs, fmt.Sprintf("llm.max_tokens must be >= 1, got %d", l.MaxTokens))
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("llm.temperature must be in [0, 2], got %g", l.Temperature))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with FABLE_ prefix
	v.SetEnvPrefix("FABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	if v == nil {
		return Config{}, errors.New("viper instance must not be nil")
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("game.world_dir", "content/worlds")
	v.SetDefault("game.saves_dir", "saves")
	v.SetDefault("game.script_dir", "")
	v.SetDefault("game.script_instruction_limit", 0)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "fable")
	v.SetDefault("database.password", "fable")
	v.SetDefault("database.name", "fable")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("knowledge.backend", "memory")
	v.SetDefault("knowledge.chunk_limit", 5)
	v.SetDefault("knowledge.data_dir", "content/knowledge")

	v.SetDefault("llm.provider", 6)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.max_tokens", 500)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.local_api.base_url", "http://127.0.0.1:8080/v1")
	v.SetDefault("llm.local_direct.base_url", "http://localhost:11434")
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("llm.google.model", "gemini-1.5-flash")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
