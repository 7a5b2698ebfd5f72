// Package config loads the settings of the claude command.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the command configuration.
type Config struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	MaxTokens  int           `mapstructure:"max_tokens"`
	MaxRetries int           `mapstructure:"max_retries"`
	Betas      []string      `mapstructure:"betas"`
	Logging    LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	HTTP   bool   `mapstructure:"http"`
}

// Dir returns the directory searched for config.yaml.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "claude"), nil
}

// Load reads the configuration. An explicit path must exist; otherwise
// config.yaml in Dir is optional. Environment variables prefixed with
// CLAUDE_ override the file, and ANTHROPIC_API_KEY and ANTHROPIC_BASE_URL
// are honoured when the CLAUDE_ variants are unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("CLAUDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("api_key", "CLAUDE_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("base_url", "CLAUDE_BASE_URL", "ANTHROPIC_BASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.APIKey = os.ExpandEnv(cfg.APIKey)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "")
	v.SetDefault("model", "claude-3-7-sonnet-latest")
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("max_retries", 2)
	v.SetDefault("betas", []string{})

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.http", false)
}

// Logger builds the slog logger described by the logging section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Level parses Logging.Level, defaulting to warn.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelWarn
	}
	return level
}
