// Package config loads mufmt build settings from defaults, an optional
// mufmt.yaml file and MUFMT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultEntry is the canonical entry filename looked up inside a
	// directory or at the root of a repository.
	DefaultEntry = "installer.mu"
	// DefaultAPIRoot is the GitHub repository contents API root.
	DefaultAPIRoot = "https://api.github.com/repos"
	// DefaultRecursionLimit is the number of macro expansion passes.
	DefaultRecursionLimit = 2
)

// Config holds the settings consumed by a build.
type Config struct {
	RecursionLimit int           `mapstructure:"recursion_limit" yaml:"recursion_limit"`
	Entry          string        `mapstructure:"entry" yaml:"entry"`
	APIRoot        string        `mapstructure:"api_root" yaml:"api_root"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`
	MaxLineLength  int           `mapstructure:"max_line_length" yaml:"max_line_length"`
	// Meta lists the shorthand metadata keywords: "#author Jane" records
	// the header {author, Jane}.
	Meta        []string    `mapstructure:"meta" yaml:"meta"`
	Credentials Credentials `mapstructure:"credentials" yaml:"credentials"`
}

// Credentials authenticate requests to the contents API.
type Credentials struct {
	User  string `mapstructure:"user" yaml:"user,omitempty"`
	Token string `mapstructure:"token" yaml:"token,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		RecursionLimit: DefaultRecursionLimit,
		Entry:          DefaultEntry,
		APIRoot:        DefaultAPIRoot,
		Timeout:        15 * time.Second,
		Concurrency:    8,
		MaxLineLength:  8000,
		Meta:           []string{"author", "email", "url", "system", "file_name"},
	}
}

// Normalize fills zero values with defaults so a partially populated
// Config (e.g. built in code) behaves like a loaded one.
func (c Config) Normalize() Config {
	d := Default()
	if c.RecursionLimit <= 0 {
		c.RecursionLimit = d.RecursionLimit
	}
	if c.Entry == "" {
		c.Entry = d.Entry
	}
	if c.APIRoot == "" {
		c.APIRoot = d.APIRoot
	}
	c.APIRoot = strings.TrimRight(c.APIRoot, "/")
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.MaxLineLength < 0 {
		c.MaxLineLength = 0
	}
	return c
}

// Load reads the configuration. When path is empty, mufmt.yaml (or
// mufmt.yml) in the working directory is used if present; a missing file
// is not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault("recursion_limit", d.RecursionLimit)
	v.SetDefault("entry", d.Entry)
	v.SetDefault("api_root", d.APIRoot)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("max_line_length", d.MaxLineLength)
	v.SetDefault("meta", d.Meta)
	v.SetDefault("credentials.user", "")
	v.SetDefault("credentials.token", "")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mufmt")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MUFMT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	cfg = cfg.Normalize()
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.RecursionLimit < 0 {
		return fmt.Errorf("recursion_limit must not be negative, got %d", cfg.RecursionLimit)
	}
	if cfg.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", cfg.Concurrency)
	}
	if strings.ContainsAny(cfg.Entry, `/\`) {
		return fmt.Errorf("entry must be a bare filename, got %q", cfg.Entry)
	}
	return nil
}

// Write serializes cfg as YAML to path. Credentials are never written.
func Write(path string, cfg Config) error {
	cfg.Credentials = Credentials{}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
