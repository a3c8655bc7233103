// Package config handles configuration loading and management for mgit.
// It merges built-in defaults, the user config, the project manifest
// (mgit.json) and MGIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/mgit/internal/repository"
)

// ManifestName is the project manifest file looked up in the invocation root.
const ManifestName = "mgit.json"

// keyDelimiter separates nested keys. Package names routinely contain dots
// ("socket.io"), so viper's default "." delimiter would split them.
const keyDelimiter = "::"

// ErrNoManifest is returned by RequireManifest when mgit.json is missing.
var ErrNoManifest = errors.New("mgit.json not found")

// Config holds all configuration for mgit.
type Config struct {
	// Packages is the directory, relative to the invocation root, holding the packages.
	Packages     string            `mapstructure:"packages"`
	Concurrency  int               `mapstructure:"concurrency"`
	Resolver     ResolverConfig    `mapstructure:"resolver"`
	Dependencies map[string]string `mapstructure:"dependencies"`
	Ignore       []string          `mapstructure:"ignore"`
	Scope        []string          `mapstructure:"scope"`
	History      HistoryConfig     `mapstructure:"history"`

	// ManifestPath is the mgit.json that was loaded, empty if none was found.
	ManifestPath string `mapstructure:"-"`
}

// ResolverConfig controls how dependency specs become repository URLs.
type ResolverConfig struct {
	URLTemplate   string `mapstructure:"url_template"`
	DefaultBranch string `mapstructure:"default_branch"`
}

// HistoryConfig controls the execution history database.
type HistoryConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Retention time.Duration `mapstructure:"retention"`
}

// Load loads configuration for a project rooted at cwd.
// Precedence (highest to lowest):
// 1. Environment variables (MGIT_CONCURRENCY, MGIT_PACKAGES, ...)
// 2. Project manifest (mgit.json in cwd)
// 3. User config (~/.config/mgit/config.yaml)
// 4. Built-in defaults
func Load(cwd string) (*Config, error) {
	v := newViper()
	setDefaults(v)

	if err := readUserConfig(v); err != nil {
		return nil, err
	}

	manifest := filepath.Join(cwd, ManifestName)
	manifestPath := ""
	if _, err := os.Stat(manifest); err == nil {
		projectViper := newViper()
		projectViper.SetConfigFile(manifest)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", manifest, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project manifest: %w", err)
		}
		manifestPath = manifest
	}

	bindEnv(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.ManifestPath = manifestPath
	cfg.normalize()

	return cfg, nil
}

// LoadUser loads only the built-in defaults and the user config file.
// The config command uses it so that saving never copies project or
// environment values into the user config.
func LoadUser() (*Config, error) {
	v := newViper()
	setDefaults(v)
	if err := readUserConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func readUserConfig(v *viper.Viper) error {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading user config: %w", err)
		}
	}
	return nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := newViper()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.ManifestPath = path
	cfg.normalize()

	return cfg, nil
}

// Save writes the user-level settings to the user config file.
// Project settings (packages, dependencies) live in mgit.json and are not written.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.Set("concurrency", cfg.Concurrency)
	v.Set("resolver.url_template", cfg.Resolver.URLTemplate)
	v.Set("resolver.default_branch", cfg.Resolver.DefaultBranch)
	v.Set("history.enabled", cfg.History.Enabled)
	v.Set("history.retention", cfg.History.Retention.String())

	return v.WriteConfigAs(GetUserConfigPath())
}

// RequireManifest returns ErrNoManifest unless a project manifest was loaded.
func (c *Config) RequireManifest(cwd string) error {
	if c.ManifestPath == "" {
		return fmt.Errorf("%w in %s", ErrNoManifest, cwd)
	}
	return nil
}

// NewResolver builds the repository resolver described by the config.
func (c *Config) NewResolver() *repository.Resolver {
	return repository.NewResolver(c.Resolver.URLTemplate, c.Resolver.DefaultBranch)
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

func newViper() *viper.Viper {
	return viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("packages", "packages")
	v.SetDefault("concurrency", 1)

	v.SetDefault(key("resolver", "url_template"), repository.DefaultURLTemplate)
	v.SetDefault(key("resolver", "default_branch"), repository.DefaultBranch)

	v.SetDefault(key("history", "enabled"), true)
	v.SetDefault(key("history", "retention"), "720h")

	// AutomaticEnv only overrides keys viper already knows about.
	v.SetDefault("ignore", []string{})
	v.SetDefault("scope", []string{})
}

// bindEnv maps MGIT_* variables onto config keys.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("MGIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()
}

func key(parts ...string) string {
	return strings.Join(parts, keyDelimiter)
}

func (c *Config) normalize() {
	if c.Packages == "" {
		c.Packages = "packages"
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.Dependencies == nil {
		c.Dependencies = map[string]string{}
	}
}

// getUserConfigDir returns the XDG config directory for mgit.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "mgit")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "mgit")
	}
	return filepath.Join(home, ".config", "mgit")
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Packages:    "packages",
		Concurrency: 1,
		Resolver: ResolverConfig{
			URLTemplate:   repository.DefaultURLTemplate,
			DefaultBranch: repository.DefaultBranch,
		},
		Dependencies: map[string]string{},
		Ignore:       []string{},
		Scope:        []string{},
		History: HistoryConfig{
			Enabled:   true,
			Retention: 720 * time.Hour,
		},
	}
}
