package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UserKeys lists the keys the config command can read and write, in display order.
var UserKeys = []string{
	"concurrency",
	"resolver.url_template",
	"resolver.default_branch",
	"history.enabled",
	"history.retention",
}

// GetValue retrieves a configuration value by dot-notation key.
func GetValue(cfg *Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "packages":
		return cfg.Packages, nil
	case "concurrency":
		return strconv.Itoa(cfg.Concurrency), nil
	case "resolver.url_template":
		return cfg.Resolver.URLTemplate, nil
	case "resolver.default_branch":
		return cfg.Resolver.DefaultBranch, nil
	case "history.enabled":
		return strconv.FormatBool(cfg.History.Enabled), nil
	case "history.retention":
		return cfg.History.Retention.String(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// SetValue sets a user-level configuration value by dot-notation key.
func SetValue(cfg *Config, key, value string) error {
	switch strings.ToLower(key) {
	case "concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for concurrency: %w", err)
		}
		if n < 1 {
			return fmt.Errorf("invalid value for concurrency: must be at least 1")
		}
		cfg.Concurrency = n
	case "resolver.url_template":
		if !strings.Contains(value, "${path}") {
			return fmt.Errorf("invalid value for resolver.url_template: missing ${path}")
		}
		cfg.Resolver.URLTemplate = value
	case "resolver.default_branch":
		if value == "" {
			return fmt.Errorf("invalid value for resolver.default_branch: empty")
		}
		cfg.Resolver.DefaultBranch = value
	case "history.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for history.enabled: %w", err)
		}
		cfg.History.Enabled = b
	case "history.retention":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for history.retention: %w", err)
		}
		cfg.History.Retention = d
	case "packages":
		return fmt.Errorf("packages is a project setting; edit %s instead", ManifestName)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
