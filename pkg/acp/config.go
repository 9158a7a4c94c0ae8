package acp

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/acp-protocol/acp-mcp/pkg/errors"
)

// ConfigFileName is the optional per-project server configuration,
// located at the project root (not inside the cache directory).
const ConfigFileName = ".acp.config.json"

var configValidator = validator.New()

// Config tunes server behavior per project. Every field is optional;
// a missing file means all defaults.
type Config struct {
	Primer PrimerConfig `json:"primer"`
	// Watch enables hot reload of the cache directory. Nil means on.
	Watch *bool `json:"watch,omitempty"`
}

// PrimerConfig overrides the primer generation defaults.
type PrimerConfig struct {
	// CatalogPath points at a project-specific section catalog,
	// replacing the embedded defaults. Relative paths resolve
	// against the project root.
	CatalogPath string `json:"catalog_path,omitempty"`
	TokenBudget int    `json:"token_budget,omitempty" validate:"min=0"`
	Format      string `json:"format,omitempty" validate:"omitempty,oneof=markdown compact json"`
	Preset      string `json:"preset,omitempty" validate:"omitempty,oneof=balanced safe efficient accurate"`
}

// DefaultConfig returns the configuration used when no config file
// exists.
func DefaultConfig() *Config {
	return &Config{}
}

// WatchEnabled reports whether the cache watcher should run.
func (c *Config) WatchEnabled() bool {
	return c.Watch == nil || *c.Watch
}

// ConfigPath returns the config file path under the project root.
func ConfigPath(root string) string {
	return filepath.Join(root, ConfigFileName)
}

// LoadConfig reads the optional project config. A missing file yields
// defaults; a present but malformed or invalid file is an error.
func LoadConfig(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to read config")
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to parse config"),
			errors.Fields{"path": ConfigPath(root)})
	}
	if err := configValidator.Struct(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ValidationFailed, "config failed validation")
	}
	return &cfg, nil
}
