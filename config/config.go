package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	ListenAddr  string         `yaml:"listen_addr"`
	StoragePath string         `yaml:"storage_path"`
	Scan        ScanConfig     `yaml:"scan,omitempty"`
	Approval    ApprovalConfig `yaml:"approval,omitempty"`
}

// ScanConfig tunes the scan scheduler
type ScanConfig struct {
	MaxResources int           `yaml:"max_resources"`
	Cooldown     time.Duration `yaml:"cooldown"`
	MinDuration  time.Duration `yaml:"min_duration"`
	MaxDuration  time.Duration `yaml:"max_duration"`
}

// ApprovalConfig tunes the approval workflow
type ApprovalConfig struct {
	// ConfirmDwell is the minimum time between approval and
	// installation confirmation. Stands in for a real pipeline
	// completion signal.
	ConfirmDwell time.Duration `yaml:"confirm_dwell"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ListenAddr:  ":8080",
		StoragePath: "./liitos.db",
		Scan: ScanConfig{
			MaxResources: 100,
			Cooldown:     time.Minute,
			MinDuration:  3 * time.Second,
			MaxDuration:  10 * time.Second,
		},
		Approval: ApprovalConfig{
			ConfirmDwell: 10 * time.Second,
		},
	}
}

// Load loads configuration from file, filling gaps with defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate ensures config values are usable
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.StoragePath == "" {
		return fmt.Errorf("storage_path is required")
	}
	if c.Scan.MaxResources <= 0 {
		return fmt.Errorf("scan.max_resources must be positive")
	}
	if c.Scan.MinDuration <= 0 || c.Scan.MaxDuration < c.Scan.MinDuration {
		return fmt.Errorf("scan duration bounds are invalid")
	}
	if c.Scan.Cooldown < 0 {
		return fmt.Errorf("scan.cooldown cannot be negative")
	}
	if c.Approval.ConfirmDwell < 0 {
		return fmt.Errorf("approval.confirm_dwell cannot be negative")
	}
	return nil
}
