// Package config loads and hot-reloads CostPilot's top-level
// configuration: where policy/exemption/baseline/SLO definitions live on
// disk, server/logging settings, and enforcement defaults. Grounded on
// the teacher's internal/config.Config tree (field layout, YAML tags,
// DefaultConfig) adapted to CostPilot's own domain.
package config

import "time"

// Config is CostPilot's top-level configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	PolicyDirs  PolicyDirsConfig  `yaml:"policy_dirs"`
	Enforcement EnforcementConfig `yaml:"enforcement"`
	Audit       AuditConfig       `yaml:"audit"`
}

// ServerConfig controls the HTTP/WebSocket dashboard server.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	CORS     bool   `yaml:"cors"`
	FailMode string `yaml:"fail_mode"` // "closed" = block on internal error, "open" = allow
}

// StorageConfig controls the sqlite-backed persistence layer.
type StorageConfig struct {
	Driver    string        `yaml:"driver"`
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

// PolicyDirsConfig points at the on-disk YAML definitions for each
// governance engine. Each directory is hot-reloadable via WatchConfig.
type PolicyDirsConfig struct {
	Policies   string `yaml:"policies"`
	Exemptions string `yaml:"exemptions"`
	Baselines  string `yaml:"baselines"`
	SLOs       string `yaml:"slos"`
}

// EnforcementConfig holds pipeline-wide defaults that individual policies
// and SLOs inherit when they don't specify their own.
type EnforcementConfig struct {
	DefaultWarningThreshold float64 `yaml:"default_warning_threshold"`
	FailOnUnknownRuleType   bool    `yaml:"fail_on_unknown_rule_type"`
	RequireApprovalForHigh  bool    `yaml:"require_approval_for_high"`
}

// AuditConfig controls audit log retention and export defaults.
type AuditConfig struct {
	LongRetentionDays int    `yaml:"long_retention_days"`
	ExportFormat      string `yaml:"export_format"` // "ndjson" or "csv"
}

// DefaultConfig returns a Config with sensible defaults for zero-config
// startup, mirroring the teacher's DefaultConfig.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     7117,
			LogLevel: "info",
			CORS:     false,
			FailMode: "closed",
		},
		Storage: StorageConfig{
			Driver:    "sqlite",
			Path:      "./costpilot.db",
			Retention: 90 * 24 * time.Hour,
		},
		PolicyDirs: PolicyDirsConfig{
			Policies:   "./policies",
			Exemptions: "./exemptions",
			Baselines:  "./baselines",
			SLOs:       "./slos",
		},
		Enforcement: EnforcementConfig{
			DefaultWarningThreshold: 0.8,
			FailOnUnknownRuleType:   false,
			RequireApprovalForHigh:  true,
		},
		Audit: AuditConfig{
			LongRetentionDays: 365,
			ExportFormat:      "ndjson",
		},
	}
}
