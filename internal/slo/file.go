package slo

import (
	"os"

	"github.com/costpilot/costpilot/internal/governance"
	"gopkg.in/yaml.v3"
)

// LoadFile reads one YAML SLO-definitions file from disk.
func LoadFile(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, governance.New(governance.KindFileNotFound, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, governance.Wrap(governance.KindIoError, "failed to read SLO file", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, governance.Wrap(governance.KindParseError, "failed to parse SLO YAML", err)
	}
	return cfg, nil
}
