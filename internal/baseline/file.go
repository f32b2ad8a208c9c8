package baseline

import (
	"os"

	"github.com/costpilot/costpilot/internal/governance"
	"gopkg.in/yaml.v3"
)

// LoadFile reads one YAML baseline-definitions file from disk.
func LoadFile(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, governance.New(governance.KindFileNotFound, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, governance.Wrap(governance.KindIoError, "failed to read baseline file", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, governance.Wrap(governance.KindParseError, "failed to parse baseline YAML", err)
	}
	return cfg, nil
}
