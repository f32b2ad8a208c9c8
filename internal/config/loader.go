package config

import (
	"fmt"
	"os"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} and ${VAR:-default} references.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// substituteEnvVars expands ${VAR} and ${VAR:-default} references in raw
// against the process environment, before the result is parsed as YAML.
func substituteEnvVars(raw string) string {
	return envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name, hasDefault, def := groups[1], groups[2] != "", groups[3]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		if hasDefault {
			return def
		}
		return ""
	})
}

// Loader owns the current Config and the path it was loaded from, and
// supports reloading that same path on demand — e.g. in response to an
// fsnotify event from WatchConfig. Safe for concurrent use.
type Loader struct {
	mu       sync.RWMutex
	cfg      *Config
	filePath string
}

// NewLoader returns a Loader seeded with DefaultConfig. Get() returns
// usable defaults even before Load is ever called.
func NewLoader() *Loader {
	return &Loader{cfg: DefaultConfig()}
}

// Load reads, env-substitutes, and parses the YAML file at path, merging
// it over DefaultConfig. It remembers path for subsequent Reload calls.
func (l *Loader) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	expanded := substituteEnvVars(string(raw))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg = cfg
	l.filePath = path
	return nil
}

// Reload re-reads the file previously passed to Load. It returns an error
// if Load has never succeeded.
func (l *Loader) Reload() error {
	l.mu.RLock()
	path := l.filePath
	l.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("config: Reload called before any successful Load")
	}
	return l.Load(path)
}

// Get returns the current configuration. Safe to call concurrently with
// Load/Reload; callers get a consistent snapshot but must not mutate it.
func (l *Loader) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// FilePath returns the path Load was last called with, or "" if Load has
// never been called (or never succeeded).
func (l *Loader) FilePath() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.filePath
}

// GenerateDefault writes DefaultConfig to path as YAML, for `costpilot
// init`-style scaffolding.
func GenerateDefault(path string) error {
	out, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("config: failed to marshal default config: %w", err)
	}
	header := "# CostPilot configuration. Generated defaults; edit freely.\n"
	if err := os.WriteFile(path, []byte(header+string(out)), 0o644); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	return nil
}

// resolvedDirs returns the four policy-definition directories in a fixed
// order, for callers (e.g. WatchConfig) that need to iterate them.
func (c *Config) resolvedDirs() []string {
	return []string{c.PolicyDirs.Policies, c.PolicyDirs.Exemptions, c.PolicyDirs.Baselines, c.PolicyDirs.SLOs}
}
