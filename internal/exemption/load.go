package exemption

import (
	"os"

	"github.com/costpilot/costpilot/internal/governance"
	"gopkg.in/yaml.v3"
)

// LoadFile reads and validates an exemptions file from disk.
func (v *Validator) LoadFile(path string) (File, error) {
	if _, err := os.Stat(path); err != nil {
		return File{}, governance.New(governance.KindFileNotFound, path)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return File{}, governance.Wrap(governance.KindIoError, "failed to read exemptions file", err)
	}

	return v.ParseYAML(contents)
}

// ParseYAML parses and validates an exemptions document.
func (v *Validator) ParseYAML(data []byte) (File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, governance.Wrap(governance.KindParseError, "failed to parse exemptions YAML", err)
	}
	if err := v.ValidateFile(file); err != nil {
		return File{}, err
	}
	return file, nil
}
