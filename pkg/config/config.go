// Package config provides YAML-based configuration loading with environment
// variable and home directory expansion.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load loads configuration from a YAML file with environment variable
// expansion. A leading ~ in filename refers to the user's home directory.
func Load[T any](filename string, target *T) error {
	path, err := homedir.Expand(filename)
	if err != nil {
		return fmt.Errorf("config: expand %s: %w", filename, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), target); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config: validate %s: %w", path, err)
		}
	}

	return nil
}

// LoadOrDefault loads filename when it exists. A missing file leaves target
// as it is, so callers can start from built-in defaults; target is still
// validated.
func LoadOrDefault[T any](filename string, target *T) error {
	path, err := homedir.Expand(filename)
	if err != nil {
		return fmt.Errorf("config: expand %s: %w", filename, err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if validator, ok := any(target).(Validator); ok {
			if err := validator.Validate(); err != nil {
				return fmt.Errorf("config: validate defaults: %w", err)
			}
		}
		return nil
	}
	return Load(path, target)
}
