package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads a configuration file, applies defaults, and validates it.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config, err := ParseConfig(data, path)
	if err != nil {
		return nil, err
	}

	config.ApplyDefaults()

	if errs := ValidateConfig(config); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config %s: %s", path, joinErrors(errs))
	}

	return config, nil
}

// ParseConfig parses configuration data in YAML or JSON format.
//
// The format is determined by the file extension in path; unknown extensions
// fall back to YAML, which also accepts JSON input.
func ParseConfig(data []byte, path string) (*Config, error) {
	var config Config

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	return &config, nil
}

func joinErrors(errs []ValidationError) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}
