package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads a runtime configuration file based on its extension and
// applies it over Default(), so omitted fields keep their defaults.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (*RuntimeConfig, error) {
	if path == "" {
		return nil, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(b, cfg); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
