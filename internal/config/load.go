package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Parse decodes a TOML package manifest into a Config.
func Parse(manifest []byte) (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(manifest, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: cannot parse manifest: %w", err)
	}
	return cfg, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}
