// Package config loads JSON configuration files into typed structs, a
// direct generalization of the teacher's utils.CargarConfiguracion.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load decodes the JSON file at path into a new T. It is a thin wrapper
// kept deliberately small: unlike the teacher's version it never calls
// os.Exit, so callers decide how to react to a bad config file.
func Load[T any](path string) (*T, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolving path %q: %w", path, err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: opening %q: %w", absPath, err)
	}
	defer file.Close()

	var cfg T
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %q: %w", absPath, err)
	}
	return &cfg, nil
}
