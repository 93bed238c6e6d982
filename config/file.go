package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultFileName is the config file looked for in the working directory.
const DefaultFileName = "trendstoday.yaml"

// FindConfigFile resolves which YAML file to read. An explicit path must
// exist. Without one, ./trendstoday.yaml and then
// ~/.trendstoday/config.yaml are tried; returns "" if neither exists (not an
// error).
func FindConfigFile(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("failed to read config file: %w", err)
		}
		return path, nil
	}

	candidates := []string{DefaultFileName}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".trendstoday", "config.yaml"))
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to stat config file: %w", err)
		}
		if !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil // No config file -- not an error
}
