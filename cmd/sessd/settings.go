package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// claudeSettingsPath returns the user-level Claude Code settings file,
// preferring ~/.claude/settings.json when present.
func claudeSettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}

	primary := filepath.Join(home, ".claude", "settings.json")
	if _, err := os.Stat(primary); err == nil {
		return primary, nil
	}

	var configDir string
	switch runtime.GOOS {
	case "darwin":
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "claude")
		} else {
			configDir = filepath.Join(home, ".config", "claude")
		}
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "Claude")
	default:
		configDir = filepath.Join(home, ".claude")
	}
	return filepath.Join(configDir, "settings.json"), nil
}

// projectSettingsPath returns the project-level settings file used for
// hook registrations.
func projectSettingsPath(root string) string {
	return filepath.Join(root, ".claude", "settings.json")
}

// readSettings loads a settings file, treating absence or corruption as an
// empty document. The path must sit under the home directory or the
// project tree it was derived from.
func readSettings(path string) (map[string]any, error) {
	clean := filepath.Clean(path)
	if err := checkSettingsPath(clean); err != nil {
		return nil, err
	}

	settings := make(map[string]any)
	data, err := os.ReadFile(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return make(map[string]any), nil
	}
	return settings, nil
}

// writeSettings persists the settings document with restrictive
// permissions, creating the directory when needed.
func writeSettings(path string, settings map[string]any) error {
	clean := filepath.Clean(path)
	if err := checkSettingsPath(clean); err != nil {
		return err
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0o700); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	if err := os.WriteFile(clean, data, 0o600); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

func checkSettingsPath(clean string) error {
	if !filepath.IsAbs(clean) {
		return nil
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" && strings.HasPrefix(clean, home) {
		return nil
	}
	if strings.HasPrefix(clean, os.TempDir()) {
		return nil
	}
	wd, err := os.Getwd()
	if err == nil && strings.HasPrefix(clean, wd) {
		return nil
	}
	return fmt.Errorf("refusing to touch settings outside the home directory or project: %s", clean)
}
