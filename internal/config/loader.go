package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// ConfigRelPath is where the config file lives under the project root.
	ConfigRelPath = "sessions/sessiond.yaml"

	envPrefix = "SESSIOND_"
)

// Load reads configuration for the project rooted at projectRoot.
//
// Precedence (highest to lowest):
//  1. SESSIOND_* environment variables (SESSIOND_BRANCH_ENFORCEMENT, ...)
//  2. <projectRoot>/sessions/sessiond.yaml
//  3. Defaults
//
// A missing config file is normal (defaults apply). On a malformed file,
// Load returns the conservative defaults alongside the error so every
// caller can degrade instead of crashing the host turn. Degraded means
// discussion-mode phrases still work but branch enforcement is off.
func Load(projectRoot string) (*Config, error) {
	cfg := Default()

	k := koanf.New(".")

	configPath := filepath.Join(projectRoot, filepath.FromSlash(ConfigRelPath))
	if _, err := os.Stat(configPath); err == nil {
		content, err := readBounded(configPath)
		if err != nil {
			return degraded(), fmt.Errorf("config file unreadable: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return degraded(), fmt.Errorf("config file malformed: %w", err)
		}
	}

	// Environment overrides: SESSIOND_BRANCH_ENFORCEMENT -> branch.enforcement.
	// The first underscore separates section from field when the leading
	// token names a config section; the field keeps its own underscores
	// (SESSIOND_CONTEXT_USABLE_TOKENS -> context.usable_tokens). Top-level
	// keys like developer_name pass through untouched.
	sections := map[string]bool{
		"triggers": true, "tools": true, "branch": true,
		"context": true, "server": true, "logging": true,
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 2 && sections[parts[0]] {
			return parts[0] + "." + parts[1]
		}
		return lower
	}), nil); err != nil {
		return degraded(), fmt.Errorf("environment overrides failed: %w", err)
	}

	// Unmarshal merges into a non-nil destination map, so a configured
	// policy must replace the default rules, not be folded into them.
	if k.Exists("branch.policy") {
		cfg.Branch.Policy = nil
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return degraded(), fmt.Errorf("config unmarshal failed: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return degraded(), fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// readBounded reads the config file, rejecting anything over the size cap.
// Stat and read share one file descriptor to avoid a TOCTOU race.
func readBounded(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	return io.ReadAll(f)
}

// Default returns the stock configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// degraded returns the conservative fallback used when the configuration is
// unusable: stock phrases and tool lists, but branch enforcement disabled so
// a broken config file cannot produce confusing branch blocks.
func degraded() *Config {
	cfg := Default()
	cfg.Branch.Enforcement = false
	return cfg
}

// applyDefaults fills in zero values. Booleans whose default is true are
// handled with care: Branch.Enforcement defaults on only for a fully empty
// policy section, which koanf leaves nil.
func applyDefaults(cfg *Config) {
	if cfg.DeveloperName == "" {
		cfg.DeveloperName = "the developer"
	}

	if len(cfg.Triggers.Implementation) == 0 {
		cfg.Triggers.Implementation = []string{"make it so", "run that", "go ahead", "yert"}
	}
	if cfg.Triggers.Discussion == "" {
		cfg.Triggers.Discussion = "back to discussion"
	}
	if cfg.Triggers.Stop == "" {
		cfg.Triggers.Stop = "silence"
	}

	if len(cfg.Tools.Blocked) == 0 {
		cfg.Tools.Blocked = []string{"Edit", "Write", "MultiEdit", "NotebookEdit"}
	}
	if len(cfg.Tools.ReadOnlyBash) == 0 {
		cfg.Tools.ReadOnlyBash = []string{
			"git status", "git diff", "git log", "git branch", "git show",
			"ls", "cat", "head", "tail", "grep", "rg", "find", "wc",
			"pwd", "tree", "stat", "which", "file",
		}
	}

	if cfg.Branch.Policy == nil {
		cfg.Branch.Enforcement = true
		cfg.Branch.Policy = map[string]string{
			"implement-":  "feature/",
			"fix-":        "fix/",
			"refactor-":   "refactor/",
			"migrate-":    "feature/",
			"test-":       "feature/",
			"experiment-": "experiment/",
		}
	}

	if cfg.Context.UsableTokens == 0 {
		cfg.Context.UsableTokens = 160000
	}
	if len(cfg.Context.WarnPercent) == 0 {
		cfg.Context.WarnPercent = []int{75, 90}
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9131
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 50
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
