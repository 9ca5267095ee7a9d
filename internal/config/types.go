// Package config provides configuration loading for sessiond.
package config

import (
	"fmt"
	"strings"
)

// Config is the full sessiond configuration, loaded from
// sessions/sessiond.yaml under the project root with SESSIOND_* environment
// overrides.
type Config struct {
	// DeveloperName is used in session-start greetings.
	DeveloperName string `koanf:"developer_name"`

	// APIMode disables the extended-thinking prompt injection that is
	// only useful on subscription plans.
	APIMode bool `koanf:"api_mode"`

	Triggers TriggersConfig `koanf:"triggers"`
	Tools    ToolsConfig    `koanf:"tools"`
	Branch   BranchConfig   `koanf:"branch"`
	Context  ContextConfig  `koanf:"context"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// TriggersConfig holds the mode-transition phrases. All matching is
// case-insensitive on whole-phrase boundaries.
type TriggersConfig struct {
	// Implementation phrases switch Discussion -> Implementation.
	Implementation []string `koanf:"implementation"`

	// Discussion is the phrase that switches Implementation -> Discussion.
	Discussion string `koanf:"discussion"`

	// Stop forces Discussion from any mode and overrides everything else.
	Stop string `koanf:"stop"`
}

// ToolsConfig controls which tools the gate treats as mutating and which
// shell commands stay available in discussion mode.
type ToolsConfig struct {
	// Blocked are the mutating tools locked in discussion mode.
	Blocked []string `koanf:"blocked"`

	// ReadOnlyBash is the allow-list of shell command prefixes permitted
	// in discussion mode.
	ReadOnlyBash []string `koanf:"read_only_bash"`
}

// BranchConfig controls branch enforcement for mutating tools in
// implementation mode.
type BranchConfig struct {
	Enforcement bool `koanf:"enforcement"`

	// Policy maps task-name prefixes to required branch-name prefixes,
	// e.g. "implement-" -> "feature/". Lookup is longest-prefix-wins.
	Policy map[string]string `koanf:"policy"`
}

// ContextConfig controls the context-usage advisory monitor.
type ContextConfig struct {
	// UsableTokens is the practical context window before auto-compaction.
	UsableTokens int `koanf:"usable_tokens"`

	// WarnPercent is the pair of advisory thresholds, ascending.
	WarnPercent []int `koanf:"warn_percent"`
}

// ServerConfig configures the optional local decision API.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// RateLimit is requests per second allowed per server instance.
	RateLimit float64 `koanf:"rate_limit"`
}

// LoggingConfig configures the sessiond logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`

	// File is the log destination for hook processes. Empty means the
	// default sessions/state/sessiond.log under the project root.
	File string `koanf:"file"`
}

// Validate checks the configuration for values the engine cannot work with.
func (c *Config) Validate() error {
	if len(c.Triggers.Implementation) == 0 {
		return fmt.Errorf("triggers.implementation must not be empty")
	}
	if strings.TrimSpace(c.Triggers.Stop) == "" {
		return fmt.Errorf("triggers.stop must not be empty")
	}
	if strings.TrimSpace(c.Triggers.Discussion) == "" {
		return fmt.Errorf("triggers.discussion must not be empty")
	}

	if c.Context.UsableTokens <= 0 {
		return fmt.Errorf("context.usable_tokens must be positive, got %d", c.Context.UsableTokens)
	}
	if len(c.Context.WarnPercent) != 2 {
		return fmt.Errorf("context.warn_percent must have exactly two thresholds, got %d", len(c.Context.WarnPercent))
	}
	lo, hi := c.Context.WarnPercent[0], c.Context.WarnPercent[1]
	if lo < 1 || hi > 99 || lo >= hi {
		return fmt.Errorf("context.warn_percent must be ascending within 1-99, got [%d, %d]", lo, hi)
	}

	for prefix, branch := range c.Branch.Policy {
		if prefix == "" {
			return fmt.Errorf("branch.policy contains an empty task prefix")
		}
		if branch == "" {
			return fmt.Errorf("branch.policy prefix %q maps to an empty branch prefix", prefix)
		}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}
