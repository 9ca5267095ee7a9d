package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/sessiond/internal/state"
)

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Wire sessd into the project's Claude Code hooks",
	Long: `Register the sessd hook commands in the project's .claude/settings.json
and scaffold the sessions/ directory with a starter configuration.

Subagent pipelines that must not rewrite the workflow state can register
the same hook commands with --nested.

Examples:
  sessd install
  sessd install --project /path/to/repo`,
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the sessd hooks from the project settings",
	RunE:  runUninstall,
}

// hookRegistrations maps hook events to the sessd subcommand handling them.
var hookRegistrations = []struct {
	event      string
	subcommand string
	matcher    string
}{
	{event: "UserPromptSubmit", subcommand: "user-prompt"},
	{event: "PreToolUse", subcommand: "pre-tool", matcher: "*"},
	{event: "SessionStart", subcommand: "session-start"},
	{event: "PreCompact", subcommand: "compact"},
}

func runInstall(cmd *cobra.Command, args []string) error {
	root := projectRoot("")
	binPath, err := sessdBinaryPath()
	if err != nil {
		return err
	}

	if err := scaffoldSessions(root); err != nil {
		return err
	}

	settingsPath := projectSettingsPath(root)
	settings, err := readSettings(settingsPath)
	if err != nil {
		return err
	}

	hooksDoc, _ := settings["hooks"].(map[string]any)
	if hooksDoc == nil {
		hooksDoc = make(map[string]any)
	}
	for _, reg := range hookRegistrations {
		entry := map[string]any{
			"hooks": []any{map[string]any{
				"type":    "command",
				"command": fmt.Sprintf("%s hook %s", binPath, reg.subcommand),
			}},
		}
		if reg.matcher != "" {
			entry["matcher"] = reg.matcher
		}
		hooksDoc[reg.event] = mergeRegistration(hooksDoc[reg.event], entry)
	}
	settings["hooks"] = hooksDoc

	if err := writeSettings(settingsPath, settings); err != nil {
		return err
	}

	fmt.Printf("Hooks registered in %s\n", settingsPath)
	fmt.Printf("Session state in %s\n", filepath.Join(root, state.DirRelPath))
	fmt.Println("Restart Claude Code to apply changes.")
	return nil
}

// mergeRegistration replaces any prior sessd entry for the event and keeps
// foreign registrations untouched.
func mergeRegistration(existing any, entry map[string]any) []any {
	out := []any{entry}
	list, _ := existing.([]any)
	for _, item := range list {
		if !isSessdRegistration(item) {
			out = append(out, item)
		}
	}
	return out
}

func isSessdRegistration(item any) bool {
	m, ok := item.(map[string]any)
	if !ok {
		return false
	}
	inner, _ := m["hooks"].([]any)
	for _, h := range inner {
		hm, ok := h.(map[string]any)
		if !ok {
			continue
		}
		if cmdStr, _ := hm["command"].(string); strings.Contains(cmdStr, "sessd hook") {
			return true
		}
	}
	return false
}

func runUninstall(cmd *cobra.Command, args []string) error {
	root := projectRoot("")
	settingsPath := projectSettingsPath(root)
	settings, err := readSettings(settingsPath)
	if err != nil {
		return err
	}

	hooksDoc, _ := settings["hooks"].(map[string]any)
	if hooksDoc == nil {
		fmt.Println("No hooks registered, nothing to uninstall.")
		return nil
	}

	removed := false
	for event, existing := range hooksDoc {
		list, _ := existing.([]any)
		var kept []any
		for _, item := range list {
			if isSessdRegistration(item) {
				removed = true
				continue
			}
			kept = append(kept, item)
		}
		if len(kept) == 0 {
			delete(hooksDoc, event)
		} else {
			hooksDoc[event] = kept
		}
	}
	if !removed {
		fmt.Println("No sessd hooks registered, nothing to uninstall.")
		return nil
	}

	if len(hooksDoc) == 0 {
		delete(settings, "hooks")
	} else {
		settings["hooks"] = hooksDoc
	}
	if err := writeSettings(settingsPath, settings); err != nil {
		return err
	}
	fmt.Printf("Hooks removed from %s\n", settingsPath)
	return nil
}

const starterConfig = `# sessiond configuration.
# Every key is optional; unset keys use the defaults shown.

# developer_name: ""
# api_mode: false

# triggers:
#   implementation: ["make it so", "run that", "go ahead", "yert"]
#   discussion: "back to discussion"
#   stop: "silence"

# tools:
#   blocked: [Edit, Write, MultiEdit, NotebookEdit]

# branch:
#   enforcement: true
#   policy:
#     implement-: feature/
#     fix-: fix/
#     refactor-: refactor/

# context:
#   usable_tokens: 160000
#   warn_percent: [75, 90]
`

// scaffoldSessions creates the sessions directory, the state directory and
// a starter configuration file.
func scaffoldSessions(root string) error {
	stateDir := filepath.Join(root, state.DirRelPath)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	cfgPath := filepath.Join(root, "sessions", "sessiond.yaml")
	if _, err := os.Stat(cfgPath); err == nil {
		return nil
	}
	if err := os.WriteFile(cfgPath, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("writing starter configuration: %w", err)
	}
	return nil
}
