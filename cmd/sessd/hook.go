package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sessiond/internal/config"
	"github.com/fyrsmithlabs/sessiond/internal/hooks"
	"github.com/fyrsmithlabs/sessiond/internal/logging"
	"github.com/fyrsmithlabs/sessiond/internal/state"
)

// nestedFlag marks the registration used inside subagent tool pipelines
var nestedFlag bool

func init() {
	rootCmd.AddCommand(hookCmd)
	hookCmd.PersistentFlags().BoolVar(&nestedFlag, "nested", false, "run with nested-executor restrictions")
	hookCmd.AddCommand(hookUserPromptCmd)
	hookCmd.AddCommand(hookPreToolCmd)
	hookCmd.AddCommand(hookSessionStartCmd)
	hookCmd.AddCommand(hookCompactCmd)
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle one Claude Code hook event from stdin",
	Long: `Handle a single hook event. The event JSON is read from stdin and the
answer follows the hook contract: exit 0 proceeds, exit 2 blocks the tool
call with the explanation on stderr.

These commands are wired into .claude/settings.json by 'sessd install' and
are not meant to be run by hand.`,
}

var hookUserPromptCmd = &cobra.Command{
	Use:   "user-prompt",
	Short: "Handle a UserPromptSubmit event",
	Run:   func(cmd *cobra.Command, args []string) { runHook(hooks.EventUserPromptSubmit) },
}

var hookPreToolCmd = &cobra.Command{
	Use:   "pre-tool",
	Short: "Handle a PreToolUse event",
	Run:   func(cmd *cobra.Command, args []string) { runHook(hooks.EventPreToolUse) },
}

var hookSessionStartCmd = &cobra.Command{
	Use:   "session-start",
	Short: "Handle a SessionStart event",
	Run:   func(cmd *cobra.Command, args []string) { runHook(hooks.EventSessionStart) },
}

var hookCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Handle a PreCompact event",
	Run:   func(cmd *cobra.Command, args []string) { runHook(hooks.EventPreCompact) },
}

// runHook parses the event, dispatches it, and exits with the hook
// contract's code. A hook failure must never wedge the session, so parse
// errors exit 0.
func runHook(expectedEvent string) {
	ev, err := hooks.ParseEvent(os.Stdin)
	if err != nil {
		// No usable event; proceed rather than stall the turn.
		os.Exit(0)
	}
	if ev.HookEventName == "" {
		ev.HookEventName = expectedEvent
	}

	root := projectRoot(ev.CWD)
	cfg, cfgErr := config.Load(root)
	store := state.NewStore(root)
	logger := logging.NewHookLogger(cfg.Logging, store.Dir())
	defer logger.Sync() //nolint:errcheck
	if cfgErr != nil {
		logger.Warn("running with degraded configuration", zap.Error(cfgErr))
	}

	runner := hooks.NewRunner(cfg, store, root, nestedFlag, logger, os.Stdout, os.Stderr)
	os.Exit(runner.Run(context.Background(), ev))
}
