package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sessiond/internal/config"
	"github.com/fyrsmithlabs/sessiond/internal/gate"
	"github.com/fyrsmithlabs/sessiond/internal/monitor"
	"github.com/fyrsmithlabs/sessiond/internal/state"
	"github.com/fyrsmithlabs/sessiond/internal/trigger"
	"github.com/fyrsmithlabs/sessiond/pkg/git"
)

// Runner dispatches one hook event. Exit codes follow the host contract:
// 0 proceeds, 2 blocks the tool call and feeds stderr back to the
// assistant. Anything unexpected degrades to 0 so a broken hook never
// wedges the session.
type Runner struct {
	cfg     *config.Config
	store   *state.Store
	gate    *gate.Gate
	monitor *monitor.Monitor
	matcher *trigger.Matcher

	projectRoot string
	nested      bool
	logger      *zap.Logger

	stdout io.Writer
	stderr io.Writer
}

// NewRunner wires a runner for one project. nested marks the hook
// registration used inside subagent pipelines.
func NewRunner(cfg *config.Config, store *state.Store, projectRoot string, nested bool, logger *zap.Logger, stdout, stderr io.Writer) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:         cfg,
		store:       store,
		gate:        gate.New(cfg, store, projectRoot, logger),
		monitor:     monitor.New(cfg.Context, store, logger),
		matcher:     trigger.NewMatcher(cfg.Triggers.Implementation, cfg.Triggers.Discussion, cfg.Triggers.Stop),
		projectRoot: projectRoot,
		nested:      nested,
		logger:      logger,
		stdout:      stdout,
		stderr:      stderr,
	}
}

// Run handles one event and returns the process exit code.
func (r *Runner) Run(ctx context.Context, ev *Event) int {
	switch ev.HookEventName {
	case EventUserPromptSubmit:
		return r.userPromptSubmit(ev)
	case EventPreToolUse:
		return r.preToolUse(ctx, ev)
	case EventSessionStart:
		return r.sessionStart(ev)
	case EventPreCompact:
		return r.preCompact()
	default:
		r.logger.Debug("ignoring unknown hook event", zap.String("event", ev.HookEventName))
		return 0
	}
}

// userPromptSubmit applies trigger phrases and assembles the turn's
// additional context. The mode write happens before any output so the
// same turn's tool gating observes the new mode.
func (r *Runner) userPromptSubmit(ev *Event) int {
	var parts []string

	mode := r.store.ReadMode()
	if tr := r.matcher.Evaluate(ev.Prompt, mode); tr.Fired {
		if err := r.store.WriteMode(tr.To); err != nil {
			r.logger.Error("cannot persist mode transition", zap.Error(err))
		} else {
			mode = tr.To
			parts = append(parts, modeBanner(tr.To))
		}
	}

	if advisory := r.monitor.Check(ev.TranscriptPath, r.store.CurrentEpoch()); advisory != "" {
		parts = append(parts, advisory)
	}

	parts = append(parts, promptNudges(ev.Prompt)...)

	if !r.cfg.APIMode {
		parts = append(parts, "[[ ultrathink ]]")
	}

	if len(parts) > 0 {
		r.emit(contextResponse(EventUserPromptSubmit, strings.Join(parts, "\n\n")))
	}
	return 0
}

func (r *Runner) preToolUse(ctx context.Context, ev *Event) int {
	d := r.gate.Evaluate(ctx, gate.Request{
		Tool:           ev.ToolName,
		Input:          ev.ToolInput,
		NestedExecutor: r.nested,
	})
	if d.Outcome == gate.OutcomeBlock {
		fmt.Fprintln(r.stderr, d.Message)
		return 2
	}
	return 0
}

// sessionStart forces discussion mode, arms a fresh warning epoch, and
// greets with the session's standing context.
func (r *Runner) sessionStart(ev *Event) int {
	if err := r.store.WriteMode(state.ModeDiscussion); err != nil {
		r.logger.Error("cannot reset mode on session start", zap.Error(err))
	}
	if _, err := r.monitor.Reset(); err != nil {
		r.logger.Error("cannot reset warning epoch", zap.Error(err))
	}
	r.emit(contextResponse(EventSessionStart, r.greeting()))
	return 0
}

func (r *Runner) preCompact() int {
	if _, err := r.monitor.Reset(); err != nil {
		r.logger.Error("cannot reset warning epoch", zap.Error(err))
	}
	return 0
}

func (r *Runner) greeting() string {
	var b strings.Builder
	name := r.cfg.DeveloperName
	if name == "" {
		name = "the developer"
	}
	fmt.Fprintf(&b, "You are working with %s. The session starts in discussion mode: propose and align before touching files.", name)

	if task, ok := r.store.ReadTask(); ok {
		fmt.Fprintf(&b, "\nActive task: %s", task.Name)
		if task.RequiredBranch != "" {
			fmt.Fprintf(&b, " (branch %s)", task.RequiredBranch)
		}
	} else {
		b.WriteString("\nNo active task.")
	}

	if branch, err := git.CurrentBranch(r.projectRoot); err == nil {
		fmt.Fprintf(&b, "\nCurrent branch: %s", branch)
	}

	if len(r.cfg.Triggers.Implementation) > 0 {
		fmt.Fprintf(&b, "\nImplementation unlocks when %s says %q.", name, r.cfg.Triggers.Implementation[0])
	}
	return b.String()
}

func modeBanner(m state.Mode) string {
	if m == state.ModeImplementation {
		return "[sessiond] Implementation mode engaged. File-mutating tools are available; stay within the agreed scope."
	}
	return "[sessiond] Back in discussion mode. File-mutating tools are locked until the developer approves again."
}

// nudgeRules surface workflow reminders when the prompt talks about task
// lifecycle operations in prose.
var nudgeRules = []struct {
	re   *regexp.Regexp
	text string
}{
	{
		re:   regexp.MustCompile(`(?i)\b(new task|create a task|start a task|next task)\b`),
		text: "[sessiond] Tasks are started with `sessd task start <name>`; names carry a type prefix (implement-, fix-, refactor-, ...) that selects the required branch.",
	},
	{
		re:   regexp.MustCompile(`(?i)\b(task is (done|complete|finished)|complete the task|finish the task)\b`),
		text: "[sessiond] When the work is merged or handed off, close it out with `sessd task clear`.",
	},
	{
		re:   regexp.MustCompile(`(?i)\b(switch tasks?|different task|other task)\b`),
		text: "[sessiond] Switching tasks replaces the active descriptor: `sessd task start <name>`.",
	},
}

func promptNudges(prompt string) []string {
	var out []string
	for _, rule := range nudgeRules {
		if rule.re.MatchString(prompt) {
			out = append(out, rule.text)
		}
	}
	return out
}

func (r *Runner) emit(resp Response) {
	enc := json.NewEncoder(r.stdout)
	if err := enc.Encode(resp); err != nil {
		r.logger.Error("cannot write hook response", zap.Error(err))
	}
}
