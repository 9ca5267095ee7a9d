// Package gate is the per-invocation tool gate. Every PreToolUse event is
// evaluated here against the persisted mode, the active task, and the
// branch policy, yielding an allow or a block with a distinct reason code.
// Evaluate never panics and never returns an error: any failure to read
// collaborating state degrades to the safest decision for that rule.
package gate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sessiond/internal/config"
	"github.com/fyrsmithlabs/sessiond/internal/policy"
	"github.com/fyrsmithlabs/sessiond/internal/state"
	"github.com/fyrsmithlabs/sessiond/pkg/git"
)

const instrumentationName = "github.com/fyrsmithlabs/sessiond/internal/gate"

// Outcome is the binary result of a gate decision.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeBlock Outcome = "block"
)

// Reason codes carried on every block. Each rule has its own code so the
// assistant's correction path is unambiguous.
const (
	ReasonControlState  = "control-state-protected"
	ReasonDiscussion    = "discussion-mode"
	ReasonNoTask        = "no-task"
	ReasonWrongBranch   = "wrong-branch"
	ReasonMissingBranch = "missing-branch"
)

// Request is one tool invocation to be gated.
type Request struct {
	// Tool is the tool name as reported by the hook event, e.g. "Edit".
	Tool string

	// Input is the raw tool_input object from the event.
	Input map[string]any

	// NestedExecutor marks invocations arriving from a nested agent that
	// must never rewrite the workflow control state.
	NestedExecutor bool
}

// Decision is the gate's verdict. Message is only set on blocks and is the
// text surfaced back to the assistant.
type Decision struct {
	Outcome Outcome
	Reason  string
	Message string
}

func allow() Decision { return Decision{Outcome: OutcomeAllow} }

func block(reason, format string, args ...any) Decision {
	return Decision{Outcome: OutcomeBlock, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Gate evaluates tool invocations against the session's workflow state.
type Gate struct {
	cfg         *config.Config
	store       *state.Store
	branches    policy.BranchPolicy
	readOnly    policy.ReadOnlyCommands
	blocked     map[string]bool
	projectRoot string
	logger      *zap.Logger

	// branchExists is swappable for tests.
	branchExists func(projectPath, name string) (bool, error)

	tracer          trace.Tracer
	meter           metric.Meter
	decisionCounter metric.Int64Counter
}

// New builds a gate for one project. logger may be nil.
func New(cfg *config.Config, store *state.Store, projectRoot string, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	blocked := make(map[string]bool, len(cfg.Tools.Blocked))
	for _, t := range cfg.Tools.Blocked {
		blocked[t] = true
	}
	g := &Gate{
		cfg:          cfg,
		store:        store,
		branches:     policy.NewBranchPolicy(cfg.Branch.Policy),
		readOnly:     policy.NewReadOnlyCommands(cfg.Tools.ReadOnlyBash),
		blocked:      blocked,
		projectRoot:  projectRoot,
		logger:       logger,
		branchExists: git.BranchExists,
		tracer:       otel.Tracer(instrumentationName),
		meter:        otel.Meter(instrumentationName),
	}
	g.initMetrics()
	return g
}

func (g *Gate) initMetrics() {
	var err error
	g.decisionCounter, err = g.meter.Int64Counter(
		"sessiond.gate.decisions_total",
		metric.WithDescription("Total number of tool gate decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		g.logger.Warn("failed to create decision counter", zap.Error(err))
	}
}

// Evaluate gates one tool invocation. Rules apply in order: control-state
// protection for nested executors, discussion-mode blocking, then branch
// enforcement for mutating tools in implementation mode.
func (g *Gate) Evaluate(ctx context.Context, req Request) Decision {
	ctx, span := g.tracer.Start(ctx, "gate.evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.String("tool", req.Tool),
		attribute.Bool("nested_executor", req.NestedExecutor),
	)

	d := g.evaluate(req)

	span.SetAttributes(attribute.String("outcome", string(d.Outcome)))
	attrs := []attribute.KeyValue{
		attribute.String("tool", req.Tool),
		attribute.String("outcome", string(d.Outcome)),
	}
	if d.Reason != "" {
		span.SetAttributes(attribute.String("reason", d.Reason))
		attrs = append(attrs, attribute.String("reason", d.Reason))
	}
	if g.decisionCounter != nil {
		g.decisionCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if d.Outcome == OutcomeBlock {
		g.logger.Info("tool blocked",
			zap.String("tool", req.Tool),
			zap.String("reason", d.Reason))
	}
	return d
}

func (g *Gate) evaluate(req Request) Decision {
	if req.NestedExecutor && g.touchesControlState(req) {
		return block(ReasonControlState,
			"nested agents may not modify the workflow state files; ask the top-level session to change mode or task")
	}

	mode := g.store.ReadMode()
	mutating := g.blocked[req.Tool]

	if mode == state.ModeDiscussion {
		if mutating {
			return block(ReasonDiscussion,
				"[%s] you are in discussion mode. The %s tool is not available until the developer approves implementation",
				ReasonDiscussion, req.Tool)
		}
		if req.Tool == "Bash" {
			cmd := stringField(req.Input, "command")
			if !g.readOnly.Allows(cmd) {
				return block(ReasonDiscussion,
					"[%s] you are in discussion mode. Only read-only commands are available until the developer approves implementation",
					ReasonDiscussion)
			}
		}
		return allow()
	}

	if mutating && g.cfg.Branch.Enforcement {
		return g.enforceBranch()
	}
	return allow()
}

// enforceBranch applies the branch policy for a mutating tool in
// implementation mode.
func (g *Gate) enforceBranch() Decision {
	task, ok := g.store.ReadTask()
	if !ok {
		return block(ReasonNoTask,
			"[%s] no active task. Start one with `sessd task start <name>` before editing files", ReasonNoTask)
	}

	expected := task.RequiredBranch
	if expected == "" {
		var matched bool
		expected, matched = g.branches.ExpectedBranch(task.Name)
		if !matched {
			return allow()
		}
	}

	current, err := git.CurrentBranch(g.projectRoot)
	if err != nil {
		if errors.Is(err, git.ErrNotGitRepo) {
			g.logger.Warn("branch enforcement disabled: project is not a git repository",
				zap.String("project", g.projectRoot))
		} else {
			g.logger.Warn("branch enforcement disabled: cannot read current branch",
				zap.Error(err))
		}
		return allow()
	}
	if current == expected {
		return allow()
	}

	exists, err := g.branchExists(g.projectRoot, expected)
	if err != nil {
		g.logger.Warn("cannot check branch existence", zap.Error(err))
	}
	// The branch mismatch is already established. When the existence check
	// fails, only that sub-check degrades: report the wrong branch rather
	// than claiming the expected branch is missing.
	if exists || err != nil {
		return block(ReasonWrongBranch,
			"[%s] task %q requires branch %q but you are on %q. Switch with `git checkout %s`",
			ReasonWrongBranch, task.Name, expected, current, expected)
	}
	return block(ReasonMissingBranch,
		"[%s] task %q requires branch %q which does not exist. Create it with `git checkout -b %s`",
		ReasonMissingBranch, task.Name, expected, expected)
}

// touchesControlState reports whether the invocation reads as an attempt to
// rewrite mode.json or task.json. File tools are matched by resolved path,
// Bash by command text.
func (g *Gate) touchesControlState(req Request) bool {
	if req.Tool == "Bash" {
		cmd := stringField(req.Input, "command")
		return strings.Contains(cmd, "mode.json") || strings.Contains(cmd, "task.json")
	}
	for _, key := range []string{"file_path", "notebook_path"} {
		if g.isControlStatePath(stringField(req.Input, key)) {
			return true
		}
	}
	return false
}

func (g *Gate) isControlStatePath(p string) bool {
	if p == "" {
		return false
	}
	clean := filepath.Clean(p)
	if !filepath.IsAbs(clean) {
		clean = filepath.Join(g.projectRoot, clean)
	}
	return clean == g.store.ModePath() || clean == g.store.TaskPath()
}

func stringField(input map[string]any, key string) string {
	if input == nil {
		return ""
	}
	s, _ := input[key].(string)
	return s
}
