package gate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/sessiond/internal/config"
	"github.com/fyrsmithlabs/sessiond/internal/state"
)

type fixture struct {
	root  string
	store *state.Store
	gate  *Gate
}

func newFixture(t *testing.T, mutate func(cfg *config.Config)) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	store := state.NewStore(root)
	return &fixture{root: root, store: store, gate: New(cfg, store, root, nil)}
}

// initRepo creates a git repository and points HEAD at branch.
func (f *fixture) initRepo(t *testing.T, branch string) {
	t.Helper()
	_, err := gogit.PlainInit(f.root, false)
	require.NoError(t, err)
	head := "ref: refs/heads/" + branch + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(f.root, ".git", "HEAD"), []byte(head), 0o644))
}

// createBranch writes a loose ref so the branch exists without commits.
func (f *fixture) createBranch(t *testing.T, branch string) {
	t.Helper()
	ref := filepath.Join(f.root, ".git", "refs", "heads", filepath.FromSlash(branch))
	require.NoError(t, os.MkdirAll(filepath.Dir(ref), 0o755))
	hash := "0123456789abcdef0123456789abcdef01234567\n"
	require.NoError(t, os.WriteFile(ref, []byte(hash), 0o644))
}

func (f *fixture) startTask(t *testing.T, name, requiredBranch string) {
	t.Helper()
	require.NoError(t, f.store.StartTask(state.TaskDescriptor{Name: name, RequiredBranch: requiredBranch}))
}

func (f *fixture) implementation(t *testing.T) {
	t.Helper()
	require.NoError(t, f.store.WriteMode(state.ModeImplementation))
}

func TestGateDiscussionMode(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		outcome Outcome
		reason  string
	}{
		{
			name:    "mutating tool blocked",
			req:     Request{Tool: "Edit", Input: map[string]any{"file_path": "main.go"}},
			outcome: OutcomeBlock,
			reason:  ReasonDiscussion,
		},
		{
			name:    "write blocked",
			req:     Request{Tool: "Write"},
			outcome: OutcomeBlock,
			reason:  ReasonDiscussion,
		},
		{
			name:    "read tool allowed",
			req:     Request{Tool: "Read", Input: map[string]any{"file_path": "main.go"}},
			outcome: OutcomeAllow,
		},
		{
			name:    "read-only bash allowed",
			req:     Request{Tool: "Bash", Input: map[string]any{"command": "git status"}},
			outcome: OutcomeAllow,
		},
		{
			name:    "mutating bash blocked",
			req:     Request{Tool: "Bash", Input: map[string]any{"command": "rm -rf build"}},
			outcome: OutcomeBlock,
			reason:  ReasonDiscussion,
		},
		{
			name:    "chained bash blocked",
			req:     Request{Tool: "Bash", Input: map[string]any{"command": "git status && make deploy"}},
			outcome: OutcomeBlock,
			reason:  ReasonDiscussion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			d := f.gate.Evaluate(context.Background(), tt.req)
			assert.Equal(t, tt.outcome, d.Outcome)
			assert.Equal(t, tt.reason, d.Reason)
			if d.Outcome == OutcomeBlock {
				assert.NotEmpty(t, d.Message)
			}
		})
	}
}

func TestGateControlStateProtection(t *testing.T) {
	f := newFixture(t, nil)
	f.implementation(t)
	f.startTask(t, "spike-auth", "")

	// File tool by resolved path, regardless of mode or tool kind.
	d := f.gate.Evaluate(context.Background(), Request{
		Tool:           "Write",
		Input:          map[string]any{"file_path": f.store.ModePath()},
		NestedExecutor: true,
	})
	assert.Equal(t, OutcomeBlock, d.Outcome)
	assert.Equal(t, ReasonControlState, d.Reason)

	// Relative path resolves against the project root.
	d = f.gate.Evaluate(context.Background(), Request{
		Tool:           "Edit",
		Input:          map[string]any{"file_path": "sessions/state/task.json"},
		NestedExecutor: true,
	})
	assert.Equal(t, OutcomeBlock, d.Outcome)
	assert.Equal(t, ReasonControlState, d.Reason)

	// Bash matched by command text.
	d = f.gate.Evaluate(context.Background(), Request{
		Tool:           "Bash",
		Input:          map[string]any{"command": "echo implementation > sessions/state/mode.json"},
		NestedExecutor: true,
	})
	assert.Equal(t, OutcomeBlock, d.Outcome)
	assert.Equal(t, ReasonControlState, d.Reason)

	// The top-level session is not subject to the protection rule.
	d = f.gate.Evaluate(context.Background(), Request{
		Tool:  "Write",
		Input: map[string]any{"file_path": f.store.ModePath()},
	})
	assert.Equal(t, OutcomeAllow, d.Outcome)
}

func TestGateImplementationNoTask(t *testing.T) {
	f := newFixture(t, nil)
	f.implementation(t)

	d := f.gate.Evaluate(context.Background(), Request{Tool: "Edit"})
	assert.Equal(t, OutcomeBlock, d.Outcome)
	assert.Equal(t, ReasonNoTask, d.Reason)
}

func TestGateImplementationUnenforcedTaskType(t *testing.T) {
	f := newFixture(t, nil)
	f.implementation(t)
	f.startTask(t, "spike-auth", "")

	d := f.gate.Evaluate(context.Background(), Request{Tool: "Edit"})
	assert.Equal(t, OutcomeAllow, d.Outcome)
}

func TestGateBranchEnforcement(t *testing.T) {
	t.Run("correct branch", func(t *testing.T) {
		f := newFixture(t, nil)
		f.implementation(t)
		f.startTask(t, "implement-login", "")
		f.initRepo(t, "feature/implement-login")

		d := f.gate.Evaluate(context.Background(), Request{Tool: "Edit"})
		assert.Equal(t, OutcomeAllow, d.Outcome)
	})

	t.Run("wrong branch that exists", func(t *testing.T) {
		f := newFixture(t, nil)
		f.implementation(t)
		f.startTask(t, "implement-login", "")
		f.initRepo(t, "main")
		f.createBranch(t, "feature/implement-login")

		d := f.gate.Evaluate(context.Background(), Request{Tool: "Edit"})
		assert.Equal(t, OutcomeBlock, d.Outcome)
		assert.Equal(t, ReasonWrongBranch, d.Reason)
		assert.Contains(t, d.Message, "git checkout feature/implement-login")
	})

	t.Run("missing branch", func(t *testing.T) {
		f := newFixture(t, nil)
		f.implementation(t)
		f.startTask(t, "implement-login", "")
		f.initRepo(t, "main")

		d := f.gate.Evaluate(context.Background(), Request{Tool: "Edit"})
		assert.Equal(t, OutcomeBlock, d.Outcome)
		assert.Equal(t, ReasonMissingBranch, d.Reason)
		assert.Contains(t, d.Message, "git checkout -b feature/implement-login")
	})

	t.Run("required branch overrides policy", func(t *testing.T) {
		f := newFixture(t, nil)
		f.implementation(t)
		f.startTask(t, "implement-login", "hotfix/login")
		f.initRepo(t, "hotfix/login")

		d := f.gate.Evaluate(context.Background(), Request{Tool: "Edit"})
		assert.Equal(t, OutcomeAllow, d.Outcome)
	})

	t.Run("existence check failure reports wrong branch", func(t *testing.T) {
		f := newFixture(t, nil)
		f.implementation(t)
		f.startTask(t, "implement-login", "")
		f.initRepo(t, "main")
		f.gate.branchExists = func(projectPath, name string) (bool, error) {
			return false, errors.New("packed-refs unreadable")
		}

		// The mismatch is known; the failed check must not claim the
		// branch is missing.
		d := f.gate.Evaluate(context.Background(), Request{Tool: "Edit"})
		assert.Equal(t, OutcomeBlock, d.Outcome)
		assert.Equal(t, ReasonWrongBranch, d.Reason)
		assert.NotContains(t, d.Message, "git checkout -b")
	})

	t.Run("not a repository degrades to allow", func(t *testing.T) {
		f := newFixture(t, nil)
		f.implementation(t)
		f.startTask(t, "implement-login", "")

		d := f.gate.Evaluate(context.Background(), Request{Tool: "Edit"})
		assert.Equal(t, OutcomeAllow, d.Outcome)
	})

	t.Run("enforcement disabled", func(t *testing.T) {
		f := newFixture(t, func(cfg *config.Config) { cfg.Branch.Enforcement = false })
		f.implementation(t)

		d := f.gate.Evaluate(context.Background(), Request{Tool: "Edit"})
		assert.Equal(t, OutcomeAllow, d.Outcome)
	})
}

func TestGateImplementationAllowsBash(t *testing.T) {
	f := newFixture(t, nil)
	f.implementation(t)

	d := f.gate.Evaluate(context.Background(), Request{
		Tool:  "Bash",
		Input: map[string]any{"command": "go test ./..."},
	})
	assert.Equal(t, OutcomeAllow, d.Outcome)
}
