package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testPolicy() BranchPolicy {
	return NewBranchPolicy(map[string]string{
		"implement-":  "feature/",
		"fix-":        "fix/",
		"fix-ci-":     "ci/",
		"refactor-":   "refactor/",
		"experiment-": "experiment/",
	})
}

func TestBranchPolicyLookup(t *testing.T) {
	p := testPolicy()

	tests := []struct {
		name     string
		task     string
		expected string
		ok       bool
	}{
		{name: "simple match", task: "implement-login", expected: "feature/", ok: true},
		{name: "longest prefix wins", task: "fix-ci-cache", expected: "ci/", ok: true},
		{name: "shorter prefix still matches", task: "fix-login", expected: "fix/", ok: true},
		{name: "no match", task: "spike-auth", ok: false},
		{name: "empty task", task: "", ok: false},
		{name: "prefix alone", task: "refactor-", expected: "refactor/", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Lookup(tt.task)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestBranchPolicyExpectedBranch(t *testing.T) {
	p := testPolicy()

	branch, ok := p.ExpectedBranch("implement-login")
	assert.True(t, ok)
	assert.Equal(t, "feature/implement-login", branch)

	branch, ok = p.ExpectedBranch("fix-ci-cache")
	assert.True(t, ok)
	assert.Equal(t, "ci/fix-ci-cache", branch)

	_, ok = p.ExpectedBranch("spike-auth")
	assert.False(t, ok)
}

func TestBranchPolicyIgnoresEmptyRules(t *testing.T) {
	p := NewBranchPolicy(map[string]string{
		"":     "feature/",
		"fix-": "",
	})
	_, ok := p.Lookup("fix-login")
	assert.False(t, ok)
}

func TestBranchPolicyEmpty(t *testing.T) {
	p := NewBranchPolicy(nil)
	_, ok := p.Lookup("implement-login")
	assert.False(t, ok)
}
