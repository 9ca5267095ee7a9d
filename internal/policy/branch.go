// Package policy holds the pure decision tables the tool gate consults:
// the task-prefix to branch-prefix mapping and the discussion-mode
// read-only command allow-list. Nothing here touches disk or Git; both
// types are deterministic functions of their configuration.
package policy

import (
	"sort"
	"strings"
)

// BranchPolicy maps task-name prefixes to required branch-name prefixes.
//
// Lookup is longest-prefix-wins: with both "fix-" and "fix-ci-" configured,
// task "fix-ci-cache" resolves to the "fix-ci-" rule. Prefixes are unique
// map keys, so no tie-break beyond length is ever needed; equal-length
// distinct prefixes cannot both match one task name.
type BranchPolicy struct {
	// prefixes, longest first. Sorted once at construction so Lookup is
	// deterministic regardless of map iteration order.
	rules []rule
}

type rule struct {
	taskPrefix   string
	branchPrefix string
}

// NewBranchPolicy builds a policy from the configured mapping, e.g.
// {"implement-": "feature/"}.
func NewBranchPolicy(mapping map[string]string) BranchPolicy {
	rules := make([]rule, 0, len(mapping))
	for task, branch := range mapping {
		if task == "" || branch == "" {
			continue
		}
		rules = append(rules, rule{taskPrefix: task, branchPrefix: branch})
	}
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].taskPrefix) != len(rules[j].taskPrefix) {
			return len(rules[i].taskPrefix) > len(rules[j].taskPrefix)
		}
		return rules[i].taskPrefix < rules[j].taskPrefix
	})
	return BranchPolicy{rules: rules}
}

// Lookup returns the branch prefix required for taskName, or ok=false when
// no prefix matches (the task type is unenforced).
func (p BranchPolicy) Lookup(taskName string) (string, bool) {
	for _, r := range p.rules {
		if strings.HasPrefix(taskName, r.taskPrefix) {
			return r.branchPrefix, true
		}
	}
	return "", false
}

// ExpectedBranch returns the branch the task must be worked on:
// the matched branch prefix followed by the full task name
// ("implement-login" -> "feature/implement-login"). ok=false means the
// task type is unenforced.
func (p BranchPolicy) ExpectedBranch(taskName string) (string, bool) {
	prefix, ok := p.Lookup(taskName)
	if !ok {
		return "", false
	}
	return prefix + taskName, true
}
