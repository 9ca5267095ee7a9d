package state

import (
	"fmt"
	"strings"
	"time"
)

// TaskDescriptor is the persisted pointer to the active unit of work. It is
// overwritten on every task switch; completion lives in the task's own
// record elsewhere, never here.
type TaskDescriptor struct {
	// Name is the task identifier, e.g. "implement-login". Its prefix
	// selects the required branch prefix via the branch policy.
	Name string `json:"name"`

	// RequiredBranch, when set, overrides the policy-computed branch.
	RequiredBranch string `json:"required_branch,omitempty"`

	// Scope lists the files or areas this task is allowed to touch.
	Scope []string `json:"scope,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// ReadTask returns the active task, or ok=false when there is none or the
// record is unreadable. Enforcement then degrades to the no-task path.
func (s *Store) ReadTask() (*TaskDescriptor, bool) {
	var td TaskDescriptor
	if err := s.readJSON(s.TaskPath(), &td); err != nil {
		return nil, false
	}
	if strings.TrimSpace(td.Name) == "" {
		return nil, false
	}
	return &td, true
}

// StartTask persists td as the active task, replacing any previous task
// wholesale. Old scope is never merged into the new task.
func (s *Store) StartTask(td TaskDescriptor) error {
	if strings.TrimSpace(td.Name) == "" {
		return fmt.Errorf("task name cannot be empty")
	}
	td.UpdatedAt = time.Now().UTC()
	return s.writeJSON(s.TaskPath(), td)
}

// ClearTask removes the task pointer. Clearing an absent task is a no-op.
func (s *Store) ClearTask() error {
	err := removeIfExists(s.TaskPath())
	if err != nil {
		return fmt.Errorf("clearing task: %w", err)
	}
	return nil
}
