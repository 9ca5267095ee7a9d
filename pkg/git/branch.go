// Package git provides the read-only Git facts sessiond needs for branch
// enforcement: the branch currently checked out, whether a required branch
// exists, and where the enclosing project root is.
//
// The repository is never mutated. When a directory is not a Git repository
// the caller is expected to degrade (disable the branch check), not fail.
package git

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var (
	// ErrNotGitRepo indicates the directory is not a Git repository
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrHeadNotFound indicates the .git/HEAD file is missing
	ErrHeadNotFound = errors.New("HEAD file not found")
)

// Detached is returned by CurrentBranch when HEAD does not point at a branch.
const Detached = "detached"

// CurrentBranch returns the branch checked out in the repository at
// projectPath.
//
// It reads .git/HEAD directly rather than opening the full repository, so
// it works in freshly initialized repos with no commits (where go-git's
// Head() would fail on the unborn branch).
//
// Returns:
//   - Branch name (e.g., "main", "feature/implement-login")
//   - Detached if HEAD is detached
//   - ErrNotGitRepo / ErrHeadNotFound for unusable repositories
func CurrentBranch(projectPath string) (string, error) {
	gitDir := filepath.Join(projectPath, ".git")
	if _, err := os.Stat(gitDir); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrNotGitRepo, projectPath)
	}

	headFile := filepath.Join(gitDir, "HEAD")
	content, err := os.ReadFile(headFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrHeadNotFound, headFile)
		}
		return "", fmt.Errorf("reading HEAD file: %w", err)
	}

	head := strings.TrimSpace(string(content))

	// Empty HEAD file indicates detached state
	if head == "" {
		return Detached, nil
	}

	if strings.HasPrefix(head, "ref: refs/heads/") {
		return strings.TrimPrefix(head, "ref: refs/heads/"), nil
	}

	// HEAD contains a commit hash
	return Detached, nil
}

// BranchExists reports whether the named local branch exists in the
// repository at projectPath. Both loose and packed refs are considered.
func BranchExists(projectPath, name string) (bool, error) {
	repo, err := gogit.PlainOpen(projectPath)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return false, fmt.Errorf("%w: %s", ErrNotGitRepo, projectPath)
		}
		return false, fmt.Errorf("opening repository: %w", err)
	}

	_, err = repo.Reference(plumbing.NewBranchReferenceName(name), false)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("looking up branch %q: %w", name, err)
	}

	return true, nil
}

// IsRepo reports whether projectPath is inside a Git repository.
func IsRepo(projectPath string) bool {
	_, err := os.Stat(filepath.Join(projectPath, ".git"))
	return err == nil
}

// ProjectRoot walks upward from start looking for a directory containing
// either a .git directory or a sessions/ directory (the sessiond state
// mailbox). It returns start itself when no marker is found, so callers
// always get a usable directory.
func ProjectRoot(start string) string {
	abs, err := filepath.Abs(start)
	if err != nil {
		return start
	}

	dir := abs
	for {
		for _, marker := range []string{".git", "sessions"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return abs
		}
		dir = parent
	}
}
