package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirRelPath is the state directory under the project root.
	DirRelPath = "sessions/state"

	modeFileName     = "mode.json"
	taskFileName     = "task.json"
	warningsFileName = "warnings.json"
)

// Store reads and writes sessiond's persisted control state. It is cheap to
// construct and holds no cached state: every read goes to disk, because a
// different process may have written since this one started.
type Store struct {
	dir string
}

// NewStore returns a store rooted at <projectRoot>/sessions/state.
func NewStore(projectRoot string) *Store {
	return &Store{dir: filepath.Join(projectRoot, filepath.FromSlash(DirRelPath))}
}

// Dir returns the state directory.
func (s *Store) Dir() string { return s.dir }

// ModePath returns the mode record path. The gate uses it to recognize
// tool invocations that target control state.
func (s *Store) ModePath() string { return filepath.Join(s.dir, modeFileName) }

// TaskPath returns the task record path.
func (s *Store) TaskPath() string { return filepath.Join(s.dir, taskFileName) }

func (s *Store) warningsPath() string { return filepath.Join(s.dir, warningsFileName) }

// writeJSON atomically replaces path with the JSON encoding of v. The temp
// file is created in the destination directory so the rename cannot cross
// filesystems.
func (s *Store) writeJSON(path string, v any) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing state record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readJSON decodes path into v. The caller decides what absence or
// corruption means for its record.
func (s *Store) readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
