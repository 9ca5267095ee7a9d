package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMode_DefaultsToDiscussion(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, s *Store)
	}{
		{
			name:  "missing file",
			setup: func(t *testing.T, s *Store) {},
		},
		{
			name: "corrupt file",
			setup: func(t *testing.T, s *Store) {
				require.NoError(t, os.MkdirAll(s.Dir(), 0755))
				require.NoError(t, os.WriteFile(s.ModePath(), []byte("{truncated"), 0644))
			},
		},
		{
			name: "unrecognized mode value",
			setup: func(t *testing.T, s *Store) {
				require.NoError(t, os.MkdirAll(s.Dir(), 0755))
				require.NoError(t, os.WriteFile(s.ModePath(), []byte(`{"mode":"yolo"}`), 0644))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(t.TempDir())
			tt.setup(t, s)
			assert.Equal(t, ModeDiscussion, s.ReadMode())
		})
	}
}

func TestWriteAndReadMode(t *testing.T) {
	s := NewStore(t.TempDir())

	require.NoError(t, s.WriteMode(ModeImplementation))
	assert.Equal(t, ModeImplementation, s.ReadMode())

	require.NoError(t, s.WriteMode(ModeDiscussion))
	assert.Equal(t, ModeDiscussion, s.ReadMode())
}

func TestToggleMode(t *testing.T) {
	s := NewStore(t.TempDir())

	got, err := s.ToggleMode()
	require.NoError(t, err)
	assert.Equal(t, ModeImplementation, got)

	got, err = s.ToggleMode()
	require.NoError(t, err)
	assert.Equal(t, ModeDiscussion, got)
}

func TestWriteMode_LeavesNoTempFiles(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.WriteMode(ModeImplementation))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
	}
}

func TestTaskLifecycle(t *testing.T) {
	s := NewStore(t.TempDir())

	_, ok := s.ReadTask()
	assert.False(t, ok)

	require.NoError(t, s.StartTask(TaskDescriptor{
		Name:  "implement-login",
		Scope: []string{"internal/auth"},
	}))

	td, ok := s.ReadTask()
	require.True(t, ok)
	assert.Equal(t, "implement-login", td.Name)
	assert.Equal(t, []string{"internal/auth"}, td.Scope)
	assert.False(t, td.UpdatedAt.IsZero())

	// Task switch overwrites wholesale: no scope merge.
	require.NoError(t, s.StartTask(TaskDescriptor{Name: "fix-logout"}))
	td, ok = s.ReadTask()
	require.True(t, ok)
	assert.Equal(t, "fix-logout", td.Name)
	assert.Empty(t, td.Scope)

	require.NoError(t, s.ClearTask())
	_, ok = s.ReadTask()
	assert.False(t, ok)

	// Clearing twice is fine.
	require.NoError(t, s.ClearTask())
}

func TestStartTask_RejectsEmptyName(t *testing.T) {
	s := NewStore(t.TempDir())
	err := s.StartTask(TaskDescriptor{Name: "   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task name")
}

func TestReadTask_CorruptRecord(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, os.MkdirAll(s.Dir(), 0755))
	require.NoError(t, os.WriteFile(s.TaskPath(), []byte("not json"), 0644))

	_, ok := s.ReadTask()
	assert.False(t, ok)

	// Corruption of the task record must not leak into the mode store.
	require.NoError(t, s.WriteMode(ModeImplementation))
	assert.Equal(t, ModeImplementation, s.ReadMode())
}

func TestWarningFlags(t *testing.T) {
	s := NewStore(t.TempDir())

	flags := s.ReadFlags("epoch-1")
	assert.False(t, flags.Crossed75)
	assert.False(t, flags.Crossed90)

	require.NoError(t, s.MarkCrossedLow("epoch-1"))
	flags = s.ReadFlags("epoch-1")
	assert.True(t, flags.Crossed75)
	assert.False(t, flags.Crossed90)

	require.NoError(t, s.MarkCrossedHigh("epoch-1"))
	flags = s.ReadFlags("epoch-1")
	assert.True(t, flags.Crossed75)
	assert.True(t, flags.Crossed90)

	// A different epoch reads as unset.
	flags = s.ReadFlags("epoch-2")
	assert.False(t, flags.Crossed75)
	assert.False(t, flags.Crossed90)

	// Reset re-arms both advisories for the new epoch.
	require.NoError(t, s.ResetFlags("epoch-2"))
	flags = s.ReadFlags("epoch-2")
	assert.Equal(t, "epoch-2", flags.Epoch)
	assert.False(t, flags.Crossed75)
	assert.False(t, flags.Crossed90)
}

func TestReadFlags_CorruptRecord(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, os.MkdirAll(s.Dir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "warnings.json"), []byte("{{"), 0644))

	flags := s.ReadFlags("epoch-1")
	assert.False(t, flags.Crossed75)
	assert.False(t, flags.Crossed90)
}
