package state

import (
	"fmt"
	"os"
	"time"
)

// WarningFlags are the one-shot context-usage advisory markers for a
// session epoch. Crossed75 and Crossed90 name the default thresholds; they
// hold the low and high configured thresholds respectively.
type WarningFlags struct {
	// Epoch identifies the session epoch the flags belong to. Flags from
	// a different epoch are stale and read as unset.
	Epoch string `json:"epoch"`

	Crossed75 bool `json:"crossed_75"`
	Crossed90 bool `json:"crossed_90"`

	UpdatedAt time.Time `json:"updated_at"`
}

// ReadFlags returns the warning flags for epoch. Missing, corrupt or
// stale (different-epoch) records read as all-unset; worst case an
// advisory repeats once, which is preferable to losing one.
func (s *Store) ReadFlags(epoch string) WarningFlags {
	var flags WarningFlags
	if err := s.readJSON(s.warningsPath(), &flags); err != nil {
		return WarningFlags{Epoch: epoch}
	}
	if flags.Epoch != epoch {
		return WarningFlags{Epoch: epoch}
	}
	return flags
}

// CurrentEpoch returns the epoch recorded by the last flag write, or ""
// when no warning record exists yet.
func (s *Store) CurrentEpoch() string {
	var flags WarningFlags
	if err := s.readJSON(s.warningsPath(), &flags); err != nil {
		return ""
	}
	return flags.Epoch
}

// MarkCrossedLow records that the low threshold advisory fired for epoch.
func (s *Store) MarkCrossedLow(epoch string) error {
	flags := s.ReadFlags(epoch)
	flags.Crossed75 = true
	return s.writeFlags(flags)
}

// MarkCrossedHigh records that the high threshold advisory fired for epoch.
func (s *Store) MarkCrossedHigh(epoch string) error {
	flags := s.ReadFlags(epoch)
	flags.Crossed90 = true
	return s.writeFlags(flags)
}

// ResetFlags clears both flags and starts the given epoch. Called on the
// explicit compaction/reset signal and on session start.
func (s *Store) ResetFlags(epoch string) error {
	return s.writeFlags(WarningFlags{Epoch: epoch})
}

func (s *Store) writeFlags(flags WarningFlags) error {
	flags.UpdatedAt = time.Now().UTC()
	if err := s.writeJSON(s.warningsPath(), flags); err != nil {
		return fmt.Errorf("persisting warning flags: %w", err)
	}
	return nil
}

// removeIfExists deletes path, treating absence as success.
func removeIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
