package state

import (
	"time"
)

// Mode is the DAIC workflow mode.
type Mode string

const (
	// ModeDiscussion is the restrictive state: mutating tools are blocked.
	ModeDiscussion Mode = "discussion"

	// ModeImplementation permits mutating tools, subject to branch policy.
	ModeImplementation Mode = "implementation"
)

// modeRecord is the on-disk shape of the mode store.
type modeRecord struct {
	Mode      Mode      `json:"mode"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReadMode returns the persisted mode. A missing, unreadable or corrupt
// record, including an unrecognized mode value, resolves to Discussion.
// Failure never resolves toward Implementation.
func (s *Store) ReadMode() Mode {
	var rec modeRecord
	if err := s.readJSON(s.ModePath(), &rec); err != nil {
		return ModeDiscussion
	}
	if rec.Mode != ModeImplementation {
		return ModeDiscussion
	}
	return ModeImplementation
}

// WriteMode atomically persists the mode.
func (s *Store) WriteMode(m Mode) error {
	return s.writeJSON(s.ModePath(), modeRecord{Mode: m, UpdatedAt: time.Now().UTC()})
}

// ToggleMode flips the persisted mode and returns the new value.
func (s *Store) ToggleMode() (Mode, error) {
	next := ModeImplementation
	if s.ReadMode() == ModeImplementation {
		next = ModeDiscussion
	}
	if err := s.WriteMode(next); err != nil {
		return "", err
	}
	return next, nil
}
