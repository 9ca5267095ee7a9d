// Package state persists sessiond's control state between hook invocations.
//
// Every hook runs as an independent short-lived process, so the only shared
// memory is this directory of small JSON records under
// <projectRoot>/sessions/state/. The package is the narrow interface the
// rest of the engine depends on; callers rely on its invariants, never on
// the storage format:
//
//   - Writes are atomic (write-temp-then-rename). A concurrent reader sees
//     either the old record or the new one, never a torn write.
//   - Reads tolerate missing or corrupt files by returning the documented
//     safe default. The mode default is Discussion; a failure must never
//     resolve toward Implementation.
//   - Corruption of one record never affects the others.
//
// No cross-process locking is used. Last-write-wins is acceptable for mode
// and task updates; anything that must hold per-call regardless of races
// (the control-state protection rule) is enforced in the gate, not here.
package state
