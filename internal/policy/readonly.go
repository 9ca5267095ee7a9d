package policy

import "strings"

// ReadOnlyCommands decides whether a shell command is on the discussion-mode
// allow-list. Entries are command prefixes such as "git status" or "ls"; a
// command matches an entry exactly or as entry plus further arguments.
//
// Chained commands are split on the shell connectives and every segment must
// match on its own, so "git status && rm -rf ." never rides in on the
// allow-listed half. Command substitution cannot be vetted textually and
// always fails the check.
type ReadOnlyCommands struct {
	entries []string
}

// NewReadOnlyCommands builds the matcher from the configured allow-list.
func NewReadOnlyCommands(entries []string) ReadOnlyCommands {
	cleaned := make([]string, 0, len(entries))
	for _, e := range entries {
		e = normalize(e)
		if e != "" {
			cleaned = append(cleaned, e)
		}
	}
	return ReadOnlyCommands{entries: cleaned}
}

// chain connectives that join independently-executed commands. "||" and "&"
// are covered by splitting on the single-character forms.
var connectives = []string{"&", ";", "|", "\n"}

// Allows reports whether every command in the (possibly chained) command
// line matches the allow-list.
func (r ReadOnlyCommands) Allows(command string) bool {
	if strings.Contains(command, "`") || strings.Contains(command, "$(") {
		return false
	}
	segments := split(command)
	if len(segments) == 0 {
		return false
	}
	for _, seg := range segments {
		if !r.allowsOne(seg) {
			return false
		}
	}
	return true
}

func (r ReadOnlyCommands) allowsOne(segment string) bool {
	segment = normalize(segment)
	if segment == "" {
		return false
	}
	for _, entry := range r.entries {
		if segment == entry || strings.HasPrefix(segment, entry+" ") {
			return true
		}
	}
	return false
}

func split(command string) []string {
	parts := []string{command}
	for _, sep := range connectives {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalize collapses runs of whitespace so "git   status" matches the
// "git status" entry.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
