// Package trigger turns natural-language phrases in the developer's prompt
// into workflow mode transitions. Matching is phrase-boundary and
// case-insensitive: "go ahead" fires on "ok, go ahead." but not on
// "going ahead with the plan".
package trigger

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/sessiond/internal/state"
)

// Transition is the outcome of evaluating one prompt. Fired is false when
// the prompt contained no effective phrase; To is only meaningful when
// Fired is true.
type Transition struct {
	To    state.Mode
	Fired bool
}

// Matcher holds the compiled phrase patterns for one configuration.
type Matcher struct {
	implementation []*regexp.Regexp
	discussion     *regexp.Regexp
	stop           *regexp.Regexp
}

// NewMatcher compiles the configured phrases. Empty phrases are skipped;
// pattern text is regexp-quoted, so phrases never need escaping in config.
func NewMatcher(implementation []string, discussion, stop string) *Matcher {
	m := &Matcher{}
	for _, p := range implementation {
		if re := compilePhrase(p); re != nil {
			m.implementation = append(m.implementation, re)
		}
	}
	m.discussion = compilePhrase(discussion)
	m.stop = compilePhrase(stop)
	return m
}

func compilePhrase(phrase string) *regexp.Regexp {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil
	}
	// \b only works at word characters; fall back to bare anchoring when the
	// phrase starts or ends with punctuation.
	pattern := regexp.QuoteMeta(strings.ToLower(phrase))
	if startsWord(phrase) {
		pattern = `\b` + pattern
	}
	if endsWord(phrase) {
		pattern += `\b`
	}
	return regexp.MustCompile(pattern)
}

func startsWord(s string) bool { return wordByte(s[0]) }
func endsWord(s string) bool   { return wordByte(s[len(s)-1]) }

func wordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// Evaluate applies the phrase rules to one prompt in the current mode.
// The stop phrase always wins; otherwise implementation triggers only act
// in discussion mode, and the discussion phrase only acts in
// implementation mode. Repeated or redundant matches are no-ops.
func (m *Matcher) Evaluate(message string, mode state.Mode) Transition {
	lowered := strings.ToLower(message)

	if m.stop != nil && m.stop.MatchString(lowered) {
		if mode == state.ModeDiscussion {
			return Transition{}
		}
		return Transition{To: state.ModeDiscussion, Fired: true}
	}

	if mode == state.ModeDiscussion {
		for _, re := range m.implementation {
			if re.MatchString(lowered) {
				return Transition{To: state.ModeImplementation, Fired: true}
			}
		}
		return Transition{}
	}

	if m.discussion != nil && m.discussion.MatchString(lowered) {
		return Transition{To: state.ModeDiscussion, Fired: true}
	}
	return Transition{}
}
