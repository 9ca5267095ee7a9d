package monitor

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sessiond/internal/config"
	"github.com/fyrsmithlabs/sessiond/internal/state"
)

// Monitor watches context-window consumption and emits each advisory at
// most once per session epoch. The high threshold takes precedence: a
// session that jumps straight past both fires only the high advisory.
type Monitor struct {
	store  *state.Store
	usable int
	low    int
	high   int
	logger *zap.Logger
}

// New builds a monitor from the context configuration. logger may be nil.
func New(cfg config.ContextConfig, store *state.Store, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	low, high := 75, 90
	if len(cfg.WarnPercent) == 2 {
		low, high = cfg.WarnPercent[0], cfg.WarnPercent[1]
	}
	usable := cfg.UsableTokens
	if usable <= 0 {
		usable = 160000
	}
	return &Monitor{store: store, usable: usable, low: low, high: high, logger: logger}
}

// Check reads the transcript and returns the advisory to append to the
// turn's context, or "" when nothing fires. Transcript problems skip the
// check silently; the workflow must not stall because usage is unreadable.
func (m *Monitor) Check(transcriptPath, epoch string) string {
	if transcriptPath == "" {
		return ""
	}
	tokens, err := TranscriptTokens(transcriptPath)
	if err != nil {
		m.logger.Debug("context check skipped", zap.Error(err))
		return ""
	}
	return m.CheckTokens(tokens, epoch)
}

// CheckTokens applies the threshold rules to a known token count.
func (m *Monitor) CheckTokens(tokens int, epoch string) string {
	percent := float64(tokens) / float64(m.usable) * 100
	flags := m.store.ReadFlags(epoch)

	switch {
	case percent >= float64(m.high) && !flags.Crossed90:
		if err := m.store.MarkCrossedHigh(epoch); err != nil {
			m.logger.Warn("cannot persist warning flag", zap.Error(err))
		}
		return fmt.Sprintf("[context: %s] Context is nearly exhausted. Wrap up the current step and prepare to hand off or compact.", m.usageText(tokens, percent))
	case percent >= float64(m.low) && !flags.Crossed75 && !flags.Crossed90:
		if err := m.store.MarkCrossedLow(epoch); err != nil {
			m.logger.Warn("cannot persist warning flag", zap.Error(err))
		}
		return fmt.Sprintf("[context: %s] Context is filling up. Prefer finishing in-flight work over starting new threads.", m.usageText(tokens, percent))
	}
	return ""
}

// Usage returns the current consumption for the status surfaces, without
// touching the warning flags.
func (m *Monitor) Usage(transcriptPath string) (tokens int, percent float64, err error) {
	tokens, err = TranscriptTokens(transcriptPath)
	if err != nil {
		return 0, 0, err
	}
	return tokens, float64(tokens) / float64(m.usable) * 100, nil
}

// Reset starts a new warning epoch and returns its identifier.
func (m *Monitor) Reset() (string, error) {
	epoch := uuid.NewString()
	if err := m.store.ResetFlags(epoch); err != nil {
		return "", err
	}
	return epoch, nil
}

func (m *Monitor) usageText(tokens int, percent float64) string {
	return fmt.Sprintf("%s/%s tokens used (%.1f%%)", groupDigits(tokens), groupDigits(m.usable), percent)
}

// groupDigits renders 160000 as "160,000".
func groupDigits(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}
