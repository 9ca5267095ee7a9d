package monitor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/sessiond/internal/config"
	"github.com/fyrsmithlabs/sessiond/internal/state"
)

func newMonitor(t *testing.T) (*Monitor, *state.Store) {
	t.Helper()
	store := state.NewStore(t.TempDir())
	cfg := config.ContextConfig{UsableTokens: 160000, WarnPercent: []int{75, 90}}
	return New(cfg, store, nil), store
}

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTranscriptTokens(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"summary"}`,
		`{"isSidechain":false,"message":{"usage":{"input_tokens":1000,"cache_read_input_tokens":50000,"cache_creation_input_tokens":2000}}}`,
		`not json at all`,
		`{"isSidechain":true,"message":{"usage":{"input_tokens":999999,"cache_read_input_tokens":0,"cache_creation_input_tokens":0}}}`,
		`{"isSidechain":false,"message":{"usage":{"input_tokens":1500,"cache_read_input_tokens":120000,"cache_creation_input_tokens":500}}}`,
	)

	tokens, err := TranscriptTokens(path)
	require.NoError(t, err)
	// Most recent non-sidechain entry wins: 1500 + 120000 + 500.
	assert.Equal(t, 122000, tokens)
}

func TestTranscriptTokensNoUsage(t *testing.T) {
	path := writeTranscript(t, `{"type":"summary"}`, `{"isSidechain":false,"message":{}}`)
	_, err := TranscriptTokens(path)
	assert.ErrorIs(t, err, ErrNoUsage)
}

func TestTranscriptTokensMissingFile(t *testing.T) {
	_, err := TranscriptTokens(filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.Error(t, err)
}

func TestCheckTokensThresholds(t *testing.T) {
	m, _ := newMonitor(t)
	epoch := "epoch-1"

	// Below the low threshold nothing fires.
	assert.Empty(t, m.CheckTokens(100000, epoch)) // 62.5%

	// Crossing 75% fires once.
	warning := m.CheckTokens(124000, epoch) // 77.5%
	assert.Contains(t, warning, "124,000/160,000 tokens used (77.5%)")
	assert.Empty(t, m.CheckTokens(125000, epoch))

	// Crossing 90% fires once.
	warning = m.CheckTokens(150000, epoch) // 93.8%
	assert.Contains(t, warning, "150,000/160,000 tokens used (93.8%)")
	assert.Empty(t, m.CheckTokens(152000, epoch))
}

func TestCheckTokensHighTakesPrecedence(t *testing.T) {
	m, _ := newMonitor(t)
	epoch := "epoch-1"

	// Jumping past both thresholds fires only the high advisory.
	warning := m.CheckTokens(150000, epoch)
	assert.Contains(t, warning, "nearly exhausted")

	// The low advisory is suppressed for the rest of the epoch.
	assert.Empty(t, m.CheckTokens(130000, epoch))
}

func TestResetStartsNewEpoch(t *testing.T) {
	m, store := newMonitor(t)

	epoch, err := m.Reset()
	require.NoError(t, err)
	require.NotEmpty(t, epoch)
	assert.Equal(t, epoch, store.CurrentEpoch())

	assert.NotEmpty(t, m.CheckTokens(124000, epoch))
	assert.Empty(t, m.CheckTokens(124000, epoch))

	// Reset re-arms the advisory under the new epoch.
	next, err := m.Reset()
	require.NoError(t, err)
	assert.NotEqual(t, epoch, next)
	assert.NotEmpty(t, m.CheckTokens(124000, next))
}

func TestCheckMissingTranscriptIsSilent(t *testing.T) {
	m, _ := newMonitor(t)
	assert.Empty(t, m.Check(filepath.Join(t.TempDir(), "absent.jsonl"), "epoch-1"))
	assert.Empty(t, m.Check("", "epoch-1"))
}

func TestUsage(t *testing.T) {
	m, _ := newMonitor(t)
	path := writeTranscript(t,
		`{"isSidechain":false,"message":{"usage":{"input_tokens":1000,"cache_read_input_tokens":79000,"cache_creation_input_tokens":0}}}`,
	)
	tokens, percent, err := m.Usage(path)
	require.NoError(t, err)
	assert.Equal(t, 80000, tokens)
	assert.InDelta(t, 50.0, percent, 0.01)
}
