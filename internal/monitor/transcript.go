// Package monitor reads the session transcript and turns context-window
// consumption into one-shot advisory warnings. Warnings are text appended
// to the assistant's context; the monitor never blocks anything, and any
// trouble reading the transcript is a silent skip.
package monitor

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
)

// transcript entries are JSONL; only assistant turns carry usage, and
// sidechain (subagent) turns count against a different window.
type transcriptEntry struct {
	IsSidechain bool `json:"isSidechain"`
	Message     struct {
		Usage *usage `json:"usage"`
	} `json:"message"`
}

type usage struct {
	InputTokens         int `json:"input_tokens"`
	CacheReadTokens     int `json:"cache_read_input_tokens"`
	CacheCreationTokens int `json:"cache_creation_input_tokens"`
}

// ErrNoUsage means the transcript held no countable usage entry.
var ErrNoUsage = errors.New("monitor: no usage entry in transcript")

// maxLineSize bounds the scanner buffer; transcript lines carry whole tool
// results and routinely exceed bufio's 64KB default.
const maxLineSize = 8 * 1024 * 1024

// TranscriptTokens returns the context-window consumption recorded by the
// most recent non-sidechain transcript entry that carries usage: input
// tokens plus both cache components. Malformed lines are skipped.
func TranscriptTokens(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	tokens := 0
	found := false
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry transcriptEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if entry.IsSidechain || entry.Message.Usage == nil {
			continue
		}
		u := entry.Message.Usage
		tokens = u.InputTokens + u.CacheReadTokens + u.CacheCreationTokens
		found = true
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrNoUsage
	}
	return tokens, nil
}
