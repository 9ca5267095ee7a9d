// Package hooks implements the per-event hook executable: parse one event
// from stdin, consult the persisted session state, and answer through the
// exit status and stdout/stderr contract the host expects. Each invocation
// is a fresh process; everything shared lives in the state store.
package hooks

import (
	"encoding/json"
	"fmt"
	"io"
)

// Event names as delivered in hook_event_name.
const (
	EventUserPromptSubmit = "UserPromptSubmit"
	EventPreToolUse       = "PreToolUse"
	EventSessionStart     = "SessionStart"
	EventPreCompact       = "PreCompact"
)

// Event is the JSON payload the host writes to the hook's stdin. Fields
// are populated per event type; absent ones are zero.
type Event struct {
	HookEventName  string         `json:"hook_event_name"`
	Prompt         string         `json:"prompt"`
	ToolName       string         `json:"tool_name"`
	ToolInput      map[string]any `json:"tool_input"`
	TranscriptPath string         `json:"transcript_path"`
	SessionID      string         `json:"session_id"`
	CWD            string         `json:"cwd"`
}

// maxEventSize bounds the stdin read; tool_input can carry whole file
// contents but anything past this is not a plausible hook event.
const maxEventSize = 16 * 1024 * 1024

// ParseEvent decodes one hook event from r.
func ParseEvent(r io.Reader) (*Event, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxEventSize))
	if err != nil {
		return nil, fmt.Errorf("reading hook event: %w", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decoding hook event: %w", err)
	}
	return &ev, nil
}

// Response is the structured stdout answer for events that return context
// to the session.
type Response struct {
	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// HookSpecificOutput carries additionalContext back to the conversation.
type HookSpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

func contextResponse(event, context string) Response {
	return Response{HookSpecificOutput: &HookSpecificOutput{
		HookEventName:     event,
		AdditionalContext: context,
	}}
}
