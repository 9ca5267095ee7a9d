package http

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse is the response body for GET /api/v1/status.
type StatusResponse struct {
	Mode    string         `json:"mode"`
	Task    *TaskStatus    `json:"task,omitempty"`
	Branch  string         `json:"branch,omitempty"`
	Context *ContextStatus `json:"context"`
}

// TaskStatus describes the active task.
type TaskStatus struct {
	Name           string `json:"name"`
	RequiredBranch string `json:"required_branch,omitempty"`
}

// ContextStatus reports the advisory state of the context monitor.
type ContextStatus struct {
	UsableTokens int  `json:"usable_tokens"`
	WarnedLow    bool `json:"warned_low"`
	WarnedHigh   bool `json:"warned_high"`
}

// DecisionRequest is the request body for POST /api/v1/decision.
type DecisionRequest struct {
	Tool           string         `json:"tool"`
	Input          map[string]any `json:"input,omitempty"`
	NestedExecutor bool           `json:"nested_executor,omitempty"`
}

// DecisionResponse mirrors the gate's verdict.
type DecisionResponse struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}
