package pipeline

import "context"

// Provider is the interface for any text-completion backend.
type Provider interface {
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
}

// CompletionRequest is a single-turn completion call. The contract is
// best-effort text: the response may be empty and may wrap JSON in Markdown
// code fences, which is why every caller runs through ExtractJSON.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// AgentStatus is the terminal state of a geocoding agent invocation.
type AgentStatus string

const (
	AgentCompleted AgentStatus = "completed"
	AgentFailed    AgentStatus = "failed"
)

// AgentResult is the outcome of a geocoding agent invocation.
type AgentResult struct {
	Status AgentStatus
	Output string
}

// Agent is the interface to the external geocoding-capable agent.
type Agent interface {
	Invoke(ctx context.Context, instruction string) (*AgentResult, error)
}
