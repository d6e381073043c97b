package core

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
)

// ErrUpstreamTimeout marks a model or tool provider that did not
// answer within its deadline.
var ErrUpstreamTimeout = errors.New("upstream timeout")

// ToolCall is the model asking for one tool invocation.
type ToolCall struct {
	Name string
	Args map[string]interface{}
}

// ToolResult feeds a tool's outcome (or its error) back to the model.
type ToolResult struct {
	Name     string
	Response map[string]interface{}
}

// Turn is one entry of the prompt history. Exactly one of Content,
// ToolCall or ToolResult is meaningful per turn.
type Turn struct {
	Role       string // "user" or "assistant" for text turns
	Content    string
	ToolCall   *ToolCall
	ToolResult *ToolResult
}

type CompletionRequest struct {
	Model        string
	Temperature  float32
	SystemPrompt string
	History      []Turn
	Tools        []*genai.FunctionDeclaration
}

// Completion is either text or a single tool request, never both.
type Completion struct {
	Text     string
	ToolCall *ToolCall
}

// ModelClient abstracts the language model provider so the
// orchestration loop can be exercised without network access.
type ModelClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	Close() error
}
