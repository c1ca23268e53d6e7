package assistant

import "context"

// Role of a conversation message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn of a conversation. A model turn may carry tool
// calls; the user turn that follows carries their results.
type Message struct {
	Role    Role
	Text    string
	Calls   []ToolCall
	Results []ToolResult
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args string // JSON object
}

// ToolResult answers a ToolCall.
type ToolResult struct {
	ID     string
	Name   string
	Result string // JSON object
}

// Request is a single generation step.
type Request struct {
	System   string
	Messages []Message
	Tools    []ToolSpec
}

// Response is the model output for a Request. A response with calls
// expects their results in the next request.
type Response struct {
	Text  string
	Calls []ToolCall
}

// Model generates the next turn of a conversation.
type Model interface {
	Generate(ctx context.Context, req Request) (Response, error)
}
