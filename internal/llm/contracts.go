package llm

import "context"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionRequest is a single chat-completion call made with one credential.
type CompletionRequest struct {
	APIKey   string
	Messages []Message
}

// Completer is the remote model the conversion client depends on. It returns
// the content of the first choice, a *StatusError for non-2xx responses, or
// ErrEmptyResponse when the body carries no content.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}
