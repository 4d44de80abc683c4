package model

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned by Invoke when the model produced no text
// or only whitespace.
var ErrEmptyResponse = errors.New("model returned no text")

// CollaboratorError reports a failure of an external model or service.
// Nodes usually fold it into a state field rather than failing the run.
type CollaboratorError struct {
	// Provider names the collaborator, e.g. "openai".
	Provider string

	// Op is the operation that failed, e.g. "chat".
	Op string

	Err error
}

// Error implements the error interface.
func (e *CollaboratorError) Error() string {
	if e.Provider == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Provider + " " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Invoke sends prompt as a single user message and returns the reply text.
// Every failure is a *CollaboratorError.
func Invoke(ctx context.Context, m ChatModel, prompt string) (string, error) {
	return InvokeMessages(ctx, m, []Message{User(prompt)})
}

// InvokeMessages is Invoke for a prepared conversation.
func InvokeMessages(ctx context.Context, m ChatModel, messages []Message) (string, error) {
	out, err := m.Chat(ctx, messages, nil)
	if err != nil {
		var collab *CollaboratorError
		if errors.As(err, &collab) {
			return "", err
		}
		return "", &CollaboratorError{Op: "chat", Err: err}
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", &CollaboratorError{Op: "chat", Err: ErrEmptyResponse}
	}
	return out.Text, nil
}
