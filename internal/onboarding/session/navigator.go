package session

import "context"

// Default destinations after onboarding.
const (
	DefaultMainPath  = "/portal/messages"
	DefaultLoginPath = "/login"
)

// PromptLoginAgain is shown when the session could not be re-established.
const PromptLoginAgain = "Please log in again."

// Destination is where the user is sent after leaving the wizard.
type Destination struct {
	Path   string
	Prompt string
}

// Navigator performs the single navigation call the bridge needs.
type Navigator interface {
	Navigate(ctx context.Context, dest Destination) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, dest Destination) error

func (f NavigatorFunc) Navigate(ctx context.Context, dest Destination) error {
	return f(ctx, dest)
}
