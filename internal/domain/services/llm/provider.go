package llm

import "context"

// Gateway sends one prompt to a language model and returns its raw text.
// Implementations own retry behaviour; callers treat errors as terminal.
type Gateway interface {
	// Send returns the model's reply to prompt.
	// Errors match domain.ErrConfiguration, domain.ErrUpstreamOverloaded or domain.ErrUpstreamError.
	Send(ctx context.Context, prompt string) (string, error)

	// Name returns the provider name (e.g., "gemini", "lorem")
	Name() string
}
