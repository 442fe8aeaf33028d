package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUpstreamUnavailable marks failures to reach the model endpoint or to get
// a usable answer from it.
var ErrUpstreamUnavailable = errors.New("language model unavailable")

// Client sends a single prompt to a language model and returns its text reply.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Ping(ctx context.Context) error
	Name() string
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUpstreamUnavailable, fmt.Sprintf(format, args...))
}

// StripCodeFences removes markdown code fences a model may wrap its JSON in.
func StripCodeFences(reply string) string {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```JSON", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	// some models add a sentence before or after the object
	if start := strings.Index(cleaned, "{"); start > 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}
	return cleaned
}
