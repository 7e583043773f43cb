package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
)

var (
	ErrServiceUnavailable = errors.New("completion service unavailable")
	ErrTimeout            = errors.New("completion service timed out")
	ErrMalformedResponse  = errors.New("malformed completion response")
)

// CompletionRequest is a single call to the text-generation service.
type CompletionRequest struct {
	SystemPrompt    string
	UserPrompt      string
	MaxOutputTokens int
	Temperature     float64
	// Timeout bounds this call only. Zero means the caller's context governs.
	Timeout time.Duration
}

// Completer generates text for a system/user prompt pair.
// Implementations classify failures as ErrServiceUnavailable, ErrTimeout or ErrMalformedResponse.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}

// estimateTokens approximates the token cost of a request for rate limiting
// (roughly 4 characters per token plus the output budget).
func estimateTokens(req CompletionRequest) int {
	return (len(req.SystemPrompt)+len(req.UserPrompt))/4 + req.MaxOutputTokens
}

// classifyError maps a transport or API error onto the completion error taxonomy.
// The original error stays in the chain.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrMalformedResponse) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		default:
			return fmt.Errorf("%w (status %d): %w", ErrServiceUnavailable, apiErr.StatusCode, err)
		}
	}

	return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
}
