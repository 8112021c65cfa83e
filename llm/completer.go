package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/tripflow/types"
)

// ErrEmptyCompletion is returned when a completer yields no text.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []types.ChatMessage `json:"messages"`
	Temperature *float32            `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

// Completer produces a completion for a request.
// Implementations should honour ctx but callers wrap them with WithTimeout
// rather than rely on it.
type Completer interface {
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req *CompletionRequest) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	return f(ctx, req)
}

type timeoutCompleter struct {
	next    Completer
	timeout time.Duration
}

// WithTimeout bounds every call to c by d. The call returns a TIMEOUT error
// once d elapses even if c itself ignores ctx.
func WithTimeout(c Completer, d time.Duration) Completer {
	if d <= 0 {
		return c
	}
	return &timeoutCompleter{next: c, timeout: d}
}

type completion struct {
	text string
	err  error
}

func (t *timeoutCompleter) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan completion, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- completion{err: types.NewError(types.ErrInternalError, fmt.Sprintf("completer panic: %v", r))}
			}
		}()
		text, err := t.next.Complete(ctx, req)
		done <- completion{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", res.err
		}
		if res.text == "" {
			return "", ErrEmptyCompletion
		}
		return res.text, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", types.NewTimeoutError(fmt.Sprintf("completion exceeded %s", t.timeout))
		}
		return "", types.Normalize(ctx.Err())
	}
}
