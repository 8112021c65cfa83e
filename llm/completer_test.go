package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/tripflow/types"
)

func TestWithTimeout_PassesThrough(t *testing.T) {
	c := WithTimeout(CompleterFunc(func(ctx context.Context, req *CompletionRequest) (string, error) {
		return "ok:" + req.Model, nil
	}), time.Second)

	out, err := c.Complete(context.Background(), &CompletionRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok:m", out)
}

func TestWithTimeout_BlockingCompleter(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	c := WithTimeout(CompleterFunc(func(ctx context.Context, req *CompletionRequest) (string, error) {
		<-release // ignores ctx
		return "late", nil
	}), 20*time.Millisecond)

	start := time.Now()
	_, err := c.Complete(context.Background(), &CompletionRequest{})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrTimeout))
	assert.True(t, types.IsRetryable(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestWithTimeout_EmptyCompletion(t *testing.T) {
	c := WithTimeout(CompleterFunc(func(ctx context.Context, req *CompletionRequest) (string, error) {
		return "", nil
	}), time.Second)

	_, err := c.Complete(context.Background(), &CompletionRequest{})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestWithTimeout_Panic(t *testing.T) {
	c := WithTimeout(CompleterFunc(func(ctx context.Context, req *CompletionRequest) (string, error) {
		panic("boom")
	}), time.Second)

	_, err := c.Complete(context.Background(), &CompletionRequest{})
	assert.True(t, types.IsErrorCode(err, types.ErrInternalError))
}

func TestWithTimeout_CallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := WithTimeout(CompleterFunc(func(ctx context.Context, req *CompletionRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}), time.Second)

	_, err := c.Complete(ctx, &CompletionRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || types.IsErrorCode(err, types.ErrCancelled))
}

func TestWithTimeout_ZeroDisables(t *testing.T) {
	inner := NewTemplateCompleter()
	assert.Same(t, inner, WithTimeout(inner, 0))
}

func TestTemplateCompleter(t *testing.T) {
	c := NewTemplateCompleter()

	out, err := c.Complete(context.Background(), &CompletionRequest{
		Messages: []types.ChatMessage{
			types.NewChatMessage(types.RoleSystem, "You are a flight specialist."),
			types.NewChatMessage(types.RoleSystem, ContextHeader+"\n- flights: AF1 to Paris 420 EUR\n- weather: 18C sunny"),
			types.NewChatMessage(types.RoleUser, "book a flight to paris"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Here is what I found:\n- flights: AF1 to Paris 420 EUR\n- weather: 18C sunny", out)

	out, err = c.Complete(context.Background(), &CompletionRequest{
		Messages: []types.ChatMessage{types.NewChatMessage(types.RoleUser, "hello")},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Happy to help")
	assert.Contains(t, out, `"hello"`)
}
