package tools

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/types"
)

// Status of a tool result.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Invocation is one requested tool call.
type Invocation struct {
	Tool   Name   `json:"tool_name"`
	Params Params `json:"parameters,omitempty"`
}

// Result is the captured outcome of one invocation. Failures are data,
// never panics or returned errors.
type Result struct {
	ToolName      string          `json:"tool_name"`
	Status        Status          `json:"status"`
	Output        any             `json:"result,omitempty"`
	ErrorType     string          `json:"error_type,omitempty"`
	ErrorCode     types.ErrorCode `json:"error_code,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	Retryable     bool            `json:"retryable,omitempty"`
	ExecutionTime time.Duration   `json:"execution_time"`
	StartedAt     time.Time       `json:"started_at"`
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// Err rebuilds the coded error of a failed result, or nil.
func (r Result) Err() *types.Error {
	if r.OK() {
		return nil
	}
	return types.NewError(r.ErrorCode, r.ErrorMessage).
		WithRetryable(r.Retryable).
		WithTool(r.ToolName)
}

// Observer receives one callback per executed tool call.
type Observer interface {
	ObserveToolCall(tool string, status string, d time.Duration)
}

// Executor runs invocations against a Registry.
type Executor struct {
	registry       *Registry
	logger         *zap.Logger
	maxConcurrency int
	observer       Observer
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMaxConcurrency bounds ExecuteAll fan-out.
func WithMaxConcurrency(n int) ExecutorOption {
	return func(e *Executor) { e.maxConcurrency = n }
}

// WithObserver installs a call observer.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) { e.observer = o }
}

// NewExecutor creates an executor.
func NewExecutor(registry *Registry, logger *zap.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		registry:       registry,
		logger:         logger.With(zap.String("component", "tool_executor")),
		maxConcurrency: 4,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxConcurrency < 1 {
		e.maxConcurrency = 1
	}
	return e
}

type outcome struct {
	output any
	err    error
}

// Execute runs one invocation. It always returns a Result.
func (e *Executor) Execute(ctx context.Context, inv Invocation) (result Result) {
	start := time.Now()
	result = Result{ToolName: string(inv.Tool), StartedAt: start}

	defer func() {
		result.ExecutionTime = time.Since(start)
		if e.observer != nil {
			e.observer.ObserveToolCall(result.ToolName, string(result.Status), result.ExecutionTime)
		}
	}()

	if err := ctx.Err(); err != nil {
		e.fail(&result, err)
		return result
	}

	handler, meta, ok := e.registry.Lookup(inv.Tool)
	if !ok {
		e.fail(&result, types.NewError(types.ErrToolNotFound, fmt.Sprintf("tool %s not found", inv.Tool)).WithTool(string(inv.Tool)))
		return result
	}

	if err := e.registry.reserve(inv.Tool); err != nil {
		e.fail(&result, err)
		return result
	}

	execCtx, cancel := context.WithTimeout(ctx, meta.Timeout)
	defer cancel()

	// buffered so the handler goroutine can always finish
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: types.NewError(types.ErrInternalError, fmt.Sprintf("tool %s panicked: %v", inv.Tool, r)).WithTool(string(inv.Tool))}
			}
		}()
		out, err := handler(execCtx, inv.Params)
		done <- outcome{output: out, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			e.fail(&result, o.err)
			return result
		}
		result.Status = StatusSuccess
		result.Output = o.output
		e.logger.Debug("tool executed",
			zap.String("tool", result.ToolName),
			zap.Duration("duration", time.Since(start)))

	case <-execCtx.Done():
		if parent := ctx.Err(); parent != nil {
			e.fail(&result, parent)
		} else {
			e.fail(&result, types.NewTimeoutError(fmt.Sprintf("tool %s exceeded %s", inv.Tool, meta.Timeout)).WithTool(string(inv.Tool)))
		}
	}
	return result
}

func (e *Executor) fail(result *Result, err error) {
	coded := types.Normalize(err)

	result.Status = StatusError
	result.ErrorType = types.ErrorType(err)
	result.ErrorCode = coded.Code
	result.ErrorMessage = err.Error()
	result.Retryable = coded.Retryable

	e.logger.Warn("tool call failed",
		zap.String("tool", result.ToolName),
		zap.String("error_type", result.ErrorType),
		zap.Bool("retryable", result.Retryable),
		zap.Error(err))
}
