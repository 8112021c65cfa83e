// Package mocks holds scriptable test doubles for completers and tools.
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/tripflow/llm"
)

// MockCompleter 是 llm.Completer 的模拟实现
type MockCompleter struct {
	mu       sync.Mutex
	response string
	err      error
	fn       func(ctx context.Context, req *llm.CompletionRequest) (string, error)
	calls    []*llm.CompletionRequest
}

// NewMockCompleter 创建默认回复 "ok" 的模拟补全
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{response: "ok"}
}

// WithResponse 设置固定回复
func (m *MockCompleter) WithResponse(s string) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = s
	return m
}

// WithError 设置固定错误
func (m *MockCompleter) WithError(err error) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithFunc 使用自定义函数生成回复，优先于固定回复
func (m *MockCompleter) WithFunc(fn func(ctx context.Context, req *llm.CompletionRequest) (string, error)) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
	return m
}

// Complete implements llm.Completer.
func (m *MockCompleter) Complete(ctx context.Context, req *llm.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	fn, resp, err := m.fn, m.response, m.err
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return resp, err
}

// Calls 返回调用记录
func (m *MockCompleter) Calls() []*llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*llm.CompletionRequest(nil), m.calls...)
}
