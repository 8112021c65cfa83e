package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/tripflow/llm/tools"
)

// ScriptedTool 按脚本返回结果的工具处理器：先失败若干次，之后成功
type ScriptedTool struct {
	mu       sync.Mutex
	output   any
	failures []error
	delay    time.Duration
	calls    int
}

// NewScriptedTool 创建总是返回 output 的工具
func NewScriptedTool(output any) *ScriptedTool {
	return &ScriptedTool{output: output}
}

// FailTimes 让前 n 次调用返回 err
func (s *ScriptedTool) FailTimes(n int, err error) *ScriptedTool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, err)
	}
	return s
}

// WithDelay 在返回前等待 d，期间响应 ctx 取消
func (s *ScriptedTool) WithDelay(d time.Duration) *ScriptedTool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
	return s
}

// Handler 返回可注册到 tools.Registry 的处理函数
func (s *ScriptedTool) Handler() tools.Handler {
	return func(ctx context.Context, _ tools.Params) (any, error) {
		s.mu.Lock()
		s.calls++
		var err error
		if len(s.failures) > 0 {
			err = s.failures[0]
			s.failures = s.failures[1:]
		}
		delay, out := s.delay, s.output
		s.mu.Unlock()

		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
}

// Calls 返回调用次数
func (s *ScriptedTool) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
