// Package ctxkeys holds the context keys for turn-scoped identifiers.
package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	traceIDKey   contextKey = "trace_id"
	sessionIDKey contextKey = "session_id"
	userIDKey    contextKey = "user_id"
	turnIDKey    contextKey = "turn_id"
	agentKey     contextKey = "agent"
)

func with(ctx context.Context, key contextKey, v string) context.Context {
	return context.WithValue(ctx, key, v)
}

func get(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithTraceID 设置 TraceID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return with(ctx, traceIDKey, traceID)
}

// TraceID 获取 TraceID
func TraceID(ctx context.Context) (string, bool) { return get(ctx, traceIDKey) }

// WithSessionID 设置会话 ID
func WithSessionID(ctx context.Context, id string) context.Context {
	return with(ctx, sessionIDKey, id)
}

// SessionID 获取会话 ID
func SessionID(ctx context.Context) (string, bool) { return get(ctx, sessionIDKey) }

// WithUserID 设置用户 ID
func WithUserID(ctx context.Context, id string) context.Context {
	return with(ctx, userIDKey, id)
}

// UserID 获取用户 ID
func UserID(ctx context.Context) (string, bool) { return get(ctx, userIDKey) }

// WithTurnID 设置回合 ID
func WithTurnID(ctx context.Context, id string) context.Context {
	return with(ctx, turnIDKey, id)
}

// TurnID 获取回合 ID
func TurnID(ctx context.Context) (string, bool) { return get(ctx, turnIDKey) }

// WithAgent 设置当前处理回合的智能体
func WithAgent(ctx context.Context, agent string) context.Context {
	return with(ctx, agentKey, agent)
}

// Agent 获取当前处理回合的智能体
func Agent(ctx context.Context) (string, bool) { return get(ctx, agentKey) }

// Fields returns every identifier set on ctx, keyed by its log field name.
func Fields(ctx context.Context) map[string]string {
	out := make(map[string]string, 5)
	for _, k := range []contextKey{traceIDKey, sessionIDKey, userIDKey, turnIDKey, agentKey} {
		if v, ok := get(ctx, k); ok {
			out[string(k)] = v
		}
	}
	return out
}
