package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 回合指标
	turnsTotal       *prometheus.CounterVec
	turnDuration     *prometheus.HistogramVec
	stateTransitions *prometheus.CounterVec
	handoffsTotal    *prometheus.CounterVec
	rateLimitedTotal *prometheus.CounterVec

	// 工具指标
	toolCallsTotal   *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec

	// 恢复指标
	recoveryOutcomes *prometheus.CounterVec
	recoveryAttempts prometheus.Histogram

	// 记忆指标
	memoryOpsTotal *prometheus.CounterVec
	memoryDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器，注册到默认 Registry
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewCollectorWithRegistry 创建指标收集器，注册到指定 Registry
func NewCollectorWithRegistry(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 回合指标
	c.turnsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of conversation turns",
		},
		[]string{"agent", "status"},
	)

	c.turnDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Conversation turn duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"agent"},
	)

	c.stateTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_state_transitions_total",
			Help:      "Total number of turn state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	c.handoffsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handoffs_total",
			Help:      "Total number of agent handoffs",
		},
		[]string{"from_agent", "to_agent"},
	)

	c.rateLimitedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of turns rejected by the rate limiter",
		},
		[]string{"class"},
	)

	// 工具指标
	c.toolCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls",
		},
		[]string{"tool", "status"},
	)

	c.toolCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Tool call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	// 恢复指标
	c.recoveryOutcomes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_outcomes_total",
			Help:      "Total number of recovery outcomes",
		},
		[]string{"kind", "status"},
	)

	c.recoveryAttempts = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recovery_attempts",
			Help:      "Executions per recovered operation",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		},
	)

	// 记忆指标
	c.memoryOpsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_operations_total",
			Help:      "Total number of memory load/persist operations",
		},
		[]string{"operation", "status"},
	)

	c.memoryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "memory_operation_duration_seconds",
			Help:      "Memory operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🔁 回合指标记录
// =============================================================================

// ObserveTurn 记录回合完成
func (c *Collector) ObserveTurn(agent, status string, d time.Duration) {
	c.turnsTotal.WithLabelValues(agent, status).Inc()
	c.turnDuration.WithLabelValues(agent).Observe(d.Seconds())
}

// ObserveTransition 记录回合状态转换
func (c *Collector) ObserveTransition(from, to string) {
	c.stateTransitions.WithLabelValues(from, to).Inc()
}

// ObserveHandoff 记录智能体交接
func (c *Collector) ObserveHandoff(from, to string) {
	c.handoffsTotal.WithLabelValues(from, to).Inc()
}

// ObserveRateLimited 记录被限流的回合
func (c *Collector) ObserveRateLimited(class string) {
	c.rateLimitedTotal.WithLabelValues(class).Inc()
}

// =============================================================================
// 🛠️ 工具、恢复与记忆指标记录
// =============================================================================

// ObserveToolCall 记录工具调用
func (c *Collector) ObserveToolCall(tool, status string, d time.Duration) {
	c.toolCallsTotal.WithLabelValues(tool, status).Inc()
	c.toolCallDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveRecovery 记录恢复结果
func (c *Collector) ObserveRecovery(kind, status string, attempts int) {
	if kind == "" {
		kind = "none"
	}
	c.recoveryOutcomes.WithLabelValues(kind, status).Inc()
	c.recoveryAttempts.Observe(float64(attempts))
}

// ObserveMemory 记录记忆操作
func (c *Collector) ObserveMemory(op, status string, d time.Duration) {
	c.memoryOpsTotal.WithLabelValues(op, status).Inc()
	c.memoryDuration.WithLabelValues(op).Observe(d.Seconds())
}
