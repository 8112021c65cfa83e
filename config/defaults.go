// =============================================================================
// 📦 tripflow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Orchestrator: DefaultOrchestratorConfig(),
		Routing:      DefaultRoutingConfig(),
		Intent:       DefaultIntentConfig(),
		RateLimit:    DefaultRateLimitConfig(),
		Recovery:     DefaultRecoveryConfig(),
		Tools:        DefaultToolsConfig(),
		Memory:       DefaultMemoryConfig(),
		LLM:          DefaultLLMConfig(),
		Log:          DefaultLogConfig(),
		Telemetry:    DefaultTelemetryConfig(),
		Metrics:      DefaultMetricsConfig(),
	}
}

// DefaultOrchestratorConfig 返回默认回合编排配置
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		TurnTimeout:         30 * time.Second,
		FallbackTimeout:     5 * time.Second,
		PersistTimeout:      3 * time.Second,
		CarriedObservations: 5,
		HistoryLimit:        100,
		HistoryIdleTTL:      30 * time.Minute,
	}
}

// DefaultRoutingConfig 返回默认路由配置
func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		ConfidenceThreshold: 0.7,
	}
}

// DefaultIntentConfig 返回默认意图分类配置
func DefaultIntentConfig() IntentConfig {
	return IntentConfig{
		NormalizationConstant: 5.0,
		NoSignalConfidence:    0.5,
	}
}

// DefaultRateLimitConfig 返回默认限流配置
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		User: RateLimitClass{
			MaxCalls: 30,
			Window:   time.Minute,
		},
		Session: RateLimitClass{
			MaxCalls: 10,
			Window:   time.Minute,
		},
		IdleTTL:       10 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// DefaultRecoveryConfig 返回默认错误恢复配置
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// DefaultToolsConfig 返回默认工具执行配置
func DefaultToolsConfig() ToolsConfig {
	return ToolsConfig{
		DefaultTimeout: 10 * time.Second,
		MaxConcurrency: 4,
		CallsPerSecond: 0,
		Burst:          1,
	}
}

// DefaultMemoryConfig 返回默认会话记忆配置
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Backend:         "memory",
		MaxObservations: 20,
		TTL:             24 * time.Hour,
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "tripflow:memory:",
		},
		Database: DatabaseConfig{
			Driver:              "sqlite",
			Host:                "localhost",
			Port:                5432,
			User:                "tripflow",
			Name:                "tripflow.db",
			SSLMode:             "disable",
			MaxOpenConns:        10,
			MaxIdleConns:        2,
			ConnMaxLifetime:     time.Hour,
			HealthCheckInterval: 5 * time.Minute,
		},
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:       "template",
		Temperature: 0.3,
		MaxTokens:   1024,
		Timeout:     20 * time.Second,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stderr"},
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "tripflow",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:       "tripflow",
		ShutdownTimeout: 5 * time.Second,
	}
}
