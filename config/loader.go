// =============================================================================
// 📦 tripflow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("tripflow.yaml").
//	    WithEnvPrefix("TRIPFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// 配置仅在启动时读取，限流类别不做热更新。
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 tripflow 的完整配置结构
type Config struct {
	// Orchestrator 回合编排配置
	Orchestrator OrchestratorConfig `yaml:"orchestrator" env:"ORCHESTRATOR"`

	// Routing 路由决策配置
	Routing RoutingConfig `yaml:"routing" env:"ROUTING"`

	// Intent 意图分类配置
	Intent IntentConfig `yaml:"intent" env:"INTENT"`

	// RateLimit 限流配置
	RateLimit RateLimitConfig `yaml:"rate_limit" env:"RATE_LIMIT"`

	// Recovery 错误恢复配置
	Recovery RecoveryConfig `yaml:"recovery" env:"RECOVERY"`

	// Tools 工具执行配置
	Tools ToolsConfig `yaml:"tools" env:"TOOLS"`

	// Memory 会话记忆配置
	Memory MemoryConfig `yaml:"memory" env:"MEMORY"`

	// LLM 大语言模型配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// OrchestratorConfig 回合编排配置
type OrchestratorConfig struct {
	// 单个回合（执行 + 恢复阶段）的超时
	TurnTimeout time.Duration `yaml:"turn_timeout" env:"TURN_TIMEOUT"`
	// 降级回复生成的超时
	FallbackTimeout time.Duration `yaml:"fallback_timeout" env:"FALLBACK_TIMEOUT"`
	// 记忆写入的超时
	PersistTimeout time.Duration `yaml:"persist_timeout" env:"PERSIST_TIMEOUT"`
	// 交接时携带的最近观察条数
	CarriedObservations int `yaml:"carried_observations" env:"CARRIED_OBSERVATIONS"`
	// 每个会话保留的交接记录上限（0 表示不限）
	HistoryLimit int `yaml:"history_limit" env:"HISTORY_LIMIT"`
	// 会话交接记录的空闲淘汰时长（0 表示不淘汰），由 rate_limit.sweep_interval 驱动
	HistoryIdleTTL time.Duration `yaml:"history_idle_ttl" env:"HISTORY_IDLE_TTL"`
}

// RoutingConfig 路由决策配置
type RoutingConfig struct {
	// 置信度阈值，严格大于该值才会交接给专职 Agent
	ConfidenceThreshold float64 `yaml:"confidence_threshold" env:"CONFIDENCE_THRESHOLD"`
}

// IntentConfig 意图分类配置
type IntentConfig struct {
	// 归一化常数：confidence = min(max_weight / NormalizationConstant, 1)
	NormalizationConstant float64 `yaml:"normalization_constant" env:"NORMALIZATION_CONSTANT"`
	// 无信号时 general 的先验置信度
	NoSignalConfidence float64 `yaml:"no_signal_confidence" env:"NO_SIGNAL_CONFIDENCE"`
	// 声明式规则；为空时使用内置规则表
	Rules []IntentRule `yaml:"rules" env:"-"`
}

// IntentRule 单个类别的关键词与正则
type IntentRule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
	Patterns []string `yaml:"patterns"`
}

// RateLimitConfig 限流配置（按身份类别）
type RateLimitConfig struct {
	// 按用户限流
	User RateLimitClass `yaml:"user" env:"USER"`
	// 按会话限流
	Session RateLimitClass `yaml:"session" env:"SESSION"`
	// 闲置身份的保留时间
	IdleTTL time.Duration `yaml:"idle_ttl" env:"IDLE_TTL"`
	// 闲置清理间隔（0 表示不启动后台清理）
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
}

// RateLimitClass 单个身份类别的滑动窗口；MaxCalls 为 0 表示不启用
type RateLimitClass struct {
	MaxCalls int           `yaml:"max_calls" env:"MAX_CALLS"`
	Window   time.Duration `yaml:"window" env:"WINDOW"`
}

// RecoveryConfig 错误恢复配置
type RecoveryConfig struct {
	// 最大执行次数（包含首次执行）
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	// 初始退避
	InitialDelay time.Duration `yaml:"initial_delay" env:"INITIAL_DELAY"`
	// 最大退避
	MaxDelay time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
	// 退避倍数
	Multiplier float64 `yaml:"multiplier" env:"MULTIPLIER"`
	// 是否添加随机抖动
	Jitter bool `yaml:"jitter" env:"JITTER"`
}

// ToolsConfig 工具执行配置
type ToolsConfig struct {
	// 单个工具调用的默认超时
	DefaultTimeout time.Duration `yaml:"default_timeout" env:"DEFAULT_TIMEOUT"`
	// 单回合内工具并发上限
	MaxConcurrency int `yaml:"max_concurrency" env:"MAX_CONCURRENCY"`
	// 每个工具每秒调用上限（0 表示不限）
	CallsPerSecond float64 `yaml:"calls_per_second" env:"CALLS_PER_SECOND"`
	// 令牌桶容量
	Burst int `yaml:"burst" env:"BURST"`
}

// MemoryConfig 会话记忆配置
type MemoryConfig struct {
	// 存储后端: memory, redis, sql
	Backend string `yaml:"backend" env:"BACKEND"`
	// 加载时保留的最近观察条数
	MaxObservations int `yaml:"max_observations" env:"MAX_OBSERVATIONS"`
	// 会话记忆保留时间（仅 redis）
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// Redis 配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
	// Database 数据库配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, mysql, sqlite
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 时为文件路径）
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	// 连接池健康检查间隔（0 表示不检查）
	HealthCheckInterval time.Duration `yaml:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// 温度参数
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 最大 Token 数
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// 单次补全超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// /metrics 监听地址（为空表示不监听）
	Addr string `yaml:"addr" env:"ADDR"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// TLS 证书与私钥；两者都设置时以 HTTPS 监听
	TLSCertFile string `yaml:"tls_cert_file" env:"TLS_CERT_FILE"`
	TLSKeyFile  string `yaml:"tls_key_file" env:"TLS_KEY_FILE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "TRIPFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Routing.ConfidenceThreshold < 0 || c.Routing.ConfidenceThreshold > 1 {
		errs = append(errs, "routing.confidence_threshold must be between 0 and 1")
	}
	if c.Intent.NormalizationConstant <= 0 {
		errs = append(errs, "intent.normalization_constant must be positive")
	}
	if c.Intent.NoSignalConfidence < 0 || c.Intent.NoSignalConfidence > 1 {
		errs = append(errs, "intent.no_signal_confidence must be between 0 and 1")
	}
	for name, class := range map[string]RateLimitClass{"user": c.RateLimit.User, "session": c.RateLimit.Session} {
		if class.MaxCalls < 0 {
			errs = append(errs, fmt.Sprintf("rate_limit.%s.max_calls must not be negative", name))
		}
		if class.MaxCalls > 0 && class.Window <= 0 {
			errs = append(errs, fmt.Sprintf("rate_limit.%s.window must be positive", name))
		}
	}
	if c.Recovery.MaxAttempts <= 0 {
		errs = append(errs, "recovery.max_attempts must be positive")
	}
	if c.Orchestrator.TurnTimeout <= 0 {
		errs = append(errs, "orchestrator.turn_timeout must be positive")
	}
	if c.Orchestrator.HistoryLimit < 0 {
		errs = append(errs, "orchestrator.history_limit must not be negative")
	}
	if c.Orchestrator.HistoryIdleTTL < 0 {
		errs = append(errs, "orchestrator.history_idle_ttl must not be negative")
	}
	if c.Tools.MaxConcurrency <= 0 {
		errs = append(errs, "tools.max_concurrency must be positive")
	}
	switch c.Memory.Backend {
	case "memory", "redis", "sql":
	default:
		errs = append(errs, fmt.Sprintf("unsupported memory.backend: %q", c.Memory.Backend))
	}
	if (c.Metrics.TLSCertFile == "") != (c.Metrics.TLSKeyFile == "") {
		errs = append(errs, "metrics.tls_cert_file and metrics.tls_key_file must be set together")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "llm.temperature must be between 0 and 2")
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
