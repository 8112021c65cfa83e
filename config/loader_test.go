// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 0.7, cfg.Routing.ConfidenceThreshold)
	assert.Equal(t, 3, cfg.Recovery.MaxAttempts)
	assert.Equal(t, "memory", cfg.Memory.Backend)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tripflow.yaml")

	yamlContent := `
orchestrator:
  turn_timeout: 45s

routing:
  confidence_threshold: 0.6

intent:
  normalization_constant: 4
  rules:
    - category: flight
      keywords: ["flight", "airline"]
      patterns: ['\bfly\s+to\b']

rate_limit:
  session:
    max_calls: 3
    window: 10s

memory:
  backend: redis
  redis:
    addr: "redis.example.com:6379"
    password: "secret"
    db: 1

log:
  level: "debug"
  format: "console"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Orchestrator.TurnTimeout)
	assert.Equal(t, 0.6, cfg.Routing.ConfidenceThreshold)
	assert.Equal(t, 4.0, cfg.Intent.NormalizationConstant)
	require.Len(t, cfg.Intent.Rules, 1)
	assert.Equal(t, "flight", cfg.Intent.Rules[0].Category)
	assert.Equal(t, []string{"flight", "airline"}, cfg.Intent.Rules[0].Keywords)
	assert.Equal(t, []string{`\bfly\s+to\b`}, cfg.Intent.Rules[0].Patterns)

	assert.Equal(t, 3, cfg.RateLimit.Session.MaxCalls)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Session.Window)
	// 未覆盖的类别保留默认值
	assert.Equal(t, 30, cfg.RateLimit.User.MaxCalls)

	assert.Equal(t, "redis", cfg.Memory.Backend)
	assert.Equal(t, "redis.example.com:6379", cfg.Memory.Redis.Addr)
	assert.Equal(t, "secret", cfg.Memory.Redis.Password)
	assert.Equal(t, 1, cfg.Memory.Redis.DB)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	envVars := map[string]string{
		"TRIPFLOW_ORCHESTRATOR_TURN_TIMEOUT":     "12s",
		"TRIPFLOW_ROUTING_CONFIDENCE_THRESHOLD":  "0.8",
		"TRIPFLOW_RATE_LIMIT_SESSION_MAX_CALLS":  "7",
		"TRIPFLOW_RATE_LIMIT_SESSION_WINDOW":     "30s",
		"TRIPFLOW_RECOVERY_JITTER":               "false",
		"TRIPFLOW_MEMORY_DATABASE_DRIVER":        "postgres",
		"TRIPFLOW_LOG_OUTPUT_PATHS":              "stdout, /var/log/tripflow.log",
		"TRIPFLOW_INTENT_NORMALIZATION_CONSTANT": "6",
	}
	for k, v := range envVars {
		t.Setenv(k, v)
	}

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 12*time.Second, cfg.Orchestrator.TurnTimeout)
	assert.Equal(t, 0.8, cfg.Routing.ConfidenceThreshold)
	assert.Equal(t, 7, cfg.RateLimit.Session.MaxCalls)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Session.Window)
	assert.False(t, cfg.Recovery.Jitter)
	assert.Equal(t, "postgres", cfg.Memory.Database.Driver)
	assert.Equal(t, []string{"stdout", "/var/log/tripflow.log"}, cfg.Log.OutputPaths)
	assert.Equal(t, 6.0, cfg.Intent.NormalizationConstant)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tripflow.yaml")

	yamlContent := `
routing:
  confidence_threshold: 0.5
llm:
  model: "yaml-model"
  max_tokens: 256
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	t.Setenv("TRIPFLOW_ROUTING_CONFIDENCE_THRESHOLD", "0.9")
	t.Setenv("TRIPFLOW_LLM_MODEL", "env-model")

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	// 环境变量应该覆盖 YAML
	assert.Equal(t, 0.9, cfg.Routing.ConfidenceThreshold)
	assert.Equal(t, "env-model", cfg.LLM.Model)
	// YAML 值应该保留
	assert.Equal(t, 256, cfg.LLM.MaxTokens)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYTRIP_TOOLS_MAX_CONCURRENCY", "9")

	cfg, err := NewLoader().
		WithEnvPrefix("MYTRIP").
		Load()
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Tools.MaxConcurrency)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("TRIPFLOW_RECOVERY_MAX_DELAY", "soon")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRIPFLOW_RECOVERY_MAX_DELAY")
}

func TestLoader_WithValidator(t *testing.T) {
	t.Setenv("TRIPFLOW_RECOVERY_MAX_ATTEMPTS", "0")

	_, err := NewLoader().
		WithValidator((*Config).Validate).
		Load()
	assert.Error(t, err)
}

func TestLoader_NonExistentFile(t *testing.T) {
	// 指定不存在的文件，应该使用默认值（不报错）
	cfg, err := NewLoader().
		WithConfigPath("/non/existent/path/tripflow.yaml").
		Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 30*time.Second, cfg.Orchestrator.TurnTimeout)
}

func TestLoader_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
routing:
  confidence_threshold: [invalid
  this is not valid yaml
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidYAML), 0644))

	_, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name:    "threshold above one",
			modify:  func(c *Config) { c.Routing.ConfidenceThreshold = 1.5 },
			wantErr: "routing.confidence_threshold",
		},
		{
			name:    "zero normalization constant",
			modify:  func(c *Config) { c.Intent.NormalizationConstant = 0 },
			wantErr: "intent.normalization_constant",
		},
		{
			name:    "enabled class without window",
			modify:  func(c *Config) { c.RateLimit.Session.Window = 0 },
			wantErr: "rate_limit.session.window",
		},
		{
			name: "disabled class without window",
			modify: func(c *Config) {
				c.RateLimit.User = RateLimitClass{}
			},
		},
		{
			name:    "negative max calls",
			modify:  func(c *Config) { c.RateLimit.User.MaxCalls = -1 },
			wantErr: "rate_limit.user.max_calls",
		},
		{
			name:    "negative history limit",
			modify:  func(c *Config) { c.Orchestrator.HistoryLimit = -1 },
			wantErr: "orchestrator.history_limit",
		},
		{
			name:    "negative history idle ttl",
			modify:  func(c *Config) { c.Orchestrator.HistoryIdleTTL = -time.Second },
			wantErr: "orchestrator.history_idle_ttl",
		},
		{
			name:    "no attempts",
			modify:  func(c *Config) { c.Recovery.MaxAttempts = 0 },
			wantErr: "recovery.max_attempts",
		},
		{
			name:    "unknown memory backend",
			modify:  func(c *Config) { c.Memory.Backend = "mongo" },
			wantErr: "memory.backend",
		},
		{
			name:    "tls cert without key",
			modify:  func(c *Config) { c.Metrics.TLSCertFile = "/etc/tripflow/metrics.crt" },
			wantErr: "metrics.tls_cert_file",
		},
		{
			name:    "temperature too high",
			modify:  func(c *Config) { c.LLM.Temperature = 3.0 },
			wantErr: "llm.temperature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "postgres DSN",
			config: DatabaseConfig{
				Driver:   "postgres",
				Host:     "localhost",
				Port:     5432,
				User:     "user",
				Password: "pass",
				Name:     "dbname",
				SSLMode:  "disable",
			},
			expected: "host=localhost port=5432 user=user password=pass dbname=dbname sslmode=disable",
		},
		{
			name: "mysql DSN",
			config: DatabaseConfig{
				Driver:   "mysql",
				Host:     "localhost",
				Port:     3306,
				User:     "user",
				Password: "pass",
				Name:     "dbname",
			},
			expected: "user:pass@tcp(localhost:3306)/dbname?parseTime=true",
		},
		{
			name: "sqlite DSN",
			config: DatabaseConfig{
				Driver: "sqlite",
				Name:   "/path/to/tripflow.db",
			},
			expected: "/path/to/tripflow.db",
		},
		{
			name:     "unknown driver",
			config:   DatabaseConfig{Driver: "unknown"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

func TestLoadFromEnv_Function(t *testing.T) {
	t.Setenv("TRIPFLOW_MEMORY_BACKEND", "sql")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "sql", cfg.Memory.Backend)
}
