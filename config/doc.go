// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

// Package config 提供 tripflow 的配置加载功能。
//
// 配置在进程启动时按「默认值 → YAML 文件 → 环境变量」的顺序合并，
// 环境变量统一使用 TRIPFLOW_ 前缀，嵌套字段以下划线连接，
// 例如 TRIPFLOW_RATE_LIMIT_SESSION_MAX_CALLS。
// 运行期间不做热更新。
package config
