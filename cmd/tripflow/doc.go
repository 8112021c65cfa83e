// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 tripflow 命令行入口。

# 概述

cmd/tripflow 从 YAML 配置与环境变量构建完整的编排栈（记忆后端、
限流、意图分类、路由、内置旅行工具、错误恢复、交接协调器），
并在 chat 子命令中逐行读取标准输入，每行作为一个对话回合处理，
输出回合状态、目标 Agent 与回复文本。

# 子命令

  - chat：交互式对话，--config / --user / --session
  - version：显示构建信息（Version、BuildTime、GitCommit 通过 ldflags 注入）
  - help：显示帮助

# 可选组件

  - Prometheus：metrics.addr 非空时在独立端口暴露 /metrics 与 /healthz
  - OpenTelemetry：telemetry.enabled 为 true 时通过 OTLP gRPC 导出追踪
*/
package main
