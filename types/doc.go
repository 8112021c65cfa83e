// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 tripflow 编排核心的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent、llm、config 等
上层模块提供统一的类型契约，以避免循环依赖。

# 核心类型

  - Message       — 入站聊天消息（ID、SessionID、UserID、Role、Content、Timestamp），创建后不可变
  - ChatMessage   — 发送给 LLM 适配器的 {role, content} 对
  - Category      — 意图类别闭集（flight / accommodation / budget / destination / itinerary / general）
  - AgentID       — 专职 Agent 标识（flight_agent 等）与 general
  - Error / ErrorCode — 结构化错误体系，含 Retryable 标记与 Cause 链

# 主要能力

  - 类别优先级：CategoryPriority 固定平局裁决顺序
  - 错误归一化：Normalize 将超时、连接错误、取消等映射到统一错误码
  - 错误工具链：IsRetryable / GetErrorCode / ErrorType
*/
package types
