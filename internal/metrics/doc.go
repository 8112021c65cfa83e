// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的回合编排指标采集能力。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制。所有指标按 namespace 隔离。Collector 同时实现了
协调器、工具执行器、错误恢复管理器与记忆桥接的观察者接口，
直接注入即可采集。

# 指标

  - 回合：总数与耗时，按 agent/status 分组；状态转换按 from/to 分组
  - 交接：按 from_agent/to_agent 分组
  - 限流：被拒绝的回合按身份类别（user/session）分组
  - 工具：调用总数与耗时，按 tool/status 分组
  - 恢复：最终结果按 kind/status 分组，尝试次数直方图
  - 记忆：load/persist 操作总数与耗时
*/
package metrics
