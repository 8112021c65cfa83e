// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 handoff 实现对话回合的交接协调器（HandoffCoordinator）。

# 概述

协调器以状态机驱动每一个回合：

	RECEIVED → RATE_CHECKED → INTENT_CLASSIFIED → ROUTED → EXECUTING → [RECOVERING] → COMPLETED

每次状态转换都会追加到回合的转换轨迹并通知观察者。限流拒绝直接进入
COMPLETED（状态 rate_limited）；其余任何运行时失败都被转换为带类型的
结果，最终以 completed 或 fallback 状态结束，绝不向调用方抛出。

# 交接记录

每次派发都会在节点运行之前追加一条 [Record]，包括随即失败的派发。
降级时会再追加一条 <agent> → general 的记录。记录按会话只追加、
创建后不可修改，通过 [Coordinator.History] 读取副本。

# 并发模型

同一会话的回合严格串行（[Sequencer]），不同会话完全并行。回合内的
工具调用经 tools.Executor 并发扇出，结果按请求顺序收集；回合超时会
取消未完成的调用，已完成的结果保留。MemoryBridge.Persist 在
COMPLETED 时恰好调用一次。
*/
package handoff
