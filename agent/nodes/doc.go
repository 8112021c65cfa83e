// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 nodes 定义旅行助手的各个专职智能体节点。

# 节点

每个节点实现 [Node] 接口：

  - Plan：根据消息、会话记忆与抽取出的槽位生成工具调用列表
  - Respond：汇总工具结果与记忆，构造提示词并调用 LLM 生成回复

内置节点包括 flight、accommodation、budget、destination、itinerary
五个专职节点，以及兜底的 [General] 节点。[General.Fallback] 永不失败：
LLM 不可用时返回固定的安全文本。

# 槽位抽取

[ExtractSlots] 从消息中抽取目的地、出发地、晚数、天数、人数与预算，
消息中缺失的目的地会从会话记忆中补全。
*/
package nodes
