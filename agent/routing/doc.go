// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

// Package routing 根据意图分类结果决定目标 Agent。
//
// 置信度严格大于阈值且意图为专职类别时，交接给对应的专职 Agent；
// 否则留在 general。阈值是唯一可调参数，由配置提供。
package routing
