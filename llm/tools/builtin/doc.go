// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

// Package builtin 提供离线、确定性的旅行工具实现。
//
// 这些工具不访问任何外部服务，结果由内置数据表和路线哈希推导，
// 供命令行演示与测试使用。真实部署时可以用同名工具替换。
package builtin
