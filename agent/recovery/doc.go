// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package recovery 提供回合级别的错误恢复策略。

失败按错误码分为三类：

  - transient：TIMEOUT、CONNECTION、TOOL_THROTTLED，按指数退避重试；
  - permanent：参数错误、工具不存在、权限拒绝等，不重试，直接降级；
  - fatal：RATE_LIMITED 与调用方主动取消，立即终止。

MaxAttempts 表示总执行次数（包含首次执行），默认 3。
重试次数耗尽后同样降级，保证用户始终能得到回复。
*/
package recovery
