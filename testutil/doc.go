// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 tripflow 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 对话输入: Lines 将多行文本拼成 chat 子命令的标准输入

# 子包

  - testutil/mocks: MockCompleter（可编排的 LLM 补全）与
    ScriptedTool（按脚本失败/成功的工具处理器）
  - testutil/fixtures: 各意图类别的样例消息

# 使用示例

	ctx := testutil.TestContext(t)
	completer := mocks.NewMockCompleter().WithResponse("hello")
	tool := mocks.NewScriptedTool("ok").FailTimes(1, types.NewTimeoutError("slow"))
*/
package testutil
