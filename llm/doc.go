// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 llm 定义智能体生成回复所用的补全接口。

# 核心接口

  - [Completer]：单次对话补全，输入 [CompletionRequest]，输出文本
  - [CompleterFunc]：函数适配器
  - [TemplateCompleter]：离线模板补全，无需外部模型服务，
    供 CLI 默认配置与测试使用

# 超时与错误

[WithTimeout] 为补全调用施加独立超时；超时与取消归一化为 types.Error，
交由恢复管理器分类处理。空回复返回 [ErrEmptyCompletion]。
*/
package llm
