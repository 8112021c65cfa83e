// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package intent 提供基于关键词与正则规则的意图分类器。

分类是纯函数：对消息内容小写化后，每命中一个关键词计 1 分，
每命中一个正则模式计 2 分。置信度为 min(最高分 / 归一化常数, 1)。
所有类别都没有信号时，主意图为 general，置信度为固定先验 0.5。
同分时按 flight > accommodation > budget > destination > itinerary > general
的优先级决出唯一主意图，保证结果确定。

规则表是声明式的，可以通过配置整体替换而无需修改代码。
*/
package intent
