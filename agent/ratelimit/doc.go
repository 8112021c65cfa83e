// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package ratelimit 提供按身份（用户或会话）划分的滑动窗口限流器。

每个身份持有一个容量为 max_calls 的时间戳环形缓冲区，
过期条目在 Allow/Record 时惰性清理，因此窗口内的有效条目
永远不会超过 max_calls。闲置身份由 Sweep 或后台 Run 定期回收。

Set 将多个身份类别组合在一起：只有所有类别都放行时才会在
每个类别中记录本次调用，保证拒绝的请求不会消耗任何配额。
*/
package ratelimit
