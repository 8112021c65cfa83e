// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 memory 提供跨智能体交接的会话记忆桥接。

# 概述

每个会话维护一组按时间排序的观察记录（observation）。回合开始时
由 [Bridge.Load] 读取快照并只读地共享给智能体节点，回合结束时由
[Bridge.Persist] 以原子追加的方式写回。

# 存储后端

  - [InMemoryStore]：进程内存储，适合本地开发与测试
  - [RedisStore]：基于 go-redis 的 MULTI/EXEC 事务追加
  - [SQLStore]：基于 GORM 的事务追加，按会话维护序号

所有后端都保证一次追加要么全部写入，要么全部不写入。
*/
package memory
