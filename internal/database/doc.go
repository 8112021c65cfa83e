// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 database 负责打开 SQL 记忆存储所用的 GORM 连接并管理连接池。

# 核心类型

  - Open：按驱动（postgres、mysql、sqlite）打开 GORM 连接，
    sqlite 使用纯 Go 实现的 glebarez/sqlite，无需 cgo。
  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 Ping、Close，
    以及带退避重试的事务执行 WithTransactionRetry。
  - PoolConfig：连接池参数，可由 config.DatabaseConfig 转换得到。

死锁、序列化失败、连接重置等错误被视为可重试，其余错误立即返回。
*/
package database
