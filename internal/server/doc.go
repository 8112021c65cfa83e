// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 server 管理 tripflow 的 Prometheus 指标监听端的生命周期。

# 概述

Manager 封装 net/http.Server，在后台 goroutine 中提供 /metrics 与
/healthz，支持可选的 TLS（由 tlsutil 提供加固配置）和带超时的优雅关闭。

# 核心类型

  - Manager：持有 http.Server、net.Listener 与异步错误通道，
    提供 Start/Shutdown/Errors/Addr/IsRunning。
  - Config：监听地址、读写超时、关闭超时与可选 TLS 配置，
    可由 ConfigFromMetrics 从 config.MetricsConfig 构造。

# 主要能力

  - 非阻塞启动：Start 绑定端口后立即返回，":0" 时 Addr 返回实际端口。
  - 优雅关闭：Shutdown 幂等，在配置的超时内排空请求。
  - 指标暴露：MetricsHandler 基于 promhttp.HandlerFor 输出指定 Gatherer。
*/
package server
