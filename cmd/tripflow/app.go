package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/agent/handoff"
	"github.com/BaSui01/tripflow/agent/intent"
	"github.com/BaSui01/tripflow/agent/memory"
	"github.com/BaSui01/tripflow/agent/nodes"
	"github.com/BaSui01/tripflow/agent/ratelimit"
	"github.com/BaSui01/tripflow/agent/recovery"
	"github.com/BaSui01/tripflow/agent/routing"
	"github.com/BaSui01/tripflow/config"
	"github.com/BaSui01/tripflow/internal/metrics"
	"github.com/BaSui01/tripflow/internal/server"
	"github.com/BaSui01/tripflow/internal/telemetry"
	"github.com/BaSui01/tripflow/llm"
	"github.com/BaSui01/tripflow/llm/tools"
	"github.com/BaSui01/tripflow/llm/tools/builtin"
	"github.com/BaSui01/tripflow/types"
)

// app owns the orchestration stack and everything that must be closed.
type app struct {
	coord     *handoff.Coordinator
	store     memory.Store
	registry  *prometheus.Registry
	metrics   *server.Manager
	telemetry *telemetry.Providers
	stopSweep context.CancelFunc
	logger    *zap.Logger
}

// newApp builds the stack from configuration. Telemetry failures only
// degrade tracing; every other failure is fatal.
func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &app{logger: logger, stopSweep: func() {}}
	if err := a.build(cfg); err != nil {
		a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) build(cfg *config.Config) error {
	logger := a.logger

	providers, err := telemetry.Init(cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	a.telemetry = providers

	a.registry = prometheus.NewRegistry()
	collector := metrics.NewCollectorWithRegistry(cfg.Metrics.Namespace, a.registry, logger)
	if cfg.Metrics.Addr != "" {
		scfg, err := server.ConfigFromMetrics(cfg.Metrics)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		a.metrics = server.NewManager(server.MetricsHandler(a.registry), scfg, logger)
		if err := a.metrics.Start(); err != nil {
			return err
		}
	}

	a.store, err = memory.NewStore(cfg.Memory, logger)
	if err != nil {
		return fmt.Errorf("memory store: %w", err)
	}
	bridge := memory.NewBridge(a.store,
		memory.WithMaxObservations(cfg.Memory.MaxObservations),
		memory.WithObserver(collector),
		memory.WithLogger(logger),
	)

	limiter := ratelimit.NewSetFromConfig(cfg.RateLimit, logger)

	rules, err := intent.RulesFromConfig(cfg.Intent.Rules)
	if err != nil {
		return err
	}
	classifier, err := intent.New(rules, intent.OptionsFromConfig(cfg.Intent, cfg.Routing.ConfidenceThreshold))
	if err != nil {
		return err
	}
	router, err := routing.New(cfg.Routing.ConfidenceThreshold)
	if err != nil {
		return err
	}

	registry := tools.NewRegistry(logger)
	meta := tools.Metadata{Timeout: cfg.Tools.DefaultTimeout}
	if cfg.Tools.CallsPerSecond > 0 {
		meta.RateLimit = &tools.RateLimit{PerSecond: cfg.Tools.CallsPerSecond, Burst: cfg.Tools.Burst}
	}
	if err := builtin.Register(registry, meta); err != nil {
		return err
	}
	registry.Seal()

	a.coord, err = handoff.New(handoff.Deps{
		Classifier: classifier,
		Router:     router,
		Registry:   registry,
		Executor: tools.NewExecutor(registry, logger,
			tools.WithMaxConcurrency(cfg.Tools.MaxConcurrency),
			tools.WithObserver(collector)),
		Recovery: recovery.NewFromConfig(cfg.Recovery,
			recovery.WithObserver(collector),
			recovery.WithLogger(logger)),
		Nodes:    nodes.Defaults(llm.NewTemplateCompleter(), nodes.SettingsFromConfig(cfg.LLM), logger),
		Limiter:  limiter,
		Memory:   bridge,
		Observer: collector,
		Tracer:   telemetry.Tracer("tripflow/handoff"),
		Logger:   logger,
	}, handoff.OptionsFromConfig(cfg.Orchestrator))
	if err != nil {
		return err
	}

	// one interval evicts idle rate-limit identities and handoff trails
	if cfg.RateLimit.SweepInterval > 0 {
		var sweepCtx context.Context
		sweepCtx, a.stopSweep = context.WithCancel(context.Background())
		go limiter.Run(sweepCtx, cfg.RateLimit.SweepInterval, logger)
		go a.coord.Run(sweepCtx, cfg.RateLimit.SweepInterval)
	}
	return nil
}

// Chat runs one turn per non-blank input line until EOF, "exit" or ctx ends.
func (a *app) Chat(ctx context.Context, in io.Reader, out io.Writer, userID, sessionID string) error {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	fmt.Fprintf(out, "session %s (type \"exit\" to quit)\n", sessionID)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	var serveErrs <-chan error
	if a.metrics != nil {
		serveErrs = a.metrics.Errors()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-serveErrs:
			a.logger.Error("metrics listener failed", zap.Error(err))
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "exit", "quit":
				return nil
			}

			res, err := a.coord.HandleTurn(ctx, types.NewMessage(sessionID, userID, line))
			if err != nil {
				return err
			}
			fmt.Fprintln(out, formatResult(res))
		}
	}
}

// formatResult renders "[status] agent: reply" on a single line.
func formatResult(res *handoff.TurnResult) string {
	agent := "-"
	if n := len(res.HandoffTrace); n > 0 {
		agent = string(res.HandoffTrace[n-1].ToAgent)
	}
	reply := strings.Join(strings.Fields(res.ResponseText), " ")
	return fmt.Sprintf("[%s] %s: %s", res.Status, agent, reply)
}

// Close releases the stack in reverse construction order.
func (a *app) Close(ctx context.Context) {
	a.stopSweep()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing memory store", zap.Error(err))
		}
	}
	if a.metrics != nil && a.metrics.IsRunning() {
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.Warn("stopping metrics listener", zap.Error(err))
		}
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("flushing telemetry", zap.Error(err))
	}
}
