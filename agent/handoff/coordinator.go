package handoff

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/agent/intent"
	"github.com/BaSui01/tripflow/agent/memory"
	"github.com/BaSui01/tripflow/agent/nodes"
	"github.com/BaSui01/tripflow/agent/ratelimit"
	"github.com/BaSui01/tripflow/agent/recovery"
	"github.com/BaSui01/tripflow/agent/routing"
	"github.com/BaSui01/tripflow/config"
	"github.com/BaSui01/tripflow/internal/ctxkeys"
	"github.com/BaSui01/tripflow/internal/telemetry"
	"github.com/BaSui01/tripflow/llm/tools"
	"github.com/BaSui01/tripflow/types"
)

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Classifier *intent.Classifier
	Router     *routing.Engine
	Registry   *tools.Registry
	Executor   *tools.Executor
	Recovery   *recovery.Manager
	Nodes      []nodes.Node

	// Optional. A nil Limiter admits everything, a nil Memory keeps
	// snapshots in process.
	Limiter  *ratelimit.Set
	Memory   *memory.Bridge
	Observer Observer
	Tracer   trace.Tracer
	Logger   *zap.Logger
}

// Options tunes timeouts and the carried context.
type Options struct {
	TurnTimeout         time.Duration
	FallbackTimeout     time.Duration
	PersistTimeout      time.Duration
	CarriedObservations int
	// HistoryLimit caps the records kept per session; 0 keeps all.
	HistoryLimit int
	// HistoryIdleTTL is how long an untouched session trail survives Sweep;
	// 0 disables eviction.
	HistoryIdleTTL time.Duration
	Now            func() time.Time
}

// DefaultOptions mirrors config.DefaultOrchestratorConfig.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultOrchestratorConfig())
}

// OptionsFromConfig maps orchestrator configuration onto Options.
func OptionsFromConfig(cfg config.OrchestratorConfig) Options {
	return Options{
		TurnTimeout:         cfg.TurnTimeout,
		FallbackTimeout:     cfg.FallbackTimeout,
		PersistTimeout:      cfg.PersistTimeout,
		CarriedObservations: cfg.CarriedObservations,
		HistoryLimit:        cfg.HistoryLimit,
		HistoryIdleTTL:      cfg.HistoryIdleTTL,
	}
}

// Coordinator drives conversation turns through the handoff state machine.
type Coordinator struct {
	deps    Deps
	opts    Options
	nodes   map[types.AgentID]nodes.Node
	general nodes.FallbackWriter
	seq     *Sequencer
	history *history
	logger  *zap.Logger
}

// New validates deps and builds a coordinator. Every agent id must have a
// node and every node's tools must be registered.
func New(deps Deps, opts Options) (*Coordinator, error) {
	switch {
	case deps.Classifier == nil:
		return nil, fmt.Errorf("handoff: classifier is required")
	case deps.Router == nil:
		return nil, fmt.Errorf("handoff: router is required")
	case deps.Registry == nil || deps.Executor == nil:
		return nil, fmt.Errorf("handoff: tool registry and executor are required")
	case deps.Recovery == nil:
		return nil, fmt.Errorf("handoff: recovery manager is required")
	}

	byID := make(map[types.AgentID]nodes.Node, len(deps.Nodes))
	for _, n := range deps.Nodes {
		if n == nil {
			return nil, fmt.Errorf("handoff: nil node")
		}
		if _, dup := byID[n.ID()]; dup {
			return nil, fmt.Errorf("handoff: duplicate node %s", n.ID())
		}
		if err := deps.Registry.Require(n.RequiredTools()...); err != nil {
			return nil, fmt.Errorf("handoff: node %s: %w", n.ID(), err)
		}
		byID[n.ID()] = n
	}
	for _, id := range types.AllAgents {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("handoff: no node for agent %s", id)
		}
	}
	general, ok := byID[types.AgentGeneral].(nodes.FallbackWriter)
	if !ok {
		return nil, fmt.Errorf("handoff: general node cannot write fallback replies")
	}

	if deps.Limiter == nil {
		deps.Limiter = ratelimit.NewSet()
	}
	if deps.Memory == nil {
		deps.Memory = memory.NewBridge(nil)
	}
	if deps.Tracer == nil {
		deps.Tracer = telemetry.Tracer("tripflow/handoff")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	defaults := DefaultOptions()
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = defaults.TurnTimeout
	}
	if opts.FallbackTimeout <= 0 {
		opts.FallbackTimeout = defaults.FallbackTimeout
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaults.PersistTimeout
	}
	if opts.CarriedObservations < 0 {
		opts.CarriedObservations = 0
	}
	if opts.HistoryLimit < 0 {
		opts.HistoryLimit = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Coordinator{
		deps:    deps,
		opts:    opts,
		nodes:   byID,
		general: general,
		seq:     NewSequencer(),
		history: newHistory(opts.HistoryLimit),
		logger:  deps.Logger.With(zap.String("component", "handoff_coordinator")),
	}, nil
}

// History returns a copy of the session's handoff trail.
func (c *Coordinator) History(sessionID string) []Record {
	return c.history.list(sessionID)
}

// Sweep drops the trails of sessions whose last handoff is older than
// HistoryIdleTTL and returns how many were dropped. An evicted session
// starts again from the general agent.
func (c *Coordinator) Sweep(now time.Time) int {
	if c.opts.HistoryIdleTTL <= 0 {
		return 0
	}
	return c.history.sweep(now.Add(-c.opts.HistoryIdleTTL))
}

// Run calls Sweep every interval until ctx ends.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || c.opts.HistoryIdleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := c.Sweep(now); n > 0 {
				c.logger.Debug("evicted idle handoff trails", zap.Int("count", n))
			}
		}
	}
}

// turnRun is the mutable state of one turn.
type turnRun struct {
	msg          types.Message
	res          *TurnResult
	state        State
	start        time.Time
	observations []string
	logger       *zap.Logger
}

// execution is what survives between recovery attempts.
type execution struct {
	node    nodes.Node
	turn    *nodes.Turn
	planned bool
	invs    []tools.Invocation
	results []tools.Result
	pending []int
	reply   *nodes.Reply
}

// HandleTurn runs msg through the state machine. The error is reserved for
// invalid input or a context that is done before the turn takes the session
// (CANCELLED or TIMEOUT, no quota spent, nothing persisted); every other
// failure is reported through the result status.
func (c *Coordinator) HandleTurn(ctx context.Context, msg types.Message) (*TurnResult, error) {
	if msg.SessionID == "" {
		return nil, types.NewError(types.ErrInvalidArguments, "session id is required")
	}

	release, err := c.seq.Acquire(ctx, msg.SessionID)
	if err != nil {
		return nil, types.Normalize(err)
	}
	defer release()

	t := &turnRun{
		msg:   msg,
		res:   &TurnResult{TurnID: uuid.NewString()},
		start: c.opts.Now(),
	}
	ctx = ctxkeys.WithSessionID(ctx, msg.SessionID)
	ctx = ctxkeys.WithUserID(ctx, msg.UserID)
	ctx = ctxkeys.WithTurnID(ctx, t.res.TurnID)

	ctx, span := c.deps.Tracer.Start(ctx, "handoff.turn", trace.WithAttributes(
		attribute.String("session_id", msg.SessionID),
		attribute.String("turn_id", t.res.TurnID),
	))
	defer span.End()
	if sc := span.SpanContext(); sc.HasTraceID() {
		ctx = ctxkeys.WithTraceID(ctx, sc.TraceID().String())
	}
	t.logger = c.logger.With(logFields(ctx)...)

	c.run(ctx, t)

	attrs := []attribute.KeyValue{attribute.String("status", string(t.res.Status))}
	if t.res.Intent != nil {
		attrs = append(attrs,
			attribute.String("intent", string(t.res.Intent.PrimaryIntent)),
			attribute.Float64("confidence", t.res.Intent.Confidence))
	}
	if t.res.Decision != nil {
		attrs = append(attrs, attribute.String("target_agent", string(t.res.Decision.TargetAgent)))
	}
	span.SetAttributes(attrs...)
	if t.res.Status == StatusFallback && t.res.Recovery != nil && t.res.Recovery.LastError != nil {
		span.SetStatus(codes.Error, t.res.Recovery.LastError.Error())
	}

	return t.res, nil
}

func (c *Coordinator) run(ctx context.Context, t *turnRun) {
	c.enter(t, StateReceived)

	admission := c.deps.Limiter.Admit(map[ratelimit.Class]string{
		ratelimit.ClassUser:    t.msg.UserID,
		ratelimit.ClassSession: t.msg.SessionID,
	}, c.opts.Now())
	if !admission.Allowed {
		if c.deps.Observer != nil {
			c.deps.Observer.ObserveRateLimited(string(admission.Class))
		}
		t.res.Status = StatusRateLimited
		t.res.RetryAfter = admission.RetryAfter
		t.res.ResponseText = RateLimitedText(admission.RetryAfter)
		t.logger.Info("turn rate limited",
			zap.String("class", string(admission.Class)),
			zap.Duration("retry_after", admission.RetryAfter))
		c.complete(ctx, t)
		return
	}
	c.enter(t, StateRateChecked)

	snap, err := c.deps.Memory.Load(ctx, t.msg.SessionID)
	if err != nil {
		t.logger.Warn("memory load failed, continuing without context", zap.Error(err))
		snap = &memory.Snapshot{SessionID: t.msg.SessionID}
	}

	ci := c.deps.Classifier.Classify(t.msg)
	t.res.Intent = &ci
	c.enter(t, StateIntentClassified)

	decision := c.deps.Router.Decide(ci)
	t.res.Decision = &decision
	c.enter(t, StateRouted)

	carried := CarriedState{
		Intent:       ci.PrimaryIntent,
		Confidence:   ci.Confidence,
		Reason:       decision.Reason,
		Observations: snap.Last(c.opts.CarriedObservations),
		Attempt:      1,
	}
	c.dispatch(t, decision.TargetAgent, carried)
	c.enter(t, StateExecuting)

	ex := &execution{
		node: c.nodes[decision.TargetAgent],
		turn: nodes.NewTurn(t.res.TurnID, t.msg, ci, snap),
	}
	execCtx, cancel := context.WithTimeout(ctxkeys.WithAgent(ctx, string(decision.TargetAgent)), c.opts.TurnTimeout)
	outcome := c.deps.Recovery.Run(execCtx, func(ctx context.Context, attempt int) error {
		err := c.attempt(ctx, ex, attempt)
		if err != nil && t.state == StateExecuting {
			t.logger.Info("turn entering recovery", zap.Int("attempt", attempt), zap.Error(err))
			c.enter(t, StateRecovering)
		}
		return err
	})
	cancel()

	t.res.Recovery = &outcome
	t.res.ToolResults = ex.results

	if ex.reply != nil && (outcome.FinalStatus == recovery.StatusSucceeded || outcome.FinalStatus == recovery.StatusRecovered) {
		t.res.Status = StatusCompleted
		t.res.ResponseText = ex.reply.Text
		t.observations = ex.reply.Observations
	} else {
		c.fallback(ctx, t, ex, outcome, carried)
	}

	c.complete(ctx, t)
}

// attempt runs one execution. Retries only re-run the invocations that
// failed; successful results are kept by index.
func (c *Coordinator) attempt(ctx context.Context, ex *execution, attempt int) error {
	ex.turn.Attempt = attempt

	if !ex.planned {
		invs, err := c.plan(ctx, ex.node, ex.turn)
		if err != nil {
			return err
		}
		ex.invs = invs
		ex.results = make([]tools.Result, len(invs))
		ex.pending = make([]int, len(invs))
		for i := range invs {
			ex.pending[i] = i
		}
		ex.planned = true
	}

	if len(ex.pending) > 0 {
		batch := make([]tools.Invocation, len(ex.pending))
		for j, i := range ex.pending {
			batch[j] = ex.invs[i]
		}
		out := c.deps.Executor.ExecuteAll(ctx, batch)
		for j, i := range ex.pending {
			ex.results[i] = out[j]
		}
		ex.pending = tools.FailedIndices(ex.results)
		if len(ex.pending) > 0 {
			return pickFailure(ex.results, ex.pending)
		}
	}

	reply, err := c.respond(ctx, ex.node, ex.turn, ex.results)
	if err != nil {
		return err
	}
	ex.reply = reply
	return nil
}

// pickFailure prefers a permanent failure over the CANCELLED siblings it
// caused, then any non-retryable one.
func pickFailure(results []tools.Result, failed []int) error {
	for _, i := range failed {
		if !results[i].Retryable && results[i].ErrorCode != types.ErrCancelled {
			return results[i].Err()
		}
	}
	for _, i := range failed {
		if !results[i].Retryable {
			return results[i].Err()
		}
	}
	return results[failed[0]].Err()
}

func (c *Coordinator) plan(ctx context.Context, node nodes.Node, turn *nodes.Turn) (invs []tools.Invocation, err error) {
	defer func() {
		if r := recover(); r != nil {
			invs = nil
			err = types.NewError(types.ErrHandoffFailed, fmt.Sprintf("agent %s panicked: %v", node.ID(), r))
		}
	}()

	invs, err = node.Plan(ctx, turn)
	if err == nil {
		return invs, nil
	}
	if e, ok := types.AsError(err); ok && (e.Code == types.ErrCancelled || e.Code == types.ErrTimeout) {
		return nil, e
	}
	return nil, types.NewError(types.ErrHandoffFailed, fmt.Sprintf("agent %s failed to plan", node.ID())).WithCause(err)
}

func (c *Coordinator) respond(ctx context.Context, node nodes.Node, turn *nodes.Turn, results []tools.Result) (reply *nodes.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			reply = nil
			err = types.NewError(types.ErrInternalError, fmt.Sprintf("agent %s panicked while responding: %v", node.ID(), r))
		}
	}()

	reply, err = node.Respond(ctx, turn, results)
	if err != nil {
		return nil, types.Normalize(err)
	}
	if reply == nil {
		return nil, types.NewError(types.ErrInternalError, fmt.Sprintf("agent %s returned no reply", node.ID()))
	}
	return reply, nil
}

// fallback hands the turn to the general agent, which answers with whatever
// partial context exists.
func (c *Coordinator) fallback(ctx context.Context, t *turnRun, ex *execution, outcome recovery.Outcome, carried CarriedState) {
	t.res.Status = StatusFallback

	code := types.ErrInternalError
	if outcome.LastError != nil {
		code = outcome.LastError.Code
	}

	if t.res.Decision.TargetAgent != types.AgentGeneral {
		fc := carried
		fc.Attempt = outcome.AttemptCount
		fc.Reason = fmt.Sprintf("fallback after %s (%s)", code, outcome.FinalStatus)
		c.dispatch(t, types.AgentGeneral, fc)
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.FallbackTimeout)
	defer cancel()
	t.res.ResponseText = c.general.Fallback(fctx, nodes.FallbackInput{
		Message: t.msg,
		Memory:  ex.turn.Memory,
		Partial: ex.results,
		Failure: outcome.LastError,
	})

	t.observations = append([]string{"intent: " + string(t.res.Intent.PrimaryIntent)}, ex.turn.Slots.Observations()...)
	for _, r := range ex.results {
		if r.OK() {
			t.observations = append(t.observations, "tool "+nodes.Digest(r))
		}
	}
	t.observations = append(t.observations, "fallback: "+string(code))

	t.logger.Warn("turn fell back to general agent",
		zap.String("code", string(code)),
		zap.String("final_status", string(outcome.FinalStatus)),
		zap.Int("attempts", outcome.AttemptCount))
}

func (c *Coordinator) dispatch(t *turnRun, to types.AgentID, carried CarriedState) {
	rec := Record{
		ID:           uuid.NewString(),
		SessionID:    t.msg.SessionID,
		TurnID:       t.res.TurnID,
		FromAgent:    c.history.current(t.msg.SessionID),
		ToAgent:      to,
		CarriedState: carried,
		Timestamp:    c.opts.Now(),
	}
	stored := rec
	stored.CarriedState.Observations = append([]string(nil), carried.Observations...)
	c.history.append(stored)
	t.res.HandoffTrace = append(t.res.HandoffTrace, rec)

	if c.deps.Observer != nil {
		c.deps.Observer.ObserveHandoff(string(rec.FromAgent), string(rec.ToAgent))
	}
	t.logger.Debug("handoff",
		zap.String("from_agent", string(rec.FromAgent)),
		zap.String("to_agent", string(rec.ToAgent)),
		zap.String("reason", carried.Reason))
}

func (c *Coordinator) enter(t *turnRun, to State) {
	from := t.state
	t.state = to
	t.res.Transitions = append(t.res.Transitions, Transition{From: from, To: to, At: c.opts.Now()})
	if c.deps.Observer != nil && from != "" {
		c.deps.Observer.ObserveTransition(string(from), string(to))
	}
}

// complete enters COMPLETED and persists the turn's observations exactly
// once. Persistence failures are logged, never surfaced.
func (c *Coordinator) complete(ctx context.Context, t *turnRun) {
	c.enter(t, StateCompleted)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.PersistTimeout)
	defer cancel()
	if err := c.deps.Memory.Persist(pctx, t.msg.SessionID, t.observations); err != nil {
		t.logger.Warn("memory persist failed", zap.Error(err))
	}

	agent := types.AgentGeneral
	if t.res.Decision != nil {
		agent = t.res.Decision.TargetAgent
	}
	elapsed := c.opts.Now().Sub(t.start)
	if c.deps.Observer != nil {
		c.deps.Observer.ObserveTurn(string(agent), string(t.res.Status), elapsed)
	}
	t.logger.Info("turn completed",
		zap.String("agent", string(agent)),
		zap.String("status", string(t.res.Status)),
		zap.Duration("duration", elapsed))
}

// RateLimitedText is the user-facing reply for a rejected turn.
func RateLimitedText(retryAfter time.Duration) string {
	secs := int((retryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("You're sending messages too quickly. Please wait %d seconds and try again.", secs)
}

func logFields(ctx context.Context) []zap.Field {
	kv := ctxkeys.Fields(ctx)
	fields := make([]zap.Field, 0, len(kv))
	for _, k := range []string{"trace_id", "session_id", "user_id", "turn_id", "agent"} {
		if v, ok := kv[k]; ok {
			fields = append(fields, zap.String(k, v))
		}
	}
	return fields
}
