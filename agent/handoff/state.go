package handoff

import (
	"time"

	"github.com/BaSui01/tripflow/agent/intent"
	"github.com/BaSui01/tripflow/agent/recovery"
	"github.com/BaSui01/tripflow/agent/routing"
	"github.com/BaSui01/tripflow/llm/tools"
	"github.com/BaSui01/tripflow/types"
)

// State is a turn state.
type State string

const (
	StateReceived         State = "received"
	StateRateChecked      State = "rate_checked"
	StateIntentClassified State = "intent_classified"
	StateRouted           State = "routed"
	StateExecuting        State = "executing"
	StateRecovering       State = "recovering"
	StateCompleted        State = "completed"
)

// Status is the terminal status of a turn.
type Status string

const (
	StatusCompleted   Status = "completed"
	StatusRateLimited Status = "rate_limited"
	StatusFallback    Status = "fallback"
)

// Transition is one entry of a turn's audit trail.
type Transition struct {
	From State     `json:"from,omitempty"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// CarriedState is the context handed to the target agent.
type CarriedState struct {
	Intent       types.Category `json:"intent"`
	Confidence   float64        `json:"confidence"`
	Reason       string         `json:"reason"`
	Observations []string       `json:"observations,omitempty"`
	Attempt      int            `json:"attempt"`
}

// Record is one dispatch in a session's append-only handoff trail.
type Record struct {
	ID           string        `json:"id"`
	SessionID    string        `json:"session_id"`
	TurnID       string        `json:"turn_id"`
	FromAgent    types.AgentID `json:"from_agent"`
	ToAgent      types.AgentID `json:"to_agent"`
	CarriedState CarriedState  `json:"carried_state"`
	Timestamp    time.Time     `json:"timestamp"`
}

// TurnResult is what HandleTurn returns for every accepted message.
type TurnResult struct {
	TurnID       string                   `json:"turn_id"`
	ResponseText string                   `json:"response_text"`
	Status       Status                   `json:"status"`
	HandoffTrace []Record                 `json:"handoff_trace"`
	Transitions  []Transition             `json:"transitions"`
	Intent       *intent.ClassifiedIntent `json:"intent,omitempty"`
	Decision     *routing.Decision        `json:"decision,omitempty"`
	Recovery     *recovery.Outcome        `json:"recovery,omitempty"`
	ToolResults  []tools.Result           `json:"tool_results,omitempty"`
	// RetryAfter is set for rate-limited turns.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// States returns the visited states in order.
func (r *TurnResult) States() []State {
	out := make([]State, len(r.Transitions))
	for i, t := range r.Transitions {
		out[i] = t.To
	}
	return out
}

// Observer receives coordinator events.
type Observer interface {
	ObserveTransition(from, to string)
	ObserveHandoff(from, to string)
	ObserveRateLimited(class string)
	ObserveTurn(agent, status string, d time.Duration)
}
