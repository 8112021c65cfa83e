package routing

import (
	"fmt"

	"github.com/BaSui01/tripflow/agent/intent"
	"github.com/BaSui01/tripflow/types"
)

// Decision names the agent a turn is handed to.
type Decision struct {
	TargetAgent types.AgentID `json:"target_agent"`
	Reason      string        `json:"reason"`
}

// Engine maps classified intents to agents. It is pure and safe for
// concurrent use.
type Engine struct {
	threshold float64
}

// New creates an engine with the given confidence threshold.
func New(threshold float64) (*Engine, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("confidence threshold must be within [0,1], got %v", threshold)
	}
	return &Engine{threshold: threshold}, nil
}

// Threshold returns the configured threshold.
func (e *Engine) Threshold() float64 { return e.threshold }

// Decide picks the target agent for ci.
func (e *Engine) Decide(ci intent.ClassifiedIntent) Decision {
	if ci.Confidence > e.threshold && ci.PrimaryIntent.Specialized() {
		return Decision{
			TargetAgent: ci.PrimaryIntent.Agent(),
			Reason:      fmt.Sprintf("high confidence %s intent", ci.PrimaryIntent),
		}
	}
	return Decision{
		TargetAgent: types.AgentGeneral,
		Reason:      fmt.Sprintf("low confidence or general intent (%s)", ci.PrimaryIntent),
	}
}
