package nodes

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/agent/memory"
	"github.com/BaSui01/tripflow/llm"
	"github.com/BaSui01/tripflow/llm/tools"
	"github.com/BaSui01/tripflow/types"
)

// SafeFallbackText is returned when even the fallback completion fails.
const SafeFallbackText = "Sorry, I couldn't finish that request right now. " +
	"Please try again in a moment or rephrase what you need."

const (
	generalPrompt = "You are a friendly travel assistant. Answer general questions and help the " +
		"traveller say where, when and how they want to travel."
	fallbackPrompt = "You are a travel assistant. The specialised service could not complete the " +
		"request. Apologise briefly and share whatever partial information is available."
)

// FallbackInput is the partial context available when a turn degrades.
type FallbackInput struct {
	Message types.Message
	Memory  *memory.Snapshot
	// Partial holds the tool results gathered before the failure.
	Partial []tools.Result
	Failure *types.Error
}

// FallbackWriter writes the degraded reply of a turn. It never fails.
type FallbackWriter interface {
	Fallback(ctx context.Context, in FallbackInput) string
}

// General answers unrouted turns and writes fallback replies.
type General struct {
	*Specialist
}

// NewGeneral creates the general node. It uses no tools.
func NewGeneral(c llm.Completer, s Settings, logger *zap.Logger) *General {
	return &General{
		Specialist: newSpecialist(types.AgentGeneral, nil, generalPrompt,
			func(*Turn) []tools.Invocation { return nil }, c, s, logger),
	}
}

// Fallback asks the LLM for a degraded reply using whatever context exists
// and returns SafeFallbackText when that fails.
func (g *General) Fallback(ctx context.Context, in FallbackInput) string {
	var notes []string
	if in.Memory != nil {
		for _, o := range in.Memory.Last(g.settings.MemoryLines) {
			notes = append(notes, "memory: "+o)
		}
	}
	for _, r := range in.Partial {
		if r.OK() {
			notes = append(notes, Digest(r))
		}
	}

	text, err := g.complete(ctx, fallbackPrompt, notes, in.Message.Content)
	if err != nil || strings.TrimSpace(text) == "" {
		g.logger.Warn("fallback completion failed, using safe text", zap.Error(err))
		return SafeFallbackText
	}
	return text
}
