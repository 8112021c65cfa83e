package nodes

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/agent/intent"
	"github.com/BaSui01/tripflow/agent/memory"
	"github.com/BaSui01/tripflow/config"
	"github.com/BaSui01/tripflow/llm"
	"github.com/BaSui01/tripflow/llm/tools"
	"github.com/BaSui01/tripflow/types"
)

// Turn is the read-only view of one conversation turn handed to a node.
type Turn struct {
	ID      string
	Message types.Message
	Intent  intent.ClassifiedIntent
	Memory  *memory.Snapshot
	Slots   Slots
	// Attempt is 1 for the first execution and grows on recovery retries.
	Attempt int
}

// NewTurn builds a turn and extracts its slots.
func NewTurn(id string, msg types.Message, ci intent.ClassifiedIntent, snap *memory.Snapshot) *Turn {
	return &Turn{
		ID:      id,
		Message: msg,
		Intent:  ci,
		Memory:  snap,
		Slots:   ExtractSlots(msg.Content, snap),
		Attempt: 1,
	}
}

// Reply is a node's answer plus the observations to remember.
type Reply struct {
	Text         string   `json:"text"`
	Observations []string `json:"observations,omitempty"`
}

// Node is one agent the coordinator can hand a turn to.
type Node interface {
	ID() types.AgentID
	RequiredTools() []tools.Name
	Plan(ctx context.Context, turn *Turn) ([]tools.Invocation, error)
	Respond(ctx context.Context, turn *Turn, results []tools.Result) (*Reply, error)
}

// Settings are the completion parameters of a node.
type Settings struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	// MemoryLines bounds the observations quoted in the prompt.
	MemoryLines int
}

// SettingsFromConfig maps LLM configuration onto node settings.
func SettingsFromConfig(cfg config.LLMConfig) Settings {
	return Settings{
		Model:       cfg.Model,
		Temperature: float32(cfg.Temperature),
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
		MemoryLines: 5,
	}
}

// planFunc maps a turn onto tool calls.
type planFunc func(turn *Turn) []tools.Invocation

// Specialist is a node backed by a fixed tool plan and an LLM prompt.
type Specialist struct {
	id           types.AgentID
	required     []tools.Name
	systemPrompt string
	plan         planFunc
	completer    llm.Completer
	settings     Settings
	logger       *zap.Logger
}

func newSpecialist(id types.AgentID, required []tools.Name, prompt string, plan planFunc,
	c llm.Completer, s Settings, logger *zap.Logger) *Specialist {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = llm.NewTemplateCompleter()
	}
	return &Specialist{
		id:           id,
		required:     required,
		systemPrompt: prompt,
		plan:         plan,
		completer:    llm.WithTimeout(c, s.Timeout),
		settings:     s,
		logger:       logger.With(zap.String("component", "agent_node"), zap.String("agent", string(id))),
	}
}

func (n *Specialist) ID() types.AgentID { return n.id }

func (n *Specialist) RequiredTools() []tools.Name {
	return append([]tools.Name(nil), n.required...)
}

func (n *Specialist) Plan(ctx context.Context, turn *Turn) ([]tools.Invocation, error) {
	if turn == nil {
		return nil, types.NewError(types.ErrHandoffFailed, "nil turn")
	}
	if err := ctx.Err(); err != nil {
		return nil, types.Normalize(err)
	}
	invs := n.plan(turn)
	n.logger.Debug("planned tool calls",
		zap.String("turn_id", turn.ID),
		zap.Int("calls", len(invs)),
	)
	return invs, nil
}

func (n *Specialist) Respond(ctx context.Context, turn *Turn, results []tools.Result) (*Reply, error) {
	if turn == nil {
		return nil, types.NewError(types.ErrHandoffFailed, "nil turn")
	}

	var notes []string
	if turn.Memory != nil {
		for _, o := range turn.Memory.Last(n.settings.MemoryLines) {
			notes = append(notes, "memory: "+o)
		}
	}
	var toolObs []string
	for _, r := range results {
		if !r.OK() {
			continue
		}
		d := Digest(r)
		notes = append(notes, d)
		toolObs = append(toolObs, "tool "+d)
	}

	text, err := n.complete(ctx, n.systemPrompt, notes, turn.Message.Content)
	if err != nil {
		return nil, err
	}

	obs := []string{"intent: " + string(turn.Intent.PrimaryIntent)}
	obs = append(obs, turn.Slots.Observations()...)
	obs = append(obs, toolObs...)
	return &Reply{Text: text, Observations: obs}, nil
}

func (n *Specialist) complete(ctx context.Context, system string, notes []string, user string) (string, error) {
	req := &llm.CompletionRequest{
		Model:     n.settings.Model,
		Messages:  BuildPrompt(system, notes, user),
		MaxTokens: n.settings.MaxTokens,
	}
	if n.settings.Temperature > 0 {
		t := n.settings.Temperature
		req.Temperature = &t
	}

	text, err := n.completer.Complete(ctx, req)
	if err != nil {
		return "", types.Normalize(err)
	}
	if strings.TrimSpace(text) == "" {
		return "", types.Normalize(llm.ErrEmptyCompletion)
	}
	return text, nil
}

// BuildPrompt assembles system prompt, context bullets and the user message.
func BuildPrompt(system string, notes []string, user string) []types.ChatMessage {
	msgs := []types.ChatMessage{types.NewChatMessage(types.RoleSystem, system)}
	if len(notes) > 0 {
		var b strings.Builder
		b.WriteString(llm.ContextHeader)
		for _, c := range notes {
			b.WriteString("\n- ")
			b.WriteString(c)
		}
		msgs = append(msgs, types.NewChatMessage(types.RoleSystem, b.String()))
	}
	return append(msgs, types.NewChatMessage(types.RoleUser, user))
}

const maxDigestLen = 240

// Digest renders a successful result as "<tool>: <summary>".
func Digest(r tools.Result) string {
	var summary string
	v := reflect.ValueOf(r.Output)
	if v.Kind() == reflect.Slice {
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = fmt.Sprint(v.Index(i).Interface())
		}
		summary = strings.Join(parts, "; ")
	} else {
		summary = fmt.Sprint(r.Output)
	}
	if runes := []rune(summary); len(runes) > maxDigestLen {
		summary = string(runes[:maxDigestLen]) + "..."
	}
	return r.ToolName + ": " + summary
}
