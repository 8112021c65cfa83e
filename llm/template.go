package llm

import (
	"context"
	"strings"

	"github.com/BaSui01/tripflow/types"
)

// ContextHeader marks the system message that carries tool and memory
// digests for the offline completer.
const ContextHeader = "Context:"

// TemplateCompleter is an offline, deterministic completer. It echoes the
// context bullet points it is given, prefixed by an opening line.
type TemplateCompleter struct {
	// Opening is used when the request carries no context bullets.
	Opening string
}

// NewTemplateCompleter returns a TemplateCompleter with a friendly opening.
func NewTemplateCompleter() *TemplateCompleter {
	return &TemplateCompleter{
		Opening: "Happy to help with your trip.",
	}
}

// Complete implements Completer.
func (t *TemplateCompleter) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", types.Normalize(err)
	}

	var bullets []string
	var question string
	for _, m := range req.Messages {
		switch m.Role {
		case types.RoleSystem:
			if !strings.HasPrefix(m.Content, ContextHeader) {
				continue
			}
			for _, line := range strings.Split(m.Content, "\n")[1:] {
				if line = strings.TrimSpace(line); strings.HasPrefix(line, "- ") {
					bullets = append(bullets, line)
				}
			}
		case types.RoleUser:
			question = m.Content
		}
	}

	var b strings.Builder
	if len(bullets) == 0 {
		b.WriteString(t.Opening)
		if question != "" {
			b.WriteString(" You asked: \"")
			b.WriteString(question)
			b.WriteString("\". Tell me where and when you would like to travel.")
		}
		return b.String(), nil
	}

	b.WriteString("Here is what I found:")
	for _, line := range bullets {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String(), nil
}
