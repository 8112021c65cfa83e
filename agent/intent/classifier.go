package intent

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/BaSui01/tripflow/config"
	"github.com/BaSui01/tripflow/types"
)

// ClassifiedIntent is the result of scoring one message.
type ClassifiedIntent struct {
	PrimaryIntent   types.Category             `json:"primary_intent"`
	Confidence      float64                    `json:"confidence"`
	Scores          map[types.Category]float64 `json:"scores"`
	RequiresRouting bool                       `json:"requires_routing"`
}

// Ranked returns every category ordered by weight, ties by priority.
func (c ClassifiedIntent) Ranked() []types.Category {
	ranked := make([]types.Category, len(types.CategoryPriority))
	copy(ranked, types.CategoryPriority)
	sort.SliceStable(ranked, func(i, j int) bool {
		return c.Scores[ranked[i]] > c.Scores[ranked[j]]
	})
	return ranked
}

// Options tunes the scoring.
type Options struct {
	// NormalizationConstant maps the top weight onto [0,1].
	NormalizationConstant float64
	// NoSignalConfidence is the confidence reported when nothing matched.
	NoSignalConfidence float64
	// RoutingThreshold is the confidence a specialised intent must exceed
	// for RequiresRouting to be set.
	RoutingThreshold float64
}

// DefaultOptions returns the standard scoring constants.
func DefaultOptions() Options {
	return Options{
		NormalizationConstant: 5.0,
		NoSignalConfidence:    0.5,
		RoutingThreshold:      0.7,
	}
}

// OptionsFromConfig maps intent configuration onto Options. The routing
// threshold is shared with the routing engine.
func OptionsFromConfig(cfg config.IntentConfig, routingThreshold float64) Options {
	return Options{
		NormalizationConstant: cfg.NormalizationConstant,
		NoSignalConfidence:    cfg.NoSignalConfidence,
		RoutingThreshold:      routingThreshold,
	}
}

// Classifier scores messages against a fixed rule table.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	rules map[types.Category]*compiledRule
	opts  Options
}

// New compiles rules. Invalid patterns or categories fail here rather than
// at classification time.
func New(rules []Rule, opts Options) (*Classifier, error) {
	if opts.NormalizationConstant <= 0 {
		return nil, fmt.Errorf("normalization constant must be positive, got %v", opts.NormalizationConstant)
	}
	compiled, err := compile(rules)
	if err != nil {
		return nil, err
	}
	return &Classifier{rules: compiled, opts: opts}, nil
}

// Classify scores msg. It never fails.
func (c *Classifier) Classify(msg types.Message) ClassifiedIntent {
	content := strings.ToLower(msg.Content)

	scores := make(map[types.Category]float64, len(types.CategoryPriority))
	primary := types.CategoryGeneral
	best := 0.0

	// CategoryPriority is ordered highest first, so a strict comparison keeps
	// the higher-priority category on ties.
	for _, cat := range types.CategoryPriority {
		w := c.score(cat, content)
		scores[cat] = w
		if w > best {
			best = w
			primary = cat
		}
	}

	confidence := c.opts.NoSignalConfidence
	if best > 0 {
		confidence = math.Min(best/c.opts.NormalizationConstant, 1.0)
	}

	return ClassifiedIntent{
		PrimaryIntent:   primary,
		Confidence:      confidence,
		Scores:          scores,
		RequiresRouting: confidence > c.opts.RoutingThreshold && primary != types.CategoryGeneral,
	}
}

func (c *Classifier) score(cat types.Category, content string) float64 {
	r, ok := c.rules[cat]
	if !ok {
		return 0
	}
	w := 0.0
	for _, kw := range r.keywords {
		if kw.MatchString(content) {
			w++
		}
	}
	for _, p := range r.patterns {
		if p.MatchString(content) {
			w += 2
		}
	}
	return w
}
