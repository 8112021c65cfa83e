package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/BaSui01/tripflow/config"
	"github.com/BaSui01/tripflow/types"
)

// Rule lists the signals for one category.
type Rule struct {
	Category types.Category
	Keywords []string
	Patterns []string
}

// DefaultRules returns the built-in travel rule table.
func DefaultRules() []Rule {
	return []Rule{
		{
			Category: types.CategoryFlight,
			Keywords: []string{"flight", "flights", "airline", "airport", "airfare", "plane", "layover", "boarding pass"},
			Patterns: []string{
				`\b(book|find|search)\s+(a\s+|me\s+a\s+)?(cheap\s+)?flights?\b`,
				`\bfl(y|ying|ight|ights)\s+(to|from)\s+\w+`,
				`\b(one[- ]way|round[- ]trip)\b`,
			},
		},
		{
			Category: types.CategoryAccommodation,
			Keywords: []string{"hotel", "hotels", "hostel", "airbnb", "accommodation", "lodging", "resort", "room"},
			Patterns: []string{
				`\b(book|find|need)\s+(a\s+|me\s+a\s+)?(hotel|room|place\s+to\s+stay)\b`,
				`\b\d+\s+nights?\b`,
				`\bwhere\s+(should|can|to)\s+(i\s+|we\s+)?stay\b`,
			},
		},
		{
			Category: types.CategoryBudget,
			Keywords: []string{"budget", "cost", "costs", "price", "cheap", "expensive", "afford", "money", "currency"},
			Patterns: []string{
				`\bhow\s+much\b`,
				`[$€£¥]\s?\d+|\b\d+\s?(usd|eur|gbp|jpy|dollars|euros|pounds)\b`,
				`\b(under|within|on)\s+(a\s+)?budget\b`,
			},
		},
		{
			Category: types.CategoryDestination,
			Keywords: []string{"destination", "visit", "weather", "attractions", "sightseeing", "culture", "beach", "museum"},
			Patterns: []string{
				`\bwhat\s+(is|are)\s+[\w\s]+\s+like\b`,
				`\b(best|top)\s+(places|cities|destinations|spots)\b`,
				`\bthings\s+to\s+(do|see)\b`,
			},
		},
		{
			Category: types.CategoryItinerary,
			Keywords: []string{"itinerary", "schedule", "agenda", "plan", "day-by-day"},
			Patterns: []string{
				`\b\d+[- ]day\s+(trip|itinerary|plan|tour)\b`,
				`\bplan\s+(my|a|our)\s+(trip|vacation|holiday|week)\b`,
				`\bday\s+\d+\b`,
			},
		},
	}
}

// RulesFromConfig converts configured rules. An empty list yields the defaults.
func RulesFromConfig(cfg []config.IntentRule) ([]Rule, error) {
	if len(cfg) == 0 {
		return DefaultRules(), nil
	}
	rules := make([]Rule, 0, len(cfg))
	for _, r := range cfg {
		cat := types.Category(strings.ToLower(strings.TrimSpace(r.Category)))
		if !cat.Valid() {
			return nil, fmt.Errorf("unknown intent category %q", r.Category)
		}
		rules = append(rules, Rule{
			Category: cat,
			Keywords: r.Keywords,
			Patterns: r.Patterns,
		})
	}
	return rules, nil
}

// compiledRule holds the matchers of one category.
type compiledRule struct {
	category types.Category
	keywords []*regexp.Regexp
	patterns []*regexp.Regexp
}

func compile(rules []Rule) (map[types.Category]*compiledRule, error) {
	out := make(map[types.Category]*compiledRule, len(rules))
	for _, r := range rules {
		if !r.Category.Valid() {
			return nil, fmt.Errorf("unknown intent category %q", r.Category)
		}
		cr, ok := out[r.Category]
		if !ok {
			cr = &compiledRule{category: r.Category}
			out[r.Category] = cr
		}
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			cr.keywords = append(cr.keywords, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
		}
		for _, p := range r.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("category %s: invalid pattern %q: %w", r.Category, p, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
	}
	return out, nil
}
