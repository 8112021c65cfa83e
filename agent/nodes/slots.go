package nodes

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/BaSui01/tripflow/agent/memory"
)

// Slots are the trip details extracted from a message and session memory.
type Slots struct {
	Destination string  `json:"destination,omitempty"`
	Origin      string  `json:"origin,omitempty"`
	Nights      int     `json:"nights,omitempty"`
	Days        int     `json:"days,omitempty"`
	Travellers  int     `json:"travellers,omitempty"`
	Budget      float64 `json:"budget,omitempty"`
	Currency    string  `json:"currency,omitempty"`
}

const (
	destinationKey = "destination: "
	originKey      = "origin: "
)

var (
	cityName       = `([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)?)`
	toCityRe       = regexp.MustCompile(`\b(?:to|in|visit|visiting)\s+` + cityName)
	fromCityRe     = regexp.MustCompile(`\bfrom\s+` + cityName)
	nightsRe       = regexp.MustCompile(`(?i)\b(\d{1,2})\s+nights?\b`)
	daysRe         = regexp.MustCompile(`(?i)\b(\d{1,2})[\s-]+days?\b`)
	weekRe         = regexp.MustCompile(`(?i)\b(?:a|one)\s+week\b`)
	travellersRe   = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(?:people|persons|adults|travell?ers|of us)\b`)
	amountSuffixRe = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(eur|euros?|usd|dollars?|gbp|pounds?|jpy|yen)\b`)
	amountPrefixRe = regexp.MustCompile(`([$€£¥])\s*(\d+(?:\.\d+)?)`)
)

var currencyWords = map[string]string{
	"eur": "EUR", "euro": "EUR", "euros": "EUR", "€": "EUR",
	"usd": "USD", "dollar": "USD", "dollars": "USD", "$": "USD",
	"gbp": "GBP", "pound": "GBP", "pounds": "GBP", "£": "GBP",
	"jpy": "JPY", "yen": "JPY", "¥": "JPY",
}

// capitalised words that follow "to"/"in" without naming a place
var notCities = map[string]bool{
	"I": true, "The": true, "A": true, "My": true,
	"January": true, "February": true, "March": true, "April": true,
	"May": true, "June": true, "July": true, "August": true,
	"September": true, "October": true, "November": true, "December": true,
}

// ExtractSlots reads trip details from content. Destination and origin fall
// back to the most recent values remembered in snap.
func ExtractSlots(content string, snap *memory.Snapshot) Slots {
	var s Slots

	s.Destination = firstCity(toCityRe, content)
	s.Origin = firstCity(fromCityRe, content)
	if s.Destination == s.Origin {
		s.Origin = ""
	}

	s.Nights = firstInt(nightsRe, content)
	s.Days = firstInt(daysRe, content)
	if s.Days == 0 && weekRe.MatchString(content) {
		s.Days = 7
	}
	s.Travellers = firstInt(travellersRe, content)

	if m := amountSuffixRe.FindStringSubmatch(content); m != nil {
		s.Budget, _ = strconv.ParseFloat(m[1], 64)
		s.Currency = currencyWords[strings.ToLower(m[2])]
	} else if m := amountPrefixRe.FindStringSubmatch(content); m != nil {
		s.Budget, _ = strconv.ParseFloat(m[2], 64)
		s.Currency = currencyWords[m[1]]
	}

	if snap != nil {
		if s.Destination == "" {
			s.Destination = remembered(snap.Observations, destinationKey)
		}
		if s.Origin == "" {
			s.Origin = remembered(snap.Observations, originKey)
		}
	}
	return s
}

// Observations renders the slots worth remembering.
func (s Slots) Observations() []string {
	var out []string
	if s.Destination != "" {
		out = append(out, destinationKey+s.Destination)
	}
	if s.Origin != "" {
		out = append(out, originKey+s.Origin)
	}
	return out
}

func firstCity(re *regexp.Regexp, content string) string {
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		name := m[1]
		if first, _, _ := strings.Cut(name, " "); notCities[first] {
			continue
		}
		return name
	}
	return ""
}

func firstInt(re *regexp.Regexp, content string) int {
	m := re.FindStringSubmatch(content)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func remembered(observations []string, key string) string {
	for i := len(observations) - 1; i >= 0; i-- {
		if v, ok := strings.CutPrefix(observations[i], key); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
