package builtin

import (
	"hash/fnv"
	"strings"
)

type cityFacts struct {
	Country    string
	Highlights []string
	BestSeason string
	DailyEUR   float64
	Climate    []string
	BaseTempC  int
}

var cities = map[string]cityFacts{
	"paris": {
		Country:    "France",
		Highlights: []string{"Louvre", "Eiffel Tower", "Montmartre", "Seine river cruise"},
		BestSeason: "April to June",
		DailyEUR:   180,
		Climate:    []string{"mild", "cloudy", "light rain"},
		BaseTempC:  16,
	},
	"rome": {
		Country:    "Italy",
		Highlights: []string{"Colosseum", "Vatican Museums", "Trastevere", "Pantheon"},
		BestSeason: "April to May",
		DailyEUR:   150,
		Climate:    []string{"sunny", "warm", "clear"},
		BaseTempC:  21,
	},
	"tokyo": {
		Country:    "Japan",
		Highlights: []string{"Senso-ji", "Shibuya Crossing", "Tsukiji Outer Market", "Meiji Shrine"},
		BestSeason: "March to May",
		DailyEUR:   170,
		Climate:    []string{"humid", "clear", "showers"},
		BaseTempC:  18,
	},
	"lisbon": {
		Country:    "Portugal",
		Highlights: []string{"Belem Tower", "Alfama", "LX Factory", "Sintra day trip"},
		BestSeason: "May to September",
		DailyEUR:   120,
		Climate:    []string{"sunny", "breezy", "clear"},
		BaseTempC:  20,
	},
	"new york": {
		Country:    "United States",
		Highlights: []string{"Central Park", "MoMA", "Brooklyn Bridge", "Broadway show"},
		BestSeason: "September to November",
		DailyEUR:   250,
		Climate:    []string{"crisp", "sunny", "windy"},
		BaseTempC:  14,
	},
	"kyoto": {
		Country:    "Japan",
		Highlights: []string{"Fushimi Inari", "Kinkaku-ji", "Arashiyama", "Gion"},
		BestSeason: "October to November",
		DailyEUR:   140,
		Climate:    []string{"clear", "mild", "overcast"},
		BaseTempC:  17,
	},
}

var genericCity = cityFacts{
	Country:    "unknown",
	Highlights: []string{"old town walk", "local market", "city museum"},
	BestSeason: "spring or autumn",
	DailyEUR:   140,
	Climate:    []string{"mild", "variable"},
	BaseTempC:  17,
}

// EUR per unit of the currency.
var eurRates = map[string]float64{
	"EUR": 1,
	"USD": 0.92,
	"GBP": 1.17,
	"JPY": 0.0062,
	"CHF": 1.04,
	"CAD": 0.68,
	"AUD": 0.61,
}

var airlines = []string{"AF", "LH", "BA", "IB", "TP", "JL", "UA"}

func lookupCity(name string) (cityFacts, bool) {
	f, ok := cities[normalizeCity(name)]
	if !ok {
		return genericCity, false
	}
	return f, true
}

func normalizeCity(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func titleCity(name string) string {
	words := strings.Fields(normalizeCity(name))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// seed derives a stable number from its parts so results are deterministic.
func seed(parts ...string) uint32 {
	h := fnv.New32a()
	for _, p := range parts {
		_, _ = h.Write([]byte(normalizeCity(p)))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum32()
}
