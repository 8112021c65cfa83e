package builtin

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/BaSui01/tripflow/llm/tools"
	"github.com/BaSui01/tripflow/types"
)

// Flight is one search_flights offer.
type Flight struct {
	Number        string  `json:"number"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	PriceEUR      float64 `json:"price_eur"`
	DurationHours float64 `json:"duration_hours"`
}

func (f Flight) String() string {
	return fmt.Sprintf("%s %s→%s %.0f EUR (%.1fh)", f.Number, f.From, f.To, f.PriceEUR, f.DurationHours)
}

// Stay is one search_accommodations offer.
type Stay struct {
	Name       string  `json:"name"`
	City       string  `json:"city"`
	Nights     int     `json:"nights"`
	NightlyEUR float64 `json:"nightly_eur"`
	TotalEUR   float64 `json:"total_eur"`
	Rating     float64 `json:"rating"`
}

func (s Stay) String() string {
	return fmt.Sprintf("%s in %s, %d nights at %.0f EUR (rated %.1f)", s.Name, s.City, s.Nights, s.TotalEUR, s.Rating)
}

// Weather is a get_weather report.
type Weather struct {
	City      string `json:"city"`
	Condition string `json:"condition"`
	TempC     int    `json:"temp_c"`
}

func (w Weather) String() string {
	return fmt.Sprintf("%s: %s, %d°C", w.City, w.Condition, w.TempC)
}

// DestinationInfo is a get_destination_info answer.
type DestinationInfo struct {
	City       string   `json:"city"`
	Country    string   `json:"country"`
	Highlights []string `json:"highlights"`
	BestSeason string   `json:"best_season"`
}

func (d DestinationInfo) String() string {
	return fmt.Sprintf("%s (%s): %s; best %s", d.City, d.Country, strings.Join(d.Highlights, ", "), d.BestSeason)
}

// Conversion is a convert_currency answer.
type Conversion struct {
	Amount float64 `json:"amount"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Rate   float64 `json:"rate"`
	Result float64 `json:"result"`
}

func (c Conversion) String() string {
	return fmt.Sprintf("%.2f %s = %.2f %s", c.Amount, c.From, c.Result, c.To)
}

// Budget is an estimate_budget answer.
type Budget struct {
	City       string  `json:"city"`
	Days       int     `json:"days"`
	Travellers int     `json:"travellers"`
	DailyEUR   float64 `json:"daily_eur"`
	TotalEUR   float64 `json:"total_eur"`
	WithinEUR  float64 `json:"within_eur,omitempty"`
	Fits       bool    `json:"fits"`
}

func (b Budget) String() string {
	s := fmt.Sprintf("%d days in %s for %d: about %.0f EUR", b.Days, b.City, b.Travellers, b.TotalEUR)
	if b.WithinEUR > 0 {
		if b.Fits {
			s += fmt.Sprintf(", fits %.0f EUR", b.WithinEUR)
		} else {
			s += fmt.Sprintf(", over %.0f EUR", b.WithinEUR)
		}
	}
	return s
}

// DayPlan is one day of an itinerary.
type DayPlan struct {
	Day        int      `json:"day"`
	Activities []string `json:"activities"`
}

// Itinerary is a build_itinerary answer.
type Itinerary struct {
	City string    `json:"city"`
	Days []DayPlan `json:"days"`
}

func (it Itinerary) String() string {
	parts := make([]string, len(it.Days))
	for i, d := range it.Days {
		parts[i] = fmt.Sprintf("day %d: %s", d.Day, strings.Join(d.Activities, " + "))
	}
	return fmt.Sprintf("%s, %s", it.City, strings.Join(parts, "; "))
}

func invalid(tool tools.Name, msg string) error {
	return types.NewError(types.ErrInvalidArguments, msg).WithTool(string(tool))
}

// SearchFlights returns three offers for params "to" (required) and "from".
func SearchFlights(ctx context.Context, p tools.Params) (any, error) {
	to := p.Text("to")
	if to == "" {
		return nil, invalid(tools.SearchFlights, "destination (to) is required")
	}
	from := p.Text("from")
	if from == "" {
		from = "Anywhere"
	}

	s := seed(from, to)
	offers := make([]Flight, 3)
	for i := range offers {
		n := s + uint32(i)*7919
		offers[i] = Flight{
			Number:        fmt.Sprintf("%s%d", airlines[n%uint32(len(airlines))], 100+n%900),
			From:          titleCity(from),
			To:            titleCity(to),
			PriceEUR:      float64(90 + n%400 + uint32(i)*35),
			DurationHours: 1.5 + float64(n%90)/10,
		}
	}
	return offers, nil
}

// SearchAccommodations returns two stays for params "city" and "nights".
func SearchAccommodations(ctx context.Context, p tools.Params) (any, error) {
	city := p.Text("city")
	if city == "" {
		return nil, invalid(tools.SearchAccommodations, "city is required")
	}
	nights, ok := p.Int("nights")
	if !ok || nights < 1 {
		nights = 1
	}

	facts, _ := lookupCity(city)
	s := seed(city)
	names := []string{"Central Boutique Hotel", "Riverside Apartments"}
	stays := make([]Stay, len(names))
	for i, name := range names {
		nightly := math.Round(facts.DailyEUR*0.6 + float64((s>>uint(i*4))%60))
		stays[i] = Stay{
			Name:       name,
			City:       titleCity(city),
			Nights:     nights,
			NightlyEUR: nightly,
			TotalEUR:   nightly * float64(nights),
			Rating:     3.8 + float64((s>>uint(i*3))%12)/10,
		}
	}
	return stays, nil
}

// GetWeather returns a deterministic forecast for param "city".
func GetWeather(ctx context.Context, p tools.Params) (any, error) {
	city := p.Text("city")
	if city == "" {
		return nil, invalid(tools.GetWeather, "city is required")
	}
	facts, _ := lookupCity(city)
	s := seed(city, time.Now().UTC().Format("2006-01-02"))
	return Weather{
		City:      titleCity(city),
		Condition: facts.Climate[s%uint32(len(facts.Climate))],
		TempC:     facts.BaseTempC + int(s%7) - 3,
	}, nil
}

// GetDestinationInfo returns facts for param "city".
func GetDestinationInfo(ctx context.Context, p tools.Params) (any, error) {
	city := p.Text("city")
	if city == "" {
		return nil, invalid(tools.GetDestinationInfo, "city is required")
	}
	facts, _ := lookupCity(city)
	return DestinationInfo{
		City:       titleCity(city),
		Country:    facts.Country,
		Highlights: append([]string(nil), facts.Highlights...),
		BestSeason: facts.BestSeason,
	}, nil
}

// ConvertCurrency converts param "amount" from "from" to "to".
func ConvertCurrency(ctx context.Context, p tools.Params) (any, error) {
	amount, ok := p.Float("amount")
	if !ok {
		return nil, invalid(tools.ConvertCurrency, "amount is required")
	}
	from := strings.ToUpper(p.Text("from"))
	to := strings.ToUpper(p.Text("to"))
	if to == "" {
		to = "EUR"
	}
	fromRate, ok := eurRates[from]
	if !ok {
		return nil, invalid(tools.ConvertCurrency, fmt.Sprintf("unsupported currency %q", from))
	}
	toRate, ok := eurRates[to]
	if !ok {
		return nil, invalid(tools.ConvertCurrency, fmt.Sprintf("unsupported currency %q", to))
	}
	rate := fromRate / toRate
	return Conversion{
		Amount: amount,
		From:   from,
		To:     to,
		Rate:   rate,
		Result: math.Round(amount*rate*100) / 100,
	}, nil
}

// EstimateBudget estimates the cost of params "days" in "city" for
// "travellers", comparing with an optional "budget_eur".
func EstimateBudget(ctx context.Context, p tools.Params) (any, error) {
	city := p.Text("city")
	if city == "" {
		city = "a typical city"
	}
	days, ok := p.Int("days")
	if !ok || days < 1 {
		days = 3
	}
	travellers, ok := p.Int("travellers")
	if !ok || travellers < 1 {
		travellers = 1
	}

	facts, _ := lookupCity(city)
	b := Budget{
		City:       titleCity(city),
		Days:       days,
		Travellers: travellers,
		DailyEUR:   facts.DailyEUR,
		TotalEUR:   facts.DailyEUR * float64(days*travellers),
	}
	if limit, ok := p.Float("budget_eur"); ok && limit > 0 {
		b.WithinEUR = limit
		b.Fits = b.TotalEUR <= limit
	}
	return b, nil
}

// BuildItinerary drafts a day-by-day plan for params "city" and "days".
func BuildItinerary(ctx context.Context, p tools.Params) (any, error) {
	city := p.Text("city")
	if city == "" {
		return nil, invalid(tools.BuildItinerary, "city is required")
	}
	days, ok := p.Int("days")
	if !ok || days < 1 {
		days = 3
	}
	if days > 14 {
		return nil, invalid(tools.BuildItinerary, "itineraries are limited to 14 days")
	}

	facts, _ := lookupCity(city)
	it := Itinerary{City: titleCity(city), Days: make([]DayPlan, days)}
	for d := 0; d < days; d++ {
		morning := facts.Highlights[(2*d)%len(facts.Highlights)]
		afternoon := facts.Highlights[(2*d+1)%len(facts.Highlights)]
		it.Days[d] = DayPlan{Day: d + 1, Activities: []string{morning, afternoon}}
	}
	return it, nil
}

// Register installs every builtin handler with meta applied to each.
func Register(r *tools.Registry, meta tools.Metadata) error {
	handlers := map[tools.Name]tools.Handler{
		tools.SearchFlights:        SearchFlights,
		tools.SearchAccommodations: SearchAccommodations,
		tools.GetWeather:           GetWeather,
		tools.GetDestinationInfo:   GetDestinationInfo,
		tools.ConvertCurrency:      ConvertCurrency,
		tools.EstimateBudget:       EstimateBudget,
		tools.BuildItinerary:       BuildItinerary,
	}
	for _, name := range tools.Catalog {
		h, ok := handlers[name]
		if !ok {
			continue
		}
		m := meta
		m.Description = descriptions[name]
		if err := r.Register(name, h, m); err != nil {
			return err
		}
	}
	return nil
}

var descriptions = map[tools.Name]string{
	tools.SearchFlights:        "Search flight offers between two cities",
	tools.SearchAccommodations: "Search places to stay in a city",
	tools.GetWeather:           "Current weather for a city",
	tools.GetDestinationInfo:   "Highlights and best season for a city",
	tools.ConvertCurrency:      "Convert an amount between currencies",
	tools.EstimateBudget:       "Estimate trip cost for a city and duration",
	tools.BuildItinerary:       "Draft a day-by-day itinerary",
}
