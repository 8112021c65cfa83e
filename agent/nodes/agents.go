package nodes

import (
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/llm"
	"github.com/BaSui01/tripflow/llm/tools"
	"github.com/BaSui01/tripflow/types"
)

const (
	flightPrompt = "You are a flight booking assistant. Summarise the flight options found, " +
		"mention the weather at the destination when known, and ask for missing travel dates."
	accommodationPrompt = "You are an accommodation assistant. Compare the places to stay found " +
		"and ask for the city or number of nights when missing."
	budgetPrompt = "You are a travel budget assistant. Explain the estimated cost and whether it " +
		"fits the traveller's budget."
	destinationPrompt = "You are a destination expert. Describe the highlights, best season and " +
		"current weather of the destination."
	itineraryPrompt = "You are an itinerary planner. Present the day-by-day plan and suggest " +
		"adjustments."
)

// NewFlightAgent searches flights and, for a known destination, its weather.
func NewFlightAgent(c llm.Completer, s Settings, logger *zap.Logger) *Specialist {
	return newSpecialist(types.AgentFlight,
		[]tools.Name{tools.SearchFlights, tools.GetWeather},
		flightPrompt,
		func(t *Turn) []tools.Invocation {
			if t.Slots.Destination == "" {
				return nil
			}
			params := tools.Params{"to": t.Slots.Destination}
			if t.Slots.Origin != "" {
				params["from"] = t.Slots.Origin
			}
			return []tools.Invocation{
				{Tool: tools.SearchFlights, Params: params},
				{Tool: tools.GetWeather, Params: tools.Params{"city": t.Slots.Destination}},
			}
		}, c, s, logger)
}

// NewAccommodationAgent searches places to stay.
func NewAccommodationAgent(c llm.Completer, s Settings, logger *zap.Logger) *Specialist {
	return newSpecialist(types.AgentAccommodation,
		[]tools.Name{tools.SearchAccommodations},
		accommodationPrompt,
		func(t *Turn) []tools.Invocation {
			if t.Slots.Destination == "" {
				return nil
			}
			params := tools.Params{"city": t.Slots.Destination}
			if t.Slots.Nights > 0 {
				params["nights"] = t.Slots.Nights
			} else if t.Slots.Days > 1 {
				params["nights"] = t.Slots.Days - 1
			}
			return []tools.Invocation{{Tool: tools.SearchAccommodations, Params: params}}
		}, c, s, logger)
}

// NewBudgetAgent estimates trip cost, converting a foreign budget to EUR first.
func NewBudgetAgent(c llm.Completer, s Settings, logger *zap.Logger) *Specialist {
	return newSpecialist(types.AgentBudget,
		[]tools.Name{tools.EstimateBudget, tools.ConvertCurrency},
		budgetPrompt,
		func(t *Turn) []tools.Invocation {
			params := tools.Params{}
			if t.Slots.Destination != "" {
				params["city"] = t.Slots.Destination
			}
			if days := tripDays(t.Slots); days > 0 {
				params["days"] = days
			}
			if t.Slots.Travellers > 0 {
				params["travellers"] = t.Slots.Travellers
			}

			invs := []tools.Invocation{{Tool: tools.EstimateBudget, Params: params}}
			switch {
			case t.Slots.Budget <= 0:
			case t.Slots.Currency == "" || strings.EqualFold(t.Slots.Currency, "EUR"):
				params["budget_eur"] = t.Slots.Budget
			default:
				invs = append(invs, tools.Invocation{
					Tool: tools.ConvertCurrency,
					Params: tools.Params{
						"amount": t.Slots.Budget,
						"from":   t.Slots.Currency,
						"to":     "EUR",
					},
				})
			}
			return invs
		}, c, s, logger)
}

// NewDestinationAgent looks up destination facts and weather.
func NewDestinationAgent(c llm.Completer, s Settings, logger *zap.Logger) *Specialist {
	return newSpecialist(types.AgentDestination,
		[]tools.Name{tools.GetDestinationInfo, tools.GetWeather},
		destinationPrompt,
		func(t *Turn) []tools.Invocation {
			if t.Slots.Destination == "" {
				return nil
			}
			city := tools.Params{"city": t.Slots.Destination}
			return []tools.Invocation{
				{Tool: tools.GetDestinationInfo, Params: city},
				{Tool: tools.GetWeather, Params: city},
			}
		}, c, s, logger)
}

// NewItineraryAgent drafts a plan and attaches destination facts.
func NewItineraryAgent(c llm.Completer, s Settings, logger *zap.Logger) *Specialist {
	return newSpecialist(types.AgentItinerary,
		[]tools.Name{tools.BuildItinerary, tools.GetDestinationInfo},
		itineraryPrompt,
		func(t *Turn) []tools.Invocation {
			if t.Slots.Destination == "" {
				return nil
			}
			params := tools.Params{"city": t.Slots.Destination}
			if days := tripDays(t.Slots); days > 0 {
				params["days"] = days
			}
			return []tools.Invocation{
				{Tool: tools.BuildItinerary, Params: params},
				{Tool: tools.GetDestinationInfo, Params: tools.Params{"city": t.Slots.Destination}},
			}
		}, c, s, logger)
}

func tripDays(s Slots) int {
	if s.Days > 0 {
		return s.Days
	}
	if s.Nights > 0 {
		return s.Nights + 1
	}
	return 0
}

// Defaults builds the five specialists and the general node.
func Defaults(c llm.Completer, s Settings, logger *zap.Logger) []Node {
	return []Node{
		NewFlightAgent(c, s, logger),
		NewAccommodationAgent(c, s, logger),
		NewBudgetAgent(c, s, logger),
		NewDestinationAgent(c, s, logger),
		NewItineraryAgent(c, s, logger),
		NewGeneral(c, s, logger),
	}
}
