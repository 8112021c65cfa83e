package types

// Category is one of the closed set of intent categories.
type Category string

const (
	CategoryFlight        Category = "flight"
	CategoryAccommodation Category = "accommodation"
	CategoryBudget        Category = "budget"
	CategoryDestination   Category = "destination"
	CategoryItinerary     Category = "itinerary"
	CategoryGeneral       Category = "general"
)

// CategoryPriority is the fixed tie-break order, highest priority first.
var CategoryPriority = []Category{
	CategoryFlight,
	CategoryAccommodation,
	CategoryBudget,
	CategoryDestination,
	CategoryItinerary,
	CategoryGeneral,
}

// Valid reports whether c is part of the closed category set.
func (c Category) Valid() bool {
	for _, known := range CategoryPriority {
		if c == known {
			return true
		}
	}
	return false
}

// Specialized reports whether c has a dedicated agent.
func (c Category) Specialized() bool {
	return c.Valid() && c != CategoryGeneral
}

// Agent returns the agent that handles c.
func (c Category) Agent() AgentID {
	if !c.Specialized() {
		return AgentGeneral
	}
	return AgentID(string(c) + "_agent")
}

// AgentID identifies an agent node.
type AgentID string

const (
	AgentFlight        AgentID = "flight_agent"
	AgentAccommodation AgentID = "accommodation_agent"
	AgentBudget        AgentID = "budget_agent"
	AgentDestination   AgentID = "destination_agent"
	AgentItinerary     AgentID = "itinerary_agent"
	AgentGeneral       AgentID = "general"
)

// AllAgents lists every agent id the coordinator must be able to dispatch to.
var AllAgents = []AgentID{
	AgentFlight,
	AgentAccommodation,
	AgentBudget,
	AgentDestination,
	AgentItinerary,
	AgentGeneral,
}
