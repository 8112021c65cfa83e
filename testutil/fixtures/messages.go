// Package fixtures provides canned travel messages for tests.
package fixtures

import "github.com/BaSui01/tripflow/types"

// Messages holds one strong-signal message per specialised category.
var Messages = map[types.Category]string{
	types.CategoryFlight:        "I want to book a flight to Paris",
	types.CategoryAccommodation: "Find me a hotel in Rome for 3 nights, need a room to stay",
	types.CategoryBudget:        "How much is the budget and cost for 5 days in Tokyo, is it cheap or expensive?",
	types.CategoryDestination:   "What are the best places to visit in Lisbon? Things to see, weather and museum tips for my destination",
	types.CategoryItinerary:     "Plan my trip: a 3-day itinerary for Kyoto with a day-by-day schedule",
}

// Greeting carries no travel signal.
const Greeting = "Hello, how are you?"

// Message builds a user message for session and user ids.
func Message(sessionID, userID, content string) types.Message {
	return types.NewMessage(sessionID, userID, content)
}
