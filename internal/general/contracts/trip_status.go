package contracts

// RouteWaypoint is a planned waypoint as published in plannedRoute.
type RouteWaypoint struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TripStatusMessage announces trip start and completion.
// Topic: "boats/{boatId}/trip/status".
type TripStatusMessage struct {
	TripID       string          `json:"tripId"`
	Status       string          `json:"status"`    // started|completed
	Timestamp    string          `json:"timestamp"` // ISO-8601
	PlannedRoute []RouteWaypoint `json:"plannedRoute,omitempty"`
}
