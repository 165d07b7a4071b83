package contracts

// PathPoint is one recorded position of the traveled path.
type PathPoint struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Timestamp string  `json:"timestamp"` // ISO-8601
}

// TripLogMessage is published once when a trip ends.
// Topic: "boats/{boatId}/trip/log".
type TripLogMessage struct {
	TripID          string      `json:"tripId"`
	EndTime         string      `json:"endTime"` // ISO-8601
	TotalDistanceKm float64     `json:"totalDistanceKm"`
	TraveledPath    []PathPoint `json:"traveledPath"`
}
