package contracts

// TelemetryMessage is the live snapshot published while a trip is active and the broker is connected.
// Topic: "boats/{boatId}/telemetry/live".
type TelemetryMessage struct {
	TripID                 string   `json:"tripId"`
	Timestamp              string   `json:"timestamp"` // ISO-8601
	Coordinates            GeoPoint `json:"coordinates"`
	SpeedKPH               float64  `json:"speedKPH"`
	Heading                float64  `json:"heading"`
	CourseToSteer          float64  `json:"courseToSteer"`
	DistanceToNextWaypoint float64  `json:"distanceToNextWaypoint"` // km
	RPM                    float64  `json:"rpm"`
	Temperature            float64  `json:"temperature"`
	WindSpeed              float64  `json:"windSpeed"`
	CurrentDraw            float64  `json:"currentDraw"`
	Battery                Battery  `json:"battery"`
}
