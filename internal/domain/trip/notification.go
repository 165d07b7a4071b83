package trip

import "time"

// Level is the severity of a user-facing notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification codes emitted by the navigation engine.
const (
	CodeWaypointApproached   = "waypoint_approached"
	CodeDestinationReached   = "destination_reached"
	CodeWaypointOnLand       = "waypoint_on_land"
	CodeValidatorUnavailable = "validator_unavailable"
	CodeRouteEmpty           = "route_empty"
	CodePositionUnknown      = "position_unknown"
	CodeTransportFailed      = "transport_failed"
	CodeTransportConnected   = "transport_connected"
	CodeTransportLost        = "transport_lost"
	CodeTripStarted          = "trip_started"
	CodeTripEnded            = "trip_ended"
	CodeAlertRaised          = "alert_raised"
)

// Notification is a short, user-facing message (a toast on the dashboard).
type Notification struct {
	Level   Level     `json:"level"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	TripID  string    `json:"trip_id,omitempty"`
	At      time.Time `json:"at"`
}
