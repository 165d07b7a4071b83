package contracts

import "time"

// WSEvent is pushed to dashboard websocket clients.
type WSEvent struct {
	Type string    `json:"type"` // "notification" | "trip_state" | "alerts"
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

// Dashboard event types
const (
	WSEventNotification = "notification"
	WSEventTripState    = "trip_state"
	WSEventAlerts       = "alerts"
)
