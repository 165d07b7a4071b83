package sensor

import (
	"time"

	"boatnav/internal/domain/geo"
)

// Snapshot is the latest reading of the boat's sensors.
type Snapshot struct {
	Timestamp         time.Time `json:"timestamp"`
	Lat               float64   `json:"lat"`
	Lng               float64   `json:"lng"`
	PositionKnown     bool      `json:"position_known"`
	Heading           float64   `json:"heading"`
	SpeedKPH          float64   `json:"speed_kph"`
	RPM               float64   `json:"rpm"`
	Temperature       float64   `json:"temperature"`
	WindSpeed         float64   `json:"wind_speed"`
	CurrentDraw       float64   `json:"current_draw"`
	BatteryPercentage float64   `json:"battery_percentage"`
	BatteryVoltage    float64   `json:"battery_voltage"`

	// Stale marks a snapshot re-emitted after a failed fetch.
	Stale bool `json:"stale"`
}

// Position returns the reported coordinate.
func (snapshot Snapshot) Position() geo.Coordinate {
	return geo.Coordinate{Lat: snapshot.Lat, Lng: snapshot.Lng}
}

// HasPosition reports whether the position can be trusted for navigation math.
func (snapshot Snapshot) HasPosition() bool {
	return snapshot.PositionKnown && !snapshot.Stale && snapshot.Position().Valid()
}

// MarkStale returns a copy flagged as stale.
func (snapshot Snapshot) MarkStale() Snapshot {
	snapshot.Stale = true
	return snapshot
}
