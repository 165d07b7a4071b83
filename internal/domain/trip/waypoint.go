package trip

import (
	"strings"
	"time"

	"boatnav/internal/domain/geo"
)

// Waypoint is a planned stop. Queue order is navigation order.
type Waypoint struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewWaypoint builds a waypoint with a validated position.
func NewWaypoint(id string, coordinate geo.Coordinate) (Waypoint, error) {
	if err := coordinate.Validate(); err != nil {
		return Waypoint{}, err
	}
	return Waypoint{ID: strings.TrimSpace(id), Lat: coordinate.Lat, Lng: coordinate.Lng}, nil
}

// Coordinate returns the waypoint position.
func (waypoint Waypoint) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: waypoint.Lat, Lng: waypoint.Lng}
}

// TrackPoint is one recorded position of the traveled path.
type TrackPoint struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// Coordinate returns the track point position.
func (point TrackPoint) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: point.Lat, Lng: point.Lng}
}
