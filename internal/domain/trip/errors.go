package trip

import "errors"

var (
	ErrTripActive       = errors.New("trip is active: route cannot be changed")
	ErrTripNotActive    = errors.New("no active trip")
	ErrNoWaypoints      = errors.New("route needs at least one waypoint")
	ErrWaypointNotFound = errors.New("waypoint not found")
	ErrPositionUnknown  = errors.New("current position is unknown")
	ErrEmptyTripID      = errors.New("trip id cannot be empty")
)
