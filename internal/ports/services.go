package ports

import (
	"context"

	"boatnav/internal/domain/geo"
	"boatnav/internal/domain/sensor"
	"boatnav/internal/domain/trip"
	"boatnav/internal/general/contracts"
)

// WaterChecker answers whether a coordinate lies on navigable water.
type WaterChecker interface {
	IsWater(ctx context.Context, lat, lng float64) (bool, error)
}

// Notifier delivers user-facing notifications (dashboard toasts).
type Notifier interface {
	Notify(ctx context.Context, n trip.Notification)
}

// ----- DTOs for the Navigation Service -----

// Verdict is the outcome of a waypoint validation.
type Verdict string

const (
	VerdictAccepted              Verdict = "accepted"
	VerdictRejectedOnLand        Verdict = "rejected_on_land"
	VerdictValidationUnavailable Verdict = "validation_unavailable"
)

// Appends reports whether the waypoint is added to the route under this verdict.
func (verdict Verdict) Appends() bool {
	return verdict == VerdictAccepted || verdict == VerdictValidationUnavailable
}

// AddWaypointResult is returned by NavigationService.ValidateAndAdd.
type AddWaypointResult struct {
	Verdict  Verdict        `json:"verdict"`
	Waypoint *trip.Waypoint `json:"waypoint,omitempty"`
}

// TripView is the read model of the engine exposed to the dashboard.
type TripView struct {
	trip.State
	BoatID          string          `json:"boat_id"`
	TransportStatus TransportStatus `json:"transport_status"`
	Sensor          sensor.Snapshot `json:"sensor"`
	DataUnavailable bool            `json:"data_unavailable"`
	Alerts          []Alert         `json:"alerts"`
}

// Alert is a deduplicated sensor condition warning.
type Alert struct {
	ID      string     `json:"id"`
	Message string     `json:"message"`
	Level   trip.Level `json:"level"`
}

// ----- Navigation Service Interface -----

// NavigationService is the boundary of the trip/navigation engine.
type NavigationService interface {
	AddWaypoint(ctx context.Context, at geo.Coordinate) (trip.Waypoint, error)
	ValidateAndAdd(ctx context.Context, at geo.Coordinate) (AddWaypointResult, error)
	RemoveWaypoint(ctx context.Context, id string) error
	ClearRoute(ctx context.Context) error
	StartTrip(ctx context.Context) (string, error)
	EndTrip(ctx context.Context) error
	HandleSnapshot(ctx context.Context, snapshot sensor.Snapshot)
	View() TripView
	Alerts() []Alert
	DismissAlert(id string) bool
}

// ---------------------------------------------------------------------------------------------------------------

// ----- Recorder Service Interface -----

// RecorderService archives trip messages consumed from the broker.
type RecorderService interface {
	RecordStatus(ctx context.Context, boatID string, msg contracts.TripStatusMessage) error
	RecordLog(ctx context.Context, boatID string, msg contracts.TripLogMessage) error
	Trip(ctx context.Context, tripID string) (*TripRecord, error)
}
