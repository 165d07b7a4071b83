package ports

import (
	"context"
	"errors"
	"time"

	"boatnav/internal/domain/trip"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ErrTripNotFound is returned when no archived trip has the requested id.
var ErrTripNotFound = errors.New("trip not found")

// TripRecord is an archived trip row.
type TripRecord struct {
	TripID          string          `json:"trip_id"`
	BoatID          string          `json:"boat_id"`
	Status          string          `json:"status"`
	StartedAt       *time.Time      `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at"`
	EndedAt         *time.Time      `json:"ended_at"`
	TotalDistanceKm *float64        `json:"total_distance_km"`
	PlannedRoute    []trip.Waypoint `json:"planned_route"`
}

// TripArchiveRepository defines the methods for archiving trips.
type TripArchiveRepository interface {
	UpsertStarted(ctx context.Context, tripID, boatID string, startedAt time.Time, route []trip.Waypoint) error
	MarkCompleted(ctx context.Context, tripID, boatID string, completedAt time.Time) error
	SaveSummary(ctx context.Context, tripID, boatID string, endedAt time.Time, totalDistanceKm float64) error
	GetByID(ctx context.Context, tripID string) (*TripRecord, error)
}

// TripPathRepository defines the methods for archiving traveled paths.
type TripPathRepository interface {
	ReplacePath(ctx context.Context, tripID string, points []trip.TrackPoint) (int64, error)
}
