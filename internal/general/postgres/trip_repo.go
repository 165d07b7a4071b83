package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"boatnav/internal/domain/trip"
	"boatnav/internal/ports"

	"github.com/jackc/pgx/v5"
)

// TripRepo archives trips using pgx and plain SQL. Status and log messages
// arrive on separate queues, so every write upserts the row and never moves
// a completed trip back to started.
type TripRepo struct{}

// NewTripRepo constructs a new TripRepo.
func NewTripRepo() *TripRepo {
	return &TripRepo{}
}

var (
	_ ports.TripArchiveRepository = (*TripRepo)(nil)
	_ ports.TripPathRepository    = (*TripRepo)(nil)
)

// UpsertStarted records the start of a trip and its planned route.
func (repo *TripRepo) UpsertStarted(ctx context.Context, tripID, boatID string, startedAt time.Time, route []trip.Waypoint) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if route == nil {
		route = []trip.Waypoint{}
	}
	planned, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("encode planned route: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO trips (trip_id, boat_id, status, started_at, planned_route)
		VALUES ($1, $2, 'started', $3, $4::jsonb)
		ON CONFLICT (trip_id) DO UPDATE SET
			boat_id       = EXCLUDED.boat_id,
			started_at    = EXCLUDED.started_at,
			planned_route = EXCLUDED.planned_route,
			updated_at    = now()
	`, tripID, boatID, startedAt.UTC(), string(planned))
	if err != nil {
		return fmt.Errorf("upsert started trip: %w", err)
	}
	return nil
}

// MarkCompleted flips the trip to completed, creating the row if the start was never seen.
func (repo *TripRepo) MarkCompleted(ctx context.Context, tripID, boatID string, completedAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO trips (trip_id, boat_id, status, completed_at)
		VALUES ($1, $2, 'completed', $3)
		ON CONFLICT (trip_id) DO UPDATE SET
			status       = 'completed',
			completed_at = EXCLUDED.completed_at,
			updated_at   = now()
	`, tripID, boatID, completedAt.UTC())
	if err != nil {
		return fmt.Errorf("mark trip completed: %w", err)
	}
	return nil
}

// SaveSummary stores the end time and total distance from the trip log.
func (repo *TripRepo) SaveSummary(ctx context.Context, tripID, boatID string, endedAt time.Time, totalDistanceKm float64) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	// a log is only published for an ended trip
	_, err = tx.Exec(ctx, `
		INSERT INTO trips (trip_id, boat_id, status, ended_at, total_distance_km)
		VALUES ($1, $2, 'completed', $3, $4)
		ON CONFLICT (trip_id) DO UPDATE SET
			ended_at          = EXCLUDED.ended_at,
			total_distance_km = EXCLUDED.total_distance_km,
			updated_at        = now()
	`, tripID, boatID, endedAt.UTC(), totalDistanceKm)
	if err != nil {
		return fmt.Errorf("save trip summary: %w", err)
	}
	return nil
}

// ReplacePath swaps the stored path of a trip for points, so redelivered logs do not duplicate rows.
func (repo *TripRepo) ReplacePath(ctx context.Context, tripID string, points []trip.TrackPoint) (int64, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM trip_path_points WHERE trip_id = $1`, tripID); err != nil {
		return 0, fmt.Errorf("clear trip path: %w", err)
	}
	if len(points) == 0 {
		return 0, nil
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"trip_path_points"},
		[]string{"trip_id", "seq", "lat", "lng", "recorded_at"},
		pgx.CopyFromSlice(len(points), func(i int) ([]any, error) {
			p := points[i]
			return []any{tripID, i, p.Lat, p.Lng, p.Timestamp.UTC()}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy trip path: %w", err)
	}
	return n, nil
}

// GetByID loads one archived trip.
func (repo *TripRepo) GetByID(ctx context.Context, tripID string) (*ports.TripRecord, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var (
		rec     ports.TripRecord
		planned []byte
	)
	err = tx.QueryRow(ctx, `
		SELECT trip_id, boat_id, status, started_at, completed_at, ended_at, total_distance_km, planned_route
		FROM trips
		WHERE trip_id = $1
	`, tripID).Scan(
		&rec.TripID, &rec.BoatID, &rec.Status,
		&rec.StartedAt, &rec.CompletedAt, &rec.EndedAt, &rec.TotalDistanceKm, &planned,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrTripNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trip: %w", err)
	}

	if err := json.Unmarshal(planned, &rec.PlannedRoute); err != nil {
		return nil, fmt.Errorf("decode planned route: %w", err)
	}
	return &rec, nil
}
