package service

import (
	"context"

	"boatnav/internal/domain/geo"
	"boatnav/internal/domain/trip"
)

// AddWaypoint appends a waypoint without validation (Planning only).
func (engine *Engine) AddWaypoint(ctx context.Context, at geo.Coordinate) (trip.Waypoint, error) {
	if err := at.Validate(); err != nil {
		return trip.Waypoint{}, err
	}

	waypoint, err := engine.appendWaypoint(at)
	if err != nil {
		return trip.Waypoint{}, err
	}

	engine.logger.Info(ctx, "waypoint_added", "Waypoint added to route", map[string]any{
		"waypoint_id": waypoint.ID,
		"lat":         waypoint.Lat,
		"lng":         waypoint.Lng,
	})
	engine.apply(ctx, effects{stateChanged: true})
	return waypoint, nil
}

// appendWaypoint re-checks the phase at append time.
func (engine *Engine) appendWaypoint(at geo.Coordinate) (trip.Waypoint, error) {
	waypoint, err := trip.NewWaypoint(engine.newID(), at)
	if err != nil {
		return trip.Waypoint{}, err
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()
	if err := engine.state.AddWaypoint(waypoint); err != nil {
		return trip.Waypoint{}, err
	}
	return waypoint, nil
}

// RemoveWaypoint drops a waypoint by id (Planning only).
func (engine *Engine) RemoveWaypoint(ctx context.Context, id string) error {
	engine.mu.Lock()
	err := engine.state.RemoveWaypoint(id)
	engine.mu.Unlock()
	if err != nil {
		return err
	}

	engine.logger.Info(ctx, "waypoint_removed", "Waypoint removed from route", map[string]any{"waypoint_id": id})
	engine.apply(ctx, effects{stateChanged: true})
	return nil
}

// ClearRoute empties waypoints, traveled path and distance (Planning only).
func (engine *Engine) ClearRoute(ctx context.Context) error {
	engine.mu.Lock()
	err := engine.state.ClearRoute()
	if err == nil {
		engine.metrics.DistanceTraveledKm.Set(0)
	}
	engine.mu.Unlock()
	if err != nil {
		return err
	}

	engine.logger.Info(ctx, "route_cleared", "Route cleared", nil)
	engine.apply(ctx, effects{stateChanged: true})
	return nil
}
