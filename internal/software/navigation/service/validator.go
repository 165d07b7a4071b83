package service

import (
	"context"

	"boatnav/internal/domain/geo"
	"boatnav/internal/domain/trip"
	"boatnav/internal/ports"
)

// ValidateAndAdd checks the candidate against the water service and applies the verdict policy:
// accepted and validation-unavailable points are appended, points on land are dropped.
// Concurrent calls are not serialised; the route grows in completion order.
func (engine *Engine) ValidateAndAdd(ctx context.Context, at geo.Coordinate) (ports.AddWaypointResult, error) {
	if err := at.Validate(); err != nil {
		return ports.AddWaypointResult{}, err
	}

	// checked before the lookup and again at append time
	engine.mu.Lock()
	active := engine.state.IsActive()
	engine.mu.Unlock()
	if active {
		return ports.AddWaypointResult{}, trip.ErrTripActive
	}

	verdict := engine.validate(ctx, at)
	engine.metrics.ValidatorVerdicts.WithLabelValues(string(verdict)).Inc()

	if !verdict.Appends() {
		engine.logger.Info(ctx, "waypoint_rejected", "Waypoint is on land", map[string]any{"lat": at.Lat, "lng": at.Lng})
		engine.apply(ctx, effects{notes: []trip.Notification{
			engine.notification(trip.LevelError, trip.CodeWaypointOnLand, "This point is on land. Choose a point on the water.", ""),
		}})
		return ports.AddWaypointResult{Verdict: verdict}, nil
	}

	waypoint, err := engine.appendWaypoint(at)
	if err != nil {
		return ports.AddWaypointResult{Verdict: verdict}, err
	}

	fx := effects{stateChanged: true}
	if verdict == ports.VerdictValidationUnavailable {
		fx.notes = append(fx.notes, engine.notification(trip.LevelInfo, trip.CodeValidatorUnavailable,
			"Could not check whether the point is on water; it was added anyway.", ""))
	}

	engine.logger.Info(ctx, "waypoint_added", "Waypoint added to route", map[string]any{
		"waypoint_id": waypoint.ID,
		"verdict":     verdict,
		"lat":         waypoint.Lat,
		"lng":         waypoint.Lng,
	})
	engine.apply(ctx, fx)
	return ports.AddWaypointResult{Verdict: verdict, Waypoint: &waypoint}, nil
}

// validate maps the lookup outcome onto a verdict; lookup failures fail open.
func (engine *Engine) validate(ctx context.Context, at geo.Coordinate) ports.Verdict {
	water, err := engine.water.IsWater(ctx, at.Lat, at.Lng)
	switch {
	case err != nil:
		engine.logger.Error(ctx, "water_check_failed", "Water validation unavailable; accepting waypoint", err,
			map[string]any{"lat": at.Lat, "lng": at.Lng})
		return ports.VerdictValidationUnavailable
	case water:
		return ports.VerdictAccepted
	default:
		return ports.VerdictRejectedOnLand
	}
}
