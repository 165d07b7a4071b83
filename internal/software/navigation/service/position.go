package service

import (
	"context"
	"fmt"

	"boatnav/internal/domain/sensor"
	"boatnav/internal/domain/trip"
)

// HandleSnapshot is the sensor sink. It stores the snapshot, evaluates alerts and, while a trip
// is active and the position is trusted, advances the trip in one synchronous step.
func (engine *Engine) HandleSnapshot(ctx context.Context, snapshot sensor.Snapshot) {
	var fx effects

	engine.mu.Lock()
	engine.snapshot = snapshot
	engine.hasSnapshot = true

	for _, alert := range engine.alerts.Evaluate(snapshot) {
		fx.notes = append(fx.notes, engine.notification(alert.Level, trip.CodeAlertRaised, alert.Message, engine.state.TripID))
	}

	if engine.state.IsActive() && snapshot.HasPosition() {
		fx.merge(engine.advanceLocked(ctx, snapshot))
	}
	engine.mu.Unlock()

	fx.stateChanged = true
	engine.apply(ctx, fx)
}

func (engine *Engine) advanceLocked(ctx context.Context, snapshot sensor.Snapshot) effects {
	var fx effects
	tripID := engine.state.TripID

	result, err := engine.state.Advance(snapshot.Position(), snapshot.Heading, engine.now().UTC(), engine.cfg.ArrivalThresholdKm)
	if err != nil {
		engine.logger.Warn(engine.logger.WithTripID(ctx, tripID), "position_skipped", "Position update skipped", err, nil)
		return fx
	}
	engine.metrics.DistanceTraveledKm.Set(engine.state.DistanceTraveledKm)

	for _, reached := range result.Reached {
		engine.metrics.WaypointsReached.Inc()
		engine.logger.Info(engine.logger.WithTripID(ctx, tripID), "waypoint_reached", "Waypoint reached",
			map[string]any{"waypoint_id": reached.ID, "remaining": len(engine.state.Waypoints)})
		fx.notes = append(fx.notes, engine.notification(trip.LevelSuccess, trip.CodeWaypointApproached,
			fmt.Sprintf("Waypoint reached. Approaching next point (%d left).", len(engine.state.Waypoints)), tripID))
	}

	if result.Completed {
		fx.notes = append(fx.notes, engine.notification(trip.LevelSuccess, trip.CodeDestinationReached,
			"Destination reached.", tripID))
		ended, err := engine.endTripLocked()
		if err == nil {
			fx.merge(ended)
		}
	}
	return fx
}
