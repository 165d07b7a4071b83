package service

import (
	"context"
	"time"

	"boatnav/internal/domain/trip"
	"boatnav/internal/general/contracts"
)

// StartTrip moves Planning -> Active, connects the broker and announces the planned route.
// A failed connect leaves the trip Active; telemetry flows once the transport reports connected.
func (engine *Engine) StartTrip(ctx context.Context) (string, error) {
	engine.mu.Lock()
	if engine.state.IsActive() {
		engine.mu.Unlock()
		return "", trip.ErrTripActive
	}
	if len(engine.state.Waypoints) == 0 {
		engine.mu.Unlock()
		engine.apply(ctx, effects{notes: []trip.Notification{
			engine.notification(trip.LevelWarning, trip.CodeRouteEmpty, "Add at least one point to the route to start a trip.", ""),
		}})
		return "", trip.ErrNoWaypoints
	}
	if !engine.hasSnapshot || !engine.snapshot.HasPosition() {
		engine.mu.Unlock()
		engine.apply(ctx, effects{notes: []trip.Notification{
			engine.notification(trip.LevelWarning, trip.CodePositionUnknown, "Boat position is unknown; wait for sensor data before starting.", ""),
		}})
		return "", trip.ErrPositionUnknown
	}

	// a trip started within the grace period keeps the link
	if engine.disconnectTimer != nil {
		engine.disconnectTimer.Stop()
		engine.disconnectTimer = nil
	}
	engine.linkGen++

	now := engine.now().UTC()
	tripID := engine.newID()
	if err := engine.state.Start(tripID, engine.snapshot.Position(), now); err != nil {
		engine.mu.Unlock()
		return "", err
	}
	started := contracts.TripStatusMessage{
		TripID:       tripID,
		Status:       contracts.TripStatusStarted,
		Timestamp:    contracts.Timestamp(now),
		PlannedRoute: plannedRoute(engine.state.Waypoints),
	}
	engine.metrics.TripsStarted.Inc()
	engine.metrics.TripActive.Set(1)
	engine.metrics.DistanceTraveledKm.Set(0)
	engine.syncTelemetryLocked()
	waypoints := len(engine.state.Waypoints)
	engine.mu.Unlock()

	ctx = engine.logger.WithTripID(ctx, tripID)
	engine.logger.Info(ctx, "trip_started", "Trip started", map[string]any{"waypoints": waypoints})

	fx := effects{stateChanged: true}
	if err := engine.connect(ctx); err != nil {
		engine.logger.Error(ctx, "transport_connect_failed", "Broker connection failed; trip continues without telemetry", err, nil)
		fx.notes = append(fx.notes, engine.notification(trip.LevelError, trip.CodeTransportFailed,
			"Could not connect to the message broker. The trip continues locally.", tripID))
	}

	fx.publications = append(fx.publications, publication{
		topic:   contracts.TripStatusTopic(engine.cfg.BoatID),
		payload: started,
		tripID:  tripID,
		action:  "trip_status_started",
	})
	fx.notes = append(fx.notes, engine.notification(trip.LevelInfo, trip.CodeTripStarted, "Trip started.", tripID))
	engine.apply(ctx, fx)

	return tripID, nil
}

// connect opens the broker link under linkMu.
func (engine *Engine) connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), engine.cfg.ConnectTimeout)
	defer cancel()

	engine.linkMu.Lock()
	defer engine.linkMu.Unlock()
	return engine.transport.Connect(ctx)
}

// EndTrip ends the active trip, publishes its log and completed status, then schedules the disconnect.
func (engine *Engine) EndTrip(ctx context.Context) error {
	engine.mu.Lock()
	fx, err := engine.endTripLocked()
	engine.mu.Unlock()
	if err != nil {
		return err
	}

	fx.notes = append(fx.notes, engine.notification(trip.LevelInfo, trip.CodeTripEnded, "Trip ended.", tripIDOf(fx)))
	engine.apply(ctx, fx)
	return nil
}

// endTripLocked flips the state to Planning and stops telemetry before returning,
// so nothing else is published or recorded for the ended trip.
func (engine *Engine) endTripLocked() (effects, error) {
	path := engine.state.Clone().TraveledPath
	distance := engine.state.DistanceTraveledKm

	tripID, err := engine.state.End()
	if err != nil {
		return effects{}, err
	}
	engine.stopTelemetryLocked()
	engine.metrics.TripsCompleted.Inc()
	engine.metrics.TripActive.Set(0)

	now := engine.now().UTC()
	engine.logger.Info(engine.logger.WithTripID(context.Background(), tripID), "trip_ended", "Trip ended",
		map[string]any{"distance_km": distance, "path_points": len(path)})

	return effects{
		publications: []publication{
			{
				topic: contracts.TripLogTopic(engine.cfg.BoatID),
				payload: contracts.TripLogMessage{
					TripID:          tripID,
					EndTime:         contracts.Timestamp(now),
					TotalDistanceKm: distance,
					TraveledPath:    pathPoints(path),
				},
				tripID: tripID,
				action: "trip_log",
			},
			{
				topic: contracts.TripStatusTopic(engine.cfg.BoatID),
				payload: contracts.TripStatusMessage{
					TripID:    tripID,
					Status:    contracts.TripStatusCompleted,
					Timestamp: contracts.Timestamp(now),
				},
				tripID: tripID,
				action: "trip_status_completed",
			},
		},
		tripEnded:    true,
		stateChanged: true,
	}, nil
}

// scheduleDisconnect drops the broker link after the grace period unless a new trip starts first.
func (engine *Engine) scheduleDisconnect() {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if engine.state.IsActive() {
		return
	}
	if engine.disconnectTimer != nil {
		engine.disconnectTimer.Stop()
	}

	gen := engine.linkGen
	engine.disconnectTimer = time.AfterFunc(engine.cfg.DisconnectGrace, func() {
		engine.linkMu.Lock()
		defer engine.linkMu.Unlock()

		engine.mu.Lock()
		stale := engine.linkGen != gen || engine.state.IsActive()
		if !stale {
			engine.disconnectTimer = nil
		}
		engine.mu.Unlock()
		if stale {
			return
		}

		engine.logger.Info(context.Background(), "transport_disconnect", "Disconnecting broker after trip end",
			map[string]any{"grace_ms": engine.cfg.DisconnectGrace.Milliseconds()})
		engine.transport.Disconnect()
	})
}

func plannedRoute(waypoints []trip.Waypoint) []contracts.RouteWaypoint {
	out := make([]contracts.RouteWaypoint, 0, len(waypoints))
	for _, w := range waypoints {
		out = append(out, contracts.RouteWaypoint{ID: w.ID, Lat: w.Lat, Lng: w.Lng})
	}
	return out
}

func pathPoints(path []trip.TrackPoint) []contracts.PathPoint {
	out := make([]contracts.PathPoint, 0, len(path))
	for _, p := range path {
		out = append(out, contracts.PathPoint{Lat: p.Lat, Lng: p.Lng, Timestamp: contracts.Timestamp(p.Timestamp)})
	}
	return out
}

// tripIDOf returns the trip id carried by the first publication of fx.
func tripIDOf(fx effects) string {
	if len(fx.publications) == 0 {
		return ""
	}
	return fx.publications[0].tripID
}
