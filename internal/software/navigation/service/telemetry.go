package service

import (
	"context"
	"errors"
	"time"

	"boatnav/internal/general/contracts"
	"boatnav/internal/ports"
)

// syncTelemetryLocked runs the telemetry loop exactly while a trip is Active and the transport is connected.
func (engine *Engine) syncTelemetryLocked() {
	want := engine.state.IsActive() && engine.transportStatus == ports.TransportConnected
	running := engine.telemetryStop != nil

	switch {
	case want && !running:
		stop := make(chan struct{})
		engine.telemetryStop = stop
		go engine.telemetryLoop(stop, engine.state.TripID)
	case !want && running:
		engine.stopTelemetryLocked()
	}
}

func (engine *Engine) stopTelemetryLocked() {
	if engine.telemetryStop != nil {
		close(engine.telemetryStop)
		engine.telemetryStop = nil
	}
}

// telemetryLoop publishes on a fixed ticker; each tick reads the state current at fire time.
func (engine *Engine) telemetryLoop(stop <-chan struct{}, tripID string) {
	ticker := time.NewTicker(engine.cfg.TelemetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			engine.publishTelemetry(stop, tripID)
		}
	}
}

func (engine *Engine) publishTelemetry(stop <-chan struct{}, tripID string) {
	engine.mu.Lock()
	select {
	case <-stop:
		engine.mu.Unlock()
		return
	default:
	}
	if !engine.state.IsActive() || engine.state.TripID != tripID {
		engine.mu.Unlock()
		return
	}
	msg := engine.telemetryLocked()
	engine.mu.Unlock()

	ctx := engine.logger.WithTripID(context.Background(), tripID)
	err := engine.transport.Publish(ctx, contracts.TelemetryTopic(engine.cfg.BoatID), msg)
	switch {
	case err == nil:
		engine.metrics.TelemetryPublished.Inc()
	case errors.Is(err, ports.ErrNotConnected):
		// the status callback stops the loop
	default:
		engine.metrics.TelemetryFailed.Inc()
	}
}

func (engine *Engine) telemetryLocked() contracts.TelemetryMessage {
	snapshot := engine.snapshot
	return contracts.TelemetryMessage{
		TripID:                 engine.state.TripID,
		Timestamp:              contracts.Timestamp(engine.now()),
		Coordinates:            contracts.GeoPoint{Lat: snapshot.Lat, Lng: snapshot.Lng},
		SpeedKPH:               snapshot.SpeedKPH,
		Heading:                snapshot.Heading,
		CourseToSteer:          engine.state.CourseToSteer,
		DistanceToNextWaypoint: engine.state.DistanceToNextKm,
		RPM:                    snapshot.RPM,
		Temperature:            snapshot.Temperature,
		WindSpeed:              snapshot.WindSpeed,
		CurrentDraw:            snapshot.CurrentDraw,
		Battery: contracts.Battery{
			Percentage: snapshot.BatteryPercentage,
			Voltage:    snapshot.BatteryVoltage,
		},
	}
}
