package service

import (
	"context"
	"errors"

	"boatnav/internal/domain/trip"
	"boatnav/internal/ports"
)

// publication is one broker message produced by a state transition.
type publication struct {
	topic   string
	payload any
	tripID  string
	action  string
}

// effects collects what a locked transition wants done once the lock is released.
type effects struct {
	publications []publication
	notes        []trip.Notification
	tripEnded    bool
	stateChanged bool
}

func (fx *effects) merge(other effects) {
	fx.publications = append(fx.publications, other.publications...)
	fx.notes = append(fx.notes, other.notes...)
	fx.tripEnded = fx.tripEnded || other.tripEnded
	fx.stateChanged = fx.stateChanged || other.stateChanged
}

// apply runs the side effects in order: publishes, notifications, deferred disconnect, state fan-out.
func (engine *Engine) apply(ctx context.Context, fx effects) {
	// a finished HTTP request must not cut the trip log short
	ctx = context.WithoutCancel(ctx)

	for _, p := range fx.publications {
		pubCtx := engine.logger.WithTripID(ctx, p.tripID)
		if err := engine.transport.Publish(pubCtx, p.topic, p.payload); err != nil {
			if !errors.Is(err, ports.ErrNotConnected) {
				engine.logger.Error(pubCtx, p.action+"_publish_failed", "Failed to publish trip message", err,
					map[string]any{"topic": p.topic})
			}
			continue
		}
		engine.logger.Info(pubCtx, p.action+"_published", "Published trip message", map[string]any{"topic": p.topic})
	}

	for _, n := range fx.notes {
		engine.notifier.Notify(ctx, n)
	}

	// publishes above are confirmed before the grace period starts
	if fx.tripEnded {
		engine.scheduleDisconnect()
	}

	if fx.stateChanged {
		engine.mu.Lock()
		view := engine.viewLocked()
		listeners := append([]func(ports.TripView){}, engine.stateListeners...)
		engine.mu.Unlock()

		for _, fn := range listeners {
			fn(view)
		}
	}
}
