package service

import (
	"context"
	"sync"
	"time"

	"boatnav/internal/domain/sensor"
	"boatnav/internal/domain/trip"
	"boatnav/internal/general/logger"
	"boatnav/internal/general/metrics"
	"boatnav/internal/ports"

	"github.com/google/uuid"
)

// Config holds the engine's tunables.
type Config struct {
	BoatID             string
	TelemetryInterval  time.Duration
	DisconnectGrace    time.Duration
	ArrivalThresholdKm float64
	ConnectTimeout     time.Duration
}

func (cfg *Config) applyDefaults() {
	if cfg.TelemetryInterval <= 0 {
		cfg.TelemetryInterval = 5 * time.Second
	}
	if cfg.DisconnectGrace < 0 {
		cfg.DisconnectGrace = 0
	}
	if cfg.ArrivalThresholdKm <= 0 {
		cfg.ArrivalThresholdKm = trip.DefaultArrivalThresholdKm
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
}

// Engine owns the trip state machine. All state mutation happens under mu;
// broker and validator I/O happen outside it.
type Engine struct {
	cfg       Config
	logger    *logger.Logger
	transport ports.Transport
	water     ports.WaterChecker
	notifier  ports.Notifier
	metrics   *metrics.Navigator
	now       func() time.Time
	newID     func() string

	mu              sync.Mutex
	state           *trip.State
	snapshot        sensor.Snapshot
	hasSnapshot     bool
	alerts          *AlertBoard
	transportStatus ports.TransportStatus
	telemetryStop   chan struct{} // non-nil while the telemetry loop runs
	disconnectTimer *time.Timer
	linkGen         uint64 // bumped on trip start; stale disconnect timers check it
	stateListeners  []func(ports.TripView)

	// linkMu serialises transport Connect/Disconnect decisions
	linkMu sync.Mutex
}

var _ ports.NavigationService = (*Engine)(nil)

// NewEngine wires the engine to its collaborators and subscribes to transport status changes.
func NewEngine(
	cfg Config,
	logger *logger.Logger,
	transport ports.Transport,
	water ports.WaterChecker,
	notifier ports.Notifier,
	m *metrics.Navigator,
) *Engine {
	cfg.applyDefaults()
	if m == nil {
		m = metrics.NewNavigator(nil)
	}

	engine := &Engine{
		cfg:             cfg,
		logger:          logger,
		transport:       transport,
		water:           water,
		notifier:        notifier,
		metrics:         m,
		now:             time.Now,
		newID:           uuid.NewString,
		state:           trip.NewState(),
		alerts:          NewAlertBoard(),
		transportStatus: transport.Status(),
	}
	transport.OnStatusChange(engine.onTransportStatus)
	return engine
}

// OnStateChange registers fn, called with a fresh view after every state change.
func (engine *Engine) OnStateChange(fn func(ports.TripView)) {
	if fn == nil {
		return
	}
	engine.mu.Lock()
	engine.stateListeners = append(engine.stateListeners, fn)
	engine.mu.Unlock()
}

// View returns a read-only copy of the engine state.
func (engine *Engine) View() ports.TripView {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.viewLocked()
}

func (engine *Engine) viewLocked() ports.TripView {
	return ports.TripView{
		State:           engine.state.Clone(),
		BoatID:          engine.cfg.BoatID,
		TransportStatus: engine.transportStatus,
		Sensor:          engine.snapshot,
		DataUnavailable: !engine.hasSnapshot || engine.snapshot.Stale,
		Alerts:          engine.alerts.List(),
	}
}

// Alerts lists the active sensor alerts.
func (engine *Engine) Alerts() []ports.Alert {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.alerts.List()
}

// DismissAlert hides an alert until its condition clears.
func (engine *Engine) DismissAlert(id string) bool {
	engine.mu.Lock()
	ok := engine.alerts.Dismiss(id)
	engine.mu.Unlock()

	if ok {
		engine.apply(context.Background(), effects{stateChanged: true})
	}
	return ok
}

// Close stops the telemetry loop and any pending disconnect, then drops the broker link.
func (engine *Engine) Close() {
	engine.mu.Lock()
	engine.stopTelemetryLocked()
	if engine.disconnectTimer != nil {
		engine.disconnectTimer.Stop()
		engine.disconnectTimer = nil
	}
	engine.mu.Unlock()

	engine.linkMu.Lock()
	engine.transport.Disconnect()
	engine.linkMu.Unlock()
}

// onTransportStatus gates the telemetry loop on the broker link and tells the
// crew when the link comes up or drops mid-trip.
func (engine *Engine) onTransportStatus(status ports.TransportStatus) {
	fx := effects{stateChanged: true}

	engine.mu.Lock()
	prev := engine.transportStatus
	engine.transportStatus = status
	engine.syncTelemetryLocked()
	tripID := engine.state.TripID
	switch {
	case status == ports.TransportConnected && prev != ports.TransportConnected:
		fx.notes = append(fx.notes, engine.notification(trip.LevelInfo, trip.CodeTransportConnected,
			"Connected to the message broker.", tripID))
	case prev == ports.TransportConnected && status != ports.TransportConnected && engine.state.IsActive():
		fx.notes = append(fx.notes, engine.notification(trip.LevelError, trip.CodeTransportLost,
			"Lost connection to the message broker. Telemetry is paused.", tripID))
	}
	engine.mu.Unlock()

	if len(fx.notes) > 0 {
		engine.logger.Info(context.Background(), "transport_status_changed", "Broker link status changed",
			map[string]any{"from": prev, "to": status, "trip_id": tripID})
	}
	engine.apply(context.Background(), fx)
}

func (engine *Engine) notification(level trip.Level, code, message, tripID string) trip.Notification {
	return trip.Notification{
		Level:   level,
		Code:    code,
		Message: message,
		TripID:  tripID,
		At:      engine.now().UTC(),
	}
}
