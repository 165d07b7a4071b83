package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"boatnav/internal/domain/sensor"
	"boatnav/internal/domain/trip"
	"boatnav/internal/general/logger"
	"boatnav/internal/general/metrics"
	"boatnav/internal/ports"
)

// ----- transport -----

type published struct {
	topic   string
	payload any
}

type fakeTransport struct {
	mu          sync.Mutex
	status      ports.TransportStatus
	connectErr  error
	connects    int
	disconnects int
	messages    []published
	listeners   []func(ports.TransportStatus)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{status: ports.TransportDisconnected}
}

func (f *fakeTransport) Status() ports.TransportStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeTransport) OnStatusChange(fn func(ports.TransportStatus)) {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
}

func (f *fakeTransport) Connect(context.Context) error {
	f.mu.Lock()
	f.connects++
	err := f.connectErr
	already := f.status == ports.TransportConnected
	f.mu.Unlock()

	if already {
		return nil
	}
	f.setStatus(ports.TransportConnecting)
	if err != nil {
		f.setStatus(ports.TransportError)
		return err
	}
	f.setStatus(ports.TransportConnected)
	return nil
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
	f.setStatus(ports.TransportDisconnected)
}

func (f *fakeTransport) Publish(_ context.Context, topic string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != ports.TransportConnected {
		return ports.ErrNotConnected
	}
	f.messages = append(f.messages, published{topic: topic, payload: payload})
	return nil
}

// setStatus changes status and notifies listeners outside the lock, like the real adapters.
func (f *fakeTransport) setStatus(status ports.TransportStatus) {
	f.mu.Lock()
	if f.status == status {
		f.mu.Unlock()
		return
	}
	f.status = status
	listeners := append([]func(ports.TransportStatus){}, f.listeners...)
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(status)
	}
}

func (f *fakeTransport) published(topic string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []any
	for _, m := range f.messages {
		if m.topic == topic {
			out = append(out, m.payload)
		}
	}
	return out
}

func (f *fakeTransport) count(topic string) int {
	return len(f.published(topic))
}

func (f *fakeTransport) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

// ----- notifier -----

type fakeNotifier struct {
	mu    sync.Mutex
	notes []trip.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n trip.Notification) {
	f.mu.Lock()
	f.notes = append(f.notes, n)
	f.mu.Unlock()
}

func (f *fakeNotifier) withCode(code string) []trip.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []trip.Notification
	for _, n := range f.notes {
		if n.Code == code {
			out = append(out, n)
		}
	}
	return out
}

// ----- water checker -----

type waterFunc func(ctx context.Context, lat, lng float64) (bool, error)

func (f waterFunc) IsWater(ctx context.Context, lat, lng float64) (bool, error) { return f(ctx, lat, lng) }

func alwaysWater() waterFunc {
	return func(context.Context, float64, float64) (bool, error) { return true, nil }
}

// ----- engine harness -----

type harness struct {
	engine    *Engine
	transport *fakeTransport
	notifier  *fakeNotifier
	metrics   *metrics.Navigator
}

func newHarness(t *testing.T, water ports.WaterChecker, tweak ...func(*Config)) *harness {
	t.Helper()
	cfg := Config{
		BoatID:            "boat-7",
		TelemetryInterval: 20 * time.Millisecond,
		DisconnectGrace:   30 * time.Millisecond,
	}
	for _, fn := range tweak {
		fn(&cfg)
	}

	h := &harness{
		transport: newFakeTransport(),
		notifier:  &fakeNotifier{},
		metrics:   metrics.NewNavigator(nil),
	}
	h.engine = NewEngine(cfg, logger.Discard(), h.transport, water, h.notifier, h.metrics)

	var seq atomic.Int64
	h.engine.newID = func() string { return fmt.Sprintf("id-%d", seq.Add(1)) }

	t.Cleanup(h.engine.Close)
	return h
}

// healthy returns a fresh snapshot at lat/lng with no alert conditions.
func healthy(lat, lng, heading float64) sensor.Snapshot {
	return sensor.Snapshot{
		Timestamp:         time.Now().UTC(),
		Lat:               lat,
		Lng:               lng,
		PositionKnown:     true,
		Heading:           heading,
		SpeedKPH:          12,
		RPM:               1500,
		Temperature:       30,
		WindSpeed:         10,
		BatteryPercentage: 80,
		BatteryVoltage:    48,
	}
}
