// Package natsbus publishes boat messages on NATS core subjects.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"boatnav/internal/general/contracts"
	"boatnav/internal/general/logger"
	"boatnav/internal/ports"

	"github.com/nats-io/nats.go"
)

const flushTimeout = 5 * time.Second

type connectFunc func(url string, options ...nats.Option) (*nats.Conn, error)

// Transport implements ports.Transport over a nats.Conn.
// Subjects are the dotted form of the slash topics.
type Transport struct {
	url    string
	name   string
	logger *logger.Logger
	dial   connectFunc

	mu        sync.Mutex
	conn      *nats.Conn
	status    ports.TransportStatus
	gen       uint64
	listeners []func(ports.TransportStatus)
}

var _ ports.Transport = (*Transport)(nil)

func NewTransport(url, name string, logger *logger.Logger) *Transport {
	return &Transport{
		url:    url,
		name:   name,
		logger: logger,
		dial:   nats.Connect,
		status: ports.TransportDisconnected,
	}
}

func (transport *Transport) Status() ports.TransportStatus {
	transport.mu.Lock()
	defer transport.mu.Unlock()
	return transport.status
}

func (transport *Transport) OnStatusChange(fn func(ports.TransportStatus)) {
	if fn == nil {
		return
	}
	transport.mu.Lock()
	transport.listeners = append(transport.listeners, fn)
	transport.mu.Unlock()
}

func (transport *Transport) Connect(ctx context.Context) error {
	transport.mu.Lock()
	if transport.conn != nil {
		transport.mu.Unlock()
		return nil
	}
	transport.gen++
	gen := transport.gen
	transport.mu.Unlock()

	transport.setStatus(gen, ports.TransportConnecting)

	conn, err := transport.dial(transport.url, transport.options(ctx, gen)...)
	if err != nil {
		transport.logger.Error(ctx, "nats_connect_failed", "Failed to connect to NATS", err, map[string]any{"url": transport.url})
		transport.setStatus(gen, ports.TransportError)
		return fmt.Errorf("nats transport connect: %w", err)
	}

	transport.mu.Lock()
	if transport.gen != gen {
		transport.mu.Unlock()
		conn.Close()
		return nil
	}
	transport.conn = conn
	transport.mu.Unlock()

	transport.logger.Info(ctx, "nats_connected", "NATS connection established", map[string]any{"url": conn.ConnectedUrlRedacted()})
	transport.setStatus(gen, ports.TransportConnected)
	return nil
}

// options maps nats connection events onto the transport status of generation gen.
func (transport *Transport) options(ctx context.Context, gen uint64) []nats.Option {
	opts := []nats.Option{
		nats.Name(transport.name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				transport.logger.Warn(context.Background(), "nats_disconnected", "NATS connection lost", err, nil)
			}
			transport.setStatus(gen, ports.TransportConnecting)
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			transport.setStatus(gen, ports.TransportConnected)
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			transport.setStatus(gen, ports.TransportDisconnected)
		}),
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}
	return opts
}

// Disconnect drains pending publishes and closes the connection.
func (transport *Transport) Disconnect() {
	transport.mu.Lock()
	conn := transport.conn
	transport.conn = nil
	transport.gen++
	gen := transport.gen
	transport.mu.Unlock()

	if conn != nil {
		if err := conn.Drain(); err != nil {
			conn.Close()
		}
	}
	transport.setStatus(gen, ports.TransportDisconnected)
}

// Publish sends payload as JSON and flushes so the server has it before returning.
func (transport *Transport) Publish(ctx context.Context, topic string, payload any) error {
	transport.mu.Lock()
	conn := transport.conn
	status := transport.status
	transport.mu.Unlock()

	if conn == nil || status != ports.TransportConnected {
		transport.logger.Warn(ctx, "publish_skipped", "Transport not connected; message dropped", ports.ErrNotConnected,
			map[string]any{"topic": topic, "status": status})
		return ports.ErrNotConnected
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}

	subject := contracts.RoutingKey(topic)
	if err := conn.Publish(subject, body); err != nil {
		transport.logger.Error(ctx, "publish_failed", "Failed to publish message", err, map[string]any{"subject": subject})
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := conn.FlushWithContext(flushCtx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}
	return nil
}

func (transport *Transport) setStatus(gen uint64, status ports.TransportStatus) {
	transport.mu.Lock()
	if gen != transport.gen || transport.status == status {
		transport.mu.Unlock()
		return
	}
	transport.status = status
	listeners := append([]func(ports.TransportStatus){}, transport.listeners...)
	transport.mu.Unlock()

	transport.logger.Info(context.Background(), "transport_status_changed", "Broker transport status changed",
		map[string]any{"status": status, "broker": "nats"})

	for _, fn := range listeners {
		fn(status)
	}
}
