package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"boatnav/internal/general/contracts"
	"boatnav/internal/general/logger"
	"boatnav/internal/ports"
)

// dialFunc opens a Client; swapped in tests.
type dialFunc func(ctx context.Context, url string, logger *logger.Logger, onStatus func(ports.TransportStatus)) (*Client, error)

// Transport adapts Client to ports.Transport on the boats topic exchange.
type Transport struct {
	url      string
	exchange string
	logger   *logger.Logger
	dial     dialFunc

	mu        sync.Mutex
	client    *Client
	status    ports.TransportStatus
	gen       uint64 // bumped on Connect/Disconnect; stale watcher callbacks are ignored
	listeners []func(ports.TransportStatus)
}

var _ ports.Transport = (*Transport)(nil)

// NewTransport builds a disconnected transport for the given AMQP url.
func NewTransport(url string, logger *logger.Logger) *Transport {
	return &Transport{
		url:      url,
		exchange: contracts.ExchangeBoatsTopic,
		logger:   logger,
		dial:     ConnectRabbitMQ,
		status:   ports.TransportDisconnected,
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

// Connect dials once; later drops are healed by the client's watcher.
func (transport *Transport) Connect(ctx context.Context) error {
	transport.mu.Lock()
	if transport.client != nil {
		transport.mu.Unlock()
		return nil
	}
	transport.gen++
	gen := transport.gen
	transport.mu.Unlock()

	transport.setStatus(gen, ports.TransportConnecting)

	client, err := transport.dial(ctx, transport.url, transport.logger, func(status ports.TransportStatus) {
		transport.setStatus(gen, status)
	})
	if err != nil {
		transport.setStatus(gen, ports.TransportError)
		return fmt.Errorf("rabbitmq transport connect: %w", err)
	}

	transport.mu.Lock()
	if transport.gen != gen {
		// disconnected while dialing
		transport.mu.Unlock()
		client.Close()
		return nil
	}
	transport.client = client
	transport.mu.Unlock()

	transport.setStatus(gen, ports.TransportConnected)
	return nil
}

func (transport *Transport) Disconnect() {
	transport.mu.Lock()
	client := transport.client
	transport.client = nil
	transport.gen++
	gen := transport.gen
	transport.mu.Unlock()

	if client != nil {
		client.Close()
	}
	transport.setStatus(gen, ports.TransportDisconnected)
}

// Publish JSON-encodes payload and publishes it with the dotted topic as routing key.
func (transport *Transport) Publish(ctx context.Context, topic string, payload any) error {
	transport.mu.Lock()
	client := transport.client
	status := transport.status
	transport.mu.Unlock()

	if client == nil || status != ports.TransportConnected {
		transport.logger.Warn(ctx, "publish_skipped", "Transport not connected; message dropped", ports.ErrNotConnected,
			map[string]any{"topic": topic, "status": status})
		return ports.ErrNotConnected
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}

	if err := client.PublishMessage(ctx, transport.exchange, contracts.RoutingKey(topic), body); err != nil {
		transport.logger.Error(ctx, "publish_failed", "Failed to publish message", err, map[string]any{"topic": topic})
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// setStatus records status for generation gen and notifies listeners outside the lock.
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
		map[string]any{"status": status, "broker": "rabbitmq"})

	for _, fn := range listeners {
		fn(status)
	}
}
