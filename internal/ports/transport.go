package ports

import (
	"context"
	"errors"
)

// TransportStatus is the connection state of the broker transport.
type TransportStatus string

const (
	TransportDisconnected TransportStatus = "disconnected"
	TransportConnecting   TransportStatus = "connecting"
	TransportConnected    TransportStatus = "connected"
	TransportError        TransportStatus = "error"
)

// String returns the string representation of the TransportStatus.
func (status TransportStatus) String() string { return string(status) }

// ErrNotConnected is returned by Publish when the transport is not connected.
var ErrNotConnected = errors.New("transport not connected: message not published")

// Transport is a publish-capable broker connection.
// Publish is fire-and-forget from the engine's point of view: when the transport is not
// connected it logs a warning and returns ErrNotConnected.
type Transport interface {
	Status() TransportStatus
	Connect(ctx context.Context) error
	Disconnect()
	Publish(ctx context.Context, topic string, payload any) error
	// OnStatusChange registers fn, called after every status change.
	// Implementations must not hold internal locks while calling fn.
	OnStatusChange(fn func(TransportStatus))
}
