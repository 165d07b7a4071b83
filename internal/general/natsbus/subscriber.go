package natsbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// MessageHandler processes one message received on subject.
type MessageHandler func(ctx context.Context, subject string, data []byte) error

const handlerTimeout = 30 * time.Second

// QueueSubscribe joins queue on subject so that replicas of a consumer share the load.
// Core NATS has no redelivery: handler errors are logged and the message is dropped.
// The subscription is drained when ctx is done.
func (transport *Transport) QueueSubscribe(ctx context.Context, subject, queue string, handler MessageHandler) error {
	transport.mu.Lock()
	conn := transport.conn
	transport.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("nats subscribe %s: not connected", subject)
	}

	sub, err := conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		hCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), handlerTimeout)
		defer cancel()
		if err := handler(hCtx, msg.Subject, msg.Data); err != nil {
			transport.logger.Error(hCtx, "nats_message_rejected", "Handler failed; message dropped", err,
				map[string]any{"subject": msg.Subject, "queue": queue})
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	go func() {
		<-ctx.Done()
		_ = sub.Drain()
	}()
	return nil
}
