package rabbitmq

import (
	"fmt"

	"boatnav/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

// telemetry is live data: keep the queue short-lived and bounded
var telemetryQueueArgs = amqp.Table{
	"x-message-ttl": int32(60_000),
	"x-max-length":  int32(1_000),
	"x-overflow":    "drop-head",
}

func declareTopology(ch *amqp.Channel) error {
	// 1. Exchange
	if err := ch.ExchangeDeclare(contracts.ExchangeBoatsTopic, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", contracts.ExchangeBoatsTopic, err)
	}

	// 2. Queues
	queues := []struct {
		name string
		args amqp.Table
	}{
		{contracts.QueueTripStatus, nil},
		{contracts.QueueTripLog, nil},
		{contracts.QueueTelemetryLive, telemetryQueueArgs},
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, q.args); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	// 3. Bindings
	bindings := []struct {
		queue      string
		routingKey string
	}{
		{contracts.QueueTripStatus, contracts.RouteTripStatusPattern},
		{contracts.QueueTripLog, contracts.RouteTripLogPattern},
		{contracts.QueueTelemetryLive, contracts.RouteTelemetryPattern},
	}

	for _, b := range bindings {
		if err := ch.QueueBind(b.queue, b.routingKey, contracts.ExchangeBoatsTopic, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, contracts.ExchangeBoatsTopic, err)
		}
	}

	return nil
}
