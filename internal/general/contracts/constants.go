package contracts

import (
	"fmt"
	"strings"
)

// Exchanges
const (
	ExchangeBoatsTopic = "boats_topic"
)

// Queues
const (
	QueueTripStatus    = "trip_status"
	QueueTripLog       = "trip_log"
	QueueTelemetryLive = "telemetry_live"
)

// Routing patterns (dotted form of the topics below)
const (
	RouteTripStatusPattern = "boats.*.trip.status"
	RouteTripLogPattern    = "boats.*.trip.log"
	RouteTelemetryPattern  = "boats.*.telemetry.live"
)

// Topic templates, {boatId} is substituted.
const (
	topicTelemetry  = "boats/%s/telemetry/live"
	topicTripStatus = "boats/%s/trip/status"
	topicTripLog    = "boats/%s/trip/log"
)

// Trip status values
const (
	TripStatusStarted   = "started"
	TripStatusCompleted = "completed"
)

// TelemetryTopic is the live telemetry topic of a boat.
func TelemetryTopic(boatID string) string { return fmt.Sprintf(topicTelemetry, boatID) }

// TripStatusTopic is the trip status topic of a boat.
func TripStatusTopic(boatID string) string { return fmt.Sprintf(topicTripStatus, boatID) }

// TripLogTopic is the trip log topic of a boat.
func TripLogTopic(boatID string) string { return fmt.Sprintf(topicTripLog, boatID) }

// RoutingKey maps a slash topic onto the dotted form used as AMQP routing key and NATS subject,
// the same mapping RabbitMQ's MQTT plugin applies.
func RoutingKey(topic string) string {
	return strings.ReplaceAll(strings.Trim(topic, "/"), "/", ".")
}

// BoatIDFromRoutingKey extracts {boatId} from "boats.{boatId}.…".
func BoatIDFromRoutingKey(key string) (string, bool) {
	parts := strings.Split(key, ".")
	if len(parts) < 3 || parts[0] != "boats" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
