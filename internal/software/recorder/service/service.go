package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"boatnav/internal/domain/trip"
	"boatnav/internal/general/contracts"
	"boatnav/internal/general/logger"
	"boatnav/internal/general/metrics"
	"boatnav/internal/ports"
)

// ErrInvalidMessage marks messages that can never be archived.
var ErrInvalidMessage = errors.New("invalid trip message")

const (
	kindStatus = "status"
	kindLog    = "log"
)

// RecorderService archives trip status and trip log messages.
type RecorderService struct {
	uow     ports.UnitOfWork
	trips   ports.TripArchiveRepository
	paths   ports.TripPathRepository
	logger  *logger.Logger
	metrics *metrics.Recorder
}

var _ ports.RecorderService = (*RecorderService)(nil)

func NewRecorderService(
	uow ports.UnitOfWork,
	trips ports.TripArchiveRepository,
	paths ports.TripPathRepository,
	logger *logger.Logger,
	m *metrics.Recorder,
) *RecorderService {
	if m == nil {
		m = metrics.NewRecorder(nil)
	}
	return &RecorderService{uow: uow, trips: trips, paths: paths, logger: logger, metrics: m}
}

// HandleStatus decodes a trip status delivery. routingKey carries the boat id.
func (service *RecorderService) HandleStatus(ctx context.Context, routingKey string, body []byte) error {
	boatID, ok := contracts.BoatIDFromRoutingKey(routingKey)
	if !ok {
		return service.reject(ctx, kindStatus, fmt.Errorf("%w: routing key %q", ErrInvalidMessage, routingKey))
	}
	var msg contracts.TripStatusMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return service.reject(ctx, kindStatus, fmt.Errorf("%w: %w", ErrInvalidMessage, err))
	}
	return service.RecordStatus(ctx, boatID, msg)
}

// HandleLog decodes a trip log delivery. routingKey carries the boat id.
func (service *RecorderService) HandleLog(ctx context.Context, routingKey string, body []byte) error {
	boatID, ok := contracts.BoatIDFromRoutingKey(routingKey)
	if !ok {
		return service.reject(ctx, kindLog, fmt.Errorf("%w: routing key %q", ErrInvalidMessage, routingKey))
	}
	var msg contracts.TripLogMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return service.reject(ctx, kindLog, fmt.Errorf("%w: %w", ErrInvalidMessage, err))
	}
	return service.RecordLog(ctx, boatID, msg)
}

// RecordStatus upserts the trip row for a started or completed status.
func (service *RecorderService) RecordStatus(ctx context.Context, boatID string, msg contracts.TripStatusMessage) error {
	tripID := strings.TrimSpace(msg.TripID)
	if tripID == "" {
		return service.reject(ctx, kindStatus, fmt.Errorf("%w: empty tripId", ErrInvalidMessage))
	}
	ctx = service.logger.WithTripID(ctx, tripID)

	at, err := contracts.ParseTimestamp(msg.Timestamp)
	if err != nil {
		return service.reject(ctx, kindStatus, fmt.Errorf("%w: timestamp: %w", ErrInvalidMessage, err))
	}

	var write func(ctx context.Context) error
	switch msg.Status {
	case contracts.TripStatusStarted:
		route := make([]trip.Waypoint, 0, len(msg.PlannedRoute))
		for _, w := range msg.PlannedRoute {
			route = append(route, trip.Waypoint{ID: w.ID, Lat: w.Lat, Lng: w.Lng})
		}
		write = func(ctx context.Context) error {
			return service.trips.UpsertStarted(ctx, tripID, boatID, at, route)
		}
	case contracts.TripStatusCompleted:
		write = func(ctx context.Context) error {
			return service.trips.MarkCompleted(ctx, tripID, boatID, at)
		}
	default:
		return service.reject(ctx, kindStatus, fmt.Errorf("%w: status %q", ErrInvalidMessage, msg.Status))
	}

	if err := service.uow.WithinTx(ctx, write); err != nil {
		service.metrics.Handled.WithLabelValues(kindStatus, "failed").Inc()
		return fmt.Errorf("record trip status: %w", err)
	}

	service.metrics.Handled.WithLabelValues(kindStatus, "ok").Inc()
	service.logger.Info(ctx, "trip_status_recorded", "Trip status archived",
		map[string]any{"boat_id": boatID, "status": msg.Status, "planned_waypoints": len(msg.PlannedRoute)})
	return nil
}

// RecordLog stores the summary and the traveled path of an ended trip in one transaction.
func (service *RecorderService) RecordLog(ctx context.Context, boatID string, msg contracts.TripLogMessage) error {
	tripID := strings.TrimSpace(msg.TripID)
	if tripID == "" {
		return service.reject(ctx, kindLog, fmt.Errorf("%w: empty tripId", ErrInvalidMessage))
	}
	ctx = service.logger.WithTripID(ctx, tripID)

	endedAt, err := contracts.ParseTimestamp(msg.EndTime)
	if err != nil {
		return service.reject(ctx, kindLog, fmt.Errorf("%w: endTime: %w", ErrInvalidMessage, err))
	}
	if msg.TotalDistanceKm < 0 {
		return service.reject(ctx, kindLog, fmt.Errorf("%w: negative distance", ErrInvalidMessage))
	}

	path := make([]trip.TrackPoint, 0, len(msg.TraveledPath))
	for i, p := range msg.TraveledPath {
		ts, err := contracts.ParseTimestamp(p.Timestamp)
		if err != nil {
			return service.reject(ctx, kindLog, fmt.Errorf("%w: traveledPath[%d]: %w", ErrInvalidMessage, i, err))
		}
		path = append(path, trip.TrackPoint{Lat: p.Lat, Lng: p.Lng, Timestamp: ts})
	}

	var copied int64
	err = service.uow.WithinTx(ctx, func(ctx context.Context) error {
		if err := service.trips.SaveSummary(ctx, tripID, boatID, endedAt, msg.TotalDistanceKm); err != nil {
			return err
		}
		n, err := service.paths.ReplacePath(ctx, tripID, path)
		copied = n
		return err
	})
	if err != nil {
		service.metrics.Handled.WithLabelValues(kindLog, "failed").Inc()
		return fmt.Errorf("record trip log: %w", err)
	}

	service.metrics.Handled.WithLabelValues(kindLog, "ok").Inc()
	service.logger.Info(ctx, "trip_log_recorded", "Trip log archived", map[string]any{
		"boat_id":     boatID,
		"distance_km": msg.TotalDistanceKm,
		"path_points": copied,
	})
	return nil
}

// Trip loads one archived trip.
func (service *RecorderService) Trip(ctx context.Context, tripID string) (*ports.TripRecord, error) {
	tripID = strings.TrimSpace(tripID)
	if tripID == "" {
		return nil, ports.ErrTripNotFound
	}

	var rec *ports.TripRecord
	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		rec, err = service.trips.GetByID(ctx, tripID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load trip %s: %w", tripID, err)
	}
	return rec, nil
}

func (service *RecorderService) reject(ctx context.Context, kind string, err error) error {
	service.metrics.Handled.WithLabelValues(kind, "invalid").Inc()
	service.logger.Warn(ctx, "trip_message_invalid", "Dropping invalid trip message", err, map[string]any{"kind": kind})
	return err
}
