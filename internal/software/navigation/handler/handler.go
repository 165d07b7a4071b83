package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"boatnav/internal/domain/geo"
	"boatnav/internal/domain/trip"
	"boatnav/internal/general/logger"
	"boatnav/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NavigationHTTPHandler adapts HTTP requests to the NavigationService.
type NavigationHTTPHandler struct {
	svc      ports.NavigationService
	logger   *logger.Logger
	stream   http.HandlerFunc
	gatherer prometheus.Gatherer
}

// NewNavigationHTTPHandler wires an HTTP handler around the NavigationService.
// stream serves GET /ws; gatherer backs GET /metrics. Either may be nil.
func NewNavigationHTTPHandler(
	svc ports.NavigationService,
	logger *logger.Logger,
	stream http.HandlerFunc,
	gatherer prometheus.Gatherer,
) *NavigationHTTPHandler {
	return &NavigationHTTPHandler{svc: svc, logger: logger, stream: stream, gatherer: gatherer}
}

// RegisterRoutes mounts navigation endpoints on the provided mux.
func (handler *NavigationHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /trip", handler.handleGetTrip)
	mux.HandleFunc("POST /trip/waypoints", handler.handleValidateAndAdd)
	mux.HandleFunc("POST /trip/waypoints/direct", handler.handleAddDirect)
	mux.HandleFunc("DELETE /trip/waypoints/{waypoint_id}", handler.handleRemoveWaypoint)
	mux.HandleFunc("DELETE /trip/waypoints", handler.handleClearRoute)
	mux.HandleFunc("POST /trip/start", handler.handleStartTrip)
	mux.HandleFunc("POST /trip/end", handler.handleEndTrip)

	mux.HandleFunc("GET /alerts", handler.handleListAlerts)
	mux.HandleFunc("DELETE /alerts/{alert_id}", handler.handleDismissAlert)

	if handler.stream != nil {
		mux.HandleFunc("GET /ws", handler.stream)
	}
	if handler.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(handler.gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("GET /health", handler.handleHealth)
}

// ----- general helpers -----

// statusOf maps service errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, geo.ErrInvalidLatitude), errors.Is(err, geo.ErrInvalidLongitude):
		return http.StatusBadRequest
	case errors.Is(err, trip.ErrTripActive), errors.Is(err, trip.ErrTripNotActive):
		return http.StatusConflict
	case errors.Is(err, trip.ErrWaypointNotFound):
		return http.StatusNotFound
	case errors.Is(err, trip.ErrNoWaypoints), errors.Is(err, trip.ErrPositionUnknown):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// jsonResponse takes any type of data and encode it to HTTP response.
func (handler *NavigationHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *NavigationHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	switch {
	case status >= 500:
		action = "http_internal_error"
		handler.logger.Error(ctx, action, msg, err, nil)
	case status == http.StatusBadRequest:
		action = "validation_failed"
		handler.logger.Warn(ctx, action, msg, err, nil)
	case status == http.StatusUnsupportedMediaType:
		action = "unsupported_media_type"
		handler.logger.Warn(ctx, action, msg, err, nil)
	default:
		handler.logger.Warn(ctx, action, msg, err, nil)
	}

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// serviceError reports err with the status its kind maps to.
func (handler *NavigationHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	handler.httpError(ctx, w, status, msg, err)
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *NavigationHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
