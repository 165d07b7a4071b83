package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"boatnav/internal/general/logger"
	"boatnav/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether the archive database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RecorderHTTPHandler serves archived trips plus health and metrics.
type RecorderHTTPHandler struct {
	svc      ports.RecorderService
	logger   *logger.Logger
	db       Pinger
	gatherer prometheus.Gatherer
}

func NewRecorderHTTPHandler(svc ports.RecorderService, logger *logger.Logger, db Pinger, gatherer prometheus.Gatherer) *RecorderHTTPHandler {
	return &RecorderHTTPHandler{svc: svc, logger: logger, db: db, gatherer: gatherer}
}

// RegisterRoutes mounts recorder endpoints on the provided mux.
func (handler *RecorderHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /trips/{trip_id}", handler.handleGetTrip)
	mux.HandleFunc("GET /health", handler.handleHealth)
	if handler.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(handler.gatherer, promhttp.HandlerOpts{}))
	}
}

func (handler *RecorderHTTPHandler) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	ctx = handler.logger.WithTripID(ctx, tripID)

	rec, err := handler.svc.Trip(ctx, tripID)
	switch {
	case errors.Is(err, ports.ErrTripNotFound):
		handler.httpError(ctx, w, http.StatusNotFound, "trip not found", err)
		return
	case err != nil:
		handler.httpError(ctx, w, http.StatusInternalServerError, "internal error", err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, rec)
}

func (handler *RecorderHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	status, code := "ok", http.StatusOK
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := handler.db.Ping(pingCtx); err != nil {
		handler.logger.Warn(ctx, "health_db_unreachable", "Archive database unreachable", err, nil)
		status, code = "degraded", http.StatusServiceUnavailable
	}

	w.Header().Set("Cache-Control", "no-store")
	handler.jsonResponse(ctx, w, code, map[string]string{"status": status})
}

// jsonResponse takes any type of data and encode it to HTTP response.
func (handler *RecorderHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	buf, err := json.Marshal(data)
	if err != nil {
		handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *RecorderHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	if status >= 500 {
		handler.logger.Error(ctx, "http_internal_error", msg, err, nil)
	} else {
		handler.logger.Warn(ctx, "request_failed", msg, err, nil)
	}
	handler.jsonResponse(ctx, w, status, map[string]string{"error": msg})
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *RecorderHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		var b [12]byte
		_, _ = rand.Read(b[:])
		reqID = hex.EncodeToString(b[:])
	}
	return handler.logger.WithRequestID(ctx, reqID)
}
