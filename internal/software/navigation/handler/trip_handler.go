package handler

import (
	"encoding/json"
	"net/http"
	"strings"
)

type startTripResponse struct {
	TripID string `json:"trip_id"`
}

// ----- Handler: POST /trip/start -----

func (handler *NavigationHTTPHandler) handleStartTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID, err := handler.svc.StartTrip(ctx)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	ctx = handler.logger.WithTripID(ctx, tripID)
	handler.jsonResponse(ctx, w, http.StatusCreated, startTripResponse{TripID: tripID})
}

// ----- Handler: POST /trip/end -----

func (handler *NavigationHTTPHandler) handleEndTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	if err := handler.svc.EndTrip(ctx); err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, handler.svc.View())
}

// ----- Handler: GET /alerts -----

func (handler *NavigationHTTPHandler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	handler.jsonResponse(ctx, w, http.StatusOK, handler.svc.Alerts())
}

// ----- Handler: DELETE /alerts/{alert_id} -----

func (handler *NavigationHTTPHandler) handleDismissAlert(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	id := strings.TrimSpace(r.PathValue("alert_id"))
	if !handler.svc.DismissAlert(id) {
		handler.httpError(ctx, w, http.StatusNotFound, "alert not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ----- Handler: GET /health -----

// handleHealth returns a minimal JSON health status payload.
func (handler *NavigationHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	type resp struct {
		Status    string `json:"status"`
		Phase     string `json:"phase"`
		Transport string `json:"transport"`
	}
	view := handler.svc.View()
	_ = json.NewEncoder(w).Encode(resp{
		Status:    "ok",
		Phase:     view.Phase.String(),
		Transport: string(view.TransportStatus),
	})
}
