package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"boatnav/internal/domain/geo"
	"boatnav/internal/ports"
)

// validation lookups are bounded by the water client; this only caps the request as a whole
const routeTimeout = 15 * time.Second

// --- Request DTO (HTTP boundary) ---

type waypointRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// decodeWaypoint reads a strict {lat,lng} body; ok is false when an error response was written.
func (handler *NavigationHTTPHandler) decodeWaypoint(ctx context.Context, w http.ResponseWriter, r *http.Request) (geo.Coordinate, bool) {
	// check the content type
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return geo.Coordinate{}, false
	}

	// limit the body size
	r.Body = http.MaxBytesReader(w, r.Body, 16<<10) // 16 KiB
	defer r.Body.Close()

	// decode strictly
	var req waypointRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return geo.Coordinate{}, false
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return geo.Coordinate{}, false
	}
	if req.Lat == nil || req.Lng == nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "lat and lng are required", errors.New("missing coordinate"))
		return geo.Coordinate{}, false
	}

	at, err := geo.NewCoordinate(*req.Lat, *req.Lng)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
		return geo.Coordinate{}, false
	}
	return at, true
}

// ----- Handler: GET /trip -----

func (handler *NavigationHTTPHandler) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	handler.jsonResponse(ctx, w, http.StatusOK, handler.svc.View())
}

// ----- Handler: POST /trip/waypoints -----

func (handler *NavigationHTTPHandler) handleValidateAndAdd(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	at, ok := handler.decodeWaypoint(ctx, w, r)
	if !ok {
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, routeTimeout)
	defer cancel()

	res, err := handler.svc.ValidateAndAdd(ctxWithTimeout, at)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	if res.Verdict == ports.VerdictRejectedOnLand {
		handler.logger.Info(ctx, "waypoint_rejected", "Waypoint rejected: on land",
			map[string]any{"lat": at.Lat, "lng": at.Lng})
		handler.jsonResponse(ctx, w, http.StatusUnprocessableEntity, res)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusCreated, res)
}

// ----- Handler: POST /trip/waypoints/direct -----

func (handler *NavigationHTTPHandler) handleAddDirect(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	at, ok := handler.decodeWaypoint(ctx, w, r)
	if !ok {
		return
	}

	waypoint, err := handler.svc.AddWaypoint(ctx, at)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusCreated, waypoint)
}

// ----- Handler: DELETE /trip/waypoints/{waypoint_id} -----

func (handler *NavigationHTTPHandler) handleRemoveWaypoint(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	id := strings.TrimSpace(r.PathValue("waypoint_id"))
	if id == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "waypoint_id is required", errors.New("missing waypoint_id"))
		return
	}

	if err := handler.svc.RemoveWaypoint(ctx, id); err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ----- Handler: DELETE /trip/waypoints -----

func (handler *NavigationHTTPHandler) handleClearRoute(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	if err := handler.svc.ClearRoute(ctx); err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
