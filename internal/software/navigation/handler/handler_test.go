package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"boatnav/internal/domain/geo"
	"boatnav/internal/domain/sensor"
	"boatnav/internal/domain/trip"
	"boatnav/internal/general/logger"
	"boatnav/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNav struct {
	state    trip.State
	verdict  ports.Verdict
	err      error
	alerts   []ports.Alert
	received []geo.Coordinate
}

func (f *fakeNav) AddWaypoint(_ context.Context, at geo.Coordinate) (trip.Waypoint, error) {
	if f.err != nil {
		return trip.Waypoint{}, f.err
	}
	f.received = append(f.received, at)
	return trip.NewWaypoint(fmt.Sprintf("w-%d", len(f.received)), at)
}

func (f *fakeNav) ValidateAndAdd(ctx context.Context, at geo.Coordinate) (ports.AddWaypointResult, error) {
	if f.err != nil {
		return ports.AddWaypointResult{}, f.err
	}
	if !f.verdict.Appends() {
		return ports.AddWaypointResult{Verdict: f.verdict}, nil
	}
	w, err := f.AddWaypoint(ctx, at)
	return ports.AddWaypointResult{Verdict: f.verdict, Waypoint: &w}, err
}

func (f *fakeNav) RemoveWaypoint(context.Context, string) error { return f.err }
func (f *fakeNav) ClearRoute(context.Context) error            { return f.err }

func (f *fakeNav) StartTrip(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.state.Phase = trip.PhaseActive
	f.state.TripID = "trip-1"
	return f.state.TripID, nil
}

func (f *fakeNav) EndTrip(context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.state.Phase = trip.PhasePlanning
	f.state.TripID = ""
	return nil
}

func (f *fakeNav) HandleSnapshot(context.Context, sensor.Snapshot) {}

func (f *fakeNav) View() ports.TripView {
	return ports.TripView{State: f.state, BoatID: "boat-1", TransportStatus: ports.TransportConnected}
}

func (f *fakeNav) Alerts() []ports.Alert { return f.alerts }

func (f *fakeNav) DismissAlert(id string) bool {
	for i, a := range f.alerts {
		if a.ID == id {
			f.alerts = append(f.alerts[:i], f.alerts[i+1:]...)
			return true
		}
	}
	return false
}

func newServer(t *testing.T, nav *fakeNav) *http.ServeMux {
	t.Helper()
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "boatnav_test_total", Help: "test"}))

	mux := http.NewServeMux()
	NewNavigationHTTPHandler(nav, logger.Discard(), nil, reg).RegisterRoutes(mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestValidateAndAdd_StatusCodes(t *testing.T) {
	tests := []struct {
		name    string
		verdict ports.Verdict
		err     error
		body    string
		status  int
	}{
		{name: "accepted", verdict: ports.VerdictAccepted, body: `{"lat":-1.46,"lng":-48.5}`, status: http.StatusCreated},
		{name: "validator down", verdict: ports.VerdictValidationUnavailable, body: `{"lat":-1.46,"lng":-48.5}`, status: http.StatusCreated},
		{name: "on land", verdict: ports.VerdictRejectedOnLand, body: `{"lat":-1.45,"lng":-48.49}`, status: http.StatusUnprocessableEntity},
		{name: "trip active", err: trip.ErrTripActive, body: `{"lat":1,"lng":1}`, status: http.StatusConflict},
		{name: "out of range", verdict: ports.VerdictAccepted, body: `{"lat":95,"lng":1}`, status: http.StatusBadRequest},
		{name: "missing lng", verdict: ports.VerdictAccepted, body: `{"lat":1}`, status: http.StatusBadRequest},
		{name: "unknown field", verdict: ports.VerdictAccepted, body: `{"lat":1,"lng":1,"x":2}`, status: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			nav := &fakeNav{verdict: tc.verdict, err: tc.err}
			rec := do(newServer(t, nav), http.MethodPost, "/trip/waypoints", tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestValidateAndAdd_ReturnsVerdictAndWaypoint(t *testing.T) {
	nav := &fakeNav{verdict: ports.VerdictAccepted}
	rec := do(newServer(t, nav), http.MethodPost, "/trip/waypoints", `{"lat":0,"lng":0}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var res ports.AddWaypointResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, ports.VerdictAccepted, res.Verdict)
	require.NotNil(t, res.Waypoint)
	assert.Equal(t, "w-1", res.Waypoint.ID)
	// (0,0) is a legal point
	assert.Equal(t, []geo.Coordinate{{Lat: 0, Lng: 0}}, nav.received)
}

func TestAddDirect_RequiresJSON(t *testing.T) {
	mux := newServer(t, &fakeNav{})
	req := httptest.NewRequest(http.MethodPost, "/trip/waypoints/direct", strings.NewReader(`{"lat":1,"lng":1}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = do(mux, http.MethodPost, "/trip/waypoints/direct", `{"lat":1,"lng":1}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRouteMutations(t *testing.T) {
	rec := do(newServer(t, &fakeNav{}), http.MethodDelete, "/trip/waypoints/w-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(newServer(t, &fakeNav{err: trip.ErrWaypointNotFound}), http.MethodDelete, "/trip/waypoints/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, trip.ErrWaypointNotFound.Error(), errorOf(t, rec))

	rec = do(newServer(t, &fakeNav{}), http.MethodDelete, "/trip/waypoints", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(newServer(t, &fakeNav{err: trip.ErrTripActive}), http.MethodDelete, "/trip/waypoints", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStartAndEndTrip(t *testing.T) {
	nav := &fakeNav{}
	mux := newServer(t, nav)

	rec := do(mux, http.MethodPost, "/trip/start", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"trip_id":"trip-1"}`, rec.Body.String())

	rec = do(mux, http.MethodGet, "/trip", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "ACTIVE", view["phase"])
	assert.Equal(t, "trip-1", view["trip_id"])
	assert.Equal(t, "boat-1", view["boat_id"])

	rec = do(mux, http.MethodPost, "/trip/end", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStartTrip_PreconditionErrors(t *testing.T) {
	for err, status := range map[error]int{
		trip.ErrNoWaypoints:     http.StatusUnprocessableEntity,
		trip.ErrPositionUnknown: http.StatusUnprocessableEntity,
		trip.ErrTripActive:      http.StatusConflict,
	} {
		rec := do(newServer(t, &fakeNav{err: err}), http.MethodPost, "/trip/start", "")
		assert.Equal(t, status, rec.Code, err.Error())
		assert.Equal(t, err.Error(), errorOf(t, rec))
	}

	rec := do(newServer(t, &fakeNav{err: trip.ErrTripNotActive}), http.MethodPost, "/trip/end", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAlerts(t *testing.T) {
	nav := &fakeNav{alerts: []ports.Alert{{ID: "low_battery", Message: "Battery is low.", Level: trip.LevelWarning}}}
	mux := newServer(t, nav)

	rec := do(mux, http.MethodGet, "/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"low_battery","message":"Battery is low.","level":"warning"}]`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, do(mux, http.MethodDelete, "/alerts/low_battery", "").Code)
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodDelete, "/alerts/low_battery", "").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	mux := newServer(t, &fakeNav{state: trip.State{Phase: trip.PhasePlanning}})

	rec := do(mux, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","phase":"PLANNING","transport":"connected"}`, rec.Body.String())

	rec = do(mux, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "boatnav_test_total")
}
