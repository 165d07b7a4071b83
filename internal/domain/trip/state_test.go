package trip

import (
	"testing"
	"time"

	"boatnav/internal/domain/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func wp(id string, lat, lng float64) Waypoint {
	return Waypoint{ID: id, Lat: lat, Lng: lng}
}

func activeState(t *testing.T, origin geo.Coordinate, waypoints ...Waypoint) *State {
	t.Helper()
	state := NewState()
	for _, w := range waypoints {
		require.NoError(t, state.AddWaypoint(w))
	}
	require.NoError(t, state.Start("trip-1", origin, t0))
	return state
}

func TestState_PlanningMutators(t *testing.T) {
	state := NewState()
	require.NoError(t, state.AddWaypoint(wp("a", 1, 1)))
	require.NoError(t, state.AddWaypoint(wp("b", 2, 2)))
	require.NoError(t, state.AddWaypoint(wp("c", 3, 3)))

	require.NoError(t, state.RemoveWaypoint("b"))
	assert.Equal(t, []Waypoint{wp("a", 1, 1), wp("c", 3, 3)}, state.Waypoints)

	assert.ErrorIs(t, state.RemoveWaypoint("missing"), ErrWaypointNotFound)

	require.NoError(t, state.ClearRoute())
	assert.Empty(t, state.Waypoints)
	assert.Empty(t, state.TraveledPath)
	assert.Zero(t, state.DistanceTraveledKm)
}

func TestState_ClearRouteResetsNavigationFigures(t *testing.T) {
	state := activeState(t, geo.Coordinate{Lat: 0, Lng: 0}, wp("a", 0, 1))
	require.NotZero(t, state.CourseToSteer)
	require.NotZero(t, state.DistanceToNextKm)
	_, err := state.End()
	require.NoError(t, err)

	require.NoError(t, state.ClearRoute())
	assert.Zero(t, state.CourseToSteer)
	assert.Zero(t, state.DistanceToNextKm)
	assert.Zero(t, state.DistanceTraveledKm)
}

func TestState_IsActiveOnReturnedValue(t *testing.T) {
	view := func(s *State) State { return s.Clone() }
	active := activeState(t, geo.Coordinate{Lat: 0, Lng: 0}, wp("a", 1, 1))
	assert.True(t, view(active).IsActive())
	assert.False(t, view(NewState()).IsActive())
}

func TestState_WaypointsImmutableWhileActive(t *testing.T) {
	state := activeState(t, geo.Coordinate{Lat: 0, Lng: 0}, wp("a", 1, 1), wp("b", 2, 2))
	before := state.Clone().Waypoints

	assert.ErrorIs(t, state.AddWaypoint(wp("c", 3, 3)), ErrTripActive)
	assert.ErrorIs(t, state.RemoveWaypoint("a"), ErrTripActive)
	assert.ErrorIs(t, state.ClearRoute(), ErrTripActive)

	assert.Equal(t, before, state.Waypoints)
}

func TestState_Start(t *testing.T) {
	t.Run("requires waypoints", func(t *testing.T) {
		state := NewState()
		err := state.Start("trip-1", geo.Coordinate{Lat: 1, Lng: 1}, t0)
		assert.ErrorIs(t, err, ErrNoWaypoints)
		assert.Equal(t, PhasePlanning, state.Phase)
		assert.Empty(t, state.TripID)
	})

	t.Run("requires a position", func(t *testing.T) {
		state := NewState()
		require.NoError(t, state.AddWaypoint(wp("a", 1, 1)))
		err := state.Start("trip-1", geo.Coordinate{Lat: 200, Lng: 1}, t0)
		assert.ErrorIs(t, err, ErrPositionUnknown)
		assert.False(t, state.IsActive())
	})

	t.Run("seeds the path and resets distance", func(t *testing.T) {
		state := NewState()
		state.DistanceTraveledKm = 12
		require.NoError(t, state.AddWaypoint(wp("a", 0, 1)))
		require.NoError(t, state.Start("trip-1", geo.Coordinate{Lat: 0, Lng: 0}, t0))

		assert.Equal(t, PhaseActive, state.Phase)
		assert.Equal(t, "trip-1", state.TripID)
		assert.Equal(t, []TrackPoint{{Lat: 0, Lng: 0, Timestamp: t0}}, state.TraveledPath)
		assert.Zero(t, state.DistanceTraveledKm)
		assert.InDelta(t, 111.195, state.DistanceToNextKm, 0.01)
		assert.InDelta(t, 90, state.CourseToSteer, 1e-6)
	})

	t.Run("cannot start twice", func(t *testing.T) {
		state := activeState(t, geo.Coordinate{Lat: 0, Lng: 0}, wp("a", 1, 1))
		assert.ErrorIs(t, state.Start("trip-2", geo.Coordinate{Lat: 0, Lng: 0}, t0), ErrTripActive)
		assert.Equal(t, "trip-1", state.TripID)
	})
}

func TestState_Advance_DistanceIsRunningSumOfDistinctPoints(t *testing.T) {
	origin := geo.Coordinate{Lat: -1.4558, Lng: -48.5036}
	state := activeState(t, origin, wp("far", -2.0, -49.0))

	positions := []geo.Coordinate{
		{Lat: -1.4560, Lng: -48.5040},
		{Lat: -1.4560, Lng: -48.5040}, // stationary: not recorded
		{Lat: -1.4570, Lng: -48.5050},
		{Lat: -1.4570, Lng: -48.5050},
		{Lat: -1.4590, Lng: -48.5070},
	}

	var want float64
	prev := origin
	lastDistance := 0.0
	for i, p := range positions {
		res, err := state.Advance(p, 200, t0.Add(time.Duration(i+1)*time.Second), DefaultArrivalThresholdKm)
		require.NoError(t, err)
		if !p.Equal(prev) {
			want += prev.DistanceTo(p)
			assert.True(t, res.Appended)
		} else {
			assert.False(t, res.Appended)
			assert.Zero(t, res.StepKm)
		}
		prev = p
		assert.GreaterOrEqual(t, state.DistanceTraveledKm, lastDistance)
		lastDistance = state.DistanceTraveledKm
	}

	assert.InDelta(t, want, state.DistanceTraveledKm, 1e-12)
	assert.Len(t, state.TraveledPath, 4)
	assert.Equal(t, origin, state.TraveledPath[0].Coordinate())
}

func TestState_Advance_ArrivalPopsHead(t *testing.T) {
	w1 := wp("w1", 0, 0.01)
	w2 := wp("w2", 0, 0.05)
	state := activeState(t, geo.Coordinate{Lat: 0, Lng: 0}, w1, w2)

	// ~1.1 km from w1: nothing happens
	res, err := state.Advance(geo.Coordinate{Lat: 0, Lng: 0}, 90, t0, DefaultArrivalThresholdKm)
	require.NoError(t, err)
	assert.Empty(t, res.Reached)

	// ~33 m from w1: popped
	res, err = state.Advance(geo.Coordinate{Lat: 0, Lng: 0.0097}, 90, t0.Add(time.Second), DefaultArrivalThresholdKm)
	require.NoError(t, err)
	require.Equal(t, []Waypoint{w1}, res.Reached)
	assert.False(t, res.Completed)
	assert.Equal(t, []Waypoint{w2}, state.Waypoints)
	assert.True(t, state.IsActive())

	// geometry now points at w2
	assert.InDelta(t, geo.DistanceKm(0, 0.0097, 0, 0.05), state.DistanceToNextKm, 1e-9)
	assert.InDelta(t, 90, state.CourseToSteer, 1e-6)

	// staying near w1 does not pop w2
	res, err = state.Advance(geo.Coordinate{Lat: 0, Lng: 0.0098}, 90, t0.Add(2*time.Second), DefaultArrivalThresholdKm)
	require.NoError(t, err)
	assert.Empty(t, res.Reached)
	assert.Len(t, state.Waypoints, 1)
}

func TestState_Advance_CompletionWhenQueueEmpties(t *testing.T) {
	w1 := wp("w1", -1.46, -48.50)
	state := activeState(t, geo.Coordinate{Lat: -1.4610, Lng: -48.5010}, w1)

	res, err := state.Advance(geo.Coordinate{Lat: -1.4602, Lng: -48.5002}, 123, t0.Add(time.Second), DefaultArrivalThresholdKm)
	require.NoError(t, err)

	assert.Equal(t, []Waypoint{w1}, res.Reached)
	assert.True(t, res.Completed)
	assert.True(t, res.Appended)
	assert.Empty(t, state.Waypoints)
	assert.Zero(t, state.DistanceToNextKm)
	assert.Equal(t, 123.0, state.CourseToSteer)
}

func TestState_Advance_RequiresActiveAndValidPosition(t *testing.T) {
	state := NewState()
	_, err := state.Advance(geo.Coordinate{Lat: 0, Lng: 0}, 0, t0, 0)
	assert.ErrorIs(t, err, ErrTripNotActive)

	state = activeState(t, geo.Coordinate{Lat: 0, Lng: 0}, wp("a", 1, 1))
	_, err = state.Advance(geo.Coordinate{Lat: 95, Lng: 0}, 0, t0, 0)
	assert.ErrorIs(t, err, ErrPositionUnknown)
	assert.Len(t, state.TraveledPath, 1)
}

func TestState_End(t *testing.T) {
	state := activeState(t, geo.Coordinate{Lat: 0, Lng: 0}, wp("a", 1, 1))
	_, err := state.Advance(geo.Coordinate{Lat: 0.1, Lng: 0.1}, 0, t0.Add(time.Second), 0)
	require.NoError(t, err)

	id, err := state.End()
	require.NoError(t, err)
	assert.Equal(t, "trip-1", id)
	assert.Equal(t, PhasePlanning, state.Phase)
	assert.Empty(t, state.TripID)
	assert.Len(t, state.TraveledPath, 2)

	_, err = state.End()
	assert.ErrorIs(t, err, ErrTripNotActive)

	// planning again: the route is editable
	require.NoError(t, state.AddWaypoint(wp("b", 2, 2)))
}

func TestState_CloneIsIndependent(t *testing.T) {
	state := NewState()
	require.NoError(t, state.AddWaypoint(wp("a", 1, 1)))
	view := state.Clone()
	view.Waypoints[0].Lat = 50
	assert.Equal(t, 1.0, state.Waypoints[0].Lat)
}
