package trip

import (
	"slices"
	"strings"
	"time"

	"boatnav/internal/domain/geo"
)

// DefaultArrivalThresholdKm is the distance under which the next waypoint counts as reached.
const DefaultArrivalThresholdKm = 0.05

// Phase is the trip state machine position.
type Phase string

const (
	PhasePlanning Phase = "PLANNING"
	PhaseActive   Phase = "ACTIVE"
)

// String returns the string representation of the Phase.
func (phase Phase) String() string { return string(phase) }

// State is the whole trip/navigation state. The zero value is an empty Planning state.
type State struct {
	Phase              Phase        `json:"phase"`
	Waypoints          []Waypoint   `json:"waypoints"`
	TraveledPath       []TrackPoint `json:"traveled_path"`
	DistanceTraveledKm float64      `json:"distance_traveled_km"`
	DistanceToNextKm   float64      `json:"distance_to_next_waypoint_km"`
	CourseToSteer      float64      `json:"course_to_steer"`
	TripID             string       `json:"trip_id,omitempty"`
	StartedAt          time.Time    `json:"started_at,omitzero"`
}

// NewState returns an empty Planning state.
func NewState() *State {
	return &State{Phase: PhasePlanning}
}

// IsActive reports whether a trip is running.
func (state State) IsActive() bool {
	return state.Phase == PhaseActive
}

// NextWaypoint returns the head of the queue.
func (state *State) NextWaypoint() (Waypoint, bool) {
	if len(state.Waypoints) == 0 {
		return Waypoint{}, false
	}
	return state.Waypoints[0], true
}

// AddWaypoint appends a waypoint to the route (Planning only).
func (state *State) AddWaypoint(waypoint Waypoint) error {
	if state.IsActive() {
		return ErrTripActive
	}
	state.Waypoints = append(state.Waypoints, waypoint)
	return nil
}

// RemoveWaypoint removes the waypoint with the given id (Planning only).
func (state *State) RemoveWaypoint(id string) error {
	if state.IsActive() {
		return ErrTripActive
	}
	id = strings.TrimSpace(id)
	idx := slices.IndexFunc(state.Waypoints, func(w Waypoint) bool { return w.ID == id })
	if idx < 0 {
		return ErrWaypointNotFound
	}
	state.Waypoints = slices.Delete(state.Waypoints, idx, idx+1)
	return nil
}

// ClearRoute empties the route and resets the navigation figures (Planning only).
func (state *State) ClearRoute() error {
	if state.IsActive() {
		return ErrTripActive
	}
	state.Waypoints = nil
	state.TraveledPath = nil
	state.DistanceTraveledKm = 0
	state.DistanceToNextKm = 0
	state.CourseToSteer = 0
	return nil
}

// Start transitions Planning -> Active, seeding the path with origin.
func (state *State) Start(tripID string, origin geo.Coordinate, now time.Time) error {
	if state.IsActive() {
		return ErrTripActive
	}
	if len(state.Waypoints) == 0 {
		return ErrNoWaypoints
	}
	if strings.TrimSpace(tripID) == "" {
		return ErrEmptyTripID
	}
	if !origin.Valid() {
		return ErrPositionUnknown
	}

	state.Phase = PhaseActive
	state.TripID = tripID
	state.StartedAt = now
	state.TraveledPath = []TrackPoint{{Lat: origin.Lat, Lng: origin.Lng, Timestamp: now}}
	state.DistanceTraveledKm = 0
	state.recomputeGeometry(origin, 0)
	return nil
}

// AdvanceResult describes what a position update changed.
type AdvanceResult struct {
	Reached   []Waypoint // waypoints popped in this step (at most one)
	Appended  bool       // position was added to the traveled path
	StepKm    float64    // distance added to DistanceTraveledKm
	Completed bool       // the queue emptied while active
}

// Advance applies one position sample to an Active trip. Within the step the order is:
// geometry to the next waypoint, arrival test and pop, path append, completion check.
func (state *State) Advance(position geo.Coordinate, heading float64, now time.Time, thresholdKm float64) (AdvanceResult, error) {
	var result AdvanceResult
	if !state.IsActive() {
		return result, ErrTripNotActive
	}
	if !position.Valid() {
		return result, ErrPositionUnknown
	}
	if thresholdKm <= 0 {
		thresholdKm = DefaultArrivalThresholdKm
	}

	// distance and bearing to the head of the queue
	state.recomputeGeometry(position, heading)

	// arrival test: pop the reached waypoint
	if len(state.Waypoints) > 0 && state.DistanceToNextKm < thresholdKm {
		result.Reached = append(result.Reached, state.Waypoints[0])
		state.Waypoints = slices.Delete(slices.Clone(state.Waypoints), 0, 1)
		if len(state.Waypoints) > 0 {
			state.recomputeGeometry(position, heading)
		}
	}

	// traveled path grows only with distinct positions
	last := state.TraveledPath[len(state.TraveledPath)-1]
	if !last.Coordinate().Equal(position) {
		result.StepKm = last.Coordinate().DistanceTo(position)
		state.TraveledPath = append(state.TraveledPath, TrackPoint{Lat: position.Lat, Lng: position.Lng, Timestamp: now})
		state.DistanceTraveledKm += result.StepKm
		result.Appended = true
	}

	// auto-completion: nothing left to steer to
	if len(state.Waypoints) == 0 {
		state.DistanceToNextKm = 0
		state.CourseToSteer = heading
		result.Completed = true
	}

	return result, nil
}

// End transitions Active -> Planning and returns the id of the ended trip.
// Path and distance are kept until ClearRoute or the next Start.
func (state *State) End() (string, error) {
	if !state.IsActive() {
		return "", ErrTripNotActive
	}
	tripID := state.TripID
	state.Phase = PhasePlanning
	state.TripID = ""
	return tripID, nil
}

// Clone returns a deep copy suitable for read-only views.
func (state *State) Clone() State {
	out := *state
	out.Waypoints = slices.Clone(state.Waypoints)
	out.TraveledPath = slices.Clone(state.TraveledPath)
	return out
}

func (state *State) recomputeGeometry(position geo.Coordinate, heading float64) {
	next, ok := state.NextWaypoint()
	if !ok {
		state.DistanceToNextKm = 0
		state.CourseToSteer = heading
		return
	}
	state.DistanceToNextKm = position.DistanceTo(next.Coordinate())
	state.CourseToSteer = position.BearingTo(next.Coordinate())
}
