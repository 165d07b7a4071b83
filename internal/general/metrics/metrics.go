package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "boatnav"

// Navigator groups the navigation engine's collectors.
type Navigator struct {
	TelemetryPublished prometheus.Counter
	TelemetryFailed    prometheus.Counter
	WaypointsReached   prometheus.Counter
	TripsStarted       prometheus.Counter
	TripsCompleted     prometheus.Counter
	ValidatorVerdicts  *prometheus.CounterVec
	DistanceTraveledKm prometheus.Gauge
	TripActive         prometheus.Gauge
}

// NewNavigator creates the collectors and registers them on reg (nil skips registration).
func NewNavigator(reg prometheus.Registerer) *Navigator {
	m := &Navigator{
		TelemetryPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "telemetry", Name: "published_total",
			Help: "Telemetry messages accepted by the broker.",
		}),
		TelemetryFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "telemetry", Name: "failed_total",
			Help: "Telemetry messages the broker did not accept.",
		}),
		WaypointsReached: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "trip", Name: "waypoints_reached_total",
			Help: "Waypoints popped on arrival.",
		}),
		TripsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "trip", Name: "started_total",
			Help: "Trips started.",
		}),
		TripsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "trip", Name: "completed_total",
			Help: "Trips ended, explicitly or on arrival.",
		}),
		ValidatorVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "validator", Name: "verdicts_total",
			Help: "Waypoint validation outcomes.",
		}, []string{"verdict"}),
		DistanceTraveledKm: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "trip", Name: "distance_traveled_km",
			Help: "Distance traveled in the current or last trip.",
		}),
		TripActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "trip", Name: "active",
			Help: "1 while a trip is active.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.TelemetryPublished,
			m.TelemetryFailed,
			m.WaypointsReached,
			m.TripsStarted,
			m.TripsCompleted,
			m.ValidatorVerdicts,
			m.DistanceTraveledKm,
			m.TripActive,
		)
	}
	return m
}

// Recorder groups the trip archive consumer's collectors.
type Recorder struct {
	Handled *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	m := &Recorder{
		Handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "recorder", Name: "messages_total",
			Help: "Archived broker messages by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.Handled)
	}
	return m
}
