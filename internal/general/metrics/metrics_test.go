package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNavigator_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewNavigator(reg)

	m.TripsStarted.Inc()
	m.ValidatorVerdicts.WithLabelValues("accepted").Inc()
	m.DistanceTraveledKm.Set(1.5)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["boatnav_trip_started_total"])
	assert.True(t, names["boatnav_validator_verdicts_total"])
	assert.True(t, names["boatnav_trip_distance_traveled_km"])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TripsStarted))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.DistanceTraveledKm))

	// double registration on the same registry is a programming error
	assert.Panics(t, func() { NewNavigator(reg) })
}

func TestNewNavigator_NilRegisterer(t *testing.T) {
	m := NewNavigator(nil)
	m.TelemetryPublished.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TelemetryPublished))
}

func TestNewRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRecorder(reg)
	m.Handled.WithLabelValues("status", "ok").Inc()
	assert.Equal(t, 1, testutil.CollectAndCount(m.Handled))
}
