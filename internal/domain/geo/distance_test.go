package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
		delta                  float64
	}{
		{"identity", -1.46, -48.50, -1.46, -48.50, 0, 0},
		{"one degree of latitude", 0, 0, 1, 0, 111.195, 0.01},
		{"one degree of longitude at equator", 0, 0, 0, 1, 111.195, 0.01},
		{"london to paris", 51.5074, -0.1278, 48.8566, 2.3522, 343.5, 1},
		{"belem harbour hop", -1.4558, -48.5036, -1.4600, -48.5000, 0.6150, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			assert.InDelta(t, tt.want, got, tt.delta)
		})
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	pairs := [][4]float64{
		{-1.46, -48.50, -1.47, -48.49},
		{89.9, 179.9, -89.9, -179.9},
		{10, 20, 30, 40},
		{0, 179.5, 0, -179.5},
	}
	for _, p := range pairs {
		ab := DistanceKm(p[0], p[1], p[2], p[3])
		ba := DistanceKm(p[2], p[3], p[0], p[1])
		assert.InDelta(t, ab, ba, 1e-9)
	}
}

func TestDistanceKm_MissingInputReturnsZero(t *testing.T) {
	nan := math.NaN()
	assert.Zero(t, DistanceKm(nan, 0, 1, 1))
	assert.Zero(t, DistanceKm(0, nan, 1, 1))
	assert.Zero(t, DistanceKm(0, 0, nan, 1))
	assert.Zero(t, DistanceKm(0, 0, 1, nan))
}

func TestBearingDeg(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
	}{
		{"due north", 0, 0, 1, 0, 0},
		{"due east", 0, 0, 0, 1, 90},
		{"due south", 1, 0, 0, 0, 180},
		{"due west", 0, 1, 0, 0, 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, BearingDeg(tt.lat1, tt.lng1, tt.lat2, tt.lng2), 1e-6)
		})
	}
}

func TestBearingDeg_Range(t *testing.T) {
	for lat := -80.0; lat <= 80; lat += 20 {
		for lng := -170.0; lng <= 170; lng += 34 {
			for _, d := range [][2]float64{{0.5, 0.5}, {-0.5, 0.5}, {0.5, -0.5}, {-0.5, -0.5}, {0, -1e-12}} {
				b := BearingDeg(lat, lng, lat+d[0], lng+d[1])
				require.GreaterOrEqual(t, b, 0.0)
				require.Less(t, b, 360.0)
			}
		}
	}
}

func TestBearingDeg_MissingInputReturnsZero(t *testing.T) {
	assert.Zero(t, BearingDeg(math.NaN(), 0, 1, 1))
}

func TestCoordinate_Validate(t *testing.T) {
	_, err := NewCoordinate(-1.46, -48.5)
	require.NoError(t, err)

	_, err = NewCoordinate(91, 0)
	assert.ErrorIs(t, err, ErrInvalidLatitude)

	_, err = NewCoordinate(0, -181)
	assert.ErrorIs(t, err, ErrInvalidLongitude)

	_, err = NewCoordinate(math.NaN(), 0)
	assert.ErrorIs(t, err, ErrInvalidLatitude)

	a := Coordinate{Lat: 1, Lng: 2}
	assert.True(t, a.Equal(Coordinate{Lat: 1, Lng: 2}))
	assert.False(t, a.Equal(Coordinate{Lat: 1, Lng: 2.000001}))
}
