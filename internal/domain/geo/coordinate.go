package geo

import (
	"errors"
	"math"
)

// Coordinate is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// NewCoordinate constructs a validated Coordinate.
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	coordinate := Coordinate{Lat: lat, Lng: lng}
	if err := coordinate.Validate(); err != nil {
		return Coordinate{}, err
	}
	return coordinate, nil
}

// Validate checks the coordinate ranges. NaN is rejected.
func (coordinate Coordinate) Validate() error {
	if math.IsNaN(coordinate.Lat) || coordinate.Lat < -90 || coordinate.Lat > 90 {
		return ErrInvalidLatitude
	}
	if math.IsNaN(coordinate.Lng) || coordinate.Lng < -180 || coordinate.Lng > 180 {
		return ErrInvalidLongitude
	}
	return nil
}

// Valid reports whether the coordinate passes Validate.
func (coordinate Coordinate) Valid() bool {
	return coordinate.Validate() == nil
}

// Equal reports whether both coordinates denote the exact same point.
func (coordinate Coordinate) Equal(other Coordinate) bool {
	return coordinate.Lat == other.Lat && coordinate.Lng == other.Lng
}

// DistanceTo is DistanceKm from coordinate to other.
func (coordinate Coordinate) DistanceTo(other Coordinate) float64 {
	return DistanceKm(coordinate.Lat, coordinate.Lng, other.Lat, other.Lng)
}

// BearingTo is BearingDeg from coordinate to other.
func (coordinate Coordinate) BearingTo(other Coordinate) float64 {
	return BearingDeg(coordinate.Lat, coordinate.Lng, other.Lat, other.Lng)
}
