package contracts

import "time"

// GeoPoint is a latitude/longitude pair on the wire.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Battery groups the traction battery readings.
type Battery struct {
	Percentage float64 `json:"percentage"`
	Voltage    float64 `json:"voltage"`
}

// Timestamp formats t as ISO-8601 (RFC 3339, UTC, millisecond precision).
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// ParseTimestamp reads an ISO-8601 timestamp written by Timestamp (fractional seconds optional).
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
