package sensorfeed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"boatnav/internal/domain/sensor"
)

// number accepts JSON numbers, numeric strings, "" and null.
// NaN and infinities are read as missing.
type number struct {
	value float64
	set   bool
}

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = number{}
		return nil
	}

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*n = number{}
			return nil
		}
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("sensor value %q: %w", raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		*n = number{}
		return nil
	}
	*n = number{value: v, set: true}
	return nil
}

// payload is the upstream reading, field names as delivered.
type payload struct {
	Timestamp         string `json:"Timestamp"`
	SpeedKPH          number `json:"Velocidade_KPH"`
	RPM               number `json:"RPM"`
	BatteryVoltage    number `json:"Voltagem_bateria"`
	BatteryPercentage number `json:"Porcentagem_bateria"`
	WindSpeed         number `json:"Velocidade_vento"`
	Temperature       number `json:"Temperatura"`
	Heading           number `json:"heading"`
	Lat               number `json:"lat"`
	Lng               number `json:"lng"`
	CurrentDraw       number `json:"Corrente"`
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseTimestamp(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC()
		}
	}
	return now.UTC()
}

// snapshot maps the upstream payload onto the internal shape.
func (p payload) snapshot(now time.Time) sensor.Snapshot {
	return sensor.Snapshot{
		Timestamp:         parseTimestamp(p.Timestamp, now),
		Lat:               p.Lat.value,
		Lng:               p.Lng.value,
		PositionKnown:     p.Lat.set && p.Lng.set,
		Heading:           normaliseHeading(p.Heading.value),
		SpeedKPH:          p.SpeedKPH.value,
		RPM:               p.RPM.value,
		Temperature:       p.Temperature.value,
		WindSpeed:         p.WindSpeed.value,
		CurrentDraw:       p.CurrentDraw.value,
		BatteryPercentage: p.BatteryPercentage.value,
		BatteryVoltage:    p.BatteryVoltage.value,
	}
}

// normaliseHeading folds h into [0, 360); non-finite input reads as 0.
func normaliseHeading(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	return math.Mod(math.Mod(h, 360)+360, 360)
}
