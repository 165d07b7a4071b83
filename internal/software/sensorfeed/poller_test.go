package sensorfeed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"boatnav/internal/domain/sensor"
	"boatnav/internal/general/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upstream = `{
	"Timestamp": "2026-03-01 12:30:05",
	"Velocidade_KPH": "12.5",
	"RPM": 1800,
	"Voltagem_bateria": 48.2,
	"Porcentagem_bateria": "76",
	"Velocidade_vento": 14.1,
	"Temperatura": 31,
	"heading": -10,
	"lat": -1.4558,
	"lng": "-48.5036",
	"Corrente": null
}`

type collector struct {
	mu  sync.Mutex
	got []sensor.Snapshot
}

func (c *collector) sink(_ context.Context, s sensor.Snapshot) {
	c.mu.Lock()
	c.got = append(c.got, s)
	c.mu.Unlock()
}

func (c *collector) all() []sensor.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sensor.Snapshot(nil), c.got...)
}

func TestPayload_DecodesUpstreamFields(t *testing.T) {
	var p payload
	require.NoError(t, json.Unmarshal([]byte(upstream), &p))

	s := p.snapshot(time.Now())
	assert.Equal(t, time.Date(2026, 3, 1, 12, 30, 5, 0, time.UTC), s.Timestamp)
	assert.Equal(t, 12.5, s.SpeedKPH)
	assert.Equal(t, 1800.0, s.RPM)
	assert.Equal(t, 48.2, s.BatteryVoltage)
	assert.Equal(t, 76.0, s.BatteryPercentage)
	assert.Equal(t, 14.1, s.WindSpeed)
	assert.Equal(t, 31.0, s.Temperature)
	assert.Equal(t, 350.0, s.Heading)
	assert.Equal(t, -1.4558, s.Lat)
	assert.Equal(t, -48.5036, s.Lng)
	assert.Zero(t, s.CurrentDraw)
	assert.True(t, s.PositionKnown)
	assert.True(t, s.HasPosition())
}

func TestPayload_MissingPositionAndBadNumbers(t *testing.T) {
	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"lat": "", "lng": 2, "Timestamp": "garbage"}`), &p))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := p.snapshot(now)
	assert.False(t, s.PositionKnown)
	assert.False(t, s.HasPosition())
	assert.Equal(t, now, s.Timestamp)

	assert.Error(t, json.Unmarshal([]byte(`{"RPM": "fast"}`), &p))
}

func TestPayload_NonFiniteValuesReadAsMissing(t *testing.T) {
	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{
		"heading": "NaN",
		"Velocidade_KPH": "Inf",
		"Porcentagem_bateria": "-Infinity",
		"lat": "NaN",
		"lng": 1
	}`), &p))

	s := p.snapshot(time.Now())
	assert.Zero(t, s.Heading)
	assert.Zero(t, s.SpeedKPH)
	assert.Zero(t, s.BatteryPercentage)
	assert.False(t, s.PositionKnown)

	// the snapshot must stay encodable for telemetry and the dashboard
	_, err := json.Marshal(s)
	assert.NoError(t, err)
}

func TestPayload_HugeHeadingIsFolded(t *testing.T) {
	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"heading": 1e300, "lat": 1, "lng": 1}`), &p))

	done := make(chan sensor.Snapshot, 1)
	go func() { done <- p.snapshot(time.Now()) }()

	select {
	case s := <-done:
		assert.GreaterOrEqual(t, s.Heading, 0.0)
		assert.Less(t, s.Heading, 360.0)
	case <-time.After(2 * time.Second):
		t.Fatal("decoding a huge heading did not return")
	}
}

func TestNormaliseHeading(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{-10, 350},
		{360, 0},
		{725, 5},
		{-720, 0},
		{-1e-14, 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		got := normaliseHeading(tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "heading %v", tt.in)
		assert.Less(t, got, 360.0)
	}
}

func TestPoller_StaleReemitOnFailure(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			http.Error(w, "sensor bus down", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(upstream))
	}))
	defer srv.Close()

	c := &collector{}
	poller := NewPoller(srv.URL, time.Second, time.Second, logger.Discard(), c.sink)
	ctx := context.Background()

	poller.poll(ctx)
	fail.Store(true)
	poller.poll(ctx)
	poller.poll(ctx)
	fail.Store(false)
	poller.poll(ctx)

	got := c.all()
	require.Len(t, got, 4)

	assert.False(t, got[0].Stale)
	assert.True(t, got[1].Stale)
	assert.True(t, got[2].Stale)
	assert.False(t, got[3].Stale)

	// the stale copy keeps the last reading but is not trusted for navigation
	assert.Equal(t, got[0].Lat, got[1].Lat)
	assert.False(t, got[1].HasPosition())
	poller.mu.Lock()
	assert.Equal(t, got[3], poller.last)
	poller.mu.Unlock()
}

func TestPoller_FailureBeforeFirstReading(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := &collector{}
	poller := NewPoller(srv.URL, time.Second, 0, logger.Discard(), c.sink)
	poller.poll(context.Background())

	got := c.all()
	require.Len(t, got, 1)
	assert.True(t, got[0].Stale)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.False(t, got[0].HasPosition())
}

func TestPoller_RunPollsOnInterval(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(upstream))
	}))
	defer srv.Close()

	c := &collector{}
	poller := NewPoller(srv.URL, 10*time.Millisecond, 0, logger.Discard(), c.sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = poller.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(c.all()) >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.GreaterOrEqual(t, hits.Load(), int32(3))
}
