// Package sensorfeed polls the boat's sensor API and hands snapshots to the engine.
package sensorfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"boatnav/internal/domain/sensor"
	"boatnav/internal/general/logger"
)

// Sink receives every snapshot, fresh or stale.
type Sink func(ctx context.Context, snapshot sensor.Snapshot)

type Poller struct {
	url      string
	interval time.Duration
	http     *http.Client
	logger   *logger.Logger
	sink     Sink
	now      func() time.Time

	mu       sync.Mutex
	last     sensor.Snapshot
	failures int
}

func NewPoller(url string, interval, timeout time.Duration, logger *logger.Logger, sink Sink) *Poller {
	if interval <= 0 {
		interval = 2500 * time.Millisecond
	}
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	return &Poller{
		url:      url,
		interval: interval,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
		sink:     sink,
		now:      time.Now,
	}
}

// Run polls immediately and then on every interval until ctx is done.
func (poller *Poller) Run(ctx context.Context) error {
	poller.logger.Info(ctx, "sensor_poller_started", "Sensor polling started",
		map[string]any{"url": poller.url, "interval_ms": poller.interval.Milliseconds()})

	ticker := time.NewTicker(poller.interval)
	defer ticker.Stop()

	poller.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			poller.poll(ctx)
		}
	}
}

func (poller *Poller) poll(ctx context.Context) {
	snapshot, err := poller.Fetch(ctx)
	if ctx.Err() != nil {
		return
	}

	poller.mu.Lock()
	if err != nil {
		poller.failures++
		// keep the last reading visible, flagged as untrusted
		snapshot = poller.last.MarkStale()
		if snapshot.Timestamp.IsZero() {
			snapshot.Timestamp = poller.now().UTC()
		}
	} else {
		if poller.failures > 0 {
			poller.logger.Info(ctx, "sensor_fetch_recovered", "Sensor data available again",
				map[string]any{"failed_polls": poller.failures})
		}
		poller.failures = 0
	}
	poller.last = snapshot
	failures := poller.failures
	poller.mu.Unlock()

	if err != nil && failures == 1 {
		poller.logger.Error(ctx, "sensor_fetch_failed", "Sensor data unavailable", err, map[string]any{"url": poller.url})
	}

	poller.sink(ctx, snapshot)
}

// Fetch performs one request against the sensor API.
func (poller *Poller) Fetch(ctx context.Context) (sensor.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, poller.url, nil)
	if err != nil {
		return sensor.Snapshot{}, fmt.Errorf("sensor request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := poller.http.Do(req)
	if err != nil {
		return sensor.Snapshot{}, fmt.Errorf("sensor fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return sensor.Snapshot{}, fmt.Errorf("sensor fetch: status %d", resp.StatusCode)
	}

	var body payload
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return sensor.Snapshot{}, fmt.Errorf("sensor decode: %w", err)
	}
	return body.snapshot(poller.now()), nil
}
