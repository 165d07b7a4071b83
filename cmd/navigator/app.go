package navigator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"boatnav/internal/general/cache"
	"boatnav/internal/general/config"
	"boatnav/internal/general/contracts"
	"boatnav/internal/general/logger"
	"boatnav/internal/general/metrics"
	"boatnav/internal/general/natsbus"
	"boatnav/internal/general/rabbitmq"
	"boatnav/internal/general/websocket"
	"boatnav/internal/ports"
	"boatnav/internal/software/navigation/handler"
	"boatnav/internal/software/navigation/service"
	"boatnav/internal/software/sensorfeed"
	"boatnav/internal/software/water"

	gorilla "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Run starts the on-board navigator: sensor polling, the trip engine, the dashboard API and stream.
func Run(ctx context.Context, configPath string, maxConcurrent int) error {
	// set up a new logger with a static request ID for startup logs
	logger := logger.New("navigator")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load configuration
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load config", err, map[string]any{"path": configPath})
		return err
	}

	// metrics registry exposed on /metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	navMetrics := metrics.NewNavigator(reg)

	// broker transport; the engine connects it when a trip starts
	transport := newTransport(cfg, logger)

	// waypoint validator, cached in Redis when configured
	redis := cache.NewRedis(ctx, cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	defer redis.Close()
	checker := water.NewCachedChecker(
		water.NewClient(cfg.Validator.BaseURL, cfg.Validator.AccessToken, cfg.Validator.Timeout),
		redis, cfg.Redis.TTL, logger,
	)

	// dashboard stream doubles as the notifier
	hub := websocket.NewHub(logger)
	defer hub.Close()

	// set up the trip engine
	engine := service.NewEngine(service.Config{
		BoatID:             cfg.Boat.ID,
		TelemetryInterval:  cfg.Navigation.TelemetryInterval,
		DisconnectGrace:    cfg.Navigation.DisconnectGrace,
		ArrivalThresholdKm: cfg.Navigation.ArrivalThresholdKm,
	}, logger, transport, checker, hub, navMetrics)
	defer engine.Close()

	engine.OnStateChange(hub.PublishState)
	hub.OnConnect(func() []contracts.WSEvent { return hub.StateEvents(engine.View()) })
	hub.Handle("dismiss_alert", func(_ context.Context, data json.RawMessage) error {
		var p struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("bad dismiss_alert payload: %w", err)
		}
		if !engine.DismissAlert(strings.TrimSpace(p.ID)) {
			return errors.New("alert not found")
		}
		return nil
	})

	// start polling the sensor feed in the background
	poller := sensorfeed.NewPoller(cfg.Sensor.URL, cfg.Sensor.PollInterval, cfg.Sensor.Timeout, logger, engine.HandleSnapshot)
	go func() { _ = poller.Run(ctx) }()

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	httpHandler := handler.NewNavigationHTTPHandler(engine, logger, hub.Connect, reg)
	httpHandler.RegisterRoutes(mux)

	// set up the server configurations
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.NavigatorPort),
		Handler:           withConcurrencyLimit(maxConcurrent, mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// validation lookups can take a while
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Navigator started on port %d", cfg.Services.NavigatorPort),
		map[string]any{
			"port":           cfg.Services.NavigatorPort,
			"boat_id":        cfg.Boat.ID,
			"broker":         cfg.Broker.Kind,
			"max_concurrent": maxConcurrent,
			"redis_cache":    redis.Enabled(),
		},
	)

	return serve(ctx, srv, logger)
}

// newTransport picks the broker adapter named in the config.
func newTransport(cfg *config.Config, logger *logger.Logger) ports.Transport {
	if cfg.Broker.Kind == config.BrokerNATS {
		return natsbus.NewTransport(cfg.Broker.NATS.URL, cfg.Broker.NATS.Name, logger)
	}
	return rabbitmq.NewTransport(cfg.RabbitMQURL(), logger)
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, logger *logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
		logger.Info(ctx, "service_stopped", "Navigator stopped", nil)
		return nil
	case err := <-errCh:
		if err != nil {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"addr": srv.Addr})
		}
		return err
	}
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// Websocket upgrades are long-lived and bypass it.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gorilla.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
