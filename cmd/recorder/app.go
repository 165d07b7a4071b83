package recorder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"boatnav/internal/general/config"
	"boatnav/internal/general/contracts"
	"boatnav/internal/general/logger"
	"boatnav/internal/general/metrics"
	"boatnav/internal/general/natsbus"
	"boatnav/internal/general/postgres"
	"boatnav/internal/general/rabbitmq"
	"boatnav/internal/software/recorder/handler"
	"boatnav/internal/software/recorder/service"

	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
)

// messageHandler is the broker-neutral shape of the recorder's entry points.
type messageHandler func(ctx context.Context, routingKey string, body []byte) error

// Run starts the trip archive: broker consumers writing to Postgres, plus the archive lookup API.
func Run(ctx context.Context, configPath string, prefetch int) error {
	// set up a new logger with a static request ID for startup logs
	logger := logger.New("recorder")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load configuration
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load config", err, map[string]any{"path": configPath})
		return err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		logger.Error(ctx, "config_invalid", "Database section is incomplete", err, nil)
		return err
	}

	// set up a Postgres connection pool and make sure the schema exists
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, logger); err != nil {
		logger.Error(ctx, "db_migration_failed", "Failed to apply schema", err, nil)
		return err
	}

	reg := prometheus.NewRegistry()

	// set up the recorder service
	repo := postgres.NewTripRepo()
	svc := service.NewRecorderService(postgres.NewUnitOfWork(pool), repo, repo, logger, metrics.NewRecorder(reg))

	// start the consumers for the configured broker
	stop, err := startConsumers(ctx, cfg, logger, prefetch, svc)
	if err != nil {
		logger.Error(ctx, "broker_connection_failed", "Failed to start broker consumers", err, map[string]any{"broker": cfg.Broker.Kind})
		return err
	}
	defer stop()

	// archive lookups, health and metrics
	mux := http.NewServeMux()
	handler.NewRecorderHTTPHandler(svc, logger, pool, reg).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.RecorderPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Recorder started on port %d", cfg.Services.RecorderPort),
		map[string]any{"port": cfg.Services.RecorderPort, "broker": cfg.Broker.Kind, "prefetch": prefetch},
	)

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
		logger.Info(ctx, "service_stopped", "Recorder stopped", nil)
		return nil
	case err := <-errCh:
		if err != nil {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"addr": srv.Addr})
		}
		return err
	}
}

// startConsumers subscribes the status and log handlers on the configured broker.
func startConsumers(ctx context.Context, cfg *config.Config, logger *logger.Logger, prefetch int, svc *service.RecorderService) (func(), error) {
	if cfg.Broker.Kind == config.BrokerNATS {
		transport := natsbus.NewTransport(cfg.Broker.NATS.URL, cfg.Broker.NATS.Name+"-recorder", logger)
		if err := transport.Connect(ctx); err != nil {
			return nil, err
		}
		subs := []struct {
			subject string
			queue   string
			handle  messageHandler
		}{
			{contracts.RouteTripStatusPattern, contracts.QueueTripStatus, svc.HandleStatus},
			{contracts.RouteTripLogPattern, contracts.QueueTripLog, svc.HandleLog},
		}
		for _, s := range subs {
			if err := transport.QueueSubscribe(ctx, s.subject, s.queue, natsbus.MessageHandler(s.handle)); err != nil {
				transport.Disconnect()
				return nil, err
			}
		}
		return transport.Disconnect, nil
	}

	client, err := rabbitmq.ConnectRabbitMQ(ctx, cfg.RabbitMQURL(), logger, nil)
	if err != nil {
		return nil, err
	}
	go client.ConsumeForever(ctx, contracts.QueueTripStatus, "recorder-status", prefetch, amqpHandler(svc.HandleStatus))
	go client.ConsumeForever(ctx, contracts.QueueTripLog, "recorder-log", prefetch, amqpHandler(svc.HandleLog))
	return client.Close, nil
}

// amqpHandler adapts a recorder entry point to a delivery handler; invalid messages are poison.
func amqpHandler(handle messageHandler) rabbitmq.Handler {
	return func(ctx context.Context, d amqp.Delivery) error {
		err := handle(ctx, d.RoutingKey, d.Body)
		if errors.Is(err, service.ErrInvalidMessage) {
			return fmt.Errorf("%w: %w", rabbitmq.ErrPoison, err)
		}
		return err
	}
}
