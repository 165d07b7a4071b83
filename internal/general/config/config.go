package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Broker kinds.
const (
	BrokerRabbitMQ = "rabbitmq"
	BrokerNATS     = "nats"
)

// DatabaseConfig is the recorder's Postgres connection.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"database"`
}

type Config struct {
	Boat struct {
		ID string `yaml:"id"`
	} `yaml:"boat"`

	Broker struct {
		Kind     string `yaml:"kind"`
		RabbitMQ struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			VHost    string `yaml:"vhost"`
		} `yaml:"rabbitmq"`
		NATS struct {
			URL  string `yaml:"url"`
			Name string `yaml:"name"`
		} `yaml:"nats"`
	} `yaml:"broker"`

	Sensor struct {
		URL          string        `yaml:"url"`
		PollInterval time.Duration `yaml:"poll_interval"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"sensor"`

	Validator struct {
		BaseURL     string        `yaml:"base_url"`
		AccessToken string        `yaml:"access_token"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"validator"`

	Navigation struct {
		TelemetryInterval  time.Duration `yaml:"telemetry_interval"`
		DisconnectGrace    time.Duration `yaml:"disconnect_grace"`
		ArrivalThresholdKm float64       `yaml:"arrival_threshold_km"`
	} `yaml:"navigation"`

	// Redis is optional; an empty addr disables the validator cache.
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	Database DatabaseConfig `yaml:"database"`

	Services struct {
		NavigatorPort int `yaml:"navigator_port"`
		RecorderPort  int `yaml:"recorder_port"`
	} `yaml:"services"`
}

// LoadFromFile loads config from a YAML file to a Config struct, applies defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Load(file)
}

// Load reads YAML from r. Unknown keys are rejected.
func Load(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	if cfg.Boat.ID == "" {
		cfg.Boat.ID = "boat-1"
	}

	// Broker
	if cfg.Broker.Kind == "" {
		cfg.Broker.Kind = BrokerRabbitMQ
	}
	cfg.Broker.Kind = strings.ToLower(strings.TrimSpace(cfg.Broker.Kind))
	if cfg.Broker.RabbitMQ.Host == "" {
		cfg.Broker.RabbitMQ.Host = "localhost"
	}
	if cfg.Broker.RabbitMQ.Port == 0 {
		cfg.Broker.RabbitMQ.Port = 5672
	}
	if cfg.Broker.NATS.URL == "" {
		cfg.Broker.NATS.URL = "nats://127.0.0.1:4222"
	}
	if cfg.Broker.NATS.Name == "" {
		cfg.Broker.NATS.Name = "boatnav"
	}

	// Sensor
	if cfg.Sensor.PollInterval == 0 {
		cfg.Sensor.PollInterval = 2500 * time.Millisecond
	}
	if cfg.Sensor.Timeout == 0 {
		cfg.Sensor.Timeout = 2 * time.Second
	}

	// Validator
	if cfg.Validator.Timeout == 0 {
		cfg.Validator.Timeout = 5 * time.Second
	}

	// Navigation
	if cfg.Navigation.TelemetryInterval == 0 {
		cfg.Navigation.TelemetryInterval = 5 * time.Second
	}
	if cfg.Navigation.DisconnectGrace == 0 {
		cfg.Navigation.DisconnectGrace = 2 * time.Second
	}
	if cfg.Navigation.ArrivalThresholdKm == 0 {
		cfg.Navigation.ArrivalThresholdKm = 0.05
	}

	// Redis
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 24 * time.Hour
	}

	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// Services
	if cfg.Services.NavigatorPort == 0 {
		cfg.Services.NavigatorPort = 3000
	}
	if cfg.Services.RecorderPort == 0 {
		cfg.Services.RecorderPort = 3001
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	// Broker
	switch c.Broker.Kind {
	case BrokerRabbitMQ:
		if !validPort(c.Broker.RabbitMQ.Port) {
			problems = append(problems, "broker.rabbitmq.port must be in 1..65535")
		}
		if c.Broker.RabbitMQ.User == "" {
			problems = append(problems, "broker.rabbitmq.user is required")
		}
		if c.Broker.RabbitMQ.Password == "" {
			problems = append(problems, "broker.rabbitmq.password is required")
		}
	case BrokerNATS:
		if !validURL(c.Broker.NATS.URL) {
			problems = append(problems, "broker.nats.url must be an absolute URL")
		}
	default:
		problems = append(problems, fmt.Sprintf("broker.kind %q is not one of rabbitmq, nats", c.Broker.Kind))
	}

	// Sensor
	if !validURL(c.Sensor.URL) {
		problems = append(problems, "sensor.url must be an absolute URL")
	}
	if c.Sensor.PollInterval < 0 {
		problems = append(problems, "sensor.poll_interval must be positive")
	}

	// Validator
	if !validURL(c.Validator.BaseURL) {
		problems = append(problems, "validator.base_url must be an absolute URL")
	}

	// Navigation
	if c.Navigation.TelemetryInterval < 0 {
		problems = append(problems, "navigation.telemetry_interval must be positive")
	}
	if c.Navigation.DisconnectGrace < 0 {
		problems = append(problems, "navigation.disconnect_grace must not be negative")
	}
	if c.Navigation.ArrivalThresholdKm < 0 {
		problems = append(problems, "navigation.arrival_threshold_km must be positive")
	}

	// Redis
	if c.Redis.DB < 0 {
		problems = append(problems, "redis.db must not be negative")
	}

	// DB
	if !validPort(c.Database.Port) {
		problems = append(problems, "database.port must be in 1..65535")
	}

	// Services
	if !validPort(c.Services.NavigatorPort) {
		problems = append(problems, "services.navigator_port must be in 1..65535")
	}
	if !validPort(c.Services.RecorderPort) {
		problems = append(problems, "services.recorder_port must be in 1..65535")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// ValidateDatabase checks the fields only the recorder needs.
func (c *Config) ValidateDatabase() error {
	var problems []string
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database.password is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.database is required")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// RabbitMQURL builds the AMQP URL from the broker section.
func (c *Config) RabbitMQURL() string {
	u := &url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.Broker.RabbitMQ.User, c.Broker.RabbitMQ.Password),
		Host:   fmt.Sprintf("%s:%d", c.Broker.RabbitMQ.Host, c.Broker.RabbitMQ.Port),
		Path:   "/" + strings.TrimPrefix(c.Broker.RabbitMQ.VHost, "/"),
	}
	return u.String()
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

func validURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	return err == nil && u.Scheme != "" && u.Host != ""
}
