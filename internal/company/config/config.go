// Package config loads the service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the service looks for its config file.
const DefaultPath = "internal/company/config/config.yaml"

type Config struct {
	GRPCPort int    `yaml:"grpc_port" env:"COMPANYHUB_GRPC_PORT"`
	HTTPPort int    `yaml:"http_port" env:"COMPANYHUB_HTTP_PORT"`
	LogLevel string `yaml:"log_level" env:"COMPANYHUB_LOG_LEVEL"`
	// Development switches to the human readable zap encoder.
	Development bool `yaml:"development" env:"COMPANYHUB_DEVELOPMENT"`

	DB        DBConfig        `yaml:"db"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	JWT       JWTConfig       `yaml:"jwt"`
	Invites   InvitesConfig   `yaml:"invites"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type DBConfig struct {
	Driver   string `yaml:"driver" env:"COMPANYHUB_DB_DRIVER"`
	Host     string `yaml:"host" env:"COMPANYHUB_DB_HOST"`
	Port     int    `yaml:"port" env:"COMPANYHUB_DB_PORT"`
	User     string `yaml:"user" env:"COMPANYHUB_DB_USER"`
	Password string `yaml:"password" env:"COMPANYHUB_DB_PASSWORD"`
	Name     string `yaml:"name" env:"COMPANYHUB_DB_NAME"`
	SSLMode  string `yaml:"sslmode" env:"COMPANYHUB_DB_SSLMODE"`
	// Path is used by the sqlite driver only.
	Path           string        `yaml:"path" env:"COMPANYHUB_DB_PATH"`
	MaxOpenConns   int           `yaml:"max_open_conns" env:"COMPANYHUB_DB_MAX_OPEN_CONNS"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"COMPANYHUB_DB_CONNECT_TIMEOUT"`
}

type KafkaConfig struct {
	Enabled     bool          `yaml:"enabled" env:"COMPANYHUB_KAFKA_ENABLED"`
	Brokers     []string      `yaml:"brokers" env:"COMPANYHUB_KAFKA_BROKERS" envSeparator:","`
	Topic       string        `yaml:"topic" env:"COMPANYHUB_KAFKA_TOPIC"`
	GroupID     string        `yaml:"group_id" env:"COMPANYHUB_KAFKA_GROUP_ID"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"COMPANYHUB_KAFKA_DIAL_TIMEOUT"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret" env:"COMPANYHUB_JWT_SECRET"`
	TTL    time.Duration `yaml:"ttl" env:"COMPANYHUB_JWT_TTL"`
}

type InvitesConfig struct {
	// ConcealForeign answers lookups of invites addressed to someone else
	// with not found instead of permission denied.
	ConcealForeign bool `yaml:"conceal_foreign" env:"COMPANYHUB_INVITES_CONCEAL_FOREIGN"`
}

type SchedulerConfig struct {
	Enabled       bool          `yaml:"enabled" env:"COMPANYHUB_SCHEDULER_ENABLED"`
	ReminderSpec  string        `yaml:"reminder_spec" env:"COMPANYHUB_SCHEDULER_REMINDER_SPEC"`
	ReminderAfter time.Duration `yaml:"reminder_after" env:"COMPANYHUB_SCHEDULER_REMINDER_AFTER"`
	JobTimeout    time.Duration `yaml:"job_timeout" env:"COMPANYHUB_SCHEDULER_JOB_TIMEOUT"`
}

// Default returns the configuration used for every value neither the file
// nor the environment sets.
func Default() *Config {
	return &Config{
		GRPCPort: 50051,
		HTTPPort: 8080,
		LogLevel: "info",
		DB: DBConfig{
			Driver:         "postgres",
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			Name:           "companyhub",
			SSLMode:        "disable",
			MaxOpenConns:   20,
			ConnectTimeout: 30 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:     []string{"localhost:9092"},
			Topic:       "company-membership-events",
			GroupID:     "companyhub-notifications",
			DialTimeout: 10 * time.Second,
		},
		JWT: JWTConfig{TTL: 24 * time.Hour},
		Scheduler: SchedulerConfig{
			Enabled:       true,
			ReminderSpec:  "0 0 0 * * *",
			ReminderAfter: 24 * time.Hour,
			JobTimeout:    5 * time.Minute,
		},
	}
}

// Load applies the YAML file at path, when it exists, and then the
// environment on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.GRPCPort <= 0 || c.HTTPPort <= 0 {
		errs = append(errs, errors.New("grpc_port and http_port must be positive"))
	}
	if c.GRPCPort == c.HTTPPort {
		errs = append(errs, errors.New("grpc_port and http_port must differ"))
	}
	switch c.DB.Driver {
	case "postgres":
		if c.DB.Host == "" || c.DB.Name == "" {
			errs = append(errs, errors.New("db.host and db.name are required for postgres"))
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported db.driver %q", c.DB.Driver))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("jwt.ttl must be positive"))
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		errs = append(errs, errors.New("kafka.brokers and kafka.topic are required when kafka is enabled"))
	}
	if c.Scheduler.Enabled && (c.Scheduler.ReminderSpec == "" || c.Scheduler.ReminderAfter <= 0) {
		errs = append(errs, errors.New("scheduler.reminder_spec and a positive scheduler.reminder_after are required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
