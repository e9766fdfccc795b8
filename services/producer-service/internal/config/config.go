// Package config loads the producer-service configuration with viper.
// Every key can be overridden with PRODUCER_<KEY>, dots replaced by
// underscores (e.g. PRODUCER_SCHEDULER_FIXED_DELAY_MS).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix     = "PRODUCER"
	keyFixedDelay = "scheduler.fixed_delay_ms"
)

type Config struct {
	ServiceName string          `mapstructure:"service_name"`
	Port        int             `mapstructure:"port"`
	LogLevel    string          `mapstructure:"log_level"`
	CRM         SourceConfig    `mapstructure:"crm"`
	Inventory   SourceConfig    `mapstructure:"inventory"`
	HTTP        HTTPConfig      `mapstructure:"http"`
	Retry       RetryConfig     `mapstructure:"retry"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	Topics      TopicsConfig    `mapstructure:"topics"`
	Bus         BusConfig       `mapstructure:"bus"`
	Kafka       KafkaConfig     `mapstructure:"kafka"`
	NATS        NATSConfig      `mapstructure:"nats"`
	Lease       LeaseConfig     `mapstructure:"lease"`
}

type SourceConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Path    string `mapstructure:"path"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

type SchedulerConfig struct {
	FixedDelayMS   int64 `mapstructure:"fixed_delay_ms"`
	InitialDelayMS int64 `mapstructure:"initial_delay_ms"`
}

func (s SchedulerConfig) FixedDelay() time.Duration {
	return time.Duration(s.FixedDelayMS) * time.Millisecond
}

func (s SchedulerConfig) InitialDelay() time.Duration {
	return time.Duration(s.InitialDelayMS) * time.Millisecond
}

type TopicsConfig struct {
	Customer  string `mapstructure:"customer"`
	Inventory string `mapstructure:"inventory"`
}

type BusConfig struct {
	Driver string `mapstructure:"driver"`
}

const (
	DriverKafka = "kafka"
	DriverNATS  = "nats"
)

type KafkaConfig struct {
	Brokers          string        `mapstructure:"brokers"`
	ClientID         string        `mapstructure:"client_id"`
	BatchTimeout     time.Duration `mapstructure:"batch_timeout"`
	AutoCreateTopics bool          `mapstructure:"auto_create_topics"`
}

type NATSConfig struct {
	URL    string `mapstructure:"url"`
	Stream string `mapstructure:"stream"`
}

type LeaseConfig struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	Key       string        `mapstructure:"key"`
	TTL       time.Duration `mapstructure:"ttl"`
}

func (l LeaseConfig) Enabled() bool { return strings.TrimSpace(l.RedisAddr) != "" }

// Load reads defaults, then the optional YAML file at path, then the
// environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// No default exists for the delay, so AutomaticEnv alone would not reach
	// Unmarshal.
	if err := v.BindEnv(keyFixedDelay); err != nil {
		return nil, fmt.Errorf("bind %s: %w", keyFixedDelay, err)
	}

	if !v.IsSet(keyFixedDelay) {
		return nil, fmt.Errorf("%s is required (env %s_SCHEDULER_FIXED_DELAY_MS)", keyFixedDelay, envPrefix)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "producer-service")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("crm.base_url", "http://localhost:8081")
	v.SetDefault("crm.path", "/customers")
	v.SetDefault("inventory.base_url", "http://localhost:8082")
	v.SetDefault("inventory.path", "/products")
	v.SetDefault("http.timeout", "10s")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay", "2s")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.max_delay", "1m")
	v.SetDefault("scheduler.initial_delay_ms", 0)
	v.SetDefault("topics.customer", "customer_data")
	v.SetDefault("topics.inventory", "inventory_data")
	v.SetDefault("bus.driver", DriverKafka)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.client_id", "producer-service")
	v.SetDefault("kafka.batch_timeout", "50ms")
	v.SetDefault("kafka.auto_create_topics", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.stream", "DATASYNC")
	v.SetDefault("lease.redis_addr", "")
	v.SetDefault("lease.key", "datasync:producer:tick")
	v.SetDefault("lease.ttl", "5m")
}

func (c *Config) Validate() error {
	var errs []error
	if c.Scheduler.FixedDelayMS <= 0 {
		errs = append(errs, fmt.Errorf("%s must be > 0", keyFixedDelay))
	}
	if c.Scheduler.InitialDelayMS < 0 {
		errs = append(errs, errors.New("scheduler.initial_delay_ms must be >= 0"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be a valid TCP port (got %d)", c.Port))
	}
	if c.CRM.BaseURL == "" || c.Inventory.BaseURL == "" {
		errs = append(errs, errors.New("crm.base_url and inventory.base_url are required"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be >= 1"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry.multiplier must be >= 1"))
	}
	if c.Topics.Customer == "" || c.Topics.Inventory == "" {
		errs = append(errs, errors.New("topics.customer and topics.inventory are required"))
	}
	switch c.Bus.Driver {
	case DriverKafka, DriverNATS:
	default:
		errs = append(errs, fmt.Errorf("bus.driver must be %q or %q (got %q)", DriverKafka, DriverNATS, c.Bus.Driver))
	}
	return errors.Join(errs...)
}
