package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the application's configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Vision    VisionConfig    `mapstructure:"vision"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	EnablePprof  bool          `mapstructure:"enable_pprof"`
	Mode         string        `mapstructure:"mode" validate:"oneof=debug release test"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	Path            string        `mapstructure:"path"`
	MaxConns        int           `mapstructure:"max_conns" validate:"min=1"`
	MinConns        int           `mapstructure:"min_conns" validate:"min=0"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	SeriesLimit     int           `mapstructure:"series_limit" validate:"min=1"`
}

// GetDSN returns the driver-specific data source name.
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	SeriesTTL    time.Duration `mapstructure:"series_ttl"`
	TwinTTL      time.Duration `mapstructure:"twin_ttl"`
}

type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error fatal"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SampleRate     float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

type PipelineConfig struct {
	Workers                 int           `mapstructure:"workers" validate:"min=1"`
	QueueSize               int           `mapstructure:"queue_size" validate:"min=1"`
	RetryBudget             int           `mapstructure:"retry_budget" validate:"min=0"`
	StageTimeout            time.Duration `mapstructure:"stage_timeout" validate:"gt=0"`
	BackoffInitial          time.Duration `mapstructure:"backoff_initial" validate:"gt=0"`
	BackoffMax              time.Duration `mapstructure:"backoff_max" validate:"gt=0"`
	SeriesWindow            time.Duration `mapstructure:"series_window" validate:"gt=0"`
	DefaultComponentCount   int           `mapstructure:"default_component_count" validate:"min=1"`
	DeterministicTTF        bool          `mapstructure:"deterministic_ttf"`
	Seed                    int64         `mapstructure:"seed"`
	DeriveConfidence        bool          `mapstructure:"derive_confidence"`
	AcceptAfterRescanBudget bool          `mapstructure:"accept_after_rescan_budget"`
	ExtendedCompliance      bool          `mapstructure:"extended_compliance"`
	ArchiveTTL              time.Duration `mapstructure:"archive_ttl" validate:"gt=0"`
}

type VisionConfig struct {
	Mode     string        `mapstructure:"mode" validate:"oneof=simulated http"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Retries  int           `mapstructure:"retries"`
	Seed     int64         `mapstructure:"seed"`
}

type WebSocketConfig struct {
	CommandsPerSecond float64       `mapstructure:"commands_per_second" validate:"gt=0"`
	Burst             int           `mapstructure:"burst" validate:"min=1"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes"`
}

var validate = validator.New()

// Validate checks the struct tags and the rules that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Pipeline.BackoffMax < c.Pipeline.BackoffInitial {
		return fmt.Errorf("pipeline.backoff_max (%s) must not be below pipeline.backoff_initial (%s)",
			c.Pipeline.BackoffMax, c.Pipeline.BackoffInitial)
	}
	if c.Vision.Mode == "http" && c.Vision.Endpoint == "" {
		return fmt.Errorf("vision.endpoint is required when vision.mode is http")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when redis is enabled")
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		return fmt.Errorf("database.path is required for the sqlite driver")
	}
	return nil
}
