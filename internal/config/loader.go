package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/astragrid/pkg/constants"
	"github.com/turtacn/astragrid/pkg/logger"
)

// Loader reads configuration from defaults, an optional config.yaml and
// ASTRAGRID_* environment variables, in increasing precedence.
type Loader struct {
	v      *viper.Viper
	logger logger.Logger
}

// NewLoader creates a loader searching paths for config.yaml. With no paths
// /etc/astragrid/ and the working directory are searched.
func NewLoader(log logger.Logger, paths ...string) *Loader {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"/etc/astragrid/", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("ASTRAGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, logger: log.WithComponent("ConfigLoader")}
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(log logger.Logger) (*Config, error) {
	return NewLoader(log).Load()
}

// Load reads and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		l.logger.Info(context.Background(), "no config file found, using defaults and environment")
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch calls onChange with the reloaded configuration whenever the config file
// changes. Invalid edits are logged and ignored.
func (l *Loader) Watch(onChange func(*Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		if err != nil {
			l.logger.Warn(context.Background(), "ignoring invalid config change",
				logger.String("file", e.Name), logger.Error(err))
			return
		}
		l.logger.Info(context.Background(), "config reloaded", logger.String("file", e.Name))
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Minute)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://localhost:8000"})
	v.SetDefault("server.enable_pprof", false)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "astragrid")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "astragrid")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.path", "astragrid.db")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.series_limit", constants.DefaultSeriesLimit)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.series_ttl", time.Minute)
	v.SetDefault("redis.twin_ttl", 10*time.Minute)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "astragrid.twin-sync")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", 50*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.service_name", "astragrid")
	v.SetDefault("tracing.sample_rate", 1.0)

	v.SetDefault("pipeline.workers", constants.DefaultWorkers)
	v.SetDefault("pipeline.queue_size", constants.DefaultQueueSize)
	v.SetDefault("pipeline.retry_budget", constants.DefaultRetryBudget)
	v.SetDefault("pipeline.stage_timeout", constants.DefaultStageTimeout)
	v.SetDefault("pipeline.backoff_initial", constants.DefaultBackoffInitial)
	v.SetDefault("pipeline.backoff_max", constants.DefaultBackoffMax)
	v.SetDefault("pipeline.series_window", constants.DefaultSeriesWindow)
	v.SetDefault("pipeline.default_component_count", constants.DefaultComponentCount)
	v.SetDefault("pipeline.deterministic_ttf", true)
	v.SetDefault("pipeline.seed", 1)
	v.SetDefault("pipeline.derive_confidence", false)
	v.SetDefault("pipeline.accept_after_rescan_budget", false)
	v.SetDefault("pipeline.extended_compliance", false)
	v.SetDefault("pipeline.archive_ttl", constants.DefaultArchiveTTL)

	v.SetDefault("vision.mode", "simulated")
	v.SetDefault("vision.timeout", 10*time.Second)
	v.SetDefault("vision.retries", 3)
	v.SetDefault("vision.seed", 42)

	v.SetDefault("websocket.commands_per_second", 5.0)
	v.SetDefault("websocket.burst", 10)
	v.SetDefault("websocket.write_timeout", 10*time.Second)
	v.SetDefault("websocket.max_message_bytes", 64*1024)
}
//Personal.AI order the ending
