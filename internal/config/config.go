package config

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers   []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaSinkTopic string   `envconfig:"KAFKA_SINK_TOPIC" default:"region-statistics"`

	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Data sources: region polygons and the raster archive.
	RegionsPath   string `envconfig:"REGIONS_PATH" default:"data/regions.geojson"`
	DataDir       string `envconfig:"DATA_DIR" default:"data/rasters"`
	VariablesPath string `envconfig:"VARIABLES_PATH"` // optional JSON override of the built-in variable set

	// ExportFields projects the serialized record to the named JSON fields
	// (empty = full record). RunSchedule is a cron expression for periodic
	// re-exports; empty means a single run at startup.
	ExportFields []string `envconfig:"EXPORT_FIELDS"`
	RunSchedule  string   `envconfig:"RUN_SCHEDULE"`

	// Workers bounds parallelism inside batched zonal reductions.
	Workers int `envconfig:"WORKERS" default:"4"`
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.RegionsPath == "" {
		return nil, errors.New("REGIONS_PATH is required")
	}
	if cfg.Workers <= 0 {
		return nil, errors.New("WORKERS must be positive")
	}
	if cfg.ShutdownTimeout <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
	}

	return &cfg, nil
}
