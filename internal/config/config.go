package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/speedwagon-io/sensorsim/internal/sink"
)

type Config struct {
	Env             string         `yaml:"env" env:"SENSORSIM_ENV" env-default:"local"`
	Seed            int64          `yaml:"seed" env:"SENSORSIM_SEED" env-default:"0"`
	ShutdownTimeout time.Duration  `yaml:"shutdown_timeout" env-default:"10s"`
	Sink            SinkConfig     `yaml:"sink"`
	Health          HealthConfig   `yaml:"health"`
	Log             LogConfig      `yaml:"log"`
	Sensors         []SensorConfig `yaml:"sensors"`
}

type SinkConfig struct {
	Backend string `yaml:"backend" env:"SENSORSIM_SINK_BACKEND" env-default:"csv"`
	Path    string `yaml:"path" env:"SENSORSIM_SINK_PATH" env-default:"data/raw_data.csv"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address" env:"SENSORSIM_HEALTH_ADDRESS" env-default:":8080"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"SENSORSIM_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env-default:"json"`
}

// Load reads and validates the config. An empty path falls back to
// CONFIG_PATH and then to config/config.yaml.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	// env-default would turn an explicit false back into true
	cfg := Config{Health: HealthConfig{Enabled: true}}
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Sink.Backend {
	case sink.BackendCSV, sink.BackendSQLite:
		if c.Sink.Path == "" {
			errs = append(errs, fmt.Errorf("sink.path is required for backend %q", c.Sink.Backend))
		}
	case sink.BackendLog:
	default:
		errs = append(errs, fmt.Errorf("unknown sink backend %q", c.Sink.Backend))
	}

	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}

	errs = append(errs, c.validateSensors()...)

	return errors.Join(errs...)
}
